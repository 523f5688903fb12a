package suggestion

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/affinity-suggest/internal/logger"

	"go.uber.org/zap"
)

const (
	suggestionsPath = "/affinity-ml-hire"
	decisionPath    = "/affinity-ml-hire/change"
	userAgent       = "spigell/affinity-suggest"
	defaultTimeout  = 10 * time.Second
)

// Client talks to the affinity suggestion service. It holds no mutable state
// after New and can be shared between goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default transport. Timeouts are configured on it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

func New(baseURL, apiKey string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.WithFields(log, zap.String("component", "suggestion")),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch returns the ranked suggestions for a work offer. The order of the
// upstream list is kept.
func (c *Client) Fetch(ctx context.Context, businessUserID, workOfferID int64) Outcome[Result] {
	payload := &Request{
		BusinessUserID: businessUserID,
		WorkOfferID:    workOfferID,
	}

	r, ferr := c.postJSON(ctx, suggestionsPath, payload)
	if ferr != nil {
		return failure[Result](ferr)
	}

	result, err := parseResult(r.body)
	if err != nil {
		code := GenericError
		var malformed *malformedBodyError
		if errors.As(err, &malformed) {
			code = UnexpectedError
		}

		return failure[Result](c.fail(r.logger, code, "parsing suggestions response",
			zap.Error(err),
			bodyField(r.body),
		))
	}

	r.logger.Debug("got suggestions",
		zap.String("uuid", result.UUID),
		zap.Int("count", len(result.Data.Suggestions)),
	)

	return success(*result)
}

// RecordDecision sends an accept or discard decision for a suggested match.
// A successful outcome always carries true.
func (c *Client) RecordDecision(ctx context.Context, d Decision) Outcome[bool] {
	payload, err := d.body()
	if err != nil {
		return failure[bool](c.fail(c.logger, UnexpectedError, "building decision request", zap.Error(err)))
	}

	r, ferr := c.postJSON(ctx, decisionPath, payload)
	if ferr != nil {
		return failure[bool](ferr)
	}

	r.logger.Debug("decision recorded",
		zap.String("uuid", d.UUID),
		zap.Stringer("action", d.Action),
	)

	return success(true)
}

func (c *Client) Interested(ctx context.Context, uuid string, businessUserID, matchUserID, workOfferID int64) Outcome[bool] {
	return c.RecordDecision(ctx, Decision{
		UUID:           uuid,
		BusinessUserID: businessUserID,
		MatchUserID:    matchUserID,
		WorkOfferID:    workOfferID,
		Action:         Accept,
	})
}

func (c *Client) NotInterested(ctx context.Context, uuid string, businessUserID, matchUserID, workOfferID int64) Outcome[bool] {
	return c.RecordDecision(ctx, Decision{
		UUID:           uuid,
		BusinessUserID: businessUserID,
		MatchUserID:    matchUserID,
		WorkOfferID:    workOfferID,
		Action:         Discard,
	})
}

// fail logs the technical cause and returns the sanitized error.
func (c *Client) fail(log *zap.Logger, code ErrorCode, msg string, fields ...zap.Field) *Error {
	log.Error(msg, append([]zap.Field{zap.String("code", string(code))}, fields...)...)
	return newError(code)
}
