package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spigell/affinity-suggest/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	apiKeyHeader    = "x-api-key"
	requestIDHeader = "X-Request-Id"
	// Upstream bodies are only logged, never returned, so keep them short.
	maxLoggedBody = 512
)

// reply is a 200 response with its body fully read.
type reply struct {
	body   []byte
	logger *zap.Logger
}

// postJSON performs one POST exchange and classifies every failure on the way.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (*reply, *Error) {
	requestID := uuid.NewString()
	log := c.logger.With(
		zap.String("endpoint", path),
		zap.String("request_id", requestID),
	)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, c.fail(log, UnexpectedError, "encoding request body", zap.Error(err))
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, c.fail(log, UnexpectedError, "building request", zap.Error(err))
	}

	req = c.setHeaders(req, requestID)

	resp, err := c.request(log, req)
	if err != nil {
		return nil, c.fail(log, ConnectionError, "connecting to the suggestion service", zap.Error(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(log, ServerError, "reading response body",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(log, classifyStatus(resp.StatusCode), "unexpected status code",
			zap.Int("status", resp.StatusCode),
			bodyField(body),
		)
	}

	return &reply{body: body, logger: log}, nil
}

func (c *Client) request(log *zap.Logger, req *http.Request) (*http.Response, error) {
	log.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, requestID string) *http.Request {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("User-Agent", c.userAgent)

	return req
}

func bodyField(body []byte) zap.Field {
	return zap.String("body", utils.TruncateForLog(string(body), maxLoggedBody))
}
