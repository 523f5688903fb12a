package suggestion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testAPIKey = "secret-key"

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

// stubServer answers every request with the given status and body and keeps
// the last request it saw.
type stubServer struct {
	*httptest.Server
	calls atomic.Int32
	last  atomic.Pointer[capturedRequest]
}

func newStubServer(t *testing.T, status int, body string) *stubServer {
	t.Helper()

	s := &stubServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)

		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)

		s.last.Store(&capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			header: r.Header.Clone(),
			body:   decoded,
		})

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)

	return s
}

func newTestClient(url string) (*Client, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return New(url, testAPIKey, zap.New(core)), observed
}

func TestFetch(t *testing.T) {
	body := `{
		"success": true,
		"message": "affinities returned",
		"result": {
			"uuid": "abc",
			"results": [
				{"match_user_id": 123, "affinity": 0.78, "rank": 1, "model": "v3"},
				{"match_user_id": 77, "affinity": 0.91, "rank": 2}
			]
		}
	}`
	server := newStubServer(t, http.StatusOK, body)
	client, _ := newTestClient(server.URL + "/")

	outcome := client.Fetch(context.Background(), 1, 2)
	if !outcome.OK() {
		t.Fatalf("expected success, got %v", outcome.Err)
	}

	expected := Result{
		UUID: "abc",
		Data: Data{Suggestions: []Suggestion{
			{MatchUserID: 123, Affinity: 0.78, Rank: 1},
			{MatchUserID: 77, Affinity: 0.91, Rank: 2},
		}},
	}
	if !reflect.DeepEqual(outcome.Value, expected) {
		t.Fatalf("unexpected result: %+v", outcome.Value)
	}

	req := server.last.Load()
	if req.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.method)
	}
	if req.path != "/affinity-ml-hire" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if got := req.header.Get("x-api-key"); got != testAPIKey {
		t.Fatalf("unexpected api key header %q", got)
	}
	if got := req.header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	if req.header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	wantBody := map[string]any{"business_user_id": float64(1), "work_offer_id": float64(2)}
	if !reflect.DeepEqual(req.body, wantBody) {
		t.Fatalf("unexpected request body: %v", req.body)
	}
}

func TestFetchResultJSON(t *testing.T) {
	server := newStubServer(t, http.StatusOK,
		`{"uuid":"abc","results":[{"match_user_id":123,"affinity":0.78,"rank":1}]}`)
	client, _ := newTestClient(server.URL)

	outcome := client.Fetch(context.Background(), 1, 2)
	if !outcome.OK() {
		t.Fatalf("expected success, got %v", outcome.Err)
	}

	data, err := json.Marshal(outcome.Value)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}

	want := `{"uuid":"abc","data":{"suggestions":[{"match_user_id":123,"affinity":0.78,"rank":1}]}}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestFetchIsRepeatable(t *testing.T) {
	server := newStubServer(t, http.StatusOK,
		`{"result":{"uuid":"abc","results":[{"match_user_id":5,"affinity":0.5,"rank":1}]}}`)
	client, _ := newTestClient(server.URL)

	first := client.Fetch(context.Background(), 10, 20)
	second := client.Fetch(context.Background(), 10, 20)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical outcomes, got %+v and %+v", first, second)
	}
	if server.calls.Load() != 2 {
		t.Fatalf("expected one exchange per call, got %d", server.calls.Load())
	}
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{status: http.StatusBadRequest, code: BadRequest},
		{status: http.StatusUnauthorized, code: Unauthorized},
		{status: http.StatusForbidden, code: Forbidden},
		{status: http.StatusNotFound, code: NotFound},
		{status: http.StatusConflict, code: ServerException},
		{status: http.StatusTooManyRequests, code: ServerException},
		{status: http.StatusInternalServerError, code: ServerError},
		{status: http.StatusBadGateway, code: ServerError},
		{status: http.StatusServiceUnavailable, code: ServerError},
		{status: http.StatusNoContent, code: GenericError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := newStubServer(t, tt.status, `{"detail":"upstream trace"}`)
			client, logs := newTestClient(server.URL)

			outcome := client.Fetch(context.Background(), 1, 2)
			if outcome.OK() {
				t.Fatalf("expected failure for status %d", tt.status)
			}
			if outcome.Err.Code != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, outcome.Err.Code)
			}
			if strings.Contains(outcome.Err.Message, "upstream trace") {
				t.Fatalf("message leaks upstream details: %q", outcome.Err.Message)
			}

			entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 error log, got %d", len(entries))
			}
			ctx := entries[0].ContextMap()
			if ctx["status"] != int64(tt.status) {
				t.Fatalf("expected status %d to be logged, got %v", tt.status, ctx["status"])
			}
			if ctx["code"] != string(tt.code) {
				t.Fatalf("expected code %s to be logged, got %v", tt.code, ctx["code"])
			}
		})
	}
}

func TestFetchConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, logs := newTestClient(url)

	outcome := client.Fetch(context.Background(), 1, 2)
	if outcome.OK() {
		t.Fatalf("expected failure when the service is unreachable")
	}
	if outcome.Err.Code != ConnectionError {
		t.Fatalf("expected %s, got %s", ConnectionError, outcome.Err.Code)
	}
	if outcome.Err.Message != msgUnreachable {
		t.Fatalf("unexpected message %q", outcome.Err.Message)
	}

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error log, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["error"]; !ok {
		t.Fatalf("expected transport error to be logged")
	}
}

func TestFetchTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"uuid":`)
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)

	outcome := client.Fetch(context.Background(), 1, 2)
	if outcome.OK() {
		t.Fatalf("expected failure for a broken body")
	}
	if outcome.Err.Code != ServerError {
		t.Fatalf("expected %s, got %s", ServerError, outcome.Err.Code)
	}
}

func TestFetchUnexpectedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{name: "not json", body: "<html>oops</html>", code: UnexpectedError},
		{name: "json array", body: `[1,2]`, code: UnexpectedError},
		{name: "trailing data", body: `{"result":{"uuid":"abc","results":[]}} trailing-garbage`, code: UnexpectedError},
		{name: "second document", body: `{"uuid":"abc","results":[]}{"uuid":"def","results":[]}`, code: UnexpectedError},
		{name: "null", body: `null`, code: GenericError},
		{name: "missing uuid", body: `{"results":[]}`, code: GenericError},
		{name: "missing results", body: `{"result":{"uuid":"abc"}}`, code: GenericError},
		{name: "missing rank", body: `{"uuid":"abc","results":[{"match_user_id":1,"affinity":0.3}]}`, code: GenericError},
		{name: "mistyped uuid", body: `{"uuid":42,"results":[]}`, code: GenericError},
		{name: "null uuid", body: `{"uuid":null,"results":[]}`, code: GenericError},
		{name: "null fields", body: `{"uuid":null,"results":[{"match_user_id":null,"affinity":null,"rank":null}]}`, code: GenericError},
		{name: "null candidate", body: `{"uuid":"abc","results":[null]}`, code: GenericError},
		{name: "null affinity", body: `{"uuid":"abc","results":[{"match_user_id":1,"affinity":null,"rank":1}]}`, code: GenericError},
		{name: "fractional id", body: `{"uuid":"abc","results":[{"match_user_id":1.5,"affinity":0.3,"rank":1}]}`, code: GenericError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newStubServer(t, http.StatusOK, tt.body)
			client, logs := newTestClient(server.URL)

			outcome := client.Fetch(context.Background(), 1, 2)
			if outcome.OK() {
				t.Fatalf("expected failure, got %+v", outcome.Value)
			}
			if outcome.Err.Code != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, outcome.Err.Code)
			}
			if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
				t.Fatalf("expected the parse failure to be logged")
			}
		})
	}
}

func TestFetchEmptyResults(t *testing.T) {
	server := newStubServer(t, http.StatusOK, `{"uuid":"abc","results":null}`)
	client, _ := newTestClient(server.URL)

	outcome := client.Fetch(context.Background(), 1, 2)
	if !outcome.OK() {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Value.Data.Suggestions == nil || len(outcome.Value.Data.Suggestions) != 0 {
		t.Fatalf("expected empty non-nil suggestions, got %#v", outcome.Value.Data.Suggestions)
	}
}

func TestRecordDecision(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *Client) Outcome[bool]
		action string
	}{
		{
			name: "interested",
			call: func(c *Client) Outcome[bool] {
				return c.Interested(context.Background(), "abc", 3, 1, 2)
			},
			action: "aceptar",
		},
		{
			name: "not interested",
			call: func(c *Client) Outcome[bool] {
				return c.NotInterested(context.Background(), "abc", 3, 1, 2)
			},
			action: "descartar",
		},
		{
			name: "explicit discard",
			call: func(c *Client) Outcome[bool] {
				return c.RecordDecision(context.Background(), Decision{
					UUID: "abc", BusinessUserID: 3, MatchUserID: 1, WorkOfferID: 2, Action: Discard,
				})
			},
			action: "descartar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newStubServer(t, http.StatusOK, "")
			client, _ := newTestClient(server.URL)

			outcome := tt.call(client)
			if !outcome.OK() {
				t.Fatalf("expected success, got %v", outcome.Err)
			}
			if !outcome.Value {
				t.Fatalf("expected true on success")
			}

			req := server.last.Load()
			if req.path != "/affinity-ml-hire/change" {
				t.Fatalf("unexpected path %q", req.path)
			}

			want := map[string]any{
				"uuid":             "abc",
				"business_user_id": float64(3),
				"match_user_id":    float64(1),
				"work_offer_id":    float64(2),
				"action":           tt.action,
			}
			if !reflect.DeepEqual(req.body, want) {
				t.Fatalf("unexpected request body: %v", req.body)
			}
		})
	}
}

func TestRecordDecisionFailure(t *testing.T) {
	server := newStubServer(t, http.StatusForbidden, "")
	client, _ := newTestClient(server.URL)

	outcome := client.Interested(context.Background(), "abc", 3, 1, 2)
	if outcome.OK() {
		t.Fatalf("expected failure")
	}
	if outcome.Err.Code != Forbidden {
		t.Fatalf("expected %s, got %s", Forbidden, outcome.Err.Code)
	}

	value, err := outcome.Unwrap()
	if err == nil || value {
		t.Fatalf("expected (false, error), got (%v, %v)", value, err)
	}
}

func TestRecordDecisionTransportFailures(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	failing := newStubServer(t, http.StatusInternalServerError, `{"trace":"db down"}`)

	tests := []struct {
		name string
		url  string
		code ErrorCode
	}{
		{name: "unreachable", url: closedURL, code: ConnectionError},
		{name: "server error", url: failing.URL, code: ServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, logs := newTestClient(tt.url)

			outcome := client.NotInterested(context.Background(), "abc", 3, 1, 2)
			if outcome.OK() {
				t.Fatalf("expected failure")
			}
			if outcome.Err == nil || outcome.Err.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, outcome.Err)
			}
			if outcome.Value {
				t.Fatalf("a failed decision must not carry true")
			}
			if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
				t.Fatalf("expected the failure to be logged")
			}
		})
	}
}

func TestRecordDecisionUnknownAction(t *testing.T) {
	server := newStubServer(t, http.StatusOK, "")
	client, _ := newTestClient(server.URL)

	outcome := client.RecordDecision(context.Background(), Decision{UUID: "abc", Action: Action(9)})
	if outcome.OK() {
		t.Fatalf("expected failure for an unknown action")
	}
	if outcome.Err.Code != UnexpectedError {
		t.Fatalf("expected %s, got %s", UnexpectedError, outcome.Err.Code)
	}
	if server.calls.Load() != 0 {
		t.Fatalf("no request must be sent for an unknown action")
	}
}

func TestNewWithNilLogger(t *testing.T) {
	server := newStubServer(t, http.StatusInternalServerError, "")
	client := New(server.URL, testAPIKey, nil, WithUserAgent("tests"), WithHTTPClient(server.Client()))

	if outcome := client.Fetch(context.Background(), 1, 2); outcome.OK() {
		t.Fatalf("expected failure")
	}
	if got := server.last.Load().header.Get("User-Agent"); got != "tests" {
		t.Fatalf("unexpected user agent %q", got)
	}
}
