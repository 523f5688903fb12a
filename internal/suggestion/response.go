package suggestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// wrapperKey is the envelope some API versions put the payload under.
const wrapperKey = "result"

type Request struct {
	BusinessUserID int64 `json:"business_user_id"`
	WorkOfferID    int64 `json:"work_offer_id"`
}

type Result struct {
	UUID string `json:"uuid"`
	Data Data   `json:"data"`
}

type Data struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type Suggestion struct {
	MatchUserID int64   `json:"match_user_id"`
	Affinity    float64 `json:"affinity"`
	Rank        int     `json:"rank"`
}

// upstreamPayload is the shape the service returns, wrapper removed.
// Required values are pointers: mapstructure leaves a field untouched when the
// key holds null, so nil is how an explicit null shows up after decoding.
type upstreamPayload struct {
	UUID    *string              `mapstructure:"uuid"`
	Results []*upstreamCandidate `mapstructure:"results"`
}

type upstreamCandidate struct {
	MatchUserID *int64   `mapstructure:"match_user_id"`
	Affinity    *float64 `mapstructure:"affinity"`
	Rank        *int     `mapstructure:"rank"`
}

func (p *upstreamPayload) validate() error {
	if p.UUID == nil {
		return fmt.Errorf("uuid is null")
	}

	for i, c := range p.Results {
		switch {
		case c == nil:
			return fmt.Errorf("results[%d] is null", i)
		case c.MatchUserID == nil:
			return fmt.Errorf("results[%d].match_user_id is null", i)
		case c.Affinity == nil:
			return fmt.Errorf("results[%d].affinity is null", i)
		case c.Rank == nil:
			return fmt.Errorf("results[%d].rank is null", i)
		}
	}

	return nil
}

// malformedBodyError marks bodies that are not a single JSON document.
type malformedBodyError struct {
	err error
}

func (e *malformedBodyError) Error() string {
	return fmt.Sprintf("malformed response body: %s", e.err)
}

func (e *malformedBodyError) Unwrap() error {
	return e.err
}

func parseResult(body []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, &malformedBodyError{err: err}
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, &malformedBodyError{err: fmt.Errorf("unexpected data after the JSON document")}
	}

	if inner, ok := doc[wrapperKey].(map[string]any); ok {
		doc = inner
	}

	// mapstructure skips nil input entirely, so a bare null would pass ErrorUnset.
	if doc == nil {
		return nil, fmt.Errorf("decode suggestions payload: empty document")
	}

	var payload upstreamPayload
	cfg := &mapstructure.DecoderConfig{
		DecodeHook: rejectNumberAsString,
		ErrorUnset: true,
		Result:     &payload,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode suggestions payload: %w", err)
	}

	if err := payload.validate(); err != nil {
		return nil, fmt.Errorf("decode suggestions payload: %w", err)
	}

	// Upstream uses null for an empty batch; keep callers free of nil checks.
	suggestions := make([]Suggestion, 0, len(payload.Results))
	for _, c := range payload.Results {
		suggestions = append(suggestions, Suggestion{
			MatchUserID: *c.MatchUserID,
			Affinity:    *c.Affinity,
			Rank:        *c.Rank,
		})
	}

	return &Result{
		UUID: *payload.UUID,
		Data: Data{Suggestions: suggestions},
	}, nil
}

var numberType = reflect.TypeOf(json.Number(""))

// rejectNumberAsString keeps mapstructure from accepting a JSON number where a
// string is expected; json.Number is a string kind and would pass otherwise.
func rejectNumberAsString(from, to reflect.Type, data any) (any, error) {
	if from == numberType && to.Kind() == reflect.String {
		return nil, fmt.Errorf("expected string, got number %v", data)
	}

	return data, nil
}
