package remote

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/httpclient"
)

// Envelope is the wrapper the service puts around every application payload.
// A response with Success false is a failure whatever its HTTP status.
type Envelope[T any] struct {
	Data          T        `json:"data"`
	Message       string   `json:"message"`
	StatusCode    int      `json:"statusCode"`
	Success       bool     `json:"success"`
	ErrorMessages []string `json:"errorMessages,omitempty"`
}

// isEnvelope reports whether body looks like an Envelope.
func isEnvelope(body []byte) bool {
	return gjson.ValidBytes(body) && gjson.GetBytes(body, "success").Exists()
}

// statusError maps the statuses that have a dedicated kind whatever the body.
func statusError(op, id string, resp *httpclient.Response) error {
	var kind applications.Kind
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = applications.KindAuth
	case http.StatusNotFound:
		kind = applications.KindNotFound
	default:
		return nil
	}
	e := &applications.Error{
		Kind:       kind,
		Op:         op,
		ID:         id,
		StatusCode: resp.StatusCode,
		Err:        resp.AsError(),
	}
	if isEnvelope(resp.Body) {
		e.Message = gjson.GetBytes(resp.Body, "message").String()
	}
	return e
}

// decodeEnvelope unwraps an enveloped response, mapping every failure to a
// typed error.
func decodeEnvelope[T any](op, id string, resp *httpclient.Response) (T, error) {
	var zero T
	if err := statusError(op, id, resp); err != nil {
		return zero, err
	}
	if !isEnvelope(resp.Body) {
		return zero, unexpected(op, id, resp)
	}

	var env Envelope[T]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return zero, &applications.Error{
			Kind:       applications.KindUnknown,
			Op:         op,
			ID:         id,
			Message:    "malformed response envelope",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	if !env.Success || !resp.OK() {
		msg := env.Message
		if msg == "" {
			msg = "request rejected by the service"
		}
		return zero, &applications.Error{
			Kind:       applications.KindService,
			Op:         op,
			ID:         id,
			Message:    msg,
			Details:    env.ErrorMessages,
			StatusCode: resp.StatusCode,
		}
	}
	return env.Data, nil
}

// decodeFlexible accepts either an enveloped or a bare JSON payload.
func decodeFlexible[T any](op string, resp *httpclient.Response) (T, error) {
	if isEnvelope(resp.Body) {
		return decodeEnvelope[T](op, "", resp)
	}
	var zero T
	if err := statusError(op, "", resp); err != nil {
		return zero, err
	}
	if !resp.OK() || !gjson.ValidBytes(resp.Body) {
		return zero, unexpected(op, "", resp)
	}
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return zero, &applications.Error{
			Kind:       applications.KindUnknown,
			Op:         op,
			Message:    "malformed response",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return out, nil
}

// unexpected classifies a response that is neither a valid envelope nor a
// status with a dedicated kind.
func unexpected(op, id string, resp *httpclient.Response) error {
	e := &applications.Error{
		Kind:       applications.KindUnknown,
		Op:         op,
		ID:         id,
		StatusCode: resp.StatusCode,
	}
	if resp.OK() {
		e.Message = "malformed response"
		e.Err = fmt.Errorf("unexpected body from %s", resp.URL)
	} else {
		e.Message = "unexpected response status"
		e.Err = resp.AsError()
	}
	return e
}

// networkError wraps a failure to obtain any response.
func networkError(op, id string, err error) error {
	return &applications.Error{
		Kind:    applications.KindNetwork,
		Op:      op,
		ID:      id,
		Message: "service unreachable",
		Err:     err,
	}
}
