package httpclient

import (
	"fmt"
	"net/http"
)

// HTTPError represents a response with an unexpected HTTP status
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	// Body is the (possibly truncated) response body
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the requested URL, used in error messages
	URL string
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// AsError converts the response into an *HTTPError carrying its body
func (r *Response) AsError() error {
	body := r.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{
		StatusCode: r.StatusCode,
		URL:        r.URL,
		Message:    http.StatusText(r.StatusCode),
		Body:       body,
	}
}

const maxErrorBody = 4096
