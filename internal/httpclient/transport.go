package httpclient

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// bearerTransport sets the Authorization header from a token source. Unlike
// oauth2.Transport a missing token is not an error: the request is sent
// without credentials and the service decides.
type bearerTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		if err != nil {
			slog.Debug("Sending request without credentials", "url", req.URL.Redacted(), "reason", err)
		}
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	tok.SetAuthHeader(clone)
	return t.base.RoundTrip(clone)
}
