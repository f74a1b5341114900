package rest

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// bearerTransport asks the credentials for the token on every request, so a
// renewed token is picked up without rebuilding the client.
type bearerTransport struct {
	creds  Credentials
	base   http.RoundTripper
	logger *log.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	if token, ok := t.creds.AccessToken(); ok {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	id := uuid.NewString()
	r.Header.Set(RequestIDHeader, id)

	t.logger.Debug("request", "method", r.Method, "url", r.URL.Redacted(), "request_id", id)
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		t.logger.Debug("request failed", "request_id", id, "err", err)
		return nil, err
	}
	t.logger.Debug("response", "status", resp.StatusCode, "request_id", id)
	return resp, nil
}

// newHTTPClient builds the one HTTP client a Client uses. base may be nil.
func newHTTPClient(base *http.Client, creds Credentials, logger *log.Logger) *http.Client {
	var hc http.Client
	if base != nil {
		hc = *base
	} else {
		hc = http.Client{}
	}
	rt := hc.Transport
	if rt == nil {
		rt = cleanhttp.DefaultPooledTransport()
	}
	hc.Transport = &bearerTransport{creds: creds, base: rt, logger: logger}
	return &hc
}
