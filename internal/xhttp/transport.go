package xhttp

import (
	"fmt"
	"net/http"

	"github.com/garrettladley/payrelay/internal/version"
)

type relayTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*relayTransport)(nil)

func (t *relayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(version.Header, version.Get())
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper that stamps outbound requests with the relay version.
func NewTransport() http.RoundTripper {
	return newTransport(http.DefaultTransport)
}

func newTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &relayTransport{base: base}
}
