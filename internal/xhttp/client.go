package xhttp

import (
	"net/http"
	"time"
)

const defaultClientTimeout = 30 * time.Second

type ClientOption func(*http.Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *http.Client) { c.Timeout = d }
}

// WithBaseTransport replaces the transport wrapped by the version-stamping round tripper.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(c *http.Client) { c.Transport = newTransport(rt) }
}

// NewHTTPClient returns a client for outbound provider and relay calls. Requests
// carry the relay version and time out after 30s unless overridden.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	c := &http.Client{Transport: NewTransport(), Timeout: defaultClientTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
