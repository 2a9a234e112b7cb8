package remote

import (
	"net"
	"net/http"
	"time"

	"oras.land/oras-go/v2/registry/remote/retry"
)

const defaultUserAgent = "artifactresolver"

// Timeouts configures the HTTP client. Zero values disable the timeout.
type Timeouts struct {
	Timeout               time.Duration
	TCPDialTimeout        time.Duration
	TCPKeepAlive          time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
}

// ClientOptions holds configuration for creating an HTTP client.
type ClientOptions struct {
	timeouts  *Timeouts
	userAgent string
}

// ClientOption is a functional option for NewHTTPClient.
type ClientOption func(*ClientOptions)

// WithTimeouts configures transport timeouts instead of the retrying
// default transport.
func WithTimeouts(t Timeouts) ClientOption {
	return func(o *ClientOptions) {
		o.timeouts = &t
	}
}

// WithUserAgent sets the User-Agent header for HTTP requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(o *ClientOptions) {
		o.userAgent = userAgent
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewHTTPClient creates a client that retries transient failures.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	base := retry.DefaultClient.Transport
	if t := options.timeouts; t != nil {
		base = retry.NewTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   t.TCPDialTimeout,
				KeepAlive: t.TCPKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout:   t.TLSHandshakeTimeout,
			ResponseHeaderTimeout: t.ResponseHeaderTimeout,
			IdleConnTimeout:       t.IdleConnTimeout,
		})
	}

	userAgent := defaultUserAgent
	if options.userAgent != "" {
		userAgent = options.userAgent
	}

	client := &http.Client{
		Transport: &userAgentTransport{base: base, userAgent: userAgent},
	}
	if t := options.timeouts; t != nil {
		client.Timeout = t.Timeout
	}
	return client
}
