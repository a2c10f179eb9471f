// Package httpclient builds the *http.Client shared by the CEP providers.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/lc/cepr/internal/dnsresolver"
)

// Options configures New. Zero values keep net/http defaults.
type Options struct {
	// Timeout bounds a whole exchange, body included.
	Timeout time.Duration
	// UserAgent is set on requests that carry none.
	UserAgent string
	// Resolver, when set, replaces the system resolver for dialing.
	Resolver dnsresolver.Clienter
}

// New returns a client that never follows redirects: a 3xx reaches the
// caller as is and is classified like any other unexpected status.
func New(opts Options) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Resolver != nil {
		d := dnsresolver.NewDialer(opts.Resolver, &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		})
		transport.DialContext = d.DialContext
	}

	var rt http.RoundTripper = transport
	if opts.UserAgent != "" {
		rt = &userAgent{next: transport, value: opts.UserAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type userAgent struct {
	next  http.RoundTripper
	value string
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.value)
	return u.next.RoundTrip(r)
}
