package dnsresolver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoRecords is returned when a query yields no A or AAAA answers.
	ErrNoRecords = errors.New("no records found")
	// ErrEmptyMsg is returned when the DNS server sends back no message.
	ErrEmptyMsg = errors.New("empty message")
	// ErrEmptyHostname is returned for a blank host name.
	ErrEmptyHostname = errors.New("empty hostname")
)

// DefaultServer is queried when no servers are configured.
const DefaultServer = "1.1.1.1:53"

var _ Clienter = (*Client)(nil)

// Clienter resolves a host name to its IPv4 and IPv6 addresses.
type Clienter interface {
	LookupHost(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Exchanger sends one DNS message; *dns.Client satisfies it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, addr string) (r *dns.Msg, rtt time.Duration, err error)
}

// Client queries A and AAAA records concurrently against Servers.
type Client struct {
	Exchanger Exchanger
	Timeout   time.Duration
	Servers   []string
	Retries   uint
}

// Opt configures a Client.
type Opt func(c *Client)

// WithServers sets the DNS servers ("host:port") queried, one picked at
// random per attempt.
func WithServers(servers []string) Opt {
	return func(c *Client) {
		c.Servers = servers
	}
}

// WithRetries sets how many extra attempts each query gets.
func WithRetries(n uint) Opt {
	return func(c *Client) {
		c.Retries = n
	}
}

// New returns a Client whose lookups are bounded by timeout.
func New(timeout time.Duration, opts ...Opt) *Client {
	c := &Client{
		Exchanger: &dns.Client{Timeout: timeout},
		Timeout:   timeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LookupHost resolves host. IP literals are returned as is. It succeeds
// if either the A or the AAAA query does.
func (c *Client) LookupHost(ctx context.Context, host string) ([]net.IPAddr, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, ErrEmptyHostname
	}
	if ip := net.ParseIP(host); ip != nil {
		return []net.IPAddr{{IP: ip}}, nil
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var (
		mu   sync.Mutex
		ips  []net.IPAddr
		errs error
	)

	// A peer failing must not cancel the other query, so the group has
	// no derived context.
	var grp errgroup.Group
	for _, qtype := range [...]uint16{dns.TypeA, dns.TypeAAAA} {
		grp.Go(func() error {
			addrs, err := c.query(ctx, host, qtype)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", dns.TypeToString[qtype], err))
				return nil
			}
			ips = append(ips, addrs...)
			return nil
		})
	}
	_ = grp.Wait()

	if len(ips) == 0 {
		return nil, fmt.Errorf("dns lookup for %q: %w", host, errs)
	}
	return ips, nil
}

func (c *Client) query(ctx context.Context, host string, qtype uint16) ([]net.IPAddr, error) {
	var lastErr error
	for attempt := uint(0); attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// ExchangeContext mutates the message, build one per attempt
		req := new(dns.Msg)
		req.SetQuestion(dns.Fqdn(host), qtype)

		resp, _, err := c.Exchanger.ExchangeContext(ctx, req, c.server())
		if err != nil {
			lastErr = err
			continue
		}
		if resp == nil {
			return nil, ErrEmptyMsg
		}

		ips, err := answers(resp)
		if err != nil {
			lastErr = err
			continue
		}
		return ips, nil
	}
	return nil, lastErr
}

func answers(resp *dns.Msg) ([]net.IPAddr, error) {
	var ips []net.IPAddr
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			ips = append(ips, net.IPAddr{IP: rec.A})
		case *dns.AAAA:
			ips = append(ips, net.IPAddr{IP: rec.AAAA})
		}
	}
	if len(ips) == 0 {
		return nil, ErrNoRecords
	}
	return ips, nil
}

func (c *Client) server() string {
	if len(c.Servers) == 0 {
		return DefaultServer
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.Servers))))
	if err != nil {
		return c.Servers[0]
	}
	return c.Servers[n.Int64()]
}
