package dnsresolver

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/multierr"
)

// Dialer dials TCP addresses whose host part is resolved by a Clienter.
// Its DialContext fits http.Transport.DialContext.
type Dialer struct {
	Resolver Clienter
	Dialer   *net.Dialer
}

// NewDialer returns a Dialer resolving through r.
func NewDialer(r Clienter, d *net.Dialer) *Dialer {
	if d == nil {
		d = &net.Dialer{}
	}
	return &Dialer{Resolver: r, Dialer: d}
}

// DialContext resolves the host of addr and tries each address in turn,
// returning the first connection that succeeds.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := d.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, ip := range ips {
		conn, err := d.Dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		errs = multierr.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("dial %s: %w", addr, errs)
}
