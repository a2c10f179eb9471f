// Package dnsresolver lets cepr reach providers through explicitly
// configured DNS servers.
//
// When dns.resolvers is set in the configuration, internal/httpclient
// plugs a Dialer into its transport so provider host names are resolved
// here instead of by the operating system:
//
//	res := dnsresolver.New(5*time.Second, dnsresolver.WithServers([]string{"1.1.1.1:53", "8.8.8.8:53"}))
//	tr := &http.Transport{DialContext: dnsresolver.NewDialer(res, nil).DialContext}
//
// A and AAAA queries run concurrently; a lookup succeeds when either
// does, and when both fail their errors are combined with
// go.uber.org/multierr.
package dnsresolver
