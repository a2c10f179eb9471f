package lookup

import (
	"go.uber.org/zap"

	"github.com/lc/cepr/internal/config"
	"github.com/lc/cepr/internal/dnsresolver"
	"github.com/lc/cepr/internal/httpclient"
)

// FromConfig translates cfg into Options: endpoints, the shared HTTP
// client, custom DNS servers and the per-provider timeout.
func FromConfig(cfg *config.Config, logger *zap.Logger) []Option {
	httpOpts := httpclient.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}
	if servers := cfg.ResolverAddrs(); len(servers) > 0 {
		httpOpts.Resolver = dnsresolver.New(cfg.DNS.Timeout, dnsresolver.WithServers(servers))
	}

	opts := []Option{
		WithEndpoints(Endpoints{
			ViaCEP:   cfg.Providers.ViaCEP,
			Cepla:    cfg.Providers.Cepla,
			Correios: cfg.Providers.Correios,
		}),
		WithHTTPClient(httpclient.New(httpOpts)),
	}
	if cfg.Lookup.ProviderTimeout > 0 {
		opts = append(opts, WithProviderTimeout(cfg.Lookup.ProviderTimeout))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return opts
}
