// Package lookup wires the default CEP provider set (ViaCEP, CepLá and
// Correios) into a cep.Resolver.
//
//	addr, err := lookup.GetAddress(ctx, "70150-903")
//
// The set of providers is fixed. Options only change where they are
// reached and how.
package lookup

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/internal/httpclient"
	"github.com/lc/cepr/internal/provider/cepla"
	"github.com/lc/cepr/internal/provider/correios"
	"github.com/lc/cepr/internal/provider/viacep"
	"github.com/lc/cepr/pkg/cep"
)

// DefaultHTTPTimeout bounds each provider exchange when no client is given.
const DefaultHTTPTimeout = 15 * time.Second

// Endpoints holds the base URL of each provider.
type Endpoints struct {
	ViaCEP   string
	Cepla    string
	Correios string
}

// DefaultEndpoints returns the public provider endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ViaCEP:   viacep.DefaultBaseURL,
		Cepla:    cepla.DefaultBaseURL,
		Correios: correios.DefaultEndpoint,
	}
}

type options struct {
	endpoints Endpoints
	client    *http.Client
	resolver  []cep.Opt
}

// Option configures New.
type Option func(*options)

// WithEndpoints overrides the provider endpoints. Empty fields keep the
// default.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) {
		if e.ViaCEP != "" {
			o.endpoints.ViaCEP = e.ViaCEP
		}
		if e.Cepla != "" {
			o.endpoints.Cepla = e.Cepla
		}
		if e.Correios != "" {
			o.endpoints.Correios = e.Correios
		}
	}
}

// WithHTTPClient sets the client shared by the three providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *options) {
		o.resolver = append(o.resolver, cep.WithProviderTimeout(d))
	}
}

// WithLogger sets the logger the resolver reports provider outcomes to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.resolver = append(o.resolver, cep.WithLogger(l))
	}
}

// New returns a resolver racing ViaCEP, CepLá and Correios.
func New(opts ...Option) (*cep.Resolver, error) {
	o := options{endpoints: DefaultEndpoints()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = httpclient.New(httpclient.Options{
			Timeout:   DefaultHTTPTimeout,
			UserAgent: buildinfo.UserAgent(),
		})
	}

	return cep.New([]cep.Provider{
		viacep.New(o.client, o.endpoints.ViaCEP),
		cepla.New(o.client, o.endpoints.Cepla),
		correios.New(o.client, o.endpoints.Correios),
	}, o.resolver...)
}

var (
	defaultOnce     sync.Once
	defaultResolver *cep.Resolver
	defaultErr      error
)

// GetAddress resolves code with a resolver built from the defaults on
// first use.
func GetAddress(ctx context.Context, code string) (cep.Address, error) {
	defaultOnce.Do(func() {
		defaultResolver, defaultErr = New()
	})
	if defaultErr != nil {
		return cep.Address{}, defaultErr
	}
	return defaultResolver.GetAddress(ctx, code)
}
