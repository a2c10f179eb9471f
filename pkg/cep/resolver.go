package cep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Resolver races a fixed set of providers for every lookup.
type Resolver struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// Opt configures a Resolver.
type Opt func(r *Resolver)

// WithProviderTimeout bounds every individual provider call. Zero, the
// default, leaves provider calls bounded only by the caller's context.
func WithProviderTimeout(d time.Duration) Opt {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithLogger sets the logger used for per-provider debug output.
func WithLogger(l *zap.Logger) Opt {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver over providers. An empty set is a configuration
// error and returns ErrNoProviders.
func New(providers []Provider, opts ...Opt) (*Resolver, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	r := &Resolver{
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}

	r.providers = make([]Provider, 0, len(providers))
	for _, p := range providers {
		r.providers = append(r.providers, &instrumented{Provider: p, timeout: r.timeout, logger: r.logger})
	}
	return r, nil
}

// Sources lists the providers raced by r, in configuration order.
func (r *Resolver) Sources() []Source {
	out := make([]Source, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Source())
	}
	return out
}

// Resolve races every provider for code and reports which one won.
// Providers still in flight when Resolve returns are cancelled.
func (r *Resolver) Resolve(ctx context.Context, code string) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	results, err := Dispatch(ctx, code, r.providers)
	if err != nil {
		return Result{}, err
	}

	res, err := Aggregate(ctx, results, len(r.providers))
	if err != nil {
		r.logger.Debug("lookup failed",
			zap.String("cep", code),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Result{}, err
	}

	r.logger.Debug("lookup resolved",
		zap.String("cep", code),
		zap.String("source", string(res.Source)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// GetAddress returns the address of the first provider to answer code
// successfully, or a KindAllFailed *Error if none did.
func (r *Resolver) GetAddress(ctx context.Context, code string) (Address, error) {
	res, err := r.Resolve(ctx, code)
	if err != nil {
		return Address{}, err
	}
	return res.Address, nil
}

// instrumented applies the per-provider timeout and logs each outcome.
type instrumented struct {
	Provider
	timeout time.Duration
	logger  *zap.Logger
}

func (p *instrumented) Lookup(ctx context.Context, code string) (Address, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	addr, err := p.Provider.Lookup(ctx, code)
	if err != nil {
		p.logger.Debug("provider failed",
			zap.String("source", string(p.Source())),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return Address{}, err
	}

	p.logger.Debug("provider answered",
		zap.String("source", string(p.Source())),
		zap.Duration("latency", time.Since(start)),
	)
	return addr, nil
}
