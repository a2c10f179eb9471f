package cep

import (
	"context"
	"errors"
	"fmt"
)

// Provider resolves a postal code against one external data source.
//
// Lookup must be safe to call concurrently, must issue at most one
// outbound request and must classify every failure as an *Error carrying
// Source(). Format validation of code is up to the provider; a rejected
// code is an *Error, never a panic.
type Provider interface {
	Source() Source
	Lookup(ctx context.Context, code string) (Address, error)
}

// ProviderFunc turns fn into a Provider reporting src.
func ProviderFunc(src Source, fn func(ctx context.Context, code string) (Address, error)) Provider {
	return funcProvider{src: src, fn: fn}
}

type funcProvider struct {
	src Source
	fn  func(context.Context, string) (Address, error)
}

func (f funcProvider) Source() Source { return f.src }

func (f funcProvider) Lookup(ctx context.Context, code string) (Address, error) {
	return f.fn(ctx, code)
}

// call runs one provider and turns whatever it does into a Result.
func call(ctx context.Context, p Provider, code string) (res Result) {
	src := p.Source()
	res.Source = src

	defer func() {
		if r := recover(); r != nil {
			res = Result{Source: src, Err: NewUnexpectedError(src, fmt.Errorf("provider panicked: %v", r))}
		}
	}()

	addr, err := p.Lookup(ctx, code)
	if err != nil {
		res.Err = asProviderError(src, err)
		return res
	}
	res.Address = addr
	return res
}

// asProviderError keeps a well-formed provider *Error and re-wraps
// anything else, so every failure carries the provider's own source and
// only the aggregator ever produces KindAllFailed.
func asProviderError(src Source, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Source == src && e.Kind != KindAllFailed {
		return e
	}
	return NewUnexpectedError(src, err)
}
