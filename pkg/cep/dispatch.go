package cep

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// _resultBuffer is the capacity of the per-lookup result channel.
const _resultBuffer = 1

// Result is one provider's outcome. Err is nil on success.
type Result struct {
	Source  Source
	Address Address
	Err     *Error
}

// OK reports whether the provider produced an address.
func (r Result) OK() bool { return r.Err == nil }

// Dispatch starts every provider concurrently against code. Each one
// delivers exactly one Result on the returned channel unless ctx is done
// first; the channel is closed once all of them have returned.
//
// Callers must cancel ctx when they stop reading, otherwise providers
// still in flight stay blocked on the send.
func Dispatch(ctx context.Context, code string, providers []Provider) (<-chan Result, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	results := make(chan Result, _resultBuffer)

	var grp errgroup.Group
	for _, p := range providers {
		grp.Go(func() error {
			res := call(ctx, p, code)
			select {
			case results <- res:
			case <-ctx.Done():
			}
			return nil
		})
	}

	go func() {
		_ = grp.Wait()
		close(results)
	}()

	return results, nil
}
