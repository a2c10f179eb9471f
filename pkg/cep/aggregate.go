package cep

import (
	"context"
	"errors"
)

// errChannelClosed fills the slot of a provider that never reported.
var errChannelClosed = errors.New("result channel closed before every provider reported")

// Aggregate reads up to n results and returns the first success. Any
// success wins over any number of failures; among successes the first
// one read wins.
//
// When no success arrives it returns a KindAllFailed *Error holding one
// entry per slot, in arrival order. Slots that never produced a message,
// because the channel closed early or ctx ended, hold a SourceLib
// KindUnexpected placeholder.
func Aggregate(ctx context.Context, results <-chan Result, n int) (Result, error) {
	if n <= 0 {
		return Result{}, ErrNoProviders
	}

	failures := make([]*Error, 0, n)
	for len(failures) < n {
		select {
		case res, ok := <-results:
			if !ok {
				return Result{}, fill(failures, n, errChannelClosed)
			}
			if res.OK() {
				return res, nil
			}
			failures = append(failures, res.Err)

		case <-ctx.Done():
			// results that already arrived still count
			for len(failures) < n {
				select {
				case res, ok := <-results:
					if !ok {
						return Result{}, fill(failures, n, errChannelClosed)
					}
					if res.OK() {
						return res, nil
					}
					failures = append(failures, res.Err)
					continue
				default:
				}
				break
			}
			return Result{}, fill(failures, n, ctx.Err())
		}
	}

	return Result{}, allFailed(failures)
}

func fill(failures []*Error, n int, cause error) *Error {
	for len(failures) < n {
		failures = append(failures, NewUnexpectedError(SourceLib, cause))
	}
	return allFailed(failures)
}
