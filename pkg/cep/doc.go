// Package cep resolves Brazilian postal codes by racing several
// independent providers and keeping the first usable answer.
//
// A lookup starts every Provider concurrently; each one writes a single
// Result into a shared channel. The aggregator reads that channel in
// arrival order, returns the first success and abandons (cancels) the
// rest. Only when every provider failed does the caller see an error: a
// KindAllFailed *Error embedding each provider's failure.
//
// # Basic Usage
//
//	r, err := cep.New([]cep.Provider{viacepProvider, ceplaProvider})
//	if err != nil {
//		return err
//	}
//	addr, err := r.GetAddress(ctx, "70150-903")
//	if err != nil {
//		if cep.IsKind(err, cep.KindAllFailed) {
//			// every provider failed; err lists each failure
//		}
//		return err
//	}
//	fmt.Println(addr.City, addr.State)
//
// # Errors
//
// Every failure is an *Error tagged with its Source and classified by
// Kind. HTTP statuses are classified by band with ClassifyStatus: 4xx is
// KindClient, 5xx KindServer and anything outside 2xx/4xx/5xx is
// KindUnknownStatus. errors.Is matches on kind, and on source when the
// target sets one:
//
//	errors.Is(err, &cep.Error{Kind: cep.KindClient, Source: cep.SourceViaCEP})
//
// # Concurrency
//
// A Resolver is safe for concurrent use; every call owns its channel and
// goroutines. When several providers succeed, whichever result is read
// first wins, so the winning provider may differ between calls.
package cep
