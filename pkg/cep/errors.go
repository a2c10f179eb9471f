package cep

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/multierr"
)

// ErrNoProviders is returned when a lookup is attempted with an empty
// provider set. It is a configuration error and is never retried.
var ErrNoProviders = errors.New("no providers configured")

// ErrNotFound is the cause providers attach to a KindBodyParsing error
// when a well-formed response carries no address.
var ErrNotFound = errors.New("cep not found")

// bodyPlaceholder stands in for a response body that is not valid text.
const bodyPlaceholder = "<body is not valid text>"

// Source names who raised an Error: one of the providers, or the
// dispatcher/aggregator itself (SourceLib).
type Source string

const (
	SourceViaCEP   Source = "viacep"
	SourceCepla    Source = "cepla"
	SourceCorreios Source = "correios"
	SourceLib      Source = "cepr"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnexpected is a transport or internal failure not attributable
	// to the remote server (DNS, connection refused, channel closed early).
	KindUnexpected Kind = iota
	// KindMissingBody means a response arrived but its body could not be read.
	KindMissingBody
	// KindClient is a 4xx response.
	KindClient
	// KindServer is a 5xx response.
	KindServer
	// KindUnknownStatus is any status outside the 2xx, 4xx and 5xx bands.
	KindUnknownStatus
	// KindBodyParsing means the body could not be decoded into an address.
	KindBodyParsing
	// KindAllFailed is the composite raised when every provider failed.
	KindAllFailed
)

var _kindNames = map[Kind]string{
	KindUnexpected:    "unexpected",
	KindMissingBody:   "missing_body",
	KindClient:        "client_error",
	KindServer:        "server_error",
	KindUnknownStatus: "unknown_status",
	KindBodyParsing:   "body_parsing",
	KindAllFailed:     "all_failed",
}

func (k Kind) String() string {
	if s, ok := _kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the value every provider and the aggregator fail with.
type Error struct {
	Source Source
	Kind   Kind
	// Code is the HTTP status for KindClient, KindServer and KindUnknownStatus.
	Code int
	// Body is the raw response text for KindBodyParsing.
	Body string
	// Err is the underlying cause, if any.
	Err error
	// Errors holds one entry per provider for KindAllFailed.
	Errors []*Error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	switch e.Kind {
	case KindClient:
		return fmt.Sprintf("%s: client error: status %d", e.Source, e.Code)
	case KindServer:
		return fmt.Sprintf("%s: server error: status %d", e.Source, e.Code)
	case KindUnknownStatus:
		return fmt.Sprintf("%s: unknown server status %d", e.Source, e.Code)
	case KindMissingBody:
		return e.withCause("missing response body")
	case KindBodyParsing:
		return fmt.Sprintf("%s, body: %q", e.withCause("body parsing error"), e.Body)
	case KindAllFailed:
		errs := make([]error, 0, len(e.Errors))
		for _, sub := range e.Errors {
			if sub != nil {
				errs = append(errs, sub)
			}
		}
		if len(errs) == 0 {
			return fmt.Sprintf("%s: all providers returned errors: []", e.Source)
		}
		return fmt.Sprintf("%s: all providers returned errors: [%v]", e.Source, multierr.Combine(errs...))
	default:
		return e.withCause("unexpected library error")
	}
}

func (e *Error) withCause(msg string) string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, msg, e.Err)
}

// Unwrap exposes the cause, or every provider failure of a composite.
func (e *Error) Unwrap() []error {
	if e.Kind == KindAllFailed {
		errs := make([]error, 0, len(e.Errors))
		for _, sub := range e.Errors {
			if sub != nil {
				errs = append(errs, sub)
			}
		}
		return errs
	}
	if e.Err != nil {
		return []error{e.Err}
	}
	return nil
}

// Is matches another *Error by kind, and by source when target sets one,
// so errors.Is(err, &Error{Kind: KindClient}) works across providers.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Source == "" || t.Source == e.Source
}

// IsKind reports whether any *Error in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	return errors.Is(err, &Error{Kind: k})
}

// ClassifyStatus maps an HTTP status onto the status bands. ok is true
// only for 2xx; everything outside 2xx, 4xx and 5xx is KindUnknownStatus.
func ClassifyStatus(code int) (kind Kind, ok bool) {
	switch {
	case code >= 200 && code <= 299:
		return 0, true
	case code >= 400 && code <= 499:
		return KindClient, false
	case code >= 500 && code <= 599:
		return KindServer, false
	default:
		return KindUnknownStatus, false
	}
}

// NewUnexpectedError wraps a transport or library failure.
func NewUnexpectedError(src Source, err error) *Error {
	return &Error{Source: src, Kind: KindUnexpected, Err: err}
}

// NewMissingBodyError reports a response whose body could not be read.
func NewMissingBodyError(src Source, err error) *Error {
	return &Error{Source: src, Kind: KindMissingBody, Err: err}
}

// NewStatusError classifies a non-2xx status. A 2xx code passed here is
// a caller bug and is reported as KindUnknownStatus.
func NewStatusError(src Source, code int) *Error {
	kind, ok := ClassifyStatus(code)
	if ok {
		kind = KindUnknownStatus
	}
	return &Error{Source: src, Kind: kind, Code: code}
}

// NewBodyParsingError keeps the decode failure and the raw body; a body
// that is not valid UTF-8 is replaced by a placeholder.
func NewBodyParsingError(src Source, err error, body []byte) *Error {
	text := bodyPlaceholder
	if utf8.Valid(body) {
		text = string(body)
	}
	return &Error{Source: src, Kind: KindBodyParsing, Err: err, Body: text}
}

// allFailed is only ever built by the aggregator.
func allFailed(errs []*Error) *Error {
	return &Error{Source: SourceLib, Kind: KindAllFailed, Errors: errs}
}
