// Package chatroomerr assigns small typed codes to the error taxonomy of
// spec.md §7 (configuration errors, upgrade failures, unknown nickname
// claims). It never surfaces to WebSocket clients: malformed inbound
// messages remain silent drops per spec.md §7.
//
// Grounded on VictorNM-elsa-coding-challenges/internal/errors/errors.go
// (a Code type, functional Option pattern, Unwrap), trimmed down since
// this service has no gRPC/HTTP status surface to map onto.
package chatroomerr

import "fmt"

// Code classifies an Error.
type Code int

const (
	// CodeInvalidConfig marks a configuration error (spec.md §7):
	// missing or unparsable "space", or a failed field validation.
	CodeInvalidConfig Code = iota + 1
	// CodeUpgradeFailed marks a failed channel negotiation (spec.md §4.2).
	CodeUpgradeFailed
	// CodeUnknownNickname marks a claim for a name outside the
	// configured pool (spec.md §7's "domain-level rejection"). The room
	// does not construct errors with this code; a rejected claim reaches
	// the client only as SetNickNameResult.Success=false.
	CodeUnknownNickname
)

func (c Code) String() string {
	switch c {
	case CodeInvalidConfig:
		return "invalid_config"
	case CodeUpgradeFailed:
		return "upgrade_failed"
	case CodeUnknownNickname:
		return "unknown_nickname"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Code and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs an Error, applying opts in order.
func New(code Code, opts ...Option) *Error {
	e := &Error{Code: code, Message: code.String()}
	for _, opt := range opts {
		opt.apply(e)
	}
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Option customizes an Error built by New.
type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) { f(e) }

// WithCause attaches an underlying error.
func WithCause(err error) Option {
	return optionFunc(func(e *Error) { e.cause = err })
}

// WithMessagef overrides the default message with a formatted one.
func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) { e.Message = fmt.Sprintf(format, args...) })
}
