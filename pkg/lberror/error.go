// Package lberror implements the controller's closed error taxonomy.
//
// Every error a reconciliation step returns is wrapped in a *Error carrying
// one of a fixed set of Kinds. The reconciler harness branches on Kind alone
// to decide whether to requeue or skip; nothing upstream needs to type-switch
// on concrete error values.
package lberror

import (
	"errors"
	"fmt"
)

// Kind classifies why a reconciliation step failed.
type Kind int

const (
	// KindSkip marks a Service outside the controller's remit: wrong type,
	// a duplicate HCloud LB name, or a missing namespace. Not requeued.
	KindSkip Kind = iota
	// KindInvalidInput marks a misconfigured Service: a bad annotation value
	// (unparseable int/bool, unknown algorithm, invalid label filter).
	KindInvalidInput
	// KindMissingPrecondition marks a structurally incomplete Service, e.g.
	// one without a selector when the dynamic resolver is active.
	KindMissingPrecondition
	// KindUpstream marks a failed Kubernetes or HCloud API call.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindInvalidInput:
		return "invalid-input"
	case KindMissingPrecondition:
		return "missing-precondition"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the tagged error type every component in this module returns.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newErr(kind Kind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// Skip formats a KindSkip error.
func Skip(format string, args ...any) *Error {
	return newErr(KindSkip, fmt.Errorf(format, args...))
}

// InvalidInput wraps err as a KindInvalidInput error.
func InvalidInput(err error) *Error {
	return newErr(KindInvalidInput, err)
}

// InvalidInputf formats a KindInvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return newErr(KindInvalidInput, fmt.Errorf(format, args...))
}

// MissingPrecondition formats a KindMissingPrecondition error.
func MissingPrecondition(format string, args ...any) *Error {
	return newErr(KindMissingPrecondition, fmt.Errorf(format, args...))
}

// Upstream wraps err as a KindUpstream error.
func Upstream(err error) *Error {
	return newErr(KindUpstream, err)
}

// Upstreamf formats a KindUpstream error.
func Upstreamf(format string, args ...any) *Error {
	return newErr(KindUpstream, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of err if it (or something it wraps) is a *Error,
// and KindUpstream otherwise — any error escaping this module's own taxonomy
// is treated as an opaque downstream failure, never as a skip.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
