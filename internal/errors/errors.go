// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that reaches the terminal or the session transcript carries a Kind so
// callers can decide how to present it without string matching.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// UnsupportedKind indicates a target descriptor names an unknown database kind.
	UnsupportedKind Kind = "unsupported_kind"
	// InvalidTarget indicates a connection URL or descriptor field could not be parsed.
	InvalidTarget Kind = "invalid_target"
	// PoolConstruction indicates the driver rejected a canonical URL or pool options.
	PoolConstruction Kind = "pool_construction"
	// InitFailed indicates the reasoning agent could not be constructed.
	InitFailed Kind = "init_failed"
	// StreamFailed indicates the agent event source itself failed.
	StreamFailed Kind = "stream_failed"
	// ExecFailed indicates a SQL statement failed to execute.
	ExecFailed Kind = "exec_failed"
	// Config indicates settings or saved connections could not be read or written.
	Config Kind = "config"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Is reports whether any error in err's chain is an *E of the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message returns the human-friendly part of err: the Message of the first *E in the
// chain, or err.Error() for foreign errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
