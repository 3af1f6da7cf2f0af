// Package chainerr defines the error taxonomy shared by the compiler,
// executor, registry and server. Every error surfaced to a caller carries
// enough context (chain, step, variable, path) to diagnose without logs.
package chainerr

import (
	"errors"
	"fmt"
)

// Category classifies an error for the invocation boundary.
type Category int

const (
	// CategoryInternal covers compilation and execution failures.
	CategoryInternal Category = iota

	// CategoryBadRequest covers caller input errors.
	CategoryBadRequest

	// CategoryNotFound covers missing chains and missing resource files.
	CategoryNotFound
)

// String returns the category name for logs and tests.
func (c Category) String() string {
	switch c {
	case CategoryBadRequest:
		return "bad_request"
	case CategoryNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the structured error type for chain processing failures.
type Error struct {
	Cat      Category
	Chain    string
	Step     string
	Variable string
	Path     string
	Msg      string
	Err      error
}

// Error formats the failure with all available context.
func (e *Error) Error() string {
	s := e.Msg
	if e.Variable != "" {
		s = fmt.Sprintf("%s (variable %q)", s, e.Variable)
	}
	if e.Path != "" {
		s = fmt.Sprintf("%s (path %q)", s, e.Path)
	}
	if e.Step != "" {
		s = fmt.Sprintf("step %q: %s", e.Step, s)
	}
	if e.Chain != "" {
		s = fmt.Sprintf("chain %q: %s", e.Chain, s)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Config reports a structurally invalid chain specification.
func Config(chain, step, msg string) *Error {
	return &Error{Cat: CategoryInternal, Chain: chain, Step: step, Msg: msg}
}

// NotFound reports a missing chain or resource file.
func NotFound(chain, path, msg string) *Error {
	return &Error{Cat: CategoryNotFound, Chain: chain, Path: path, Msg: msg}
}

// Input reports a caller-supplied variable pool that cannot satisfy a step.
func Input(chain, step, variable string) *Error {
	return &Error{
		Cat:      CategoryBadRequest,
		Chain:    chain,
		Step:     step,
		Variable: variable,
		Msg:      "missing required input",
	}
}

// Execution reports a model invocation failure that aborted the run.
func Execution(chain, step string, err error) *Error {
	return &Error{
		Cat:   CategoryInternal,
		Chain: chain,
		Step:  step,
		Msg:   "model invocation failed",
		Err:   err,
	}
}

// CategoryOf maps any error to its boundary category. Unrecognized errors
// are internal failures.
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Cat
	}
	return CategoryInternal
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return CategoryOf(err) == CategoryNotFound
}
