package main

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed failure taxonomy. Every fallible classification
// path returns a *ClassificationError carrying one of these kinds; nothing
// panics or throws past a method boundary.
type ErrorKind string

const (
	ErrConnection         ErrorKind = "connection"
	ErrTimeout            ErrorKind = "timeout"
	ErrParse              ErrorKind = "parse"
	ErrSchemaValidation   ErrorKind = "schema_validation"
	ErrUnsupportedMethod  ErrorKind = "unsupported_method"
	ErrInsufficientQuorum ErrorKind = "insufficient_quorum"
)

type ClassificationError struct {
	Kind   ErrorKind
	Method string // method that surfaced the failure, "" at the oracle boundary
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: %s: %v", e.Method, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func classifyErr(kind ErrorKind, method, format string, args ...any) *ClassificationError {
	return &ClassificationError{Kind: kind, Method: method, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from any error in the chain. Unclassified
// errors report as connection failures: the only way an untyped error reaches
// a caller is through the transport boundary.
func KindOf(err error) ErrorKind {
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrConnection
}

// tagMethod stamps the surfacing method onto an untagged failure.
func tagMethod(err error, method string) error {
	var ce *ClassificationError
	if errors.As(err, &ce) && ce.Method == "" {
		ce.Method = method
	}
	return err
}

// retryable reports whether the failure is transient. Parse and schema errors
// are deterministic for a given reply and are never retried.
func retryable(err error) bool {
	switch KindOf(err) {
	case ErrConnection, ErrTimeout:
		return true
	}
	return false
}
