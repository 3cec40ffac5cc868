// Package ingesterr classifies the non-fatal failures of the ingestion path.
// None of them abort a scan; they explain why a stage produced an empty or
// default result.
package ingesterr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindFormat      Kind = "FormatError"
	KindSchema      Kind = "SchemaError"
	KindCoercion    Kind = "ValueCoercionError"
	KindPersistence Kind = "PersistenceError"
	KindArchival    Kind = "ArchivalError"
)

type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func Newf(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ingesterr.Format)
// works without comparing stages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Stage == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	Format      = &Error{Kind: KindFormat}
	Schema      = &Error{Kind: KindSchema}
	Coercion    = &Error{Kind: KindCoercion}
	Persistence = &Error{Kind: KindPersistence}
	Archival    = &Error{Kind: KindArchival}
)

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
