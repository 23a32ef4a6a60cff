// Package errors defines the error taxonomy reported by the query engine.
//
// Every failure that reaches a caller of the engine is a *QueryError. The Kind
// classifies it; sentinels such as ErrNotFound match any QueryError of the same
// kind through errors.Is, so callers never compare messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a QueryError
type Kind string

const (
	KindSyntax           Kind = "syntax"
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindPredicate        Kind = "predicate"
	KindExecution        Kind = "execution"
	KindIO               Kind = "io"
	KindNotInTransaction Kind = "not_in_transaction"
)

// QueryError is the single error type surfaced by the engine
type QueryError struct {
	Kind      Kind   // classification
	Statement string // offending statement text (set by the engine)
	Object    string // "table", "column", "user" ... (optional)
	Name      string // object name (optional)
	Msg       string // human-readable detail
	Err       error  // wrapped cause (optional)
}

func (e *QueryError) Error() string {
	var parts []string

	parts = append(parts, string(e.Kind)+" error")

	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Statement != "" {
		parts = append(parts, fmt.Sprintf("in statement %q", e.Statement))
	}

	return strings.Join(parts, ": ")
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is reports a match against a sentinel of the same kind. Sentinels carry no
// message, so a fully-populated error never matches another populated one.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Name == "" && t.Kind == e.Kind
}

// WithStatement returns a copy of e carrying the statement text
func (e *QueryError) WithStatement(stmt string) *QueryError {
	c := *e
	c.Statement = stmt
	return &c
}

// Sentinels for errors.Is
var (
	ErrSyntax           = &QueryError{Kind: KindSyntax}
	ErrNotFound         = &QueryError{Kind: KindNotFound}
	ErrAlreadyExists    = &QueryError{Kind: KindAlreadyExists}
	ErrPredicate        = &QueryError{Kind: KindPredicate}
	ErrExecution        = &QueryError{Kind: KindExecution}
	ErrIO               = &QueryError{Kind: KindIO}
	ErrNotInTransaction = &QueryError{Kind: KindNotInTransaction}
)

func Syntax(format string, args ...any) *QueryError {
	return &QueryError{Kind: KindSyntax, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(object, name string) *QueryError {
	return &QueryError{
		Kind:   KindNotFound,
		Object: object,
		Name:   name,
		Msg:    fmt.Sprintf("%s '%s' does not exist", object, name),
	}
}

// ColumnNotFound reports a projected column missing from a table header
func ColumnNotFound(column, table string) *QueryError {
	return &QueryError{
		Kind:   KindNotFound,
		Object: "column",
		Name:   column,
		Msg:    fmt.Sprintf("column '%s' does not exist in table '%s'", column, table),
	}
}

func AlreadyExists(object, name string) *QueryError {
	return &QueryError{
		Kind:   KindAlreadyExists,
		Object: object,
		Name:   name,
		Msg:    fmt.Sprintf("%s '%s' already exists", object, name),
	}
}

func Predicate(format string, args ...any) *QueryError {
	return &QueryError{Kind: KindPredicate, Msg: fmt.Sprintf(format, args...)}
}

// Execution wraps an untyped fault raised while executing stmt
func Execution(stmt string, err error) *QueryError {
	return &QueryError{Kind: KindExecution, Statement: stmt, Msg: "error processing query", Err: err}
}

// IO wraps a resource read/write failure
func IO(op, path string, err error) *QueryError {
	return &QueryError{Kind: KindIO, Msg: fmt.Sprintf("%s %s", op, path), Err: err}
}

func NotInTransaction(verb string) *QueryError {
	return &QueryError{Kind: KindNotInTransaction, Msg: fmt.Sprintf("%s: no transaction in progress", verb)}
}

// KindOf classifies any error. Errors that are not QueryErrors are execution faults.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var qe *QueryError
	if stderrors.As(err, &qe) {
		return qe.Kind
	}
	return KindExecution
}

// Attach returns err as a QueryError carrying stmt. Typed errors keep their
// kind; anything else becomes an execution error wrapping the cause.
func Attach(stmt string, err error) *QueryError {
	var qe *QueryError
	if stderrors.As(err, &qe) {
		if qe.Statement != "" {
			return qe
		}
		return qe.WithStatement(stmt)
	}
	return Execution(stmt, err)
}
