package query

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is.
var (
	ErrCompile          = errors.New("query compile error")
	ErrStoreUnavailable = errors.New("index store unavailable")
)

// CompileError reports a malformed expression, a reference to an unknown
// field, or a sort on a field without sort values. No iterator is returned
// alongside it.
type CompileError struct {
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile query %q: %v", e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// StoreUnavailableError reports that the index could not be read: it is
// closed, unreachable, or has an incompatible schema.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("index store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

func compileErrorf(expr, format string, args ...any) error {
	return &CompileError{Expr: expr, Err: fmt.Errorf(format, args...)}
}
