package nimble

import (
	"errors"
	"fmt"

	"github.com/deliteai/nimblecore/token"
)

// Sentinel error kinds a caught exception's Kind() can report. try/except
// matches a handler's named type against one of these (or an Exception
// subclass registered by script code), exactly as an unnamed `except:`
// matches any of them.
var (
	// ErrArgument covers wrong arity, wrong operand kind, wrong dtype.
	ErrArgument = errors.New("ArgumentError")
	// ErrIndex covers an out-of-range list/tuple/string/tensor index.
	ErrIndex = errors.New("IndexError")
	// ErrKey covers a missing map key.
	ErrKey = errors.New("KeyError")
	// ErrType covers an operation unsupported for the value's container/dtype.
	ErrType = errors.New("TypeError")
	// ErrStopIteration is the distinguished marker Iterator.Next raises on
	// exhaustion; the for-statement walks Elements() directly and never
	// produces it.
	ErrStopIteration = errors.New("StopIteration")
	// ErrAssertion comes from a failing `assert` statement.
	ErrAssertion = errors.New("AssertionError")
	// ErrUser comes from a script `raise Exception(...)`.
	ErrUser = errors.New("UserException")
	// ErrStatus comes from the host boundary: task init failures, module
	// load failures. Carries an integer status code alongside the message.
	ErrStatus = errors.New("StatusError")
)

// RuntimeError is the concrete error type every evaluation failure takes,
// pairing a sentinel Kind with a message and the line it occurred on:
// callers `errors.Is(err, ErrIndex)` to classify, or read Message/Pos for
// display.
type RuntimeError struct {
	Kind    error
	Message string
	Pos     token.Pos
	// Trace accumulates one Pos per stack frame unwound while propagating,
	// innermost first.
	Trace []token.Pos
}

func (e *RuntimeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s (line %s)", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Kind }

// Is reports whether target is the RuntimeError's Kind, so that plain
// `errors.Is(err, nimble.ErrIndex)` works without unwrapping manually.
func (e *RuntimeError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// token0 is the zero Pos, used by value-level code (scalar/tensor/list
// operator kernels) that has no access to the AST node currently being
// evaluated. attachPos fills in the real position once the error reaches
// the interpreter, the first frame that knows it.
func token0() token.Pos { return token.Pos{} }

// attachPos sets err's position if it doesn't have one yet, and always
// appends pos to its Trace. Called by interp.go as errors propagate
// outward through nested expression evaluation.
func attachPos(err error, pos token.Pos) error {
	re, ok := err.(*RuntimeError)
	if !ok {
		return err
	}
	if !re.Pos.IsValid() {
		re.Pos = pos
	}
	re.Trace = append(re.Trace, pos)
	return re
}

func newError(kind error, pos token.Pos, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func argumentError(pos token.Pos, format string, args ...any) *RuntimeError {
	return newError(ErrArgument, pos, format, args...)
}

func indexError(pos token.Pos, format string, args ...any) *RuntimeError {
	return newError(ErrIndex, pos, format, args...)
}

func keyError(pos token.Pos, format string, args ...any) *RuntimeError {
	return newError(ErrKey, pos, format, args...)
}

func typeError(pos token.Pos, format string, args ...any) *RuntimeError {
	return newError(ErrType, pos, format, args...)
}

func statusError(code int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: ErrStatus, Message: fmt.Sprintf("status %d: %s", code, fmt.Sprintf(format, args...))}
}

// withTrace appends pos to err's trace, if err is a *RuntimeError. Used by
// the interpreter when unwinding frames, the way runtime.go's unwindStack
// walked frames accumulating token.FilePos entries.
func withTrace(err error, pos token.Pos) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		re.Trace = append(re.Trace, pos)
	}
	return err
}
