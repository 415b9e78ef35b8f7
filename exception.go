package nimble

import "fmt"

// Exception is the value a `raise` statement carries and a `try/except`
// handler binds. Its TypeKind is the name try/except matches against a
// handler's named type ("Exception" for the built-in base class, or
// whatever internal kind produced it: "ArgumentError", "IndexError",
// "KeyError", "TypeError", "AssertionError"). An unnamed `except:` matches
// any Exception value.
type Exception struct {
	TypeKind string
	Message  string
	Cause    error // the underlying *RuntimeError, if this wraps one
}

// NewException builds a user exception of the given type name, the shape
// `Exception("boom")` and subclasses thereof construct.
func NewException(typeKind, message string) *Exception {
	if typeKind == "" {
		typeKind = "Exception"
	}
	return &Exception{TypeKind: typeKind, Message: message}
}

// exceptionFromError converts an internal *RuntimeError into a script
// Exception value, used when wrapping a raised runtime error so it can be
// bound by a try/except handler's `as name` clause.
func exceptionFromError(err error) *Exception {
	re, ok := err.(*RuntimeError)
	if !ok {
		return &Exception{TypeKind: "Exception", Message: err.Error(), Cause: err}
	}
	kind := "Exception"
	switch re.Kind {
	case ErrArgument:
		kind = "ArgumentError"
	case ErrIndex:
		kind = "IndexError"
	case ErrKey:
		kind = "KeyError"
	case ErrType:
		kind = "TypeError"
	case ErrAssertion:
		kind = "AssertionError"
	case ErrStatus:
		kind = "StatusError"
	}
	return &Exception{TypeKind: kind, Message: re.Message, Cause: re}
}

func (e *Exception) Kind() Kind       { return KindException }
func (e *Exception) TypeName() string { return e.TypeKind }
func (e *Exception) IsFalsy() bool    { return false }
func (e *Exception) Clone() Value     { return e }

// String returns just the message, matching Python's str(e); the type name
// is available separately via TypeName for repr-style display.
func (e *Exception) String() string { return e.Message }

// Repr is the diagnostic form used by the host boundary and print-style
// displays that want the type name too.
func (e *Exception) Repr() string { return fmt.Sprintf("%s: %s", e.TypeKind, e.Message) }

// Matches reports whether a try/except handler named typeName catches
// this exception: an exact type-kind match, or "Exception" which catches
// everything (the universal base class).
func (e *Exception) Matches(typeName string) bool {
	return typeName == "" || typeName == "Exception" || typeName == e.TypeKind
}

func (e *Exception) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "message":
		return NewString(e.Message), nil
	case "args":
		return NewTuple([]Value{NewString(e.Message)}), nil
	}
	return nil, typeError(token0(), "exception has no attribute %q", name)
}

// asRaised converts e back into a propagatable error, for `raise exc` and
// for re-raising an uncaught exception out of try/except.
func (e *Exception) asRaised() error {
	if e.Cause != nil {
		return e.Cause
	}
	return newError(ErrUser, token0(), "%s", e.Message)
}
