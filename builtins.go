package nimble

import (
	"fmt"
	"sort"
)

// Builtins holds the host/runtime global callables an InbuiltStmt binds
// into a module's scope before any user statement runs. The registry is
// name-keyed since InbuiltStmt carries the names explicitly rather than
// relying on a shared global numbering.
var Builtins = map[string]Value{}

func registerBuiltin(name string, fn NativeFunc) {
	Builtins[name] = &Function{Name: name, Native: fn}
}

// BuiltinNames returns every registered built-in global, sorted, used by
// NewTask to synthesize the implicit InbuiltStmt at the head of each
// module body (a deterministic order keeps variable indices stable across
// runs).
func BuiltinNames() []string {
	names := make([]string, 0, len(Builtins))
	for name := range Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	registerBuiltin("print", builtinPrint)
	registerBuiltin("range", builtinRange)
	registerBuiltin("str", builtinStr)
	registerBuiltin("int", builtinInt)
	registerBuiltin("float", builtinFloat)
	registerBuiltin("bool", builtinBool)
	registerBuiltin("len", builtinLen)
	registerBuiltin("not", builtinNot)
	registerBuiltin("Exception", builtinException)
	registerBuiltin("type_name", builtinTypeName)
}

func builtinPrint(i *Interp, args []Value) (Value, error) {
	parts := make([]any, len(args))
	for idx, a := range args {
		parts[idx] = a.String()
	}
	fmt.Println(parts...)
	return None, nil
}

func builtinRange(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "range() takes exactly 1 argument, got %d", len(args))
	}
	sc, ok := args[0].(*Scalar)
	if !ok || !sc.IsNumeric() {
		return nil, argumentError(token0(), "range() argument must be numeric")
	}
	return NewRange(sc.AsInt64()), nil
}

func builtinStr(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "str() takes exactly 1 argument, got %d", len(args))
	}
	return NewUnicodeString(args[0].String()), nil
}

func builtinInt(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "int() takes exactly 1 argument, got %d", len(args))
	}
	sc, ok := args[0].(*Scalar)
	if !ok {
		return nil, argumentError(token0(), "int() argument must be a scalar")
	}
	if sc.IsString() {
		n, err := parseInt(sc.String())
		if err != nil {
			return nil, argumentError(token0(), "invalid literal for int(): %q", sc.String())
		}
		return NewInt64(n), nil
	}
	if !sc.IsNumeric() {
		return nil, argumentError(token0(), "int() argument must be numeric or string")
	}
	return NewInt64(sc.AsInt64()), nil
}

func builtinFloat(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "float() takes exactly 1 argument, got %d", len(args))
	}
	sc, ok := args[0].(*Scalar)
	if !ok {
		return nil, argumentError(token0(), "float() argument must be a scalar")
	}
	if sc.IsString() {
		f, err := parseFloat(sc.String())
		if err != nil {
			return nil, argumentError(token0(), "could not convert string to float: %q", sc.String())
		}
		return NewDouble(f), nil
	}
	if !sc.IsNumeric() {
		return nil, argumentError(token0(), "float() argument must be numeric or string")
	}
	return NewDouble(sc.AsFloat64()), nil
}

func builtinBool(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "bool() takes exactly 1 argument, got %d", len(args))
	}
	return NewBool(Truthy(args[0])), nil
}

func builtinLen(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "len() takes exactly 1 argument, got %d", len(args))
	}
	n, err := Len(args[0])
	if err != nil {
		return nil, err
	}
	return NewInt64(int64(n)), nil
}

func builtinNot(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "not() takes exactly 1 argument, got %d", len(args))
	}
	return NewBool(!Truthy(args[0])), nil
}

func builtinTypeName(i *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, argumentError(token0(), "type_name() takes exactly 1 argument, got %d", len(args))
	}
	return NewString(args[0].TypeName()), nil
}

// builtinException implements `Exception("msg")` / `Exception("Kind", "msg")`.
func builtinException(i *Interp, args []Value) (Value, error) {
	switch len(args) {
	case 1:
		return NewException("Exception", args[0].String()), nil
	case 2:
		return NewException(args[0].String(), args[1].String()), nil
	}
	return nil, argumentError(token0(), "Exception() takes 1 or 2 arguments, got %d", len(args))
}

func parseInt(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
