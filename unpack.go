package nimble

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// Unpacker defines custom argument-unpacking behavior for a native
// function parameter that needs more than a plain type assertion.
type Unpacker interface {
	Unpack(v Value) error
}

// UnpackArgs binds args positionally against name/pointer pairs: a
// trailing "name?" marks an optional parameter, a trailing "..." pair
// captures the
// remaining arguments into a *[]Value. Builtins/modules use this instead of
// repeating `args[i].(*Scalar)`-style assertions by hand at every call site.
func UnpackArgs(args []Value, pairs ...any) error {
	var defined big.Int
	nparams := len(pairs) / 2
	paramName := func(x any) string {
		name := x.(string)
		if name[len(name)-1] == '?' {
			name = name[:len(name)-1]
		}
		return name
	}
	if !slices.Contains(pairs, "...") && len(args) > nparams {
		return argumentError(token0(), "want at most %d arguments, got %d", nparams, len(args))
	}
	for i, arg := range args {
		if i >= nparams {
			break
		}
		defined.SetBit(&defined, i, 1)
		name := paramName(pairs[2*i])
		if name == "..." {
			if p, ok := pairs[2*i+1].(*[]Value); ok {
				*p = args[i:]
				break
			}
			panic(fmt.Sprintf("expected *[]Value type for variadic parameter, got %T", pairs[2*i+1]))
		}
		if err := unpackArg(pairs[2*i+1], arg); err != nil {
			return argumentError(token0(), "argument %q: %v", name, err)
		}
	}
	for i := 0; i < nparams; i++ {
		name := pairs[2*i].(string)
		if name == "..." || strings.HasSuffix(name, "?") {
			break
		}
		if i < len(args) {
			continue
		}
		if defined.Bit(i) == 0 {
			return argumentError(token0(), "missing argument for %s", name)
		}
	}
	return nil
}

func unpackArg(ptr any, v Value) error {
	switch p := ptr.(type) {
	case Unpacker:
		return p.Unpack(v)
	case *Value:
		*p = v
	case *string:
		s, ok := v.(*Scalar)
		if !ok || !s.IsString() {
			return fmt.Errorf("expected string, got %s", v.TypeName())
		}
		*p = s.String()
	case *bool:
		b, ok := v.(*Scalar)
		if !ok || b.DType() != DBool {
			return fmt.Errorf("expected bool, got %s", v.TypeName())
		}
		*p = !b.IsFalsy()
	case *int:
		n, ok := v.(*Scalar)
		if !ok || !n.IsNumeric() {
			return fmt.Errorf("expected int, got %s", v.TypeName())
		}
		*p = int(n.AsInt64())
	case *int64:
		n, ok := v.(*Scalar)
		if !ok || !n.IsNumeric() {
			return fmt.Errorf("expected int, got %s", v.TypeName())
		}
		*p = n.AsInt64()
	case *float64:
		n, ok := v.(*Scalar)
		if !ok || !n.IsNumeric() {
			return fmt.Errorf("expected float, got %s", v.TypeName())
		}
		*p = n.AsFloat64()
	case **List:
		l, ok := v.(*List)
		if !ok {
			return fmt.Errorf("expected List, got %s", v.TypeName())
		}
		*p = l
	case **Map:
		m, ok := v.(*Map)
		if !ok {
			return fmt.Errorf("expected Map, got %s", v.TypeName())
		}
		*p = m
	case **Tensor:
		t, ok := v.(*Tensor)
		if !ok {
			return fmt.Errorf("expected Tensor, got %s", v.TypeName())
		}
		*p = t
	case *Iterable:
		it, ok := v.(Iterable)
		if !ok {
			return fmt.Errorf("expected an iterable, got %s", v.TypeName())
		}
		*p = it
	case *Callable:
		fn, ok := v.(Callable)
		if !ok {
			return fmt.Errorf("expected a callable, got %s", v.TypeName())
		}
		*p = fn
	default:
		panic(fmt.Sprintf("UnpackArgs: unsupported pointer type %T", ptr))
	}
	return nil
}
