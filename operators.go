package nimble

import (
	"errors"

	"github.com/deliteai/nimblecore/token"
)

// valuesEqual implements the equality rule used throughout the value
// model (list/tuple/map membership and equality, parse_json/to_json_str
// round-tripping). Falls back to false across mismatched kinds that don't
// implement Comparable.
func valuesEqual(a, b Value) bool {
	if ca, ok := a.(Comparable); ok {
		return ca.Equals(b)
	}
	return a == b
}

// BinaryOp dispatches a BinOp node to the left operand's HasBinaryOp
// implementation, retrying on the right operand (right=true) when the left
// doesn't support the operator — this is how `list * 2` and `2 * list`
// both resolve to the same List.BinaryOp with the `right` flag telling it
// which side it's being called from.
func BinaryOp(op token.Token, left, right Value) (Value, error) {
	opStr := op.String()
	if lv, ok := left.(HasBinaryOp); ok {
		v, err := lv.BinaryOp(opStr, right, false)
		if err == nil {
			return v, nil
		}
		// Only an unsupported-operation TypeError falls through to the
		// right operand; a real failure (division by zero, shape
		// mismatch) is fatal here, not retried.
		if !errors.Is(err, ErrType) {
			return nil, err
		}
	}
	if rv, ok := right.(HasBinaryOp); ok {
		v, err := rv.BinaryOp(opStr, left, true)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrType) {
			return nil, err
		}
	}
	return nil, typeError(token0(), "unsupported operand kinds %q and %q for %s", left.TypeName(), right.TypeName(), opStr)
}

// UnaryOp dispatches a UnaryOp node.
func UnaryOp(op token.Token, operand Value) (Value, error) {
	ov, ok := operand.(HasUnaryOp)
	if !ok {
		return nil, typeError(token0(), "unsupported operand kind %q for unary %s", operand.TypeName(), op)
	}
	return ov.UnaryOp(op.String())
}

// Compare dispatches a single pairwise comparison within a Compare node's
// chain: ==, !=, <, <=, >, >=, is, is not, in, not in.
func Compare(op token.Token, left, right Value) (bool, error) {
	switch op {
	case token.Equal:
		return valuesEqual(left, right), nil
	case token.NotEqual:
		return !valuesEqual(left, right), nil
	case token.Is:
		return left == right || valuesEqual(left, right), nil
	case token.IsNot:
		eq := left == right || valuesEqual(left, right)
		return !eq, nil
	case token.In, token.NotIn:
		c, ok := right.(Container)
		if !ok {
			return false, typeError(token0(), "argument of type %q is not a container", right.TypeName())
		}
		has, err := c.Contains(left)
		if err != nil {
			return false, err
		}
		if op == token.NotIn {
			return !has, nil
		}
		return has, nil
	}

	lv, ok := left.(Ordered)
	if !ok {
		return false, typeError(token0(), "%q does not support ordering comparisons", left.TypeName())
	}
	c, err := lv.Compare(right)
	if err != nil {
		return false, err
	}
	switch op {
	case token.Less:
		return c < 0, nil
	case token.LessEq:
		return c <= 0, nil
	case token.Greater:
		return c > 0, nil
	case token.GreaterEq:
		return c >= 0, nil
	}
	return false, typeError(token0(), "unsupported comparison operator %s", op)
}

// IndexGet dispatches v[index] reads.
func IndexGet(v, index Value) (Value, error) {
	ia, ok := v.(IndexAccessible)
	if !ok {
		return nil, typeError(token0(), "%q is not subscriptable", v.TypeName())
	}
	return ia.Index(index)
}

// IndexSet dispatches v[index] = value writes.
func IndexSet(v, index, value Value) error {
	ia, ok := v.(IndexAssignable)
	if !ok {
		return typeError(token0(), "%q does not support item assignment", v.TypeName())
	}
	return ia.SetIndex(index, value)
}

// Len dispatches len(v).
func Len(v Value) (int, error) {
	s, ok := v.(Sized)
	if !ok {
		return 0, typeError(token0(), "object of type %q has no len()", v.TypeName())
	}
	return s.Len(), nil
}

// Truthy coerces v to a bool, used by If/While/BoolOp/Assert.
func Truthy(v Value) bool { return !v.IsFalsy() }
