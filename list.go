package nimble

import (
	"iter"
	"strings"
)

// List is an ordered, heterogeneous sequence of values. Its one invariant
// is shape[0] == size(): it behaves like a rank-1 tensor over Value
// instead of a fixed scalar dtype.
type List struct {
	elems []Value
}

func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) Kind() Kind       { return KindList }
func (l *List) TypeName() string { return "List" }
func (l *List) IsFalsy() bool    { return len(l.elems) == 0 }
func (l *List) Len() int         { return len(l.elems) }

func (l *List) Clone() Value {
	cp := make([]Value, len(l.elems))
	copy(cp, l.elems)
	return &List{elems: cp}
}

func (l *List) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func resolveIndex(n, i int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, indexError(token0(), "list index out of range")
	}
	return i, nil
}

func (l *List) Index(indexV Value) (Value, error) {
	if sl, ok := indexV.(*SliceValue); ok {
		return l.Slice(sl)
	}
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return nil, typeError(token0(), "list indices must be integers")
	}
	i, err := resolveIndex(len(l.elems), int(idx.AsInt64()))
	if err != nil {
		return nil, err
	}
	return l.elems[i], nil
}

func (l *List) SetIndex(indexV Value, value Value) error {
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return typeError(token0(), "list indices must be integers")
	}
	i, err := resolveIndex(len(l.elems), int(idx.AsInt64()))
	if err != nil {
		return err
	}
	l.elems[i] = value
	return nil
}

func (l *List) Slice(s *SliceValue) (Value, error) {
	start, stop, step, err := s.Resolve(len(l.elems))
	if err != nil {
		return nil, err
	}
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, l.elems[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, l.elems[i])
		}
	}
	return &List{elems: out}, nil
}

func (l *List) Append(v Value) { l.elems = append(l.elems, v) }

func (l *List) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for _, e := range l.elems {
			if !yield(e) {
				return
			}
		}
	}
}

func (l *List) Contains(v Value) (bool, error) {
	for _, e := range l.elems {
		if valuesEqual(e, v) {
			return true, nil
		}
	}
	return false, nil
}

// BinaryOp implements `+` (concatenation) and `*` (repetition by a Scalar
// int on either side): count <= 0 yields an empty list, count == 1 yields
// a copy, larger counts grow by doubling.
func (l *List) BinaryOp(op string, other Value, right bool) (Value, error) {
	switch op {
	case "+":
		ol, ok := other.(*List)
		if !ok {
			return nil, typeError(token0(), "cannot concatenate list with %q", other.TypeName())
		}
		a, b := l.elems, ol.elems
		if right {
			a, b = ol.elems, l.elems
		}
		out := make([]Value, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return &List{elems: out}, nil
	case "*":
		n, ok := other.(*Scalar)
		if !ok || !n.IsNumeric() {
			return nil, typeError(token0(), "list repetition count must be numeric, got %q", other.TypeName())
		}
		return l.repeat(int(n.AsInt64())), nil
	}
	return nil, typeError(token0(), "unsupported operand kind %q for list %s", other.TypeName(), op)
}

// repeat implements `list * k` / `k * list`: count <= 0 yields an empty
// list, count == 1 yields a copy, larger counts are built by doubling the
// output buffer each round rather than appending one source copy at a time.
func (l *List) repeat(k int) *List {
	if k <= 0 || len(l.elems) == 0 {
		return &List{}
	}
	want := len(l.elems) * k
	out := make([]Value, len(l.elems), want)
	copy(out, l.elems)
	for len(out) < want {
		remaining := want - len(out)
		if remaining > len(out) {
			remaining = len(out)
		}
		out = append(out, out[:remaining]...)
	}
	return &List{elems: out}
}

func (l *List) Equals(otherV Value) bool {
	other, ok := otherV.(*List)
	if !ok || len(l.elems) != len(other.elems) {
		return false
	}
	for i, e := range l.elems {
		if !valuesEqual(e, other.elems[i]) {
			return false
		}
	}
	return true
}

// ToTensor flattens a rectangular list-of-lists into a typed tensor,
// failing if dimensions are inconsistent or dtype unsupported (supported:
// Int32, Int64, Float, Double, String).
func (l *List) ToTensor(dtype DType) (*Tensor, error) {
	shape, err := l.rectangularShape()
	if err != nil {
		return nil, err
	}
	if dtype == DString || dtype == DUnicodeString {
		var out []string
		if err := l.flattenStrings(&out); err != nil {
			return nil, err
		}
		return NewTensorFromStrings(shape, out), nil
	}
	switch dtype {
	case DInt32, DInt64, DFloat, DDouble:
	default:
		return nil, argumentError(token0(), "to_tensor: unsupported dtype %s", dtype)
	}
	var out []float64
	if err := l.flattenFloats(&out); err != nil {
		return nil, err
	}
	return NewTensorFromFloats(dtype, shape, out), nil
}

func (l *List) rectangularShape() ([]int64, error) {
	shape := []int64{int64(len(l.elems))}
	if len(l.elems) == 0 {
		return shape, nil
	}
	if sub, ok := l.elems[0].(*List); ok {
		subShape, err := sub.rectangularShape()
		if err != nil {
			return nil, err
		}
		for _, e := range l.elems[1:] {
			se, ok := e.(*List)
			if !ok {
				return nil, argumentError(token0(), "to_tensor: ragged list")
			}
			got, err := se.rectangularShape()
			if err != nil {
				return nil, err
			}
			if !int64SliceEqual(got, subShape) {
				return nil, argumentError(token0(), "to_tensor: ragged list")
			}
		}
		return append(shape, subShape...), nil
	}
	return shape, nil
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l *List) flattenFloats(out *[]float64) error {
	for _, e := range l.elems {
		switch v := e.(type) {
		case *List:
			if err := v.flattenFloats(out); err != nil {
				return err
			}
		case *Scalar:
			if !v.IsNumeric() {
				return argumentError(token0(), "to_tensor: non-numeric element %q", v.TypeName())
			}
			*out = append(*out, v.AsFloat64())
		default:
			return argumentError(token0(), "to_tensor: unsupported element %q", e.TypeName())
		}
	}
	return nil
}

func (l *List) flattenStrings(out *[]string) error {
	for _, e := range l.elems {
		switch v := e.(type) {
		case *List:
			if err := v.flattenStrings(out); err != nil {
				return err
			}
		case *Scalar:
			if !v.IsString() {
				return argumentError(token0(), "to_tensor: non-string element %q", v.TypeName())
			}
			*out = append(*out, v.String())
		default:
			return argumentError(token0(), "to_tensor: unsupported element %q", e.TypeName())
		}
	}
	return nil
}
