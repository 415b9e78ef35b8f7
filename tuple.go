package nimble

import (
	"iter"
	"strings"
)

// Tuple is an immutable ordered sequence. Indexing and iteration are
// allowed; assignment by index is permitted by the underlying
// representation (SetIndex below) but is never reached through surface
// tuple literals, which always evaluate in Load context or as unpacking
// assignment targets, never as an index-assignment target.
type Tuple struct {
	elems []Value
}

func NewTuple(elems []Value) *Tuple { return &Tuple{elems: elems} }

func (t *Tuple) Kind() Kind       { return KindTuple }
func (t *Tuple) TypeName() string { return "Tuple" }
func (t *Tuple) IsFalsy() bool    { return len(t.elems) == 0 }
func (t *Tuple) Len() int         { return len(t.elems) }
func (t *Tuple) Clone() Value     { return t }
func (t *Tuple) Elems() []Value   { return t.elems }

func (t *Tuple) String() string {
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	s := strings.Join(parts, ", ")
	if len(t.elems) == 1 {
		s += ","
	}
	return "(" + s + ")"
}

func (t *Tuple) Index(indexV Value) (Value, error) {
	if sl, ok := indexV.(*SliceValue); ok {
		return t.Slice(sl)
	}
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return nil, typeError(token0(), "tuple indices must be integers")
	}
	i, err := resolveIndex(len(t.elems), int(idx.AsInt64()))
	if err != nil {
		return nil, err
	}
	return t.elems[i], nil
}

func (t *Tuple) SetIndex(indexV Value, value Value) error {
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return typeError(token0(), "tuple indices must be integers")
	}
	i, err := resolveIndex(len(t.elems), int(idx.AsInt64()))
	if err != nil {
		return err
	}
	t.elems[i] = value
	return nil
}

func (t *Tuple) Slice(s *SliceValue) (Value, error) {
	start, stop, step, err := s.Resolve(len(t.elems))
	if err != nil {
		return nil, err
	}
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, t.elems[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, t.elems[i])
		}
	}
	return &Tuple{elems: out}, nil
}

func (t *Tuple) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for _, e := range t.elems {
			if !yield(e) {
				return
			}
		}
	}
}

func (t *Tuple) Contains(v Value) (bool, error) {
	for _, e := range t.elems {
		if valuesEqual(e, v) {
			return true, nil
		}
	}
	return false, nil
}

func (t *Tuple) Equals(otherV Value) bool {
	other, ok := otherV.(*Tuple)
	if !ok || len(t.elems) != len(other.elems) {
		return false
	}
	for i, e := range t.elems {
		if !valuesEqual(e, other.elems[i]) {
			return false
		}
	}
	return true
}
