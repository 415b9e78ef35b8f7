package nimble

import (
	"iter"
	"strconv"
)

// RangeValue represents 0..n lazily. The `range` builtin takes a single
// stop argument, so a RangeValue always starts at 0 with step 1.
type RangeValue struct {
	n int64
}

func NewRange(n int64) *RangeValue { return &RangeValue{n: n} }

func (r *RangeValue) Kind() Kind       { return KindRange }
func (r *RangeValue) TypeName() string { return "Range" }
func (r *RangeValue) IsFalsy() bool    { return r.n == 0 }
func (r *RangeValue) Clone() Value     { return r }
func (r *RangeValue) Len() int         { return int(r.n) }
func (r *RangeValue) String() string   { return "range(0, " + strconv.FormatInt(r.n, 10) + ")" }

func (r *RangeValue) Index(indexV Value) (Value, error) {
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return nil, typeError(token0(), "range indices must be integers")
	}
	i, err := resolveIndex(int(r.n), int(idx.AsInt64()))
	if err != nil {
		return nil, err
	}
	return NewInt64(int64(i)), nil
}

func (r *RangeValue) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for i := int64(0); i < r.n; i++ {
			if !yield(NewInt64(i)) {
				return
			}
		}
	}
}

func (r *RangeValue) Contains(v Value) (bool, error) {
	sc, ok := v.(*Scalar)
	if !ok || !sc.IsNumeric() {
		return false, nil
	}
	i := sc.AsInt64()
	return i >= 0 && i < r.n, nil
}
