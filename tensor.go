package nimble

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"
)

// Tensor carries a dense buffer, an element type, and a shape (an ordered
// sequence of non-negative dimensions). Numeric tensors own a contiguous
// []float64 buffer (the element DType records how narrow the logical type
// is); string tensors own a []string buffer alongside the shape. A slice
// view shares the same backing buffer as its source tensor and references
// a contiguous sub-range starting at an element offset — expressed here by
// giving every Tensor an `offset`/`length` window onto `data`, so a view is
// just another *Tensor pointing into the same slice.
type Tensor struct {
	dtype   DType
	shape   []int64
	data    []float64 // used when dtype is numeric
	strData []string  // used when dtype is DString/DUnicodeString
	offset  int
	length  int
}

func numElements(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// NewTensor builds a tensor owning its own buffer, zero-initialized.
func NewTensor(dtype DType, shape []int64) *Tensor {
	n := numElements(shape)
	t := &Tensor{dtype: dtype, shape: append([]int64(nil), shape...), length: n}
	if dtype == DString || dtype == DUnicodeString {
		t.strData = make([]string, n)
	} else {
		t.data = make([]float64, n)
	}
	return t
}

// NewTensorFromFloats builds a tensor from a flat buffer of already-decoded
// values, used by the wire-format decoder (wire.go) and tensor(list,
// dtype).
func NewTensorFromFloats(dtype DType, shape []int64, data []float64) *Tensor {
	return &Tensor{dtype: dtype, shape: append([]int64(nil), shape...), data: data, length: len(data)}
}

func NewTensorFromStrings(shape []int64, data []string) *Tensor {
	return &Tensor{dtype: DString, shape: append([]int64(nil), shape...), strData: data, length: len(data)}
}

func (t *Tensor) Kind() Kind { return KindTensor }
func (t *Tensor) TypeName() string { return "Tensor<" + t.dtype.String() + ">" }
func (t *Tensor) IsFalsy() bool { return t.length == 0 }

func (t *Tensor) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < t.length; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.elementAt(i).String())
	}
	b.WriteByte(']')
	return b.String()
}

// Clone returns an independent tensor with its own backing buffer (tensors
// have copy semantics on assignment; views are the explicit exception,
// constructed by Index, Reshape and step-1 Slice).
func (t *Tensor) Clone() Value {
	clone := &Tensor{dtype: t.dtype, shape: append([]int64(nil), t.shape...), length: t.length}
	if t.strData != nil {
		clone.strData = append([]string(nil), t.strData[t.offset:t.offset+t.length]...)
	} else {
		clone.data = append([]float64(nil), t.data[t.offset:t.offset+t.length]...)
	}
	return clone
}

func (t *Tensor) Shape() []int64 { return t.shape }
func (t *Tensor) Len() int       { return t.length }
func (t *Tensor) DType() DType   { return t.dtype }

func (t *Tensor) elementAt(i int) *Scalar {
	if t.strData != nil {
		return NewString(t.strData[t.offset+i])
	}
	f := t.data[t.offset+i]
	switch t.dtype {
	case DBool:
		return NewBool(f != 0)
	case DInt32:
		return NewInt32(int32(f))
	case DInt64:
		return NewInt64(int64(f))
	case DFloat:
		return NewFloat(float32(f))
	default:
		return NewDouble(f)
	}
}

// Index returns a scalar when rank is 1, otherwise a slice view over the
// next-lower-rank sub-tensor.
func (t *Tensor) Index(indexV Value) (Value, error) {
	if sl, ok := indexV.(*SliceValue); ok {
		return t.Slice(sl)
	}
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return nil, typeError(token0(), "tensor indices must be integers")
	}
	n := int(t.shape[0])
	i := int(idx.AsInt64())
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, indexError(token0(), "tensor index out of range")
	}
	if len(t.shape) == 1 {
		return t.elementAt(i), nil
	}
	stride := numElements(t.shape[1:])
	view := &Tensor{dtype: t.dtype, shape: append([]int64(nil), t.shape[1:]...), offset: t.offset + i*stride, length: stride}
	view.data, view.strData = t.data, t.strData
	return view, nil
}

func (t *Tensor) SetIndex(indexV Value, value Value) error {
	idx, ok := indexV.(*Scalar)
	if !ok || !idx.IsNumeric() {
		return typeError(token0(), "tensor indices must be integers")
	}
	sc, ok := value.(*Scalar)
	if !ok {
		return typeError(token0(), "cannot assign %q into tensor element", value.TypeName())
	}
	n := int(t.shape[0])
	i := int(idx.AsInt64())
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n || len(t.shape) != 1 {
		return indexError(token0(), "tensor index out of range")
	}
	if t.strData != nil {
		t.strData[t.offset+i] = sc.String()
	} else {
		t.data[t.offset+i] = sc.AsFloat64()
	}
	return nil
}

// Slice resolves s against the tensor's first dimension. A step of 1
// returns a view sharing the same backing storage; any other step gathers
// the selected rows into a new tensor with its own buffer.
func (t *Tensor) Slice(s *SliceValue) (Value, error) {
	start, stop, step, err := s.Resolve(int(t.shape[0]))
	if err != nil {
		return nil, err
	}
	var indices []int
	if step > 0 {
		for i := start; i < stop; i += step {
			indices = append(indices, i)
		}
	} else {
		for i := start; i > stop; i += step {
			indices = append(indices, i)
		}
	}
	stride := 1
	if len(t.shape) > 1 {
		stride = numElements(t.shape[1:])
	}
	shape := append([]int64{int64(len(indices))}, t.shape[1:]...)
	if step == 1 {
		view := &Tensor{dtype: t.dtype, shape: shape, offset: t.offset + start*stride, length: len(indices) * stride}
		view.data, view.strData = t.data, t.strData
		return view, nil
	}
	if t.strData != nil {
		out := make([]string, 0, len(indices)*stride)
		for _, i := range indices {
			out = append(out, t.strData[t.offset+i*stride:t.offset+(i+1)*stride]...)
		}
		return NewTensorFromStrings(shape, out), nil
	}
	out := make([]float64, 0, len(indices)*stride)
	for _, i := range indices {
		out = append(out, t.data[t.offset+i*stride:t.offset+(i+1)*stride]...)
	}
	return NewTensorFromFloats(t.dtype, shape, out), nil
}

// Reshape succeeds iff product(newShape) == numElements. It returns a view
// sharing storage, not a copy.
func (t *Tensor) Reshape(newShape []int64) (*Tensor, error) {
	if numElements(newShape) != t.length {
		return nil, argumentError(token0(), "cannot reshape tensor of size %d into shape %v", t.length, newShape)
	}
	view := &Tensor{dtype: t.dtype, shape: append([]int64(nil), newShape...), offset: t.offset, length: t.length}
	view.data, view.strData = t.data, t.strData
	return view, nil
}

// sortDirection validates a direction argument: "asc" or "desc".
func sortDirection(direction string) (descending bool, err error) {
	switch direction {
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	}
	return false, argumentError(token0(), "direction must be %q or %q, got %q", "asc", "desc", direction)
}

func (t *Tensor) sortedFloatIndices(descending bool) []int {
	idx := make([]int, t.length)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return t.data[t.offset+idx[a]] > t.data[t.offset+idx[b]]
		}
		return t.data[t.offset+idx[a]] < t.data[t.offset+idx[b]]
	})
	return idx
}

// Sort orders a 1-D tensor's elements in place per direction and returns
// the same tensor.
func (t *Tensor) Sort(direction string) (*Tensor, error) {
	descending, err := sortDirection(direction)
	if err != nil {
		return nil, err
	}
	if len(t.shape) != 1 {
		return nil, argumentError(token0(), "sort: only 1-D tensors are supported")
	}
	if t.strData != nil {
		view := t.strData[t.offset : t.offset+t.length]
		sort.Strings(view)
		if descending {
			slices.Reverse(view)
		}
		return t, nil
	}
	view := t.data[t.offset : t.offset+t.length]
	sort.Float64s(view)
	if descending {
		slices.Reverse(view)
	}
	return t, nil
}

// Argsort returns the stable permutation (as an Int32 tensor) that sorts
// a 1-D tensor per direction.
func (t *Tensor) Argsort(direction string) (*Tensor, error) {
	descending, err := sortDirection(direction)
	if err != nil {
		return nil, err
	}
	if len(t.shape) != 1 {
		return nil, argumentError(token0(), "argsort: only 1-D tensors are supported")
	}
	var idx []int
	if t.strData != nil {
		idx = make([]int, t.length)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			if descending {
				return t.strData[t.offset+idx[a]] > t.strData[t.offset+idx[b]]
			}
			return t.strData[t.offset+idx[a]] < t.strData[t.offset+idx[b]]
		})
	} else {
		idx = t.sortedFloatIndices(descending)
	}
	out := make([]float64, len(idx))
	for i, v := range idx {
		out[i] = float64(v)
	}
	return NewTensorFromFloats(DInt32, []int64{int64(len(idx))}, out), nil
}

// Topk returns the Int32 indices of the k elements a direction-ordered sort
// would place first (the k largest for "desc", the k smallest for
// "asc"). k must not exceed length.
func (t *Tensor) Topk(k int, direction string) (*Tensor, error) {
	descending, err := sortDirection(direction)
	if err != nil {
		return nil, err
	}
	if t.strData != nil {
		return nil, typeError(token0(), "topk: unsupported for string tensor")
	}
	if len(t.shape) != 1 {
		return nil, argumentError(token0(), "topk: only 1-D tensors are supported")
	}
	if k < 0 || k > t.length {
		return nil, argumentError(token0(), "topk: k out of range")
	}
	idx := t.sortedFloatIndices(descending)[:k]
	out := make([]float64, k)
	for i, v := range idx {
		out[i] = float64(v)
	}
	return NewTensorFromFloats(DInt32, []int64{int64(k)}, out), nil
}

// Arrange gathers elements by a 1-D index tensor/list; every index must
// satisfy 0 <= i < length. Unrelated to the package-level arangeRange
// below, which builds Python range()-style sequences rather than
// gathering from one.
func (t *Tensor) Arrange(indices Iterable) (*Tensor, error) {
	var idx []int
	for v := range indices.Elements() {
		sc, ok := v.(*Scalar)
		if !ok || !sc.IsNumeric() {
			return nil, typeError(token0(), "arrange: indices must be numeric")
		}
		i := int(sc.AsInt64())
		if i < 0 || i >= t.length {
			return nil, indexError(token0(), "arrange: index %d out of range", i)
		}
		idx = append(idx, i)
	}
	if t.strData != nil {
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = t.strData[t.offset+j]
		}
		return NewTensorFromStrings([]int64{int64(len(idx))}, out), nil
	}
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = t.data[t.offset+j]
	}
	return NewTensorFromFloats(t.dtype, []int64{int64(len(idx))}, out), nil
}

// arangeRange builds a 1-D Int64/Float tensor [start, start+step, ...) with
// length ceil((stop-start)/step), mirroring Python's range()/arange().
// An internal helper nimblenetModule's numeric builtins can reach.
func arangeRange(start, stop, step float64, dtype DType) (*Tensor, error) {
	if step == 0 {
		return nil, argumentError(token0(), "arrange: step must not be zero")
	}
	var n int
	if step > 0 {
		if stop > start {
			n = int((stop-start)/step) + 1
			if start+float64(n-1)*step >= stop {
				n--
			}
		}
	} else {
		if stop < start {
			n = int((start-stop)/(-step)) + 1
			if start+float64(n-1)*step <= stop {
				n--
			}
		}
	}
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = start + float64(i)*step
	}
	return NewTensorFromFloats(dtype, []int64{int64(n)}, out), nil
}

func (t *Tensor) reduce(op string) (float64, error) {
	if t.strData != nil {
		return 0, typeError(token0(), "%s: unsupported for string tensor", op)
	}
	if (op == "sum" || op == "mean") && t.dtype == DBool {
		// sum/mean apply only to integral/floating dtypes.
		return 0, typeError(token0(), "%s: unsupported for %s tensor", op, t.dtype)
	}
	if t.length == 0 {
		return 0, argumentError(token0(), "%s: empty tensor", op)
	}
	switch op {
	case "min":
		m := t.data[t.offset]
		for i := 1; i < t.length; i++ {
			if v := t.data[t.offset+i]; v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		m := t.data[t.offset]
		for i := 1; i < t.length; i++ {
			if v := t.data[t.offset+i]; v > m {
				m = v
			}
		}
		return m, nil
	case "sum":
		var s float64
		for i := 0; i < t.length; i++ {
			s += t.data[t.offset+i]
		}
		return s, nil
	case "mean":
		var s float64
		for i := 0; i < t.length; i++ {
			s += t.data[t.offset+i]
		}
		return s / float64(t.length), nil
	}
	return 0, fmt.Errorf("unknown reduce op %q", op)
}

func (t *Tensor) Min() (Value, error) { v, err := t.reduce("min"); return floatResult(t, v), err }
func (t *Tensor) Max() (Value, error) { v, err := t.reduce("max"); return floatResult(t, v), err }
func (t *Tensor) Sum() (Value, error) { v, err := t.reduce("sum"); return floatResult(t, v), err }
func (t *Tensor) Mean() (Value, error) {
	v, err := t.reduce("mean")
	if err != nil {
		return nil, err
	}
	return NewDouble(v), nil
}

func floatResult(t *Tensor, v float64) Value {
	switch t.dtype {
	case DInt32:
		return NewInt32(int32(v))
	case DInt64:
		return NewInt64(int64(v))
	case DFloat:
		return NewFloat(float32(v))
	default:
		return NewDouble(v)
	}
}

// Contains implements `x in tensor` by element equality after type
// promotion (Scalar.Equals already promotes across numeric dtypes).
func (t *Tensor) Contains(v Value) (bool, error) {
	sc, ok := v.(*Scalar)
	if !ok {
		return false, nil
	}
	for i := 0; i < t.length; i++ {
		if t.elementAt(i).Equals(sc) {
			return true, nil
		}
	}
	return false, nil
}

func (t *Tensor) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for i := 0; i < t.length; i++ {
			if !yield(t.elementAt(i)) {
				return
			}
		}
	}
}

// intShapeFromList converts a List of numeric scalars into a shape,
// shared by reshape(shape) below and nimblenet's zeros(shape, dtype).
func intShapeFromList(l *List) ([]int64, error) {
	out := make([]int64, 0, l.Len())
	for v := range l.Elements() {
		sc, ok := v.(*Scalar)
		if !ok || !sc.IsNumeric() {
			return nil, typeError(token0(), "shape elements must be numeric")
		}
		out = append(out, sc.AsInt64())
	}
	return out, nil
}

// Property implements the tensor method surface: reshape/sort/argsort/
// topk/arrange/min/max/sum/mean, each returned as a bound native closure
// over the receiver, the same pattern Future.Property uses to hand back a
// closure capturing its receiver instead of a Method value, since these
// aren't script-defined functions with a Closure frame.
func (t *Tensor) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "shape":
		dims := make([]Value, len(t.shape))
		for i, d := range t.shape {
			dims[i] = NewInt64(d)
		}
		return NewList(dims), nil
	case "reshape":
		return native("reshape", func(i *Interp, args []Value) (Value, error) {
			var shape *List
			if err := UnpackArgs(args, "shape", &shape); err != nil {
				return nil, err
			}
			dims, err := intShapeFromList(shape)
			if err != nil {
				return nil, err
			}
			return t.Reshape(dims)
		}), nil
	case "sort":
		return native("sort", func(i *Interp, args []Value) (Value, error) {
			direction := "asc"
			if err := UnpackArgs(args, "direction?", &direction); err != nil {
				return nil, err
			}
			return t.Sort(direction)
		}), nil
	case "argsort":
		return native("argsort", func(i *Interp, args []Value) (Value, error) {
			direction := "asc"
			if err := UnpackArgs(args, "direction?", &direction); err != nil {
				return nil, err
			}
			return t.Argsort(direction)
		}), nil
	case "topk":
		return native("topk", func(i *Interp, args []Value) (Value, error) {
			var k int
			direction := "desc"
			if err := UnpackArgs(args, "k", &k, "direction?", &direction); err != nil {
				return nil, err
			}
			return t.Topk(k, direction)
		}), nil
	case "arrange":
		return native("arrange", func(i *Interp, args []Value) (Value, error) {
			var it Iterable
			if err := UnpackArgs(args, "indices", &it); err != nil {
				return nil, err
			}
			return t.Arrange(it)
		}), nil
	case "min":
		return native("min", func(i *Interp, args []Value) (Value, error) { return t.Min() }), nil
	case "max":
		return native("max", func(i *Interp, args []Value) (Value, error) { return t.Max() }), nil
	case "sum":
		return native("sum", func(i *Interp, args []Value) (Value, error) { return t.Sum() }), nil
	case "mean":
		return native("mean", func(i *Interp, args []Value) (Value, error) { return t.Mean() }), nil
	}
	return nil, typeError(token0(), "tensor has no attribute %q", name)
}
