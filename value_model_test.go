package nimble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sliceOf(start, stop int64) *SliceValue {
	return &SliceValue{Start: &start, Stop: &stop}
}

func TestListIndexAndSlice(t *testing.T) {
	l := NewList([]Value{NewInt64(1), NewInt64(2), NewInt64(3)})

	v, err := l.Index(NewInt64(-1))
	require.NoError(t, err)
	require.Equal(t, int64(3), v.(*Scalar).AsInt64())

	_, err = l.Index(NewInt64(5))
	require.Error(t, err)

	sv := sliceOf(0, 2)
	sliced, err := l.Slice(sv)
	require.NoError(t, err)
	require.Equal(t, 2, sliced.(*List).Len())
}

func TestListBinaryOpConcatAndRepeat(t *testing.T) {
	a := NewList([]Value{NewInt64(1), NewInt64(2)})
	b := NewList([]Value{NewInt64(3)})

	sum, err := a.BinaryOp("+", b, false)
	require.NoError(t, err)
	require.Equal(t, "[1, 2, 3]", sum.String())

	zero := NewList([]Value{NewInt64(0)})
	rep, err := zero.BinaryOp("*", NewInt64(3), false)
	require.NoError(t, err)
	require.Equal(t, "[0, 0, 0]", rep.String())

	strList := NewList([]Value{NewString("a")})
	rep2, err := strList.BinaryOp("*", NewInt64(2), true)
	require.NoError(t, err)
	require.Equal(t, "[a, a]", rep2.String())

	empty, err := zero.BinaryOp("*", NewInt64(0), false)
	require.NoError(t, err)
	require.Equal(t, 0, empty.(*List).Len())

	_, err = a.BinaryOp("-", b, false)
	require.Error(t, err)
}

func TestListToTensorRagged(t *testing.T) {
	ragged := NewList([]Value{
		NewList([]Value{NewInt64(1), NewInt64(2)}),
		NewList([]Value{NewInt64(3)}),
	})
	_, err := ragged.ToTensor(DInt64)
	require.Error(t, err)

	rect := NewList([]Value{
		NewList([]Value{NewInt64(1), NewInt64(2)}),
		NewList([]Value{NewInt64(3), NewInt64(4)}),
	})
	tn, err := rect.ToTensor(DInt64)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 2}, tn.Shape())
}

func TestMapInsertionOrderAndEquals(t *testing.T) {
	m := NewMap()
	m.Set("b", NewInt64(2))
	m.Set("a", NewInt64(1))
	m.Set("b", NewInt64(20))

	keys := m.Keys()
	require.Len(t, keys, 2)
	require.Equal(t, "b", keys[0].(*Scalar).String())
	require.Equal(t, "a", keys[1].(*Scalar).String())

	v, ok := m.Get("b")
	require.True(t, ok)
	require.Equal(t, int64(20), v.(*Scalar).AsInt64())

	other := NewMap()
	other.Set("b", NewInt64(20))
	other.Set("a", NewInt64(1))
	require.True(t, m.Equals(other))

	m.Delete("a")
	require.Equal(t, 1, m.Len())
	require.False(t, m.Equals(other))
}

func TestTensorIndexAndSlice(t *testing.T) {
	tn := NewTensorFromFloats(DInt64, []int64{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	row, err := tn.Index(NewInt64(1))
	require.NoError(t, err)
	rowTensor := row.(*Tensor)
	require.Equal(t, []int64{3}, rowTensor.Shape())
	require.Equal(t, int64(4), rowTensor.elementAt(0).AsInt64())

	sv := sliceOf(0, 1)
	sliced, err := tn.Slice(sv)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, sliced.(*Tensor).Shape())
}

func TestTensorReduceAndSort(t *testing.T) {
	tn := NewTensorFromFloats(DDouble, []int64{3}, []float64{3, 1, 2})

	sum, err := tn.Sum()
	require.NoError(t, err)
	require.Equal(t, 6.0, sum.(*Scalar).AsFloat64())

	sorted, err := tn.Sort("asc")
	require.NoError(t, err)
	require.Same(t, tn, sorted)
	require.Equal(t, []float64{1, 2, 3}, sorted.data)

	topk, err := tn.Topk(2, "desc")
	require.NoError(t, err)
	require.Equal(t, 2, topk.Len())
	require.Equal(t, DInt32, topk.DType())

	_, err = tn.Sort("bogus")
	require.Error(t, err)
}

func TestTensorArgsortAndArrange(t *testing.T) {
	tn := NewTensorFromFloats(DInt64, []int64{4}, []float64{30, 10, 40, 20})

	perm, err := tn.Argsort("asc")
	require.NoError(t, err)
	require.Equal(t, DInt32, perm.DType())

	sortedCopy := tn.Clone().(*Tensor)
	_, err = sortedCopy.Sort("asc")
	require.NoError(t, err)

	gathered, err := tn.Arrange(perm)
	require.NoError(t, err)
	for i := 0; i < gathered.Len(); i++ {
		require.Equal(t, sortedCopy.elementAt(i).AsInt64(), gathered.elementAt(i).AsInt64())
	}

	_, err = tn.Arrange(NewList([]Value{NewInt64(99)}))
	require.Error(t, err)
}

func TestArangeRange(t *testing.T) {
	tn, err := arangeRange(0, 5, 2, DInt64)
	require.NoError(t, err)
	require.Equal(t, 3, tn.Len())

	_, err = arangeRange(0, 5, 0, DInt64)
	require.Error(t, err)
}
