package nimble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarPromotion(t *testing.T) {
	sum, err := NewInt32(1).BinaryOp("+", NewInt64(2), false)
	require.NoError(t, err)
	require.Equal(t, DInt64, sum.(*Scalar).DType())

	sum, err = NewInt64(1).BinaryOp("+", NewDouble(2.5), false)
	require.NoError(t, err)
	require.Equal(t, DDouble, sum.(*Scalar).DType())
	require.Equal(t, 3.5, sum.(*Scalar).AsFloat64())
}

func TestScalarFlooredDivMod(t *testing.T) {
	q, err := NewInt64(-7).BinaryOp("//", NewInt64(2), false)
	require.NoError(t, err)
	require.Equal(t, int64(-4), q.(*Scalar).AsInt64())

	m, err := NewInt64(-7).BinaryOp("%", NewInt64(2), false)
	require.NoError(t, err)
	require.Equal(t, int64(1), m.(*Scalar).AsInt64())
}

func TestScalarDivisionByZero(t *testing.T) {
	_, err := NewInt64(1).BinaryOp("/", NewInt64(0), false)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	require.ErrorIs(t, rerr, ErrArgument)

	_, err = NewDouble(1).BinaryOp("%", NewDouble(0), false)
	require.Error(t, err)
}

func TestScalarStringConcat(t *testing.T) {
	v, err := NewString("foo").BinaryOp("+", NewString("bar"), false)
	require.NoError(t, err)
	require.Equal(t, "foobar", v.(*Scalar).String())

	_, err = NewString("foo").BinaryOp("-", NewString("bar"), false)
	require.Error(t, err)
}

func TestScalarEquals(t *testing.T) {
	require.True(t, NewInt32(2).Equals(NewInt64(2)))
	require.True(t, NewInt64(2).Equals(NewDouble(2)))
	require.False(t, NewInt64(2).Equals(NewString("2")))
	require.True(t, None.Equals(None))
}

func TestScalarCompare(t *testing.T) {
	c, err := NewInt64(1).Compare(NewInt64(2))
	require.NoError(t, err)
	require.Equal(t, -1, c)

	c, err = NewString("b").Compare(NewString("a"))
	require.NoError(t, err)
	require.Equal(t, 1, c)
}

func TestScalarIsFalsy(t *testing.T) {
	require.True(t, NewBool(false).IsFalsy())
	require.True(t, NewInt64(0).IsFalsy())
	require.True(t, NewString("").IsFalsy())
	require.True(t, None.IsFalsy())
	require.False(t, NewInt64(1).IsFalsy())
}
