package nimble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnpackArgsRequired(t *testing.T) {
	var name string
	var n int64
	err := UnpackArgs([]Value{NewString("foo"), NewInt64(3)}, "name", &name, "n", &n)
	require.NoError(t, err)
	require.Equal(t, "foo", name)
	require.Equal(t, int64(3), n)
}

func TestUnpackArgsMissingRequired(t *testing.T) {
	var name string
	var n int64
	err := UnpackArgs([]Value{NewString("foo")}, "name", &name, "n", &n)
	require.Error(t, err)
}

func TestUnpackArgsOptional(t *testing.T) {
	var name string
	var n int64 = -1
	err := UnpackArgs([]Value{NewString("foo")}, "name", &name, "n?", &n)
	require.NoError(t, err)
	require.Equal(t, int64(-1), n)
}

func TestUnpackArgsVariadic(t *testing.T) {
	var fn Callable
	var rest []Value
	f := native("f", func(i *Interp, args []Value) (Value, error) { return None, nil })
	err := UnpackArgs([]Value{f, NewInt64(1), NewInt64(2)}, "fn", &fn, "...", &rest)
	require.NoError(t, err)
	require.Len(t, rest, 2)
}

func TestUnpackArgsTooMany(t *testing.T) {
	var name string
	err := UnpackArgs([]Value{NewString("a"), NewString("b")}, "name", &name)
	require.Error(t, err)
}

func TestUnpackArgsTypeMismatch(t *testing.T) {
	var n int64
	err := UnpackArgs([]Value{NewString("not a number")}, "n", &n)
	require.Error(t, err)
}
