package nimble

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestWireTensorNumericRoundTrip(t *testing.T) {
	shape := []int64{2, 2}
	data := []float64{1, 2, 3, 4}

	w := &WireTensor{
		Name:     "x",
		DType:    2, // Int64
		ShapePtr: &shape[0],
		ShapeLen: int32(len(shape)),
		DataPtr:  unsafe.Pointer(&data[0]),
		DataLen:  int32(len(data)),
	}

	tn, err := DecodeWireTensor(w)
	require.NoError(t, err)
	require.Equal(t, shape, tn.Shape())
	require.Equal(t, DInt64, tn.DType())

	outData, outStrs, outShape, code := EncodeWireTensor("x", tn)
	require.Nil(t, outStrs)
	require.Equal(t, shape, outShape)
	require.Equal(t, int32(2), code)
	require.Equal(t, data, outData)
}

func TestWireTensorStringRoundTrip(t *testing.T) {
	raw := []byte("foobar")
	lens := []int32{3, 3}
	shape := []int64{2}

	w := &WireTensor{
		Name:       "s",
		DType:      5, // String
		ShapePtr:   &shape[0],
		ShapeLen:   int32(len(shape)),
		StringData: unsafe.Pointer(&raw[0]),
		StringLens: &lens[0],
		DataLen:    int32(len(lens)),
	}

	tn, err := DecodeWireTensor(w)
	require.NoError(t, err)
	require.Equal(t, DString, tn.DType())

	var got []string
	for v := range tn.Elements() {
		got = append(got, v.String())
	}
	require.Equal(t, []string{"foo", "bar"}, got)
}

func TestWireTensorUnknownDType(t *testing.T) {
	_, err := DecodeWireTensor(&WireTensor{DType: 99})
	require.Error(t, err)
}
