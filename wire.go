package nimble

import "unsafe"

// WireTensor is the C-ABI shape a host passes a tensor through: a name,
// a dtype code, a shape pointer/length pair, and an opaque data pointer
// (float64 buffer for numeric dtypes, a *[]string-compatible encoding for
// strings via StringData/StringLens). This mirrors how an on-device
// runtime's FFI boundary typically exchanges tensors with a C++ host —
// flat pointers and lengths, no Go slice headers crossing the boundary.
type WireTensor struct {
	Name      string
	DType     int32
	ShapePtr  *int64
	ShapeLen  int32
	DataPtr   unsafe.Pointer
	DataLen   int32
	// StringData/StringLens are used instead of DataPtr when DType encodes
	// a string tensor: StringData points at a contiguous buffer of
	// concatenated UTF-8 bytes, StringLens at a DataLen-length array of
	// byte lengths per string, avoiding a pointer-to-pointer layout.
	StringData unsafe.Pointer
	StringLens *int32
}

// wireDType maps a WireTensor.DType code to the engine's DType, the
// convention the host and this runtime agree on ahead of time (0=Bool,
// 1=Int32, 2=Int64, 3=Float, 4=Double, 5=String).
func wireDType(code int32) (DType, bool) {
	switch code {
	case 0:
		return DBool, true
	case 1:
		return DInt32, true
	case 2:
		return DInt64, true
	case 3:
		return DFloat, true
	case 4:
		return DDouble, true
	case 5:
		return DString, true
	}
	return 0, false
}

func dtypeWireCode(d DType) int32 {
	switch d {
	case DBool:
		return 0
	case DInt32:
		return 1
	case DInt64:
		return 2
	case DFloat:
		return 3
	case DDouble:
		return 4
	case DString, DUnicodeString:
		return 5
	}
	return -1
}

// DecodeWireTensor converts a WireTensor received from the host into a
// *Tensor. Numeric buffers are copied out of the unsafe pointer into a
// Go-owned []float64 immediately — the C-ABI pointer's lifetime is the
// host's call, not the task's.
func DecodeWireTensor(w *WireTensor) (*Tensor, error) {
	dtype, ok := wireDType(w.DType)
	if !ok {
		return nil, statusError(1, "unrecognized wire dtype code %d", w.DType)
	}
	shape := make([]int64, w.ShapeLen)
	if w.ShapeLen > 0 {
		src := unsafe.Slice(w.ShapePtr, int(w.ShapeLen))
		copy(shape, src)
	}
	if dtype == DString {
		lens := unsafe.Slice(w.StringLens, int(w.DataLen))
		raw := unsafe.Slice((*byte)(w.StringData), sumInt32(lens))
		out := make([]string, w.DataLen)
		off := 0
		for i, l := range lens {
			out[i] = string(raw[off : off+int(l)])
			off += int(l)
		}
		return NewTensorFromStrings(shape, out), nil
	}
	src := unsafe.Slice((*float64)(w.DataPtr), int(w.DataLen))
	data := make([]float64, len(src))
	copy(data, src)
	return NewTensorFromFloats(dtype, shape, data), nil
}

func sumInt32(lens []int32) int {
	n := 0
	for _, l := range lens {
		n += int(l)
	}
	return n
}

// EncodeWireTensor flattens t into buffers a host can read through plain
// pointers: callers keep the returned slices alive (and pass their
// backing array's address across cgo) for as long as the host needs them.
func EncodeWireTensor(name string, t *Tensor) (data []float64, strs []string, shape []int64, dtypeCode int32) {
	shape = append([]int64(nil), t.Shape()...)
	dtypeCode = dtypeWireCode(t.DType())
	if t.DType() == DString || t.DType() == DUnicodeString {
		for v := range t.Elements() {
			strs = append(strs, v.String())
		}
		return nil, strs, shape, dtypeCode
	}
	for v := range t.Elements() {
		sc := v.(*Scalar)
		data = append(data, sc.AsFloat64())
	}
	return data, nil, shape, dtypeCode
}
