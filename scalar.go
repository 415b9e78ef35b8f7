package nimble

import (
	"iter"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DType is a scalar's data type. Numeric promotion for binary arithmetic
// and comparisons follows the ordering Bool < Int32 < Int64 < Float <
// Double: both operands are cast to the higher type before operating.
type DType int

const (
	DBool DType = iota
	DInt32
	DInt64
	DFloat
	DDouble
	DString
	DUnicodeString
	DNone
)

func (d DType) String() string {
	switch d {
	case DBool:
		return "Bool"
	case DInt32:
		return "Int32"
	case DInt64:
		return "Int64"
	case DFloat:
		return "Float"
	case DDouble:
		return "Double"
	case DString:
		return "String"
	case DUnicodeString:
		return "UnicodeString"
	case DNone:
		return "None"
	}
	return "?"
}

// Scalar carries exactly one typed cell: a bool, an int64 (covering both
// Int32 and Int64 — the DType tag alone records which), a float64
// (covering both Float and Double), or a string. Strings additionally
// cache a UTF-8 code-point count and a code-point->byte-offset table built
// at construction, used for O(1) indexing and slicing by code point.
type Scalar struct {
	dtype DType
	b     bool
	i     int64
	f     float64
	s     string

	// codePointOffsets[k] is the byte offset of the k-th code point; built
	// by NewString/NewUnicodeString, and by ensureOffsets on first
	// index/len/slice access for a string Scalar constructed any other way.
	codePointOffsets []int
}

var None = &Scalar{dtype: DNone}

func NewBool(b bool) *Scalar          { return &Scalar{dtype: DBool, b: b} }
func NewInt32(i int32) *Scalar        { return &Scalar{dtype: DInt32, i: int64(i)} }
func NewInt64(i int64) *Scalar        { return &Scalar{dtype: DInt64, i: i} }
func NewFloat(f float32) *Scalar      { return &Scalar{dtype: DFloat, f: float64(f)} }
func NewDouble(f float64) *Scalar     { return &Scalar{dtype: DDouble, f: f} }
func NewString(s string) *Scalar {
	sc := &Scalar{dtype: DString, s: s}
	sc.ensureOffsets()
	return sc
}

func NewUnicodeString(s string) *Scalar {
	sc := &Scalar{dtype: DUnicodeString, s: s}
	sc.ensureOffsets()
	return sc
}

func (s *Scalar) DType() DType { return s.dtype }
func (s *Scalar) Kind() Kind   { return KindScalar }
func (s *Scalar) TypeName() string { return s.dtype.String() }
func (s *Scalar) Clone() Value { return s }

func (s *Scalar) IsFalsy() bool {
	switch s.dtype {
	case DBool:
		return !s.b
	case DInt32, DInt64:
		return s.i == 0
	case DFloat, DDouble:
		return s.f == 0
	case DString, DUnicodeString:
		return s.s == ""
	case DNone:
		return true
	}
	return false
}

func (s *Scalar) String() string {
	switch s.dtype {
	case DBool:
		if s.b {
			return "True"
		}
		return "False"
	case DInt32, DInt64:
		return strconv.FormatInt(s.i, 10)
	case DFloat, DDouble:
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	case DString, DUnicodeString:
		return s.s
	case DNone:
		return "None"
	}
	return "?"
}

func (s *Scalar) IsString() bool { return s.dtype == DString || s.dtype == DUnicodeString }
func (s *Scalar) IsNumeric() bool {
	switch s.dtype {
	case DBool, DInt32, DInt64, DFloat, DDouble:
		return true
	}
	return false
}

// AsFloat64 returns the scalar's numeric value, promoting Bool/Int to
// float64. Returns 0 if the scalar isn't numeric; IsNumeric tells the two
// cases apart.
func (s *Scalar) AsFloat64() float64 {
	switch s.dtype {
	case DBool:
		if s.b {
			return 1
		}
		return 0
	case DInt32, DInt64:
		return float64(s.i)
	case DFloat, DDouble:
		return s.f
	}
	return 0
}

// AsInt64 returns the scalar's numeric value truncated to int64.
func (s *Scalar) AsInt64() int64 {
	switch s.dtype {
	case DBool:
		if s.b {
			return 1
		}
		return 0
	case DInt32, DInt64:
		return s.i
	case DFloat, DDouble:
		return int64(s.f)
	}
	return 0
}

func promote(a, b DType) DType {
	rank := func(d DType) int {
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
		}
		return -1
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

func (s *Scalar) makeNumeric(dtype DType, i int64, f float64) *Scalar {
	switch dtype {
	case DBool:
		return NewBool(i != 0)
	case DInt32:
		return NewInt32(int32(i))
	case DInt64:
		return NewInt64(i)
	case DFloat:
		return NewFloat(float32(f))
	case DDouble:
		return NewDouble(f)
	}
	return None
}

// BinaryOp implements +, -, *, /, //, %, **, &, |, ^, <<, >> between two
// scalars, and + as string concatenation between two strings. Division and
// modulo by zero are fatal errors; modulo uses floored semantics (the
// result takes the sign of the divisor for a positive divisor).
func (s *Scalar) BinaryOp(op string, otherV Value, right bool) (Value, error) {
	other, ok := otherV.(*Scalar)
	if !ok {
		return nil, typeError(token0(), "unsupported operand kind %q for %s", otherV.TypeName(), op)
	}
	left, rightOperand := s, other
	if right {
		left, rightOperand = other, s
	}

	if left.IsString() && rightOperand.IsString() && op == "+" {
		return NewString(left.s + rightOperand.s), nil
	}
	if !left.IsNumeric() || !rightOperand.IsNumeric() {
		return nil, typeError(token0(), "unsupported operand kinds %q and %q for %s", left.TypeName(), rightOperand.TypeName(), op)
	}

	dtype := promote(left.dtype, rightOperand.dtype)
	isFloat := dtype == DFloat || dtype == DDouble

	if isFloat {
		a, b := left.AsFloat64(), rightOperand.AsFloat64()
		var r float64
		switch op {
		case "+":
			r = a + b
		case "-":
			r = a - b
		case "*":
			r = a * b
		case "/":
			if b == 0 {
				return nil, argumentError(token0(), "division by zero")
			}
			r = a / b
		case "//":
			if b == 0 {
				return nil, argumentError(token0(), "division by zero")
			}
			r = flooredDiv(a, b)
		case "%":
			if b == 0 {
				return nil, argumentError(token0(), "modulo by zero")
			}
			r = a - flooredDiv(a, b)*b
		case "**":
			r = floatPow(a, b)
		default:
			return nil, typeError(token0(), "unsupported operator %q for %s", op, dtype)
		}
		return s.makeNumeric(dtype, 0, r), nil
	}

	a, b := left.AsInt64(), rightOperand.AsInt64()
	var r int64
	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		if b == 0 {
			return nil, argumentError(token0(), "division by zero")
		}
		return s.makeNumeric(DDouble, 0, float64(a)/float64(b)), nil
	case "//":
		if b == 0 {
			return nil, argumentError(token0(), "division by zero")
		}
		r = floorDivInt(a, b)
	case "%":
		if b == 0 {
			return nil, argumentError(token0(), "modulo by zero")
		}
		r = a - floorDivInt(a, b)*b
	case "**":
		r = intPow(a, b)
	case "&":
		r = a & b
	case "|":
		r = a | b
	case "^":
		r = a ^ b
	case "<<":
		r = a << uint(b)
	case ">>":
		r = a >> uint(b)
	default:
		return nil, typeError(token0(), "unsupported operator %q for %s", op, dtype)
	}
	return s.makeNumeric(dtype, r, 0), nil
}

func flooredDiv(a, b float64) float64 {
	q := a / b
	return floorFloat(q)
}

func floorFloat(f float64) float64 {
	i := float64(int64(f))
	if f < 0 && i != f {
		return i - 1
	}
	return i
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func intPow(a, b int64) int64 {
	if b < 0 {
		return 0
	}
	var r int64 = 1
	for i := int64(0); i < b; i++ {
		r *= a
	}
	return r
}

func floatPow(a, b float64) float64 {
	r := 1.0
	neg := b < 0
	n := b
	if neg {
		n = -n
	}
	for i := 0.0; i < n; i++ {
		r *= a
	}
	if neg {
		return 1 / r
	}
	return r
}

// UnaryOp implements +x, -x, ~x.
func (s *Scalar) UnaryOp(op string) (Value, error) {
	if !s.IsNumeric() {
		return nil, typeError(token0(), "unsupported operand kind %q for unary %s", s.TypeName(), op)
	}
	switch op {
	case "+":
		return s, nil
	case "-":
		if s.dtype == DFloat || s.dtype == DDouble {
			return s.makeNumeric(s.dtype, 0, -s.AsFloat64()), nil
		}
		return s.makeNumeric(s.dtype, -s.AsInt64(), 0), nil
	case "~":
		if s.dtype == DFloat || s.dtype == DDouble {
			return nil, typeError(token0(), "bad operand type for unary ~: %q", s.TypeName())
		}
		return s.makeNumeric(s.dtype, ^s.AsInt64(), 0), nil
	}
	return nil, typeError(token0(), "unsupported unary operator %q", op)
}

func (s *Scalar) Equals(otherV Value) bool {
	other, ok := otherV.(*Scalar)
	if !ok {
		return false
	}
	if s.dtype == DNone || other.dtype == DNone {
		return s.dtype == other.dtype
	}
	if s.IsString() && other.IsString() {
		return s.s == other.s
	}
	if s.IsNumeric() && other.IsNumeric() {
		if (s.dtype == DFloat || s.dtype == DDouble) || (other.dtype == DFloat || other.dtype == DDouble) {
			return s.AsFloat64() == other.AsFloat64()
		}
		return s.AsInt64() == other.AsInt64()
	}
	return false
}

func (s *Scalar) Compare(otherV Value) (int, error) {
	other, ok := otherV.(*Scalar)
	if !ok {
		return 0, typeError(token0(), "cannot compare %q and %q", s.TypeName(), otherV.TypeName())
	}
	if s.IsString() && other.IsString() {
		return strings.Compare(s.s, other.s), nil
	}
	if s.IsNumeric() && other.IsNumeric() {
		a, b := s.AsFloat64(), other.AsFloat64()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, typeError(token0(), "cannot compare %q and %q", s.TypeName(), other.TypeName())
}

func (s *Scalar) HashKey() string {
	switch s.dtype {
	case DBool:
		return "b:" + strconv.FormatBool(s.b)
	case DInt32, DInt64:
		return "i:" + strconv.FormatInt(s.i, 10)
	case DFloat, DDouble:
		return "f:" + strconv.FormatFloat(s.f, 'g', -1, 64)
	case DString, DUnicodeString:
		return "s:" + s.s
	case DNone:
		return "n"
	}
	return ""
}

func (s *Scalar) ensureOffsets() {
	if s.codePointOffsets != nil || !s.IsString() {
		return
	}
	offsets := make([]int, 0, len(s.s))
	for i := range s.s {
		offsets = append(offsets, i)
	}
	s.codePointOffsets = offsets
}

// Len returns the code-point count for strings.
func (s *Scalar) Len() int {
	if !s.IsString() {
		return 0
	}
	s.ensureOffsets()
	return len(s.codePointOffsets)
}

// Index implements integer subscripting on a scalar string, returning a
// single-code-point scalar string; negative indices count from the end.
func (s *Scalar) Index(indexV Value) (Value, error) {
	if !s.IsString() {
		return nil, typeError(token0(), "%q is not subscriptable", s.TypeName())
	}
	if sl, ok := indexV.(*SliceValue); ok {
		return s.Slice(sl)
	}
	idxScalar, ok := indexV.(*Scalar)
	if !ok || !idxScalar.IsNumeric() {
		return nil, typeError(token0(), "string indices must be integers")
	}
	s.ensureOffsets()
	n := len(s.codePointOffsets)
	i := int(idxScalar.AsInt64())
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, indexError(token0(), "string index out of range")
	}
	start := s.codePointOffsets[i]
	end := len(s.s)
	if i+1 < n {
		end = s.codePointOffsets[i+1]
	}
	return NewString(s.s[start:end]), nil
}

// Slice implements s[a:b:c] on a scalar string by code point, returning a
// new scalar string. Resolution follows the same rules as list slicing;
// the offset table makes each code-point lookup O(1).
func (s *Scalar) Slice(sl *SliceValue) (Value, error) {
	if !s.IsString() {
		return nil, typeError(token0(), "%q is not sliceable", s.TypeName())
	}
	s.ensureOffsets()
	n := len(s.codePointOffsets)
	start, stop, step, err := sl.Resolve(n)
	if err != nil {
		return nil, err
	}
	cp := func(i int) string {
		from := s.codePointOffsets[i]
		to := len(s.s)
		if i+1 < n {
			to = s.codePointOffsets[i+1]
		}
		return s.s[from:to]
	}
	var b strings.Builder
	if step > 0 {
		for i := start; i < stop; i += step {
			b.WriteString(cp(i))
		}
	} else {
		for i := start; i > stop; i += step {
			b.WriteString(cp(i))
		}
	}
	return NewString(b.String()), nil
}

// Elements iterates a string's code points, each as a single-code-point
// scalar string.
func (s *Scalar) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		if !s.IsString() {
			return
		}
		for _, r := range s.s {
			if !yield(NewString(string(r))) {
				return
			}
		}
	}
}

func (s *Scalar) Contains(v Value) (bool, error) {
	if !s.IsString() {
		return false, typeError(token0(), "argument of type %q is not iterable", s.TypeName())
	}
	sub, ok := v.(*Scalar)
	if !ok || !sub.IsString() {
		return false, typeError(token0(), "'in <string>' requires string as left operand")
	}
	return strings.Contains(s.s, sub.s), nil
}

// caser is used by the string case-conversion methods (`upper`, `lower`,
// `title`) to do locale-correct casing via golang.org/x/text.
var caser = cases.Title(language.Und)

func (s *Scalar) Upper() *Scalar {
	return NewUnicodeString(cases.Upper(language.Und).String(s.s))
}

func (s *Scalar) Lower() *Scalar {
	return NewUnicodeString(cases.Lower(language.Und).String(s.s))
}

func (s *Scalar) Title() *Scalar {
	return NewUnicodeString(caser.String(s.s))
}

// Property exposes the string method surface. Non-string scalars have no
// attributes.
func (s *Scalar) Property(attrIndex int, name string) (Value, error) {
	if !s.IsString() {
		return nil, typeError(token0(), "%q has no attribute %q", s.TypeName(), name)
	}
	switch name {
	case "upper":
		return native("upper", func(i *Interp, args []Value) (Value, error) { return s.Upper(), nil }), nil
	case "lower":
		return native("lower", func(i *Interp, args []Value) (Value, error) { return s.Lower(), nil }), nil
	case "title":
		return native("title", func(i *Interp, args []Value) (Value, error) { return s.Title(), nil }), nil
	case "strip":
		return native("strip", func(i *Interp, args []Value) (Value, error) {
			return NewString(strings.TrimSpace(s.s)), nil
		}), nil
	case "split":
		return native("split", func(i *Interp, args []Value) (Value, error) {
			sep := ""
			if err := UnpackArgs(args, "sep?", &sep); err != nil {
				return nil, err
			}
			var parts []string
			if sep == "" {
				parts = strings.Fields(s.s)
			} else {
				parts = strings.Split(s.s, sep)
			}
			out := make([]Value, len(parts))
			for idx, p := range parts {
				out[idx] = NewString(p)
			}
			return NewList(out), nil
		}), nil
	case "join":
		return native("join", func(i *Interp, args []Value) (Value, error) {
			var it Iterable
			if err := UnpackArgs(args, "iterable", &it); err != nil {
				return nil, err
			}
			var parts []string
			for v := range it.Elements() {
				parts = append(parts, v.String())
			}
			return NewString(strings.Join(parts, s.s)), nil
		}), nil
	case "startswith":
		return native("startswith", func(i *Interp, args []Value) (Value, error) {
			var prefix string
			if err := UnpackArgs(args, "prefix", &prefix); err != nil {
				return nil, err
			}
			return NewBool(strings.HasPrefix(s.s, prefix)), nil
		}), nil
	case "endswith":
		return native("endswith", func(i *Interp, args []Value) (Value, error) {
			var suffix string
			if err := UnpackArgs(args, "suffix", &suffix); err != nil {
				return nil, err
			}
			return NewBool(strings.HasSuffix(s.s, suffix)), nil
		}), nil
	case "replace":
		return native("replace", func(i *Interp, args []Value) (Value, error) {
			var old, repl string
			if err := UnpackArgs(args, "old", &old, "new", &repl); err != nil {
				return nil, err
			}
			return NewString(strings.ReplaceAll(s.s, old, repl)), nil
		}), nil
	}
	return nil, typeError(token0(), "%q has no attribute %q", s.TypeName(), name)
}
