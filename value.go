// Package nimble is the on-device script-execution engine: a value model,
// an AST-walking interpreter, the call-stack/scope machinery addressing
// variables by compile-time-resolved StackLocation, the foreign-function
// boundary to the host, and the in-script concurrency primitives (a
// script-wide, non-re-entrant lock plus a fixed-size thread pool).
package nimble

import "iter"

// Kind is a value's container kind: Scalar, Tensor, Tuple, Map, Slice,
// Range, List, Function, Class, plus Exception, Future, Iterator and
// foreign handles, which get their own container kind for dispatch
// purposes.
type Kind string

const (
	KindScalar    Kind = "scalar"
	KindTensor    Kind = "tensor"
	KindTuple     Kind = "tuple"
	KindMap       Kind = "map"
	KindSlice     Kind = "slice"
	KindRange     Kind = "range"
	KindList      Kind = "list"
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindObject    Kind = "object"
	KindException Kind = "exception"
	KindFuture    Kind = "future"
	KindIterator  Kind = "iterator"
	KindForeign   Kind = "foreign"
)

// Value is implemented by every runtime datum. Every value exposes boolean
// coercion, a printable form, and its container kind; everything else
// (element access, member access, calling, iteration...) is optional and
// advertised through the capability interfaces below. Unsupported
// operations fail with a kind-tagged *RuntimeError.
type Value interface {
	// Kind returns the value's container kind.
	Kind() Kind
	// TypeName returns the data-type name used in error messages and by
	// the type_name() builtin, e.g. "Int64", "UnicodeString", "Model".
	TypeName() string
	// String returns the value's printable form.
	String() string
	// IsFalsy reports whether the value is falsy under boolean coercion.
	IsFalsy() bool
	// Clone returns a value with copy semantics appropriate to the value's
	// kind: scalars/tuples/strings return themselves (immutable), tensors
	// and lists return independent copies, maps return themselves (shared
	// references, never copied on assignment).
	Clone() Value
}

// Hashable is implemented by values usable as map keys.
type Hashable interface {
	Value
	HashKey() string
}

// Comparable is implemented by values that support == and !=. When a value
// does not implement Comparable, equality falls back to kind+TypeName+
// pointer identity (never equal across distinct instances).
type Comparable interface {
	Value
	Equals(other Value) bool
}

// Ordered is implemented by values that support <, <=, >, >=.
type Ordered interface {
	Value
	// Compare returns a negative number, zero, or a positive number as the
	// receiver is less than, equal to, or greater than other. Returns an
	// error when other is not ordered against the receiver (e.g. comparing
	// a UnicodeString with a tensor).
	Compare(other Value) (int, error)
}

// HasBinaryOp is implemented by values that define binary arithmetic or
// bitwise operators (+, -, *, /, //, %, **, &, |, ^, <<, >>). right
// reports whether the receiver is the right-hand operand (`other OP
// receiver`), so a single method can implement both `scalar + tensor` and
// `tensor + scalar` by checking which side it was called from.
type HasBinaryOp interface {
	Value
	BinaryOp(op string, other Value, right bool) (Value, error)
}

// HasUnaryOp is implemented by values that define unary +, -, ~.
type HasUnaryOp interface {
	Value
	UnaryOp(op string) (Value, error)
}

// Sized is implemented by values with a meaningful len().
type Sized interface {
	Value
	Len() int
}

// IndexAccessible is implemented by values that support v[index] reads,
// where index may be an Int64 scalar, a UnicodeString (map key), or a
// Slice value.
type IndexAccessible interface {
	Value
	Index(index Value) (Value, error)
}

// IndexAssignable is implemented by values that support v[index] = value
// writes.
type IndexAssignable interface {
	Value
	SetIndex(index Value, value Value) error
}

// PropertyAccessible is implemented by values that support dotted member
// reads (v.attr), addressed by interned attribute index.
type PropertyAccessible interface {
	Value
	Property(attrIndex int, name string) (Value, error)
}

// PropertyAssignable is implemented by values that support dotted member
// writes (v.attr = value).
type PropertyAssignable interface {
	Value
	SetProperty(attrIndex int, name string, value Value) error
}

// Sliceable is implemented by values that support v[a:b:c] slice reads.
type Sliceable interface {
	Value
	Slice(s *SliceValue) (Value, error)
}

// Callable is implemented by values that can appear as the target of a
// Call node: user Function, a host-registered foreign Function, or a Class
// (calling a class instantiates it).
type Callable interface {
	Value
	Call(i *Interp, args []Value) (Value, error)
}

// Iterable is implemented by every container kind iteration can walk:
// List, Tuple, Range, Map (over its keys), Tensor (over its elements) and
// a Scalar string (over code points). Iterator does not implement it.
type Iterable interface {
	Value
	Elements() iter.Seq[Value]
}

// KVIterable is implemented by Map, yielding key/value pairs in insertion
// order.
type KVIterable interface {
	Value
	Entries() iter.Seq2[Value, Value]
}

// Container is implemented by values that support the `in` / `not in`
// membership test.
type Container interface {
	Value
	Contains(v Value) (bool, error)
}
