package nimble

import "iter"

func iterPull(seq iter.Seq[Value]) (func() (Value, bool), func()) {
	return iter.Pull(seq)
}

// Iterator wraps a sequence (list/tuple/range/string/map) and exposes
// Next(), which raises ErrStopIteration on exhaustion. The for-statement
// (interp.go) does not go through Iterator: it walks the iterable's
// Elements() sequence directly, so exhaustion never surfaces as an error.
type Iterator struct {
	next func() (Value, bool)
}

// NewIterator adapts any Iterable into a pull-based Iterator by starting
// its push-based iter.Seq on a buffered channel-free pull loop: since
// iter.Seq is a push iterator, we drive it from a goroutine-free
// coroutine-style adapter isn't available without `iter.Pull`, which Go
// 1.23 provides for exactly this.
func NewIterator(v Iterable) *Iterator {
	next, stop := iterPull(v.Elements())
	it := &Iterator{next: next}
	_ = stop // closed implicitly when exhausted; explicit Close not required for in-memory sequences
	return it
}

func (it *Iterator) Kind() Kind       { return KindIterator }
func (it *Iterator) TypeName() string { return "Iterator" }
func (it *Iterator) IsFalsy() bool    { return true }
func (it *Iterator) Clone() Value     { return it }
func (it *Iterator) String() string   { return "<iterator>" }

// Next returns the next element, or an ErrStopIteration *RuntimeError when
// the sequence is exhausted.
func (it *Iterator) Next() (Value, error) {
	v, ok := it.next()
	if !ok {
		return nil, newError(ErrStopIteration, token0(), "iterator exhausted")
	}
	return v, nil
}
