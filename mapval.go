package nimble

import (
	"iter"
	"strings"
	"sync"
)

// mapEntry is one node of the insertion-order doubly-linked list threaded
// through Map's entries. Map keys are always strings, so the table keys
// directly on the Go string instead of hashing an arbitrary Value.
type mapEntry struct {
	key   string
	value Value
	prev  *mapEntry
	next  *mapEntry
}

// Map is an ordered mapping from string keys to values, guarded by its
// own readers-writer lock. Iteration yields keys in insertion order.
type Map struct {
	mu      sync.RWMutex
	entries map[string]*mapEntry
	head    *mapEntry
	tail    *mapEntry
}

func NewMap() *Map {
	return &Map{entries: make(map[string]*mapEntry)}
}

func (m *Map) Kind() Kind       { return KindMap }
func (m *Map) TypeName() string { return "Map" }

func (m *Map) IsFalsy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries) == 0
}

// Clone returns the receiver: maps are shared references, not copied on
// assignment.
func (m *Map) Clone() Value { return m }

func (m *Map) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b strings.Builder
	b.WriteByte('{')
	for e := m.head; e != nil; e = e.next {
		if e != m.head {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(e.key)
		b.WriteString("\": ")
		b.WriteString(e.value.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func mapKeyOf(k Value) (string, error) {
	sc, ok := k.(*Scalar)
	if !ok || !sc.IsString() {
		return "", typeError(token0(), "map keys must be strings, got %q", k.TypeName())
	}
	return sc.String(), nil
}

func (m *Map) Get(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (m *Map) Set(key string, value Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.value = value
		return
	}
	e := &mapEntry{key: key, value: value}
	m.entries[key] = e
	if m.tail == nil {
		m.head, m.tail = e, e
	} else {
		e.prev = m.tail
		m.tail.next = e
		m.tail = e
	}
}

func (m *Map) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
}

func (m *Map) Index(indexV Value) (Value, error) {
	key, err := mapKeyOf(indexV)
	if err != nil {
		return nil, err
	}
	v, ok := m.Get(key)
	if !ok {
		return nil, keyError(token0(), "key %q not found", key)
	}
	return v, nil
}

func (m *Map) SetIndex(indexV, value Value) error {
	key, err := mapKeyOf(indexV)
	if err != nil {
		return err
	}
	m.Set(key, value)
	return nil
}

func (m *Map) Contains(v Value) (bool, error) {
	key, err := mapKeyOf(v)
	if err != nil {
		return false, nil
	}
	_, ok := m.Get(key)
	return ok, nil
}

// Keys returns the keys in insertion order, each wrapped as a string
// scalar.
func (m *Map) Keys() []Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Value, 0, len(m.entries))
	for e := m.head; e != nil; e = e.next {
		out = append(out, NewString(e.key))
	}
	return out
}

// Elements yields the map's keys in insertion order, matching Python's
// `for k in d` iteration contract.
func (m *Map) Elements() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for e := m.head; e != nil; e = e.next {
			if !yield(NewString(e.key)) {
				return
			}
		}
	}
}

func (m *Map) Entries() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for e := m.head; e != nil; e = e.next {
			if !yield(NewString(e.key), e.value) {
				return
			}
		}
	}
}

// Property exposes the map method surface (keys/values/items/get), falling
// back to entry lookup by name so a module bound whole (`import nimblenet`)
// supports dotted member access.
func (m *Map) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "keys":
		return native("keys", func(i *Interp, args []Value) (Value, error) {
			return NewList(m.Keys()), nil
		}), nil
	case "values":
		return native("values", func(i *Interp, args []Value) (Value, error) {
			m.mu.RLock()
			defer m.mu.RUnlock()
			out := make([]Value, 0, len(m.entries))
			for e := m.head; e != nil; e = e.next {
				out = append(out, e.value)
			}
			return NewList(out), nil
		}), nil
	case "items":
		return native("items", func(i *Interp, args []Value) (Value, error) {
			m.mu.RLock()
			defer m.mu.RUnlock()
			out := make([]Value, 0, len(m.entries))
			for e := m.head; e != nil; e = e.next {
				out = append(out, NewTuple([]Value{NewString(e.key), e.value}))
			}
			return NewList(out), nil
		}), nil
	case "get":
		return native("get", func(i *Interp, args []Value) (Value, error) {
			var key string
			var def Value = None
			if err := UnpackArgs(args, "key", &key, "default?", &def); err != nil {
				return nil, err
			}
			if v, ok := m.Get(key); ok {
				return v, nil
			}
			return def, nil
		}), nil
	case "pop":
		return native("pop", func(i *Interp, args []Value) (Value, error) {
			var key string
			if err := UnpackArgs(args, "key", &key); err != nil {
				return nil, err
			}
			v, ok := m.Get(key)
			if !ok {
				return nil, keyError(token0(), "key %q not found", key)
			}
			m.Delete(key)
			return v, nil
		}), nil
	}
	if v, ok := m.Get(name); ok {
		return v, nil
	}
	return nil, keyError(token0(), "map has no member %q", name)
}

func (m *Map) Equals(otherV Value) bool {
	other, ok := otherV.(*Map)
	if !ok || m.Len() != other.Len() {
		return false
	}
	for k, v := range m.Entries() {
		ov, ok := other.Get(k.(*Scalar).String())
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}
