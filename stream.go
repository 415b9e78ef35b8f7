package nimble

import (
	"sync"
	"time"
)

// CharStream backs create_simulated_char_stream(text, intervalMs), a
// test-only helper that simulates a host LLM pushing output one character
// at a time. A background goroutine appends one rune to the buffer per
// interval tick; next blocks on a sync.Cond until a rune is available or
// the producer has finished.
type CharStream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []rune
	closed bool
}

func newCharStream(text string, intervalMs int) *CharStream {
	s := &CharStream{}
	s.cond = sync.NewCond(&s.mu)
	go s.produce(text, intervalMs)
	return s
}

func (s *CharStream) produce(text string, intervalMs int) {
	interval := time.Duration(intervalMs) * time.Millisecond
	for _, r := range text {
		if interval > 0 {
			time.Sleep(interval)
		}
		s.mu.Lock()
		s.buf = append(s.buf, r)
		s.cond.Signal()
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// next blocks until a character is available or the stream is closed; ok is
// false only once the stream is closed and drained.
func (s *CharStream) next() (r rune, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, false
	}
	r = s.buf[0]
	s.buf = s.buf[1:]
	return r, true
}

func (s *CharStream) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed && len(s.buf) == 0
}

func (s *CharStream) Kind() Kind       { return KindForeign }
func (s *CharStream) TypeName() string { return "CharStream" }
func (s *CharStream) IsFalsy() bool    { return false }
func (s *CharStream) Clone() Value     { return s }
func (s *CharStream) String() string   { return "<CharStream>" }

func (s *CharStream) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "next":
		return native("next", func(i *Interp, args []Value) (Value, error) {
			r, ok := s.next()
			if !ok {
				return None, nil
			}
			return NewString(string(r)), nil
		}), nil
	case "is_done":
		return native("is_done", func(i *Interp, args []Value) (Value, error) {
			return NewBool(s.isDone()), nil
		}), nil
	}
	return nil, typeError(token0(), "CharStream has no attribute %q", name)
}
