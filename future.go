package nimble

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Future wraps an asynchronous host-side job that will eventually produce
// a value. It exposes IsReady (non-blocking) and Get (blocking until
// resolved); the host resolves it from outside the interpreter.
type Future struct {
	ID uuid.UUID

	mu       sync.Mutex
	resolved bool
	value    Value
	err      error
	done     chan struct{}

	// registered is set the first time this future is stored into any
	// stack frame (Task.registerFuture); the task reports ready only when
	// every registered future has resolved.
	registered bool
}

func NewFuture() *Future {
	return &Future{ID: uuid.New(), done: make(chan struct{})}
}

func (f *Future) Kind() Kind       { return KindFuture }
func (f *Future) TypeName() string { return "Future" }
func (f *Future) IsFalsy() bool    { return false }
func (f *Future) Clone() Value     { return f }
func (f *Future) String() string   { return fmt.Sprintf("<future %s>", f.ID) }

// Resolve is called by the host (or a thread-pool worker) when the
// asynchronous job completes.
func (f *Future) Resolve(v Value, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return
	}
	f.value, f.err, f.resolved = v, err, true
	close(f.done)
}

// IsReady is the non-blocking readiness check backing both the
// `is_ready()` method on an individual future and Task.IsReady, which
// returns true only when every registered future has resolved.
func (f *Future) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Get blocks until the future resolves, then returns its value or error.
// This, run_parallel's drain, and the stream-push background thread's
// condition wait are the only script-visible blocking points.
func (f *Future) Get() (Value, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *Future) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "is_ready":
		return &Function{Name: "is_ready", Native: func(i *Interp, args []Value) (Value, error) {
			return NewBool(f.IsReady()), nil
		}}, nil
	case "get":
		return &Function{Name: "get", Native: func(i *Interp, args []Value) (Value, error) {
			return f.Get()
		}}, nil
	}
	return nil, typeError(token0(), "future has no attribute %q", name)
}
