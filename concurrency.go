package nimble

import (
	"runtime"
	"sync"
)

// ScriptLock is the script-wide lock, a plain non-re-entrant mutex.
// Task.Operate holds it for a whole invocation, except when the entry
// function is decorated `@concurrent` (Function.Static), in which case it
// is released before the call. Nothing else acquires it: nested calls,
// run_parallel workers and sync() all run without taking it.
type ScriptLock struct {
	mu sync.Mutex
}

func (l *ScriptLock) Lock()   { l.mu.Lock() }
func (l *ScriptLock) Unlock() { l.mu.Unlock() }

// ThreadPool is the fixed-size worker pool run_parallel dispatches onto,
// default-sized to max(hardware threads - 1, 2). Resize
// rebuilds the worker set for set_threadpool_threads().
type ThreadPool struct {
	mu   sync.Mutex
	jobs chan func()
	quit chan struct{}
	n    int
}

func defaultThreadPoolSize() int {
	if n := runtime.NumCPU() - 1; n > 2 {
		return n
	}
	return 2
}

func NewThreadPool(n int) *ThreadPool {
	p := &ThreadPool{}
	p.start(n)
	return p
}

func (p *ThreadPool) start(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n = n
	p.jobs = make(chan func(), 64)
	p.quit = make(chan struct{})
	for i := 0; i < n; i++ {
		go p.worker()
	}
}

func (p *ThreadPool) worker() {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job()
		case <-p.quit:
			return
		}
	}
}

// Resize stops the current worker set and starts a fresh one of size n,
// used by set_threadpool_threads().
func (p *ThreadPool) Resize(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	close(p.quit)
	p.mu.Unlock()
	p.start(n)
}

func (p *ThreadPool) Submit(job func()) {
	p.mu.Lock()
	jobs := p.jobs
	p.mu.Unlock()
	jobs <- job
}

func (t *Task) pool() *ThreadPool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.threadPool == nil {
		t.threadPool = NewThreadPool(defaultThreadPoolSize())
	}
	return t.threadPool
}

// syncCall implements the `sync(fn, *args)` built-in: runs fn to
// completion under a plain mutex guarding against overlapping sync()
// calls on the same executor. Deliberately not the script lock — a
// worker inside run_parallel may call sync() while the caller still
// holds the script lock across the drain.
func (t *Task) syncCall(i *Interp, args []Value) (Value, error) {
	var fn Callable
	var rest []Value
	if err := UnpackArgs(args, "fn", &fn, "...", &rest); err != nil {
		return nil, err
	}
	t.syncMu.Lock()
	defer t.syncMu.Unlock()
	return fn.Call(i, rest)
}

// runParallelCall implements `run_parallel(fn, iterable, *extraArgs)`: runs
// fn(elem, *extraArgs) for every element of iterable on the thread pool,
// each worker getting a fresh call stack from deferredLockCopy (closures
// resolve free variables through their Closure frames) and its own Interp, collects
// results in input order, and cancels remaining work and rethrows on the
// first worker error.
func (t *Task) runParallelCall(i *Interp, args []Value) (Value, error) {
	var fn Callable
	var it Iterable
	var extra []Value
	if err := UnpackArgs(args, "fn", &fn, "iterable", &it, "...", &extra); err != nil {
		return nil, err
	}

	var elems []Value
	for e := range it.Elements() {
		elems = append(elems, e)
	}

	results := make([]Value, len(elems))
	errs := make([]error, len(elems))
	var cancel cancelFlag
	var wg sync.WaitGroup
	wg.Add(len(elems))

	pool := t.pool()
	for idx, elem := range elems {
		idx, elem := idx, elem
		pool.Submit(func() {
			defer wg.Done()
			if cancel.isSet() {
				return
			}
			workerStack := t.stack.deferredLockCopy(t.frameSizes)
			workerInterp := NewInterp(t, workerStack)
			callArgs := append([]Value{elem}, extra...)
			v, err := fn.Call(workerInterp, callArgs)
			if err != nil {
				errs[idx] = err
				cancel.set()
				return
			}
			results[idx] = v
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return NewList(results), nil
}

// ConcurrentExecutor exposes run_parallel/sync as bound methods on an
// `ex = ConcurrentExecutor()` object, wrapping the same
// Task.runParallelCall/Task.syncCall the "nimblenet" module's flat
// sync/run_parallel functions already call.
type ConcurrentExecutor struct {
	task *Task
}

func NewConcurrentExecutor(t *Task) *ConcurrentExecutor { return &ConcurrentExecutor{task: t} }

func (e *ConcurrentExecutor) Kind() Kind       { return KindForeign }
func (e *ConcurrentExecutor) TypeName() string { return "ConcurrentExecutor" }
func (e *ConcurrentExecutor) IsFalsy() bool    { return false }
func (e *ConcurrentExecutor) Clone() Value     { return e }
func (e *ConcurrentExecutor) String() string   { return "<ConcurrentExecutor>" }

func (e *ConcurrentExecutor) Property(attrIndex int, name string) (Value, error) {
	switch name {
	case "run_parallel":
		return native("run_parallel", func(i *Interp, args []Value) (Value, error) {
			return e.task.runParallelCall(i, args)
		}), nil
	case "sync":
		return native("sync", func(i *Interp, args []Value) (Value, error) {
			return e.task.syncCall(i, args)
		}), nil
	}
	return nil, typeError(token0(), "ConcurrentExecutor has no attribute %q", name)
}

func (t *Task) scriptLock() *ScriptLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lock == nil {
		t.lock = &ScriptLock{}
	}
	return t.lock
}
