package nimble

import (
	"fmt"
	"sync"

	"github.com/deliteai/nimblecore/ast"
)

// Task owns one running instance of a decoded script: its AST, the
// compile-time scope information needed to size each function's frame,
// the run-time call stack, and the bookkeeping a running script needs
// from the host boundary (registered futures, concurrent/event-hook
// decorated functions, imported built-in modules).
type Task struct {
	file *ast.File

	moduleNames        []string
	moduleIndexByName  map[string]int
	frameSizes         [][]int // frameSizes[moduleIdx][funcIdx]
	handlerLocations   map[*ast.ExceptHandler]ast.StackLocation

	builtinModules map[string]*Map   // "nimblenet", "nimblenetInternalTesting", "regex"
	scriptModules  map[string]*Map   // other script modules this task imports, exports as a Map

	mu          sync.Mutex
	syncMu      sync.Mutex // serializes sync() calls, distinct from the script lock
	futures     []*Future
	eventHooks  map[string][]*Function
	lock        *ScriptLock
	threadPool  *ThreadPool
	config      *Map

	stack     *CallStack
	interp    *Interp
	mainFrame *Frame
}

// NewTask decodes a JSON AST document and prepares (but does not run) a
// Task: resolving every module's scope tree so every NameExpr/Attribute/
// FunctionDef/ClassDef/Import node carries its StackLocation before the
// interpreter ever touches it.
func NewTask(astJSON []byte) (*Task, error) {
	file, err := ast.Decode(astJSON)
	if err != nil {
		return nil, statusError(1, "decoding task AST: %v", err)
	}
	t := &Task{
		file:              file,
		moduleIndexByName: map[string]int{},
		handlerLocations:  map[*ast.ExceptHandler]ast.StackLocation{},
		builtinModules:    map[string]*Map{},
		scriptModules:     map[string]*Map{},
		eventHooks:        map[string][]*Function{},
	}
	t.registerBuiltinModules()

	names := make([]string, 0, 1+len(file.Modules))
	names = append(names, "")
	for name, mod := range file.Modules {
		if mod == file.Main {
			continue // decode.go also keys the entry module into Modules, e.g. under "main"
		}
		names = append(names, name)
	}
	t.moduleNames = names
	for idx, name := range names {
		t.moduleIndexByName[name] = idx
	}
	t.frameSizes = make([][]int, len(names))

	for idx, name := range names {
		mod := file.Main
		if name != "" {
			mod = file.Modules[name]
		}
		// The implicit Inbuilt statement binds the built-in globals
		// (print, range, str, ...) ahead of any user statement.
		if len(mod.Body) == 0 || !isInbuilt(mod.Body[0]) {
			inbuilt := &ast.InbuiltStmt{Names: BuiltinNames()}
			mod.Body = append([]ast.Stmt{inbuilt}, mod.Body...)
		}
		scope := NewModuleScope(idx)
		root := NewRootScope(scope)
		if err := bindBlock(mod.Body, root, t); err != nil {
			return nil, err
		}
		t.frameSizes[idx] = scope.frameSizes
	}

	t.stack = NewCallStack(t.frameSizes)
	t.interp = NewInterp(t, t.stack)
	return t, nil
}

func isInbuilt(s ast.Stmt) bool {
	_, ok := s.(*ast.InbuiltStmt)
	return ok
}

func (t *Task) moduleIndex(name string) int { return t.moduleIndexByName[name] }

// moduleName returns the import name of the module at idx ("" for the
// entry module), used to render a human-readable call trace.
func (t *Task) moduleName(idx int) string {
	if idx < 0 || idx >= len(t.moduleNames) {
		return "?"
	}
	if t.moduleNames[idx] == "" {
		return "<main>"
	}
	return t.moduleNames[idx]
}

// Trace renders the current call stack, innermost frame first, as
// "module:function" strings for diagnostics surfaced across the host
// boundary alongside a RuntimeError.
func (t *Task) Trace() []string {
	locs := t.stack.Trace()
	out := make([]string, len(locs))
	for i, loc := range locs {
		out[i] = fmt.Sprintf("%s:func%d", t.moduleName(loc.ModuleIndex), loc.FunctionIndex)
	}
	return out
}

func (t *Task) frameSize(moduleIdx, funcIdx int) int {
	if moduleIdx < 0 || moduleIdx >= len(t.frameSizes) {
		return 0
	}
	sizes := t.frameSizes[moduleIdx]
	if funcIdx < 0 || funcIdx >= len(sizes) {
		return 0
	}
	return sizes[funcIdx]
}

// resolveModule returns the export table for a built-in or script module,
// used by ImportStmt.
func (t *Task) resolveModule(name string) (*Map, error) {
	if m, ok := t.builtinModules[name]; ok {
		return m, nil
	}
	if m, ok := t.scriptModules[name]; ok {
		return m, nil
	}
	if mod, ok := t.file.Modules[name]; ok {
		idx := t.moduleIndexByName[name]
		frame := t.stack.Push(idx, 0, t.frameSize(idx, 0), nil)
		defer t.stack.Pop(idx, 0)
		if err := t.interp.RunModule(idx, mod.Body, frame); err != nil {
			return nil, err
		}
		exports := NewMap()
		for nm, loc := range collectModuleLevelNames(mod.Body) {
			if v, ok := frame.Get(loc.VarIndex); ok {
				exports.Set(nm, v)
			}
		}
		t.scriptModules[name] = exports
		return exports, nil
	}
	return nil, keyError(token0(), "no such module %q", name)
}

// collectModuleLevelNames walks a module body's top-level FunctionDef,
// ClassDef and plain-name Assign statements to build its export table by
// name -> StackLocation. Names bound any other way at module scope
// (imports, loop targets, built-ins) are not exported.
func collectModuleLevelNames(body []ast.Stmt) map[string]ast.StackLocation {
	out := map[string]ast.StackLocation{}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.FunctionDefStmt:
			if s.Location != nil {
				out[s.Name] = *s.Location
			}
		case *ast.ClassDefStmt:
			if s.Location != nil {
				out[s.Name] = *s.Location
			}
		case *ast.AssignStmt:
			for _, target := range s.Targets {
				if id, ok := target.(*ast.NameExpr); ok && id.Location != nil {
					out[id.Name] = *id.Location
				}
			}
		}
	}
	return out
}

// registerFuture adds f to the set of futures this task's completion
// (Task.IsReady) is gated on, the first time it's stored into any frame.
func (t *Task) registerFuture(f *Future) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f.registered {
		return
	}
	f.registered = true
	t.futures = append(t.futures, f)
}

// IsReady reports whether every future ever stored into a stack frame has
// resolved.
func (t *Task) IsReady() bool {
	t.mu.Lock()
	futures := append([]*Future(nil), t.futures...)
	t.mu.Unlock()
	for _, f := range futures {
		if !f.IsReady() {
			return false
		}
	}
	return true
}

func (t *Task) registerEventHook(name string, fn *Function) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventHooks[name] = append(t.eventHooks[name], fn)
}

// Init runs the entry module's top-level body once, binding every
// top-level def/class/assignment into the task's persistent main frame.
// Operate calls this lazily; the host may also call it eagerly to surface
// initialization errors before the first operate() call.
func (t *Task) Init() error {
	t.mu.Lock()
	if t.mainFrame != nil {
		t.mu.Unlock()
		return nil
	}
	t.mainFrame = t.stack.Push(0, 0, t.frameSize(0, 0), nil)
	t.mu.Unlock()
	return t.interp.RunModule(0, t.file.Main.Body, t.mainFrame)
}

// Operate runs function_name from the entry module against inputs.
// Inputs bind to the entry function's parameters by name; a
// parameter with no matching input falls back to its default (or None).
// The whole invocation runs under the script lock; a `concurrent`-marked
// entry function is the one exception.
func (t *Task) Operate(functionName string, inputs map[string]Value) (Value, error) {
	t.scriptLock().Lock()
	locked := true
	unlock := func() {
		if locked {
			locked = false
			t.scriptLock().Unlock()
		}
	}
	defer unlock()

	if err := t.Init(); err != nil {
		return nil, err
	}
	mainFrame := t.mainFrame
	exports := collectModuleLevelNames(t.file.Main.Body)
	loc, ok := exports[functionName]
	if !ok {
		return nil, keyError(token0(), "no such function %q", functionName)
	}
	v, ok := mainFrame.Get(loc.VarIndex)
	if !ok {
		return nil, keyError(token0(), "function %q was not defined", functionName)
	}
	fn, ok := v.(Callable)
	if !ok {
		return nil, typeError(token0(), "%q is not callable", functionName)
	}

	var args []Value
	if uf, isUser := v.(*Function); isUser && uf.Native == nil {
		args = make([]Value, 0, len(uf.Params.Names))
		for _, name := range uf.Params.Names {
			if in, ok := inputs[name]; ok {
				args = append(args, in)
			} else {
				args = append(args, nil) // filled from the default, or None
			}
		}
		if uf.Static {
			unlock()
		}
	} else {
		for _, in := range inputs {
			args = append(args, in)
		}
	}
	return fn.Call(t.interp, args)
}
