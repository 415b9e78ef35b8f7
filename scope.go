package nimble

import "github.com/deliteai/nimblecore/ast"

// VariableScope is the compile-time scope tree: anchored at a module's
// global scope, it records name->index mappings within the nearest
// enclosing function's frame. Creating a child scope that starts a new
// function assigns a fresh function index (from a module-wide counter)
// and a fresh per-frame variable counter shared across all nested
// non-function child scopes of that function.
type VariableScope struct {
	parent   *VariableScope
	module   *ModuleScope
	isFunc   bool // true if this scope starts a new function
	funcIdx  int
	names    map[string]int // name -> variable index within the function frame
}

// ModuleScope tracks the per-module counters a VariableScope tree shares:
// the module's index in the task and a running count of functions
// defined within it (function index 0 is always the module's top-level
// body).
type ModuleScope struct {
	Index       int
	nextFuncIdx int
	// frameSizes[funcIdx] is the number of variable slots that function's
	// frame needs, filled in as variables are added.
	frameSizes []int
}

func NewModuleScope(index int) *ModuleScope {
	return &ModuleScope{Index: index, nextFuncIdx: 1, frameSizes: []int{0}}
}

// NewRootScope creates the global scope for a module, anchoring function
// index 0 (the module's top-level body).
func NewRootScope(module *ModuleScope) *VariableScope {
	return &VariableScope{module: module, isFunc: true, funcIdx: 0, names: map[string]int{}}
}

// NewChildScope creates a nested scope. When startsFunc is true (entering
// a FunctionDef body), it assigns a fresh function index and a fresh
// per-frame variable counter; otherwise (an If/While/For/Try block) it
// shares its enclosing function's counter.
func (s *VariableScope) NewChildScope(startsFunc bool) *VariableScope {
	child := &VariableScope{parent: s, module: s.module, names: map[string]int{}}
	if startsFunc {
		child.isFunc = true
		child.funcIdx = s.module.nextFuncIdx
		s.module.nextFuncIdx++
		s.module.frameSizes = append(s.module.frameSizes, 0)
	} else {
		child.isFunc = false
		child.funcIdx = s.funcIndex()
	}
	return child
}

func (s *VariableScope) funcIndex() int {
	if s.isFunc {
		return s.funcIdx
	}
	return s.parent.funcIndex()
}

// AddVariable defines name in the current scope, failing if it already
// exists in this exact scope (shadowing an outer scope's binding is
// allowed; redefining within the same scope is not). Returns the
// StackLocation the interpreter uses for all subsequent reads/writes.
func (s *VariableScope) AddVariable(name string) (ast.StackLocation, error) {
	if _, exists := s.names[name]; exists {
		return ast.StackLocation{}, argumentError(token0(), "variable %q already defined in this scope", name)
	}
	funcIdx := s.funcIndex()
	idx := s.module.frameSizes[funcIdx]
	s.module.frameSizes[funcIdx]++
	s.names[name] = idx
	return ast.StackLocation{ModuleIndex: s.module.Index, FunctionIndex: funcIdx, VarIndex: idx}, nil
}

// Resolve walks up the scope chain looking for name, returning its
// StackLocation and true if found.
func (s *VariableScope) Resolve(name string) (ast.StackLocation, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if idx, ok := sc.names[name]; ok {
			return ast.StackLocation{ModuleIndex: sc.module.Index, FunctionIndex: sc.funcIndex(), VarIndex: idx}, true
		}
	}
	return ast.StackLocation{}, false
}

// FrameSize returns how many variable slots funcIdx's frame needs, used to
// size a Frame on function entry.
func (s *VariableScope) FrameSize(funcIdx int) int {
	if funcIdx < len(s.module.frameSizes) {
		return s.module.frameSizes[funcIdx]
	}
	return 0
}
