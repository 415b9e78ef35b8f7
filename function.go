package nimble

import (
	"fmt"

	"github.com/deliteai/nimblecore/ast"
)

// NativeFunc is the shape a host-registered foreign function takes: it
// receives the already-evaluated arguments and returns a value or error.
type NativeFunc func(i *Interp, args []Value) (Value, error)

// Function is either a user function (an AST closure over a stack frame)
// or a foreign function (an opaque callable supplied by the host). Every
// function carries an arity; user functions additionally
// carry a module index, a function index, a static flag, a decorator
// list, and a pointer to its body.
type Function struct {
	Name     string
	Params   *ast.Params
	Body     []ast.Stmt // nil for foreign functions
	Module   string      // owning module's import name, for display/debugging
	ModuleIdx int        // owning module's index in the task, for stack addressing
	FuncIdx  int
	Static   bool // decorated `concurrent`; may run without the script lock
	Decorators []ast.Decorator

	// Closure is the stack frame this function closed over at definition
	// time (the module frame for top-level module functions; nil for
	// foreign functions).
	Closure *Frame

	Native NativeFunc // non-nil for foreign functions
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) TypeName() string {
	if f.Native != nil {
		return "ForeignFunction"
	}
	return "Function"
}
func (f *Function) IsFalsy() bool { return false }
func (f *Function) Clone() Value  { return f }
func (f *Function) String() string {
	if f.Name == "" {
		return "<function>"
	}
	return fmt.Sprintf("<function %s>", f.Name)
}

// Arity returns the minimum and maximum number of positional arguments
// this function accepts; max is -1 when it has a variadic *args tail.
func (f *Function) Arity() (min, max int) {
	if f.Native != nil {
		return 0, -1
	}
	required := 0
	for _, n := range f.Params.Names {
		if _, hasDefault := f.Params.Defaults[n]; !hasDefault {
			required++
		}
	}
	n := len(f.Params.Names)
	if f.Params.VarArgs != "" {
		return required, -1
	}
	return required, n
}

func (f *Function) Call(i *Interp, args []Value) (Value, error) {
	if f.Native != nil {
		return f.Native(i, args)
	}
	return i.callUserFunction(f, args)
}

// Method binds a receiver as the implicit first argument, used for class
// instance method calls ("calling a method on an instance prepends the
// instance as the first argument").
type Method struct {
	Receiver Value
	Fn       *Function
}

func (m *Method) Kind() Kind       { return KindFunction }
func (m *Method) TypeName() string { return "BoundMethod" }
func (m *Method) IsFalsy() bool    { return false }
func (m *Method) Clone() Value     { return m }
func (m *Method) String() string   { return fmt.Sprintf("<bound method %s>", m.Fn.Name) }

func (m *Method) Call(i *Interp, args []Value) (Value, error) {
	full := make([]Value, 0, len(args)+1)
	full = append(full, m.Receiver)
	full = append(full, args...)
	return m.Fn.Call(i, full)
}
