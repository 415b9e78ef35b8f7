package nimble

import (
	"fmt"

	"github.com/deliteai/nimblecore/ast"
	"github.com/deliteai/nimblecore/token"
)

// control is the internal unwind signal for return/break/continue, caught
// by the enclosing construct (function body, loop) rather than escaping to
// script-visible try/except. A tree walker has no opcode stream to jump
// through, so the three unwind shapes travel as sentinel values.
type control struct {
	kind  controlKind
	value Value // ReturnStmt's value, or nil
}

type controlKind int

const (
	ctrlReturn controlKind = iota
	ctrlBreak
	ctrlContinue
)

func (c *control) Error() string { return "uncaught control signal" }

// Interp walks a task's AST directly against its CallStack. One Interp
// serves a whole Task; run_parallel workers get their own Interp sharing
// the same Task but a private CallStack copy (see concurrency.go).
type Interp struct {
	task  *Task
	stack *CallStack

	// modules maps each module name to its decoded AST, taken from the
	// task's file.
	modules map[string]*ast.Module
}

func NewInterp(task *Task, stack *CallStack) *Interp {
	return &Interp{task: task, stack: stack, modules: task.file.Modules}
}

// RunModule executes a module's top-level body against an already-pushed
// frame (the caller owns the frame's lifetime: the main module's frame
// lives for the whole task, an imported module's frame is popped once its
// exports are copied out — see task.go).
func (i *Interp) RunModule(moduleIdx int, body []ast.Stmt, frame *Frame) error {
	_, err := i.execBlock(body, frame, moduleIdx, 0)
	if _, ok := err.(*control); ok {
		return nil // a bare top-level `return` just ends the module
	}
	return err
}

// execBlock runs stmts in order against frame, returning a *control if a
// return/break/continue unwinds out of it.
func (i *Interp) execBlock(stmts []ast.Stmt, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	for _, stmt := range stmts {
		v, err := i.execStmt(stmt, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		if ctl, ok := v.(*controlMarker); ok {
			return ctl.ctl.value, &control{kind: ctl.ctl.kind, value: ctl.ctl.value}
		}
	}
	return nil, nil
}

// controlMarker lets execStmt signal a control unwind through its normal
// (Value, error) return without overloading error for non-error control
// flow; execBlock unwraps it into an actual *control for the caller.
type controlMarker struct{ ctl control }

func (c *controlMarker) Kind() Kind       { return KindScalar }
func (c *controlMarker) TypeName() string { return "controlMarker" }
func (c *controlMarker) String() string   { return "" }
func (c *controlMarker) IsFalsy() bool    { return true }
func (c *controlMarker) Clone() Value     { return c }

func (i *Interp) execStmt(stmt ast.Stmt, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	switch n := stmt.(type) {
	case *ast.InbuiltStmt:
		return nil, i.bindInbuilt(n, frame, moduleIdx)

	case *ast.ImportStmt:
		return nil, i.execImport(n, frame, moduleIdx)

	case *ast.AssignStmt:
		v, err := i.eval(n.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		for _, target := range n.Targets {
			if err := i.assign(target, v, frame, moduleIdx, funcIdx); err != nil {
				return nil, attachPos(err, n.StmtPos)
			}
		}
		return nil, nil

	case *ast.AugAssignStmt:
		cur, err := i.eval(n.Target, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		rhs, err := i.eval(n.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		result, err := BinaryOp(n.Op, cur, rhs)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		if err := i.assign(n.Target, result, frame, moduleIdx, funcIdx); err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		return nil, nil

	case *ast.ExprStmt:
		_, err := i.eval(n.X, frame, moduleIdx, funcIdx)
		return nil, attachPos(err, n.StmtPos)

	case *ast.ReturnStmt:
		var v Value = None
		if n.Value != nil {
			var err error
			v, err = i.eval(n.Value, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, attachPos(err, n.StmtPos)
			}
		}
		return &controlMarker{control{kind: ctrlReturn, value: v}}, nil

	case *ast.BreakStmt:
		return &controlMarker{control{kind: ctrlBreak}}, nil

	case *ast.ContinueStmt:
		return &controlMarker{control{kind: ctrlContinue}}, nil

	case *ast.IfStmt:
		test, err := i.eval(n.Test, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		body := n.Orelse
		if Truthy(test) {
			body = n.Body
		}
		_, err = i.execBlock(body, frame, moduleIdx, funcIdx)
		return nil, err

	case *ast.WhileStmt:
		for {
			test, err := i.eval(n.Test, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, attachPos(err, n.StmtPos)
			}
			if !Truthy(test) {
				return nil, nil
			}
			v, err := i.execBlock(n.Body, frame, moduleIdx, funcIdx)
			if err != nil {
				if ctl, ok := err.(*control); ok {
					if ctl.kind == ctrlBreak {
						return nil, nil
					}
					if ctl.kind == ctrlContinue {
						continue
					}
				}
				return nil, err
			}
			_ = v
		}

	case *ast.ForStmt:
		iterable, err := i.eval(n.Iter, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		return i.execFor(n, iterable, frame, moduleIdx, funcIdx)

	case *ast.AssertStmt:
		test, err := i.eval(n.Test, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		if Truthy(test) {
			return nil, nil
		}
		msg := "Assertion failed"
		if n.Msg != nil {
			mv, err := i.eval(n.Msg, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, attachPos(err, n.StmtPos)
			}
			msg = mv.String()
		}
		return nil, newError(ErrAssertion, n.StmtPos, "%s", msg)

	case *ast.PassStmt:
		return nil, nil

	case *ast.RaiseStmt:
		if n.Exc == nil {
			return nil, argumentError(n.StmtPos, "bare raise outside an active exception is not supported")
		}
		excv, err := i.eval(n.Exc, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		exc, ok := excv.(*Exception)
		if !ok {
			return nil, attachPos(typeError(n.StmtPos, "raise requires an exception value, got %q", excv.TypeName()), n.StmtPos)
		}
		return nil, attachPos(exc.asRaised(), n.StmtPos)

	case *ast.TryStmt:
		return i.execTry(n, frame, moduleIdx, funcIdx)

	case *ast.FunctionDefStmt:
		fn := i.makeFunction(n, frame, moduleIdx)
		var v Value = fn
		for idx := len(n.Decorators) - 1; idx >= 0; idx-- {
			var err error
			v, err = i.applyDecorator(n.Decorators[idx], v, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, attachPos(err, n.StmtPos)
			}
		}
		if n.Location != nil {
			frame.Set(n.Location.VarIndex, v, i.task)
		}
		return nil, nil

	case *ast.ClassDefStmt:
		cls, err := i.execClassDef(n, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.StmtPos)
		}
		if n.Location != nil {
			frame.Set(n.Location.VarIndex, cls, i.task)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("interp: unhandled statement %T", stmt)
}

// execFor runs a for statement. Indexable sequences are walked by
// position, re-reading the size every iteration since the body may mutate
// the iterable; everything else (maps, strings, iterators) is walked
// through its Elements sequence.
func (i *Interp) execFor(n *ast.ForStmt, iterable Value, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	runBody := func(elem Value) (done bool, err error) {
		if err := i.assign(n.Target, elem, frame, moduleIdx, funcIdx); err != nil {
			return true, attachPos(err, n.StmtPos)
		}
		_, err = i.execBlock(n.Body, frame, moduleIdx, funcIdx)
		if err != nil {
			if ctl, ok := err.(*control); ok {
				if ctl.kind == ctrlBreak {
					return true, nil
				}
				if ctl.kind == ctrlContinue {
					return false, nil
				}
			}
			return true, err
		}
		return false, nil
	}

	type indexable interface {
		Sized
		IndexAccessible
	}
	_, isMap := iterable.(*Map)
	_, isTensor := iterable.(*Tensor) // tensor iteration is flat over elements, not rows
	if seq, ok := iterable.(indexable); ok {
		if !isMap && !isTensor {
			for idx := 0; idx < seq.Len(); idx++ {
				elem, err := seq.Index(NewInt64(int64(idx)))
				if err != nil {
					return nil, attachPos(err, n.StmtPos)
				}
				done, err := runBody(elem)
				if err != nil {
					return nil, err
				}
				if done {
					return nil, nil
				}
			}
			return nil, nil
		}
	}

	it, ok := iterable.(Iterable)
	if !ok {
		return nil, attachPos(typeError(n.StmtPos, "%q is not iterable", iterable.TypeName()), n.StmtPos)
	}
	for elem := range it.Elements() {
		done, err := runBody(elem)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, nil
		}
	}
	return nil, nil
}

func (i *Interp) bindInbuilt(n *ast.InbuiltStmt, frame *Frame, moduleIdx int) error {
	for idx, name := range n.Names {
		fn, ok := Builtins[name]
		if !ok {
			return argumentError(n.StmtPos, "unknown built-in %q", name)
		}
		frame.Set(idx, fn, i.task)
	}
	return nil
}

func (i *Interp) execImport(n *ast.ImportStmt, frame *Frame, moduleIdx int) error {
	mod, err := i.task.resolveModule(n.Module)
	if err != nil {
		return attachPos(err, n.StmtPos)
	}
	if len(n.Names) == 0 {
		if len(n.Locations) > 0 {
			frame.Set(n.Locations[0].VarIndex, mod, i.task)
		}
		return nil
	}
	for idx, name := range n.Names {
		member, ok := mod.Get(name)
		if !ok {
			if isHostContractStubName(name) {
				return attachPos(statusError(404, "%q is not available in this runtime", name), n.StmtPos)
			}
			return keyError(n.StmtPos, "module %q has no member %q", n.Module, name)
		}
		if idx < len(n.Locations) {
			frame.Set(n.Locations[idx].VarIndex, member, i.task)
		}
	}
	return nil
}

func (i *Interp) execTry(n *ast.TryStmt, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	_, bodyErr := i.execBlock(n.Body, frame, moduleIdx, funcIdx)
	if bodyErr != nil {
		if _, isCtl := bodyErr.(*control); isCtl {
			return i.runFinally(n.Finally, frame, moduleIdx, funcIdx, nil, bodyErr)
		}
		exc := exceptionFromError(bodyErr)
		for idx := range n.Handlers {
			h := &n.Handlers[idx]
			typeName := ""
			if h.Type != nil {
				if id, ok := h.Type.(*ast.NameExpr); ok {
					typeName = id.Name
				}
			}
			if !exc.Matches(typeName) {
				continue
			}
			// h.Name's StackLocation is resolved at bind time and recorded
			// against the handler itself (there being no NameExpr for the
			// `as name` clause to carry it on), keyed by pointer identity
			// into n.Handlers so distinct handlers with the same name
			// don't collide.
			if h.Name != "" {
				if loc, ok := i.task.handlerLocations[h]; ok {
					frame.Set(loc.VarIndex, exc, i.task)
				}
			}
			_, herr := i.execBlock(h.Body, frame, moduleIdx, funcIdx)
			return i.runFinally(n.Finally, frame, moduleIdx, funcIdx, nil, herr)
		}
		return i.runFinally(n.Finally, frame, moduleIdx, funcIdx, nil, bodyErr)
	}
	return i.runFinally(n.Finally, frame, moduleIdx, funcIdx, nil, nil)
}

func (i *Interp) runFinally(finally []ast.Stmt, frame *Frame, moduleIdx, funcIdx int, _ Value, pending error) (Value, error) {
	if len(finally) == 0 {
		return nil, pending
	}
	_, ferr := i.execBlock(finally, frame, moduleIdx, funcIdx)
	if ferr != nil {
		return nil, ferr
	}
	return nil, pending
}

// assign stores v into target, which is a Name (bind/rebind a variable),
// Attribute (property write), Subscript (index write), or Tuple/List
// (element-wise unpack).
func (i *Interp) assign(target ast.Expr, v Value, frame *Frame, moduleIdx, funcIdx int) error {
	switch t := target.(type) {
	case *ast.NameExpr:
		if t.Location == nil {
			return argumentError(t.IdentPos, "name %q was not resolved to a stack location", t.Name)
		}
		i.frameFor(*t.Location, frame).Set(t.Location.VarIndex, v, i.task)
		return nil
	case *ast.AttributeExpr:
		obj, err := i.eval(t.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		pa, ok := obj.(PropertyAssignable)
		if !ok {
			return typeError(t.AttrPos, "%q does not support attribute assignment", obj.TypeName())
		}
		return pa.SetProperty(t.AttrIndex, t.Attr, v)
	case *ast.SubscriptExpr:
		obj, err := i.eval(t.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		idx, err := i.eval(t.Index, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		return IndexSet(obj, idx, v)
	case *ast.TupleExpr:
		return i.unpackInto(t.Elts, v, frame, moduleIdx, funcIdx)
	case *ast.ListExpr:
		return i.unpackInto(t.Elts, v, frame, moduleIdx, funcIdx)
	}
	return typeError(target.Pos(), "invalid assignment target")
}

func (i *Interp) unpackInto(targets []ast.Expr, v Value, frame *Frame, moduleIdx, funcIdx int) error {
	it, ok := v.(Iterable)
	if !ok {
		return typeError(token0(), "cannot unpack non-iterable %q", v.TypeName())
	}
	elems := make([]Value, 0, len(targets))
	for e := range it.Elements() {
		elems = append(elems, e)
	}
	if len(elems) != len(targets) {
		return argumentError(token0(), "cannot unpack %d values into %d targets", len(elems), len(targets))
	}
	for idx, target := range targets {
		if err := i.assign(target, elems[idx], frame, moduleIdx, funcIdx); err != nil {
			return err
		}
	}
	return nil
}

// frameFor resolves a StackLocation to the Frame it lives in: the current
// frame if it belongs to the currently executing function, a walk up the
// closure's Parent chain for a free variable captured from an enclosing
// function, or the topmost [module][function] frame as the last resort
// (module-level access from a context that didn't close over it, e.g. a
// class body). The lexical chain is consulted before the stack table so a
// closure over an older frame of a recursive function never resolves to
// the recursion's current top.
func (i *Interp) frameFor(loc ast.StackLocation, current *Frame) *Frame {
	for f := current; f != nil; f = f.Parent {
		if f.moduleIdx == loc.ModuleIndex && f.funcIdx == loc.FunctionIndex {
			return f
		}
	}
	if top := i.stack.Top(loc.ModuleIndex, loc.FunctionIndex); top != nil {
		return top
	}
	return current
}

func (i *Interp) makeFunction(n *ast.FunctionDefStmt, frame *Frame, moduleIdx int) *Function {
	static := false
	for _, d := range n.Decorators {
		if d.Name == "concurrent" {
			static = true
		}
	}
	return &Function{
		Name: n.Name, Params: n.Params, Body: n.Body,
		ModuleIdx: moduleIdx, FuncIdx: n.FuncIndex, Static: static, Decorators: n.Decorators,
		Closure: frame,
	}
}

func (i *Interp) applyDecorator(d ast.Decorator, v Value, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	switch d.Name {
	case "concurrent":
		return v, nil // Function.Static already records this; no wrapping needed
	case "add_event", "pre_add_event":
		if fn, ok := v.(*Function); ok {
			i.task.registerEventHook(d.Name, fn)
		}
		return v, nil
	}
	dec, ok := Builtins[d.Name]
	if !ok {
		return v, nil
	}
	args := make([]Value, 0, len(d.Args)+1)
	args = append(args, v)
	for _, a := range d.Args {
		av, err := i.eval(a, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		args = append(args, av)
	}
	fn, ok := dec.(Callable)
	if !ok {
		return v, nil
	}
	return fn.Call(i, args)
}

func (i *Interp) execClassDef(n *ast.ClassDefStmt, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	bases := make([]*Class, 0, len(n.Bases))
	for _, b := range n.Bases {
		bv, err := i.eval(b, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		bc, ok := bv.(*Class)
		if !ok {
			return nil, typeError(n.StmtPos, "base %q is not a class", bv.TypeName())
		}
		bases = append(bases, bc)
	}
	cls := NewClass(n.Name, bases)
	classFrame := i.stack.Push(moduleIdx, n.FuncIndex, i.task.frameSize(moduleIdx, n.FuncIndex), frame)
	defer i.stack.Pop(moduleIdx, n.FuncIndex)
	for _, stmt := range n.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDefStmt:
			cls.Members.Set(s.Name, i.makeFunction(s, classFrame, moduleIdx))
		case *ast.AssignStmt:
			v, err := i.eval(s.Value, classFrame, moduleIdx, n.FuncIndex)
			if err != nil {
				return nil, err
			}
			for _, t := range s.Targets {
				if id, ok := t.(*ast.NameExpr); ok {
					cls.Members.Set(id.Name, v)
					if err := i.assign(id, v, classFrame, moduleIdx, n.FuncIndex); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return cls, nil
}

// callUserFunction pushes a new frame sized to f's function, binds
// parameters (filling defaults, collecting *args into a tuple), runs the
// body, and returns its ReturnStmt value (or None).
func (i *Interp) callUserFunction(f *Function, args []Value) (Value, error) {
	min, max := f.Arity()
	if len(args) < min || (max >= 0 && len(args) > max) {
		return nil, argumentError(token0(), "%s() takes %d-%d arguments, got %d", f.Name, min, max, len(args))
	}
	size := i.task.frameSize(f.ModuleIdx, f.FuncIdx)
	frame := i.stack.Push(f.ModuleIdx, f.FuncIdx, size, f.Closure)
	defer i.stack.Pop(f.ModuleIdx, f.FuncIdx)

	for idx, name := range f.Params.Names {
		var v Value
		if idx < len(args) && args[idx] != nil {
			v = args[idx]
		} else if def, ok := f.Params.Defaults[name]; ok {
			dv, err := i.eval(def, f.Closure, f.ModuleIdx, f.FuncIdx)
			if err != nil {
				return nil, err
			}
			v = dv
		} else {
			v = None
		}
		if idx < len(f.Params.Locations) {
			frame.Set(f.Params.Locations[idx].VarIndex, v, i.task)
		}
	}
	if f.Params.VarArgs != "" && len(f.Params.Locations) > len(f.Params.Names) {
		rest := []Value{}
		if len(args) > len(f.Params.Names) {
			rest = append(rest, args[len(f.Params.Names):]...)
		}
		loc := f.Params.Locations[len(f.Params.Names)]
		frame.Set(loc.VarIndex, NewTuple(rest), i.task)
	}

	_, err := i.execBlock(f.Body, frame, f.ModuleIdx, f.FuncIdx)
	if err != nil {
		if ctl, ok := err.(*control); ok && ctl.kind == ctrlReturn {
			return ctl.value, nil
		}
		return nil, err
	}
	return None, nil
}

// eval evaluates an expression node to a Value.
func (i *Interp) eval(expr ast.Expr, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	switch n := expr.(type) {
	case *ast.ConstantExpr:
		return constantValue(n.Value), nil

	case *ast.NameExpr:
		if n.Location == nil {
			return nil, attachPos(argumentError(n.IdentPos, "name %q was not resolved", n.Name), n.IdentPos)
		}
		f := i.frameFor(*n.Location, frame)
		v, ok := f.Get(n.Location.VarIndex)
		if !ok {
			return nil, attachPos(argumentError(n.IdentPos, "name %q used before assignment", n.Name), n.IdentPos)
		}
		return v, nil

	case *ast.AttributeExpr:
		obj, err := i.eval(n.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		pa, ok := obj.(PropertyAccessible)
		if !ok {
			return nil, attachPos(typeError(n.AttrPos, "%q has no attribute %q", obj.TypeName(), n.Attr), n.AttrPos)
		}
		v, err := pa.Property(n.AttrIndex, n.Attr)
		return v, attachPos(err, n.AttrPos)

	case *ast.SubscriptExpr:
		obj, err := i.eval(n.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		idx, err := i.eval(n.Index, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		v, err := IndexGet(obj, idx)
		return v, attachPos(err, n.SubPos)

	case *ast.SliceExpr:
		return i.evalSlice(n, frame, moduleIdx, funcIdx)

	case *ast.BinOpExpr:
		l, err := i.eval(n.Left, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		r, err := i.eval(n.Right, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		v, err := BinaryOp(n.Op, l, r)
		return v, attachPos(err, n.OpPos)

	case *ast.UnaryOpExpr:
		operand, err := i.eval(n.Operand, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		if n.Op == token.Not {
			return NewBool(!Truthy(operand)), nil
		}
		v, err := UnaryOp(n.Op, operand)
		return v, attachPos(err, n.OpPos)

	case *ast.CompareExpr:
		left, err := i.eval(n.Left, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		for idx, op := range n.Ops {
			right, err := i.eval(n.Comparators[idx], frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, err
			}
			ok, err := Compare(op, left, right)
			if err != nil {
				return nil, attachPos(err, n.CmpPos)
			}
			if !ok {
				return NewBool(false), nil
			}
			left = right
		}
		return NewBool(true), nil

	case *ast.BoolOpExpr:
		var last Value = NewBool(n.Op == token.LAnd)
		for _, ve := range n.Values {
			v, err := i.eval(ve, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, err
			}
			last = v
			if n.Op == token.LAnd && v.IsFalsy() {
				return v, nil
			}
			if n.Op == token.LOr && !v.IsFalsy() {
				return v, nil
			}
		}
		return last, nil

	case *ast.CallExpr:
		return i.evalCall(n, frame, moduleIdx, funcIdx)

	case *ast.ListExpr:
		elems, err := i.evalExprList(n.Elts, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		return NewList(elems), nil

	case *ast.TupleExpr:
		elems, err := i.evalExprList(n.Elts, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		return NewTuple(elems), nil

	case *ast.DictExpr:
		m := NewMap()
		for idx, ke := range n.Keys {
			kv, err := i.eval(ke, frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, err
			}
			vv, err := i.eval(n.Values[idx], frame, moduleIdx, funcIdx)
			if err != nil {
				return nil, err
			}
			key, err := mapKeyOf(kv)
			if err != nil {
				return nil, attachPos(err, n.DictPos)
			}
			m.Set(key, vv)
		}
		return m, nil

	case *ast.ListCompExpr:
		return i.evalListComp(n, frame, moduleIdx, funcIdx)

	case *ast.DictCompExpr:
		return i.evalDictComp(n, frame, moduleIdx, funcIdx)

	case *ast.GeneratorExpExpr:
		return i.evalListComp(&ast.ListCompExpr{CompPos: n.CompPos, Elt: n.Elt, Generators: n.Generators}, frame, moduleIdx, funcIdx)

	case *ast.LambdaExpr:
		return &Function{
			Name: "<lambda>", Params: n.Params,
			Body:      []ast.Stmt{&ast.ReturnStmt{StmtPos: n.LambdaPos, Value: n.Body}},
			ModuleIdx: moduleIdx, FuncIdx: n.FuncIndex,
			Closure: frame,
		}, nil
	}
	return nil, fmt.Errorf("interp: unhandled expression %T", expr)
}

func (i *Interp) evalExprList(exprs []ast.Expr, frame *Frame, moduleIdx, funcIdx int) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := i.eval(e, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (i *Interp) evalSlice(n *ast.SliceExpr, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	s := &SliceValue{}
	if n.Lower != nil {
		v, err := i.evalInt(n.Lower, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		s.Start = &v
	}
	if n.Upper != nil {
		v, err := i.evalInt(n.Upper, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		s.Stop = &v
	}
	if n.Step != nil {
		v, err := i.evalInt(n.Step, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		s.Step = &v
	}
	return s, nil
}

func (i *Interp) evalInt(e ast.Expr, frame *Frame, moduleIdx, funcIdx int) (int64, error) {
	v, err := i.eval(e, frame, moduleIdx, funcIdx)
	if err != nil {
		return 0, err
	}
	sc, ok := v.(*Scalar)
	if !ok {
		return 0, typeError(e.Pos(), "slice bound must be an integer, got %q", v.TypeName())
	}
	return sc.AsInt64(), nil
}

func (i *Interp) evalCall(n *ast.CallExpr, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	fn, err := i.eval(n.Func, frame, moduleIdx, funcIdx)
	if err != nil {
		return nil, err
	}
	args, err := i.evalExprList(n.Args, frame, moduleIdx, funcIdx)
	if err != nil {
		return nil, err
	}
	callee, ok := fn.(Callable)
	if !ok {
		return nil, attachPos(typeError(n.CallPos, "%q is not callable", fn.TypeName()), n.CallPos)
	}
	if len(n.Keywords) > 0 {
		args, err = i.applyKeywords(callee, args, n.Keywords, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, attachPos(err, n.CallPos)
		}
	}
	v, err := callee.Call(i, args)
	return v, attachPos(err, n.CallPos)
}

// applyKeywords evaluates keyword arguments in call order and, for a user
// function, slots each into its parameter's position (leaving a nil hole
// for unfilled earlier defaults, which callUserFunction fills from the
// parameter's default); native functions just get the values appended
// positionally after the positional arguments.
func (i *Interp) applyKeywords(callee Callable, args []Value, keywords []ast.Keyword, frame *Frame, moduleIdx, funcIdx int) ([]Value, error) {
	uf, isUser := callee.(*Function)
	if isUser && uf.Native != nil {
		isUser = false
	}
	for _, kw := range keywords {
		v, err := i.eval(kw.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return nil, err
		}
		if !isUser {
			args = append(args, v)
			continue
		}
		slot := -1
		for idx, name := range uf.Params.Names {
			if name == kw.Name {
				slot = idx
				break
			}
		}
		if slot < 0 {
			return nil, argumentError(token0(), "%s() got an unexpected keyword argument %q", uf.Name, kw.Name)
		}
		if slot < len(args) && args[slot] != nil {
			return nil, argumentError(token0(), "%s() got multiple values for argument %q", uf.Name, kw.Name)
		}
		for len(args) <= slot {
			args = append(args, nil)
		}
		args[slot] = v
	}
	return args, nil
}

// constantValue converts a decoded JSON literal into a Scalar value.
func constantValue(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return None
	case bool:
		return NewBool(v)
	case int64:
		return NewInt64(v)
	case float64:
		return NewDouble(v)
	case string:
		return NewUnicodeString(v)
	}
	return None
}
