package nimble

import "github.com/deliteai/nimblecore/ast"

// Binding is the compile-time pass that walks a module's body once,
// assigning every NameExpr/FunctionDefStmt/ClassDefStmt/ImportStmt/
// ExceptHandler a StackLocation (and every AttributeExpr a stable attrIndex)
// before the interpreter ever touches the tree. The interpreter itself
// never allocates a variable slot, it only reads the ones this pass
// already assigned.
//
// attrIndex interning is process-wide: attribute names are shared across
// every class in a task.
var attrIndexByName = map[string]int{}

func internAttr(name string) int {
	if idx, ok := attrIndexByName[name]; ok {
		return idx
	}
	idx := len(attrIndexByName)
	attrIndexByName[name] = idx
	return idx
}

// bindBlock binds a statement block in two phases: every statement is
// bound in order, but function bodies are queued and bound only after the
// whole block, so a function defined early in a block can call one defined
// later (the usual top-of-module helpers-call-each-other layout).
func bindBlock(stmts []ast.Stmt, scope *VariableScope, t *Task) error {
	var deferred []func() error
	for _, stmt := range stmts {
		if err := bindStmt(stmt, scope, t, &deferred); err != nil {
			return err
		}
	}
	for _, bindBody := range deferred {
		if err := bindBody(); err != nil {
			return err
		}
	}
	return nil
}

func bindStmt(stmt ast.Stmt, scope *VariableScope, t *Task, deferred *[]func() error) error {
	switch s := stmt.(type) {
	case *ast.InbuiltStmt:
		for _, name := range s.Names {
			if _, err := scope.AddVariable(name); err != nil {
				return err
			}
		}
		return nil

	case *ast.ImportStmt:
		names := s.Names
		if len(names) == 0 {
			names = []string{s.Module}
		}
		for _, name := range names {
			loc, err := scope.AddVariable(name)
			if err != nil {
				return err
			}
			s.Locations = append(s.Locations, loc)
		}
		return nil

	case *ast.AssignStmt:
		if err := bindExpr(s.Value, scope, t); err != nil {
			return err
		}
		for _, target := range s.Targets {
			if err := bindTarget(target, scope, t); err != nil {
				return err
			}
		}
		return nil

	case *ast.AugAssignStmt:
		if err := bindExpr(s.Target, scope, t); err != nil {
			return err
		}
		return bindExpr(s.Value, scope, t)

	case *ast.ExprStmt:
		return bindExpr(s.X, scope, t)

	case *ast.ReturnStmt:
		if s.Value != nil {
			return bindExpr(s.Value, scope, t)
		}
		return nil

	case *ast.BreakStmt, *ast.ContinueStmt:
		return nil

	case *ast.IfStmt:
		if err := bindExpr(s.Test, scope, t); err != nil {
			return err
		}
		if err := bindBlock(s.Body, scope.NewChildScope(false), t); err != nil {
			return err
		}
		return bindBlock(s.Orelse, scope.NewChildScope(false), t)

	case *ast.WhileStmt:
		if err := bindExpr(s.Test, scope, t); err != nil {
			return err
		}
		return bindBlock(s.Body, scope.NewChildScope(false), t)

	case *ast.ForStmt:
		if err := bindExpr(s.Iter, scope, t); err != nil {
			return err
		}
		body := scope.NewChildScope(false)
		if err := bindTarget(s.Target, body, t); err != nil {
			return err
		}
		return bindBlock(s.Body, body, t)

	case *ast.AssertStmt:
		if err := bindExpr(s.Test, scope, t); err != nil {
			return err
		}
		if s.Msg != nil {
			return bindExpr(s.Msg, scope, t)
		}
		return nil

	case *ast.RaiseStmt:
		return bindExpr(s.Exc, scope, t)

	case *ast.TryStmt:
		if err := bindBlock(s.Body, scope.NewChildScope(false), t); err != nil {
			return err
		}
		for idx := range s.Handlers {
			h := &s.Handlers[idx]
			if h.Type != nil {
				if err := bindExpr(h.Type, scope, t); err != nil {
					return err
				}
			}
			hscope := scope.NewChildScope(false)
			if h.Name != "" {
				loc, err := hscope.AddVariable(h.Name)
				if err != nil {
					return err
				}
				t.handlerLocations[h] = loc
			}
			if err := bindBlock(h.Body, hscope, t); err != nil {
				return err
			}
		}
		return bindBlock(s.Finally, scope.NewChildScope(false), t)

	case *ast.FunctionDefStmt:
		loc, err := scope.AddVariable(s.Name)
		if err != nil {
			return err
		}
		s.Location = &loc
		for _, d := range s.Decorators {
			for _, a := range d.Args {
				if err := bindExpr(a, scope, t); err != nil {
					return err
				}
			}
		}
		for _, def := range s.Params.Defaults {
			if err := bindExpr(def, scope, t); err != nil {
				return err
			}
		}
		fscope := scope.NewChildScope(true)
		s.FuncIndex = fscope.funcIndex()
		s.Params.Locations = make([]ast.StackLocation, 0, len(s.Params.Names)+1)
		for _, name := range s.Params.Names {
			ploc, err := fscope.AddVariable(name)
			if err != nil {
				return err
			}
			s.Params.Locations = append(s.Params.Locations, ploc)
		}
		if s.Params.VarArgs != "" {
			ploc, err := fscope.AddVariable(s.Params.VarArgs)
			if err != nil {
				return err
			}
			s.Params.Locations = append(s.Params.Locations, ploc)
		}
		body := s.Body
		*deferred = append(*deferred, func() error {
			return bindBlock(body, fscope, t)
		})
		return nil

	case *ast.ClassDefStmt:
		loc, err := scope.AddVariable(s.Name)
		if err != nil {
			return err
		}
		s.Location = &loc
		for _, b := range s.Bases {
			if err := bindExpr(b, scope, t); err != nil {
				return err
			}
		}
		cscope := scope.NewChildScope(true)
		s.FuncIndex = cscope.funcIndex()
		return bindBlock(s.Body, cscope, t)
	}
	return nil
}

// bindTarget resolves an assignment target: a fresh Name binds in the
// innermost scope on first write, a Name already visible rebinds to its
// existing location,
// Attribute/Subscript targets only need their sub-expressions bound, and
// Tuple/List targets recurse element-wise.
func bindTarget(target ast.Expr, scope *VariableScope, t *Task) error {
	switch e := target.(type) {
	case *ast.NameExpr:
		if loc, ok := scope.Resolve(e.Name); ok {
			e.Location = &loc
			return nil
		}
		loc, err := scope.AddVariable(e.Name)
		if err != nil {
			return err
		}
		e.Location = &loc
		return nil
	case *ast.AttributeExpr:
		e.AttrIndex = internAttr(e.Attr)
		return bindExpr(e.Value, scope, t)
	case *ast.SubscriptExpr:
		if err := bindExpr(e.Value, scope, t); err != nil {
			return err
		}
		return bindExpr(e.Index, scope, t)
	case *ast.TupleExpr:
		for _, el := range e.Elts {
			if err := bindTarget(el, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.ListExpr:
		for _, el := range e.Elts {
			if err := bindTarget(el, scope, t); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func bindExpr(expr ast.Expr, scope *VariableScope, t *Task) error {
	switch e := expr.(type) {
	case *ast.ConstantExpr:
		return nil
	case *ast.NameExpr:
		if loc, ok := scope.Resolve(e.Name); ok {
			e.Location = &loc
			return nil
		}
		return argumentError(e.IdentPos, "name %q is not defined", e.Name)
	case *ast.AttributeExpr:
		e.AttrIndex = internAttr(e.Attr)
		return bindExpr(e.Value, scope, t)
	case *ast.SubscriptExpr:
		if err := bindExpr(e.Value, scope, t); err != nil {
			return err
		}
		return bindExpr(e.Index, scope, t)
	case *ast.SliceExpr:
		for _, sub := range []ast.Expr{e.Lower, e.Upper, e.Step} {
			if sub == nil {
				continue
			}
			if err := bindExpr(sub, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.BinOpExpr:
		if err := bindExpr(e.Left, scope, t); err != nil {
			return err
		}
		return bindExpr(e.Right, scope, t)
	case *ast.UnaryOpExpr:
		return bindExpr(e.Operand, scope, t)
	case *ast.CompareExpr:
		if err := bindExpr(e.Left, scope, t); err != nil {
			return err
		}
		for _, c := range e.Comparators {
			if err := bindExpr(c, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.BoolOpExpr:
		for _, v := range e.Values {
			if err := bindExpr(v, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.CallExpr:
		if err := bindExpr(e.Func, scope, t); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := bindExpr(a, scope, t); err != nil {
				return err
			}
		}
		for _, kw := range e.Keywords {
			if err := bindExpr(kw.Value, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.ListExpr:
		for _, el := range e.Elts {
			if err := bindExpr(el, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.TupleExpr:
		for _, el := range e.Elts {
			if err := bindExpr(el, scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.DictExpr:
		for idx, k := range e.Keys {
			if err := bindExpr(k, scope, t); err != nil {
				return err
			}
			if err := bindExpr(e.Values[idx], scope, t); err != nil {
				return err
			}
		}
		return nil
	case *ast.ListCompExpr:
		cscope, err := bindComprehensions(e.Generators, scope, t)
		if err != nil {
			return err
		}
		return bindExpr(e.Elt, cscope, t)
	case *ast.DictCompExpr:
		cscope, err := bindComprehensions(e.Generators, scope, t)
		if err != nil {
			return err
		}
		if err := bindExpr(e.Key, cscope, t); err != nil {
			return err
		}
		return bindExpr(e.Value, cscope, t)
	case *ast.GeneratorExpExpr:
		cscope, err := bindComprehensions(e.Generators, scope, t)
		if err != nil {
			return err
		}
		return bindExpr(e.Elt, cscope, t)
	case *ast.LambdaExpr:
		fscope := scope.NewChildScope(true)
		e.FuncIndex = fscope.funcIndex()
		e.Params.Locations = make([]ast.StackLocation, 0, len(e.Params.Names))
		for _, name := range e.Params.Names {
			loc, err := fscope.AddVariable(name)
			if err != nil {
				return err
			}
			e.Params.Locations = append(e.Params.Locations, loc)
		}
		return bindExpr(e.Body, fscope, t)
	}
	return nil
}

// bindComprehensions binds the first `for target in iter if cond` clause's
// iter against the enclosing scope, and every target, every cond and each
// later clause's iter in a shared child scope, so later clauses and the
// element expression can see earlier clauses' targets (`[x*y for x in xs
// for y in ys]`). A target name that already resolves in an enclosing
// scope reuses that binding rather than getting a fresh variable.
func bindComprehensions(gens []ast.Comprehension, scope *VariableScope, t *Task) (*VariableScope, error) {
	cscope := scope.NewChildScope(false)
	for idx := range gens {
		g := &gens[idx]
		iterScope := scope
		if idx > 0 {
			iterScope = cscope // later clauses' iter may reference earlier targets
		}
		if err := bindExpr(g.Iter, iterScope, t); err != nil {
			return nil, err
		}
		if err := bindTarget(g.Target, cscope, t); err != nil {
			return nil, err
		}
		for _, cond := range g.Ifs {
			if err := bindExpr(cond, cscope, t); err != nil {
				return nil, err
			}
		}
	}
	return cscope, nil
}
