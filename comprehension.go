package nimble

import "github.com/deliteai/nimblecore/ast"

// walkGenerators recursively drives a comprehension's `for ... in ... if
// ...` chain (possibly several, for `[x*y for x in xs for y in ys]`),
// calling emit once per combination that survives every Ifs guard. Shared
// by list, dict, and generator-expression comprehensions; only what each
// one does in emit differs.
//
// A generator expression reuses this same eager walk and buffers into a
// List (see evalListComp's use from the GeneratorExpExpr case in
// interp.go); this runtime never suspends mid-expression, so nothing can
// observe partial iteration from outside.
func (i *Interp) walkGenerators(gens []ast.Comprehension, depth int, frame *Frame, moduleIdx, funcIdx int, emit func() error) error {
	if depth == len(gens) {
		return emit()
	}
	g := gens[depth]
	iterV, err := i.eval(g.Iter, frame, moduleIdx, funcIdx)
	if err != nil {
		return err
	}
	it, ok := iterV.(Iterable)
	if !ok {
		return typeError(g.Iter.Pos(), "%q is not iterable", iterV.TypeName())
	}
	for elem := range it.Elements() {
		if err := i.assign(g.Target, elem, frame, moduleIdx, funcIdx); err != nil {
			return err
		}
		ok := true
		for _, cond := range g.Ifs {
			cv, err := i.eval(cond, frame, moduleIdx, funcIdx)
			if err != nil {
				return err
			}
			if !Truthy(cv) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if err := i.walkGenerators(gens, depth+1, frame, moduleIdx, funcIdx, emit); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interp) evalListComp(n *ast.ListCompExpr, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	var out []Value
	err := i.walkGenerators(n.Generators, 0, frame, moduleIdx, funcIdx, func() error {
		v, err := i.eval(n.Elt, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewList(out), nil
}

func (i *Interp) evalDictComp(n *ast.DictCompExpr, frame *Frame, moduleIdx, funcIdx int) (Value, error) {
	m := NewMap()
	err := i.walkGenerators(n.Generators, 0, frame, moduleIdx, funcIdx, func() error {
		kv, err := i.eval(n.Key, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		vv, err := i.eval(n.Value, frame, moduleIdx, funcIdx)
		if err != nil {
			return err
		}
		key, err := mapKeyOf(kv)
		if err != nil {
			return err
		}
		m.Set(key, vv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
