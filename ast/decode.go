package ast

import (
	"fmt"

	"github.com/go-faster/jx"

	"github.com/deliteai/nimblecore/token"
)

// Decode parses a task's AST document. The document is either a bare
// Python-ast dump (the single-module case) or an object
// {"main": <ast>, "<moduleName>": <ast>, ...}. Every node carries "_type"
// and "lineno" fields; unrecognized "_type" values are a fatal decode
// error annotated with the line number, same as every other parse failure
// here.
func Decode(data []byte) (*File, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	f := &File{Modules: map[string]*Module{}}

	if raw, ok := fields["main"]; ok {
		mod, err := decodeModule("main", raw)
		if err != nil {
			return nil, err
		}
		f.Main = mod
		f.Modules["main"] = mod
		for name, raw := range fields {
			if name == "main" {
				continue
			}
			mod, err := decodeModule(name, raw)
			if err != nil {
				return nil, err
			}
			f.Modules[name] = mod
		}
		return f, nil
	}

	// Bare single-module dump: the document itself is the Module node.
	mod, err := decodeModule("main", data)
	if err != nil {
		return nil, err
	}
	f.Main = mod
	f.Modules["main"] = mod
	return f, nil
}

func decodeModule(name string, raw []byte) (*Module, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", name, err)
	}
	body, err := decodeStmtList(fields["body"])
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", name, err)
	}
	return &Module{Name: name, Body: body}, nil
}

// decodeFields buffers a JSON object's members as raw JSON slices, keyed by
// field name, so node dispatch (keyed on "_type") doesn't depend on field
// order in the source document.
func decodeFields(raw []byte) (map[string]jx.Raw, error) {
	d := jx.DecodeBytes(raw)
	fields := map[string]jx.Raw{}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		v, err := d.Raw()
		if err != nil {
			return err
		}
		cp := make(jx.Raw, len(v))
		copy(cp, v)
		fields[string(key)] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func fieldStr(fields map[string]jx.Raw, name string) (string, bool, error) {
	raw, ok := fields[name]
	if !ok || raw.Type() == jx.Null {
		return "", false, nil
	}
	d := jx.DecodeBytes(raw)
	s, err := d.Str()
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// fieldNodeType reads a field that Python's ast dump may encode either as
// a bare string ("Add") or as a node object ({"_type": "Add"}) — operator
// and context slots take the second shape in a faithful ast.dump, the
// first in hand-written fixtures.
func fieldNodeType(fields map[string]jx.Raw, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || raw.Type() == jx.Null {
		return "", nil
	}
	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Object:
		sub, err := decodeFields(raw)
		if err != nil {
			return "", err
		}
		typ, _, err := fieldStr(sub, "_type")
		return typ, err
	}
	return "", fmt.Errorf("field %q is neither a string nor a node object", name)
}

// rawNodeType reads a node's type name from a raw value that is either a
// string or an object with "_type", used for elements of an "ops" list.
func rawNodeType(raw jx.Raw) (string, error) {
	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Object:
		sub, err := decodeFields(raw)
		if err != nil {
			return "", err
		}
		typ, _, err := fieldStr(sub, "_type")
		return typ, err
	}
	return "", fmt.Errorf("operator is neither a string nor a node object")
}

func fieldLine(fields map[string]jx.Raw, module string) token.Pos {
	raw, ok := fields["lineno"]
	if !ok || raw.Type() == jx.Null {
		return token.Pos{Module: module}
	}
	d := jx.DecodeBytes(raw)
	n, err := d.Int()
	if err != nil {
		return token.Pos{Module: module}
	}
	return token.Pos{Module: module, Line: n}
}

func decodeRawList(raw jx.Raw) ([]jx.Raw, error) {
	if len(raw) == 0 || raw.Type() == jx.Null {
		return nil, nil
	}
	var out []jx.Raw
	d := jx.DecodeBytes(raw)
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Raw()
		if err != nil {
			return err
		}
		cp := make(jx.Raw, len(v))
		copy(cp, v)
		out = append(out, cp)
		return nil
	})
	return out, err
}

func decodeStmtList(raw jx.Raw) ([]Stmt, error) {
	items, err := decodeRawList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Stmt, 0, len(items))
	for _, item := range items {
		s, err := decodeStmt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeExprList(raw jx.Raw) ([]Expr, error) {
	items, err := decodeRawList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, 0, len(items))
	for _, item := range items {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeExprOpt decodes raw into an Expr, returning nil without error when
// the field is absent or JSON null (an optional node slot, e.g. a slice's
// missing upper bound).
func decodeExprOpt(raw jx.Raw) (Expr, error) {
	if len(raw) == 0 || raw.Type() == jx.Null {
		return nil, nil
	}
	return decodeExpr(raw)
}

func decodeExpr(raw jx.Raw) (Expr, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	typ, _, err := fieldStr(fields, "_type")
	if err != nil {
		return nil, err
	}
	pos := fieldLine(fields, "")

	switch typ {
	case "Constant", "Num", "Str", "NameConstant":
		return decodeConstant(fields, pos)
	case "Name":
		id, _, _ := fieldStr(fields, "id")
		ctxStr, _ := fieldNodeType(fields, "ctx")
		return &NameExpr{IdentPos: pos, Name: id, Ctx: decodeCtx(ctxStr)}, nil
	case "Attribute":
		value, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		attr, _, _ := fieldStr(fields, "attr")
		ctxStr, _ := fieldNodeType(fields, "ctx")
		return &AttributeExpr{AttrPos: pos, Value: value, Attr: attr, Ctx: decodeCtx(ctxStr)}, nil
	case "Subscript":
		value, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		index, err := decodeExpr(fields["slice"])
		if err != nil {
			return nil, err
		}
		ctxStr, _ := fieldNodeType(fields, "ctx")
		return &SubscriptExpr{SubPos: pos, Value: value, Index: index, Ctx: decodeCtx(ctxStr)}, nil
	case "Slice":
		lower, err := decodeExprOpt(fields["lower"])
		if err != nil {
			return nil, err
		}
		upper, err := decodeExprOpt(fields["upper"])
		if err != nil {
			return nil, err
		}
		step, err := decodeExprOpt(fields["step"])
		if err != nil {
			return nil, err
		}
		return &SliceExpr{SlicePos: pos, Lower: lower, Upper: upper, Step: step}, nil
	case "BinOp":
		left, err := decodeExpr(fields["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(fields["right"])
		if err != nil {
			return nil, err
		}
		opStr, err := fieldNodeType(fields, "op")
		if err != nil {
			return nil, err
		}
		op, ok := token.Lookup(opStr)
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported binary operator %q", pos.Line, opStr)
		}
		return &BinOpExpr{OpPos: pos, Left: left, Right: right, Op: op}, nil
	case "UnaryOp":
		operand, err := decodeExpr(fields["operand"])
		if err != nil {
			return nil, err
		}
		opStr, err := fieldNodeType(fields, "op")
		if err != nil {
			return nil, err
		}
		op, ok := token.Lookup(opStr)
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported unary operator %q", pos.Line, opStr)
		}
		return &UnaryOpExpr{OpPos: pos, Operand: operand, Op: op}, nil
	case "Compare":
		left, err := decodeExpr(fields["left"])
		if err != nil {
			return nil, err
		}
		opsRaw, err := decodeRawList(fields["ops"])
		if err != nil {
			return nil, err
		}
		ops := make([]token.Token, 0, len(opsRaw))
		for _, o := range opsRaw {
			s, err := rawNodeType(o)
			if err != nil {
				return nil, err
			}
			tok, ok := token.Lookup(s)
			if !ok {
				return nil, fmt.Errorf("line %d: unsupported comparison operator %q", pos.Line, s)
			}
			ops = append(ops, tok)
		}
		comparators, err := decodeExprList(fields["comparators"])
		if err != nil {
			return nil, err
		}
		return &CompareExpr{CmpPos: pos, Left: left, Ops: ops, Comparators: comparators}, nil
	case "BoolOp":
		opStr, err := fieldNodeType(fields, "op")
		if err != nil {
			return nil, err
		}
		op, ok := token.Lookup(opStr)
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported boolean operator %q", pos.Line, opStr)
		}
		values, err := decodeExprList(fields["values"])
		if err != nil {
			return nil, err
		}
		return &BoolOpExpr{OpPos: pos, Op: op, Values: values}, nil
	case "Call":
		fn, err := decodeExpr(fields["func"])
		if err != nil {
			return nil, err
		}
		args, err := decodeExprList(fields["args"])
		if err != nil {
			return nil, err
		}
		kwItems, err := decodeRawList(fields["keywords"])
		if err != nil {
			return nil, err
		}
		var keywords []Keyword
		for _, kw := range kwItems {
			kf, err := decodeFields(kw)
			if err != nil {
				return nil, err
			}
			name, _, _ := fieldStr(kf, "arg")
			val, err := decodeExpr(kf["value"])
			if err != nil {
				return nil, err
			}
			keywords = append(keywords, Keyword{Name: name, Value: val})
		}
		return &CallExpr{CallPos: pos, Func: fn, Args: args, Keywords: keywords}, nil
	case "List":
		elts, err := decodeExprList(fields["elts"])
		if err != nil {
			return nil, err
		}
		ctxStr, _ := fieldNodeType(fields, "ctx")
		return &ListExpr{ListPos: pos, Elts: elts, Ctx: decodeCtx(ctxStr)}, nil
	case "Tuple":
		elts, err := decodeExprList(fields["elts"])
		if err != nil {
			return nil, err
		}
		ctxStr, _ := fieldNodeType(fields, "ctx")
		return &TupleExpr{TuplePos: pos, Elts: elts, Ctx: decodeCtx(ctxStr)}, nil
	case "Dict":
		keys, err := decodeExprList(fields["keys"])
		if err != nil {
			return nil, err
		}
		values, err := decodeExprList(fields["values"])
		if err != nil {
			return nil, err
		}
		return &DictExpr{DictPos: pos, Keys: keys, Values: values}, nil
	case "ListComp", "SetComp":
		elt, err := decodeExpr(fields["elt"])
		if err != nil {
			return nil, err
		}
		gens, err := decodeComprehensions(fields["generators"])
		if err != nil {
			return nil, err
		}
		return &ListCompExpr{CompPos: pos, Elt: elt, Generators: gens}, nil
	case "DictComp":
		key, err := decodeExpr(fields["key"])
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		gens, err := decodeComprehensions(fields["generators"])
		if err != nil {
			return nil, err
		}
		return &DictCompExpr{CompPos: pos, Key: key, Value: value, Generators: gens}, nil
	case "GeneratorExp":
		elt, err := decodeExpr(fields["elt"])
		if err != nil {
			return nil, err
		}
		gens, err := decodeComprehensions(fields["generators"])
		if err != nil {
			return nil, err
		}
		return &GeneratorExpExpr{CompPos: pos, Elt: elt, Generators: gens}, nil
	case "Lambda":
		params, err := decodeParams(fields["args"])
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(fields["body"])
		if err != nil {
			return nil, err
		}
		return &LambdaExpr{LambdaPos: pos, Params: params, Body: body}, nil
	}
	return nil, fmt.Errorf("line %d: unrecognized expression node %q", pos.Line, typ)
}

func decodeConstant(fields map[string]jx.Raw, pos token.Pos) (Expr, error) {
	raw, ok := fields["value"]
	if !ok {
		raw, ok = fields["s"]
	}
	if !ok {
		raw, ok = fields["n"]
	}
	if !ok || raw.Type() == jx.Null {
		return &ConstantExpr{ConstPos: pos, Value: nil}, nil
	}
	d := jx.DecodeBytes(raw)
	tt := d.Next()
	switch tt {
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return nil, err
		}
		if num.IsInt() {
			i, err := num.Int64()
			if err != nil {
				return nil, err
			}
			return &ConstantExpr{ConstPos: pos, Value: i}, nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		return &ConstantExpr{ConstPos: pos, Value: f}, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		return &ConstantExpr{ConstPos: pos, Value: s}, nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return nil, err
		}
		return &ConstantExpr{ConstPos: pos, Value: b}, nil
	case jx.Null:
		return &ConstantExpr{ConstPos: pos, Value: nil}, nil
	}
	return nil, fmt.Errorf("line %d: unsupported constant literal", pos.Line)
}

func decodeCtx(s string) ExprContext {
	switch s {
	case "Store":
		return Store
	case "Del":
		return Del
	default:
		return Load
	}
}

func decodeComprehensions(raw jx.Raw) ([]Comprehension, error) {
	items, err := decodeRawList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Comprehension, 0, len(items))
	for _, item := range items {
		fields, err := decodeFields(item)
		if err != nil {
			return nil, err
		}
		target, err := decodeExpr(fields["target"])
		if err != nil {
			return nil, err
		}
		iter, err := decodeExpr(fields["iter"])
		if err != nil {
			return nil, err
		}
		ifs, err := decodeExprList(fields["ifs"])
		if err != nil {
			return nil, err
		}
		out = append(out, Comprehension{Target: target, Iter: iter, Ifs: ifs})
	}
	return out, nil
}

func decodeParams(raw jx.Raw) (*Params, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	argItems, err := decodeRawList(fields["args"])
	if err != nil {
		return nil, err
	}
	p := &Params{Defaults: map[string]Expr{}}
	for _, a := range argItems {
		af, err := decodeFields(a)
		if err != nil {
			return nil, err
		}
		name, _, _ := fieldStr(af, "arg")
		p.Names = append(p.Names, name)
	}
	defaults, err := decodeExprList(fields["defaults"])
	if err != nil {
		return nil, err
	}
	// Python ast right-aligns defaults against the tail of args.
	offset := len(p.Names) - len(defaults)
	for i, d := range defaults {
		if offset+i >= 0 && offset+i < len(p.Names) {
			p.Defaults[p.Names[offset+i]] = d
		}
	}
	if raw, ok := fields["vararg"]; ok && raw.Type() != jx.Null {
		vf, err := decodeFields(raw)
		if err == nil {
			name, _, _ := fieldStr(vf, "arg")
			p.VarArgs = name
		}
	}
	return p, nil
}

func decodeStmt(raw jx.Raw) (Stmt, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	typ, _, err := fieldStr(fields, "_type")
	if err != nil {
		return nil, err
	}
	pos := fieldLine(fields, "")

	switch typ {
	case "Assign":
		targets, err := decodeExprList(fields["targets"])
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		return &AssignStmt{StmtPos: pos, Targets: targets, Value: value}, nil
	case "AugAssign":
		target, err := decodeExpr(fields["target"])
		if err != nil {
			return nil, err
		}
		opStr, err := fieldNodeType(fields, "op")
		if err != nil {
			return nil, err
		}
		op, ok := token.Lookup(opStr)
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported augmented-assign operator %q", pos.Line, opStr)
		}
		value, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		return &AugAssignStmt{StmtPos: pos, Target: target, Op: op, Value: value}, nil
	case "Expr":
		x, err := decodeExpr(fields["value"])
		if err != nil {
			return nil, err
		}
		return &ExprStmt{StmtPos: pos, X: x}, nil
	case "Return":
		value, err := decodeExprOpt(fields["value"])
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{StmtPos: pos, Value: value}, nil
	case "Break":
		return &BreakStmt{StmtPos: pos}, nil
	case "Continue":
		return &ContinueStmt{StmtPos: pos}, nil
	case "Pass":
		return &PassStmt{StmtPos: pos}, nil
	case "If":
		test, err := decodeExpr(fields["test"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		orelse, err := decodeStmtList(fields["orelse"])
		if err != nil {
			return nil, err
		}
		return &IfStmt{StmtPos: pos, Test: test, Body: body, Orelse: orelse}, nil
	case "While":
		test, err := decodeExpr(fields["test"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		return &WhileStmt{StmtPos: pos, Test: test, Body: body}, nil
	case "For":
		target, err := decodeExpr(fields["target"])
		if err != nil {
			return nil, err
		}
		iter, err := decodeExpr(fields["iter"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		return &ForStmt{StmtPos: pos, Target: target, Iter: iter, Body: body}, nil
	case "Assert":
		test, err := decodeExpr(fields["test"])
		if err != nil {
			return nil, err
		}
		msg, err := decodeExprOpt(fields["msg"])
		if err != nil {
			return nil, err
		}
		return &AssertStmt{StmtPos: pos, Test: test, Msg: msg}, nil
	case "Raise":
		exc, err := decodeExprOpt(fields["exc"])
		if err != nil {
			return nil, err
		}
		return &RaiseStmt{StmtPos: pos, Exc: exc}, nil
	case "Try":
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		handlerItems, err := decodeRawList(fields["handlers"])
		if err != nil {
			return nil, err
		}
		var handlers []ExceptHandler
		for _, h := range handlerItems {
			hf, err := decodeFields(h)
			if err != nil {
				return nil, err
			}
			hpos := fieldLine(hf, "")
			typExpr, err := decodeExprOpt(hf["type"])
			if err != nil {
				return nil, err
			}
			name, _, _ := fieldStr(hf, "name")
			hbody, err := decodeStmtList(hf["body"])
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, ExceptHandler{HandlerPos: hpos, Type: typExpr, Name: name, Body: hbody})
		}
		finally, err := decodeStmtList(fields["finalbody"])
		if err != nil {
			return nil, err
		}
		return &TryStmt{StmtPos: pos, Body: body, Handlers: handlers, Finally: finally}, nil
	case "FunctionDef":
		name, _, _ := fieldStr(fields, "name")
		params, err := decodeParams(fields["args"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		decoItems, err := decodeRawList(fields["decorator_list"])
		if err != nil {
			return nil, err
		}
		var decos []Decorator
		for _, d := range decoItems {
			deco, err := decodeDecorator(d)
			if err != nil {
				return nil, err
			}
			decos = append(decos, deco)
		}
		return &FunctionDefStmt{StmtPos: pos, Name: name, Params: params, Body: body, Decorators: decos}, nil
	case "ClassDef":
		name, _, _ := fieldStr(fields, "name")
		bases, err := decodeExprList(fields["bases"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(fields["body"])
		if err != nil {
			return nil, err
		}
		return &ClassDefStmt{StmtPos: pos, Name: name, Bases: bases, Body: body}, nil
	case "Import", "ImportFrom":
		module, _, _ := fieldStr(fields, "module")
		if module == "" {
			module, _, _ = fieldStr(fields, "names")
		}
		aliasItems, err := decodeRawList(fields["names"])
		if err != nil {
			return nil, err
		}
		var names []string
		for _, a := range aliasItems {
			af, err := decodeFields(a)
			if err != nil {
				return nil, err
			}
			n, _, _ := fieldStr(af, "name")
			if typ == "Import" && module == "" {
				module = n
				continue
			}
			names = append(names, n)
		}
		return &ImportStmt{StmtPos: pos, Module: module, Names: names}, nil
	}
	return nil, fmt.Errorf("line %d: unrecognized statement node %q", pos.Line, typ)
}

func decodeDecorator(raw jx.Raw) (Decorator, error) {
	// A decorator is itself an expression: either a bare Name (`@concurrent`)
	// or a Call (`@pre_add_event("type")`).
	fields, err := decodeFields(raw)
	if err != nil {
		return Decorator{}, err
	}
	typ, _, _ := fieldStr(fields, "_type")
	if typ == "Call" {
		fn, err := decodeFields(fields["func"])
		if err != nil {
			return Decorator{}, err
		}
		name, _, _ := fieldStr(fn, "id")
		args, err := decodeExprList(fields["args"])
		if err != nil {
			return Decorator{}, err
		}
		return Decorator{Name: name, Args: args}, nil
	}
	name, _, _ := fieldStr(fields, "id")
	return Decorator{Name: name}, nil
}
