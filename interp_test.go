package nimble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runScript decodes doc, runs functionName with inputs, and returns the
// result. Documents below are hand-written Python-ast dumps in the JSON
// shape ast.Decode accepts; operator and ctx slots use the bare-string
// spelling the decoder accepts alongside full node objects.
func runScript(t *testing.T, doc string, functionName string, inputs map[string]Value) Value {
	t.Helper()
	task, err := NewTask([]byte(doc))
	require.NoError(t, err)
	out, err := task.Operate(functionName, inputs)
	require.NoError(t, err)
	return out
}

func TestOperateArithmeticAndControlFlow(t *testing.T) {
	// def main(x):
	//     y = 0
	//     for i in range(x):
	//         y = y + i*i
	//     return {"y": y}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "main", "lineno": 1,
		 "args": {"args": [{"arg": "x"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Assign", "lineno": 2,
			 "targets": [{"_type": "Name", "id": "y", "ctx": "Store", "lineno": 2}],
			 "value": {"_type": "Constant", "value": 0, "lineno": 2}},
			{"_type": "For", "lineno": 3,
			 "target": {"_type": "Name", "id": "i", "ctx": "Store", "lineno": 3},
			 "iter": {"_type": "Call", "lineno": 3,
			  "func": {"_type": "Name", "id": "range", "ctx": "Load", "lineno": 3},
			  "args": [{"_type": "Name", "id": "x", "ctx": "Load", "lineno": 3}],
			  "keywords": []},
			 "body": [
				{"_type": "Assign", "lineno": 4,
				 "targets": [{"_type": "Name", "id": "y", "ctx": "Store", "lineno": 4}],
				 "value": {"_type": "BinOp", "lineno": 4, "op": "Add",
				  "left": {"_type": "Name", "id": "y", "ctx": "Load", "lineno": 4},
				  "right": {"_type": "BinOp", "lineno": 4, "op": "Mult",
				   "left": {"_type": "Name", "id": "i", "ctx": "Load", "lineno": 4},
				   "right": {"_type": "Name", "id": "i", "ctx": "Load", "lineno": 4}}}}]},
			{"_type": "Return", "lineno": 5,
			 "value": {"_type": "Dict", "lineno": 5,
			  "keys": [{"_type": "Constant", "value": "y", "lineno": 5}],
			  "values": [{"_type": "Name", "id": "y", "ctx": "Load", "lineno": 5}]}}]}]}`

	out := runScript(t, doc, "main", map[string]Value{"x": NewInt64(3)})
	m := out.(*Map)
	y, ok := m.Get("y")
	require.True(t, ok)
	require.Equal(t, int64(5), y.(*Scalar).AsInt64())
}

func TestOperateStringSlicingUTF8(t *testing.T) {
	// def f(s):
	//     return {"a": s[0], "b": s[1], "c": s[-1], "r": s[::-1], "n": len(s)}
	sub := func(index string) string {
		return `{"_type": "Subscript", "lineno": 2,
			"value": {"_type": "Name", "id": "s", "ctx": "Load", "lineno": 2},
			"slice": ` + index + `, "ctx": "Load"}`
	}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [{"arg": "s"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Return", "lineno": 2,
			 "value": {"_type": "Dict", "lineno": 2,
			  "keys": [
				{"_type": "Constant", "value": "a", "lineno": 2},
				{"_type": "Constant", "value": "b", "lineno": 2},
				{"_type": "Constant", "value": "c", "lineno": 2},
				{"_type": "Constant", "value": "r", "lineno": 2},
				{"_type": "Constant", "value": "n", "lineno": 2}],
			  "values": [
				` + sub(`{"_type": "Constant", "value": 0, "lineno": 2}`) + `,
				` + sub(`{"_type": "Constant", "value": 1, "lineno": 2}`) + `,
				` + sub(`{"_type": "Constant", "value": -1, "lineno": 2}`) + `,
				` + sub(`{"_type": "Slice", "lineno": 2, "lower": null, "upper": null, "step": {"_type": "Constant", "value": -1, "lineno": 2}}`) + `,
				{"_type": "Call", "lineno": 2,
				 "func": {"_type": "Name", "id": "len", "ctx": "Load", "lineno": 2},
				 "args": [{"_type": "Name", "id": "s", "ctx": "Load", "lineno": 2}],
				 "keywords": []}]}}]}]}`

	out := runScript(t, doc, "f", map[string]Value{"s": NewString("héllo")})
	m := out.(*Map)
	get := func(key string) string {
		v, ok := m.Get(key)
		require.True(t, ok)
		return v.(*Scalar).String()
	}
	require.Equal(t, "h", get("a"))
	require.Equal(t, "é", get("b"))
	require.Equal(t, "o", get("c"))
	require.Equal(t, "olléh", get("r"))
	n, _ := m.Get("n")
	require.Equal(t, int64(5), n.(*Scalar).AsInt64())
}

func TestOperateTryExcept(t *testing.T) {
	// def f():
	//     try:
	//         raise Exception("boom")
	//     except Exception as e:
	//         return {"m": str(e)}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Try", "lineno": 2,
			 "body": [
				{"_type": "Raise", "lineno": 3,
				 "exc": {"_type": "Call", "lineno": 3,
				  "func": {"_type": "Name", "id": "Exception", "ctx": "Load", "lineno": 3},
				  "args": [{"_type": "Constant", "value": "boom", "lineno": 3}],
				  "keywords": []}}],
			 "handlers": [
				{"_type": "ExceptHandler", "lineno": 4,
				 "type": {"_type": "Name", "id": "Exception", "ctx": "Load", "lineno": 4},
				 "name": "e",
				 "body": [
					{"_type": "Return", "lineno": 5,
					 "value": {"_type": "Dict", "lineno": 5,
					  "keys": [{"_type": "Constant", "value": "m", "lineno": 5}],
					  "values": [{"_type": "Call", "lineno": 5,
					   "func": {"_type": "Name", "id": "str", "ctx": "Load", "lineno": 5},
					   "args": [{"_type": "Name", "id": "e", "ctx": "Load", "lineno": 5}],
					   "keywords": []}]}}]}],
			 "finalbody": []}]}]}`

	out := runScript(t, doc, "f", nil)
	m := out.(*Map)
	msg, ok := m.Get("m")
	require.True(t, ok)
	require.Equal(t, "boom", msg.(*Scalar).String())
}

func TestOperateDictComprehension(t *testing.T) {
	// def f():
	//     return {k: v*v for k, v in [("a", 1), ("b", 2)]}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Return", "lineno": 2,
			 "value": {"_type": "DictComp", "lineno": 2,
			  "key": {"_type": "Name", "id": "k", "ctx": "Load", "lineno": 2},
			  "value": {"_type": "BinOp", "lineno": 2, "op": "Mult",
			   "left": {"_type": "Name", "id": "v", "ctx": "Load", "lineno": 2},
			   "right": {"_type": "Name", "id": "v", "ctx": "Load", "lineno": 2}},
			  "generators": [
				{"_type": "comprehension",
				 "target": {"_type": "Tuple", "lineno": 2, "ctx": "Store", "elts": [
					{"_type": "Name", "id": "k", "ctx": "Store", "lineno": 2},
					{"_type": "Name", "id": "v", "ctx": "Store", "lineno": 2}]},
				 "iter": {"_type": "List", "lineno": 2, "ctx": "Load", "elts": [
					{"_type": "Tuple", "lineno": 2, "ctx": "Load", "elts": [
						{"_type": "Constant", "value": "a", "lineno": 2},
						{"_type": "Constant", "value": 1, "lineno": 2}]},
					{"_type": "Tuple", "lineno": 2, "ctx": "Load", "elts": [
						{"_type": "Constant", "value": "b", "lineno": 2},
						{"_type": "Constant", "value": 2, "lineno": 2}]}]},
				 "ifs": []}]}}]}]}`

	out := runScript(t, doc, "f", nil)
	m := out.(*Map)
	want := NewMap()
	want.Set("a", NewInt64(1))
	want.Set("b", NewInt64(4))
	require.True(t, m.Equals(want))
}

func TestOperateParallelMap(t *testing.T) {
	// from nimblenet import ConcurrentExecutor
	// def f():
	//     ex = ConcurrentExecutor()
	//     return {"r": ex.run_parallel(lambda v: v*v, [1, 2, 3, 4])}
	doc := `{"_type": "Module", "body": [
		{"_type": "ImportFrom", "lineno": 1, "module": "nimblenet",
		 "names": [{"name": "ConcurrentExecutor"}]},
		{"_type": "FunctionDef", "name": "f", "lineno": 2,
		 "args": {"args": [], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Assign", "lineno": 3,
			 "targets": [{"_type": "Name", "id": "ex", "ctx": "Store", "lineno": 3}],
			 "value": {"_type": "Call", "lineno": 3,
			  "func": {"_type": "Name", "id": "ConcurrentExecutor", "ctx": "Load", "lineno": 3},
			  "args": [], "keywords": []}},
			{"_type": "Return", "lineno": 4,
			 "value": {"_type": "Dict", "lineno": 4,
			  "keys": [{"_type": "Constant", "value": "r", "lineno": 4}],
			  "values": [{"_type": "Call", "lineno": 4,
			   "func": {"_type": "Attribute", "lineno": 4, "attr": "run_parallel", "ctx": "Load",
			    "value": {"_type": "Name", "id": "ex", "ctx": "Load", "lineno": 4}},
			   "args": [
				{"_type": "Lambda", "lineno": 4,
				 "args": {"args": [{"arg": "v"}], "defaults": []},
				 "body": {"_type": "BinOp", "lineno": 4, "op": "Mult",
				  "left": {"_type": "Name", "id": "v", "ctx": "Load", "lineno": 4},
				  "right": {"_type": "Name", "id": "v", "ctx": "Load", "lineno": 4}}},
				{"_type": "List", "lineno": 4, "ctx": "Load", "elts": [
					{"_type": "Constant", "value": 1, "lineno": 4},
					{"_type": "Constant", "value": 2, "lineno": 4},
					{"_type": "Constant", "value": 3, "lineno": 4},
					{"_type": "Constant", "value": 4, "lineno": 4}]}],
			   "keywords": []}]}}]}]}`

	out := runScript(t, doc, "f", nil)
	m := out.(*Map)
	r, ok := m.Get("r")
	require.True(t, ok)
	list := r.(*List)
	require.Equal(t, 4, list.Len())
	want := []int64{1, 4, 9, 16}
	for idx, w := range want {
		v, err := list.Index(NewInt64(int64(idx)))
		require.NoError(t, err)
		require.Equal(t, w, v.(*Scalar).AsInt64())
	}
}

func TestOperateListConcatAndRepetition(t *testing.T) {
	// def f():
	//     return {"a": [1, 2] + [3], "b": [0] * 3, "c": 2 * ["a"]}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Return", "lineno": 2,
			 "value": {"_type": "Dict", "lineno": 2,
			  "keys": [
				{"_type": "Constant", "value": "a", "lineno": 2},
				{"_type": "Constant", "value": "b", "lineno": 2},
				{"_type": "Constant", "value": "c", "lineno": 2}],
			  "values": [
				{"_type": "BinOp", "lineno": 2, "op": "Add",
				 "left": {"_type": "List", "lineno": 2, "ctx": "Load", "elts": [
					{"_type": "Constant", "value": 1, "lineno": 2},
					{"_type": "Constant", "value": 2, "lineno": 2}]},
				 "right": {"_type": "List", "lineno": 2, "ctx": "Load", "elts": [
					{"_type": "Constant", "value": 3, "lineno": 2}]}},
				{"_type": "BinOp", "lineno": 2, "op": "Mult",
				 "left": {"_type": "List", "lineno": 2, "ctx": "Load", "elts": [
					{"_type": "Constant", "value": 0, "lineno": 2}]},
				 "right": {"_type": "Constant", "value": 3, "lineno": 2}},
				{"_type": "BinOp", "lineno": 2, "op": "Mult",
				 "left": {"_type": "Constant", "value": 2, "lineno": 2},
				 "right": {"_type": "List", "lineno": 2, "ctx": "Load", "elts": [
					{"_type": "Constant", "value": "a", "lineno": 2}]}}]}}]}]}`

	out := runScript(t, doc, "f", nil)
	m := out.(*Map)
	a, _ := m.Get("a")
	require.Equal(t, "[1, 2, 3]", a.String())
	b, _ := m.Get("b")
	require.Equal(t, "[0, 0, 0]", b.String())
	c, _ := m.Get("c")
	require.Equal(t, "[a, a]", c.String())
}

func TestOperateForwardReferenceAndRecursion(t *testing.T) {
	// def f(n):
	//     return g(n)
	// def g(n):
	//     if n <= 1:
	//         return 1
	//     return n * g(n - 1)
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [{"arg": "n"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Return", "lineno": 2,
			 "value": {"_type": "Call", "lineno": 2,
			  "func": {"_type": "Name", "id": "g", "ctx": "Load", "lineno": 2},
			  "args": [{"_type": "Name", "id": "n", "ctx": "Load", "lineno": 2}],
			  "keywords": []}}]},
		{"_type": "FunctionDef", "name": "g", "lineno": 3,
		 "args": {"args": [{"arg": "n"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "If", "lineno": 4,
			 "test": {"_type": "Compare", "lineno": 4,
			  "left": {"_type": "Name", "id": "n", "ctx": "Load", "lineno": 4},
			  "ops": ["LtE"],
			  "comparators": [{"_type": "Constant", "value": 1, "lineno": 4}]},
			 "body": [{"_type": "Return", "lineno": 5,
			  "value": {"_type": "Constant", "value": 1, "lineno": 5}}],
			 "orelse": []},
			{"_type": "Return", "lineno": 6,
			 "value": {"_type": "BinOp", "lineno": 6, "op": "Mult",
			  "left": {"_type": "Name", "id": "n", "ctx": "Load", "lineno": 6},
			  "right": {"_type": "Call", "lineno": 6,
			   "func": {"_type": "Name", "id": "g", "ctx": "Load", "lineno": 6},
			   "args": [{"_type": "BinOp", "lineno": 6, "op": "Sub",
				"left": {"_type": "Name", "id": "n", "ctx": "Load", "lineno": 6},
				"right": {"_type": "Constant", "value": 1, "lineno": 6}}],
			   "keywords": []}}}]}]}`

	out := runScript(t, doc, "f", map[string]Value{"n": NewInt64(5)})
	require.Equal(t, int64(120), out.(*Scalar).AsInt64())
}

func TestOperateClassInstantiation(t *testing.T) {
	// class Counter:
	//     def __init__(self, start):
	//         self.n = start
	//     def bump(self):
	//         self.n = self.n + 1
	//         return self.n
	// def f(start):
	//     c = Counter(start)
	//     c.bump()
	//     return {"n": c.bump()}
	doc := `{"_type": "Module", "body": [
		{"_type": "ClassDef", "name": "Counter", "lineno": 1, "bases": [],
		 "body": [
			{"_type": "FunctionDef", "name": "__init__", "lineno": 2,
			 "args": {"args": [{"arg": "self"}, {"arg": "start"}], "defaults": []},
			 "decorator_list": [],
			 "body": [
				{"_type": "Assign", "lineno": 3,
				 "targets": [{"_type": "Attribute", "lineno": 3, "attr": "n", "ctx": "Store",
				  "value": {"_type": "Name", "id": "self", "ctx": "Load", "lineno": 3}}],
				 "value": {"_type": "Name", "id": "start", "ctx": "Load", "lineno": 3}}]},
			{"_type": "FunctionDef", "name": "bump", "lineno": 4,
			 "args": {"args": [{"arg": "self"}], "defaults": []},
			 "decorator_list": [],
			 "body": [
				{"_type": "Assign", "lineno": 5,
				 "targets": [{"_type": "Attribute", "lineno": 5, "attr": "n", "ctx": "Store",
				  "value": {"_type": "Name", "id": "self", "ctx": "Load", "lineno": 5}}],
				 "value": {"_type": "BinOp", "lineno": 5, "op": "Add",
				  "left": {"_type": "Attribute", "lineno": 5, "attr": "n", "ctx": "Load",
				   "value": {"_type": "Name", "id": "self", "ctx": "Load", "lineno": 5}},
				  "right": {"_type": "Constant", "value": 1, "lineno": 5}}},
				{"_type": "Return", "lineno": 6,
				 "value": {"_type": "Attribute", "lineno": 6, "attr": "n", "ctx": "Load",
				  "value": {"_type": "Name", "id": "self", "ctx": "Load", "lineno": 6}}}]}]},
		{"_type": "FunctionDef", "name": "f", "lineno": 7,
		 "args": {"args": [{"arg": "start"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Assign", "lineno": 8,
			 "targets": [{"_type": "Name", "id": "c", "ctx": "Store", "lineno": 8}],
			 "value": {"_type": "Call", "lineno": 8,
			  "func": {"_type": "Name", "id": "Counter", "ctx": "Load", "lineno": 8},
			  "args": [{"_type": "Name", "id": "start", "ctx": "Load", "lineno": 8}],
			  "keywords": []}},
			{"_type": "Expr", "lineno": 9,
			 "value": {"_type": "Call", "lineno": 9,
			  "func": {"_type": "Attribute", "lineno": 9, "attr": "bump", "ctx": "Load",
			   "value": {"_type": "Name", "id": "c", "ctx": "Load", "lineno": 9}},
			  "args": [], "keywords": []}},
			{"_type": "Return", "lineno": 10,
			 "value": {"_type": "Dict", "lineno": 10,
			  "keys": [{"_type": "Constant", "value": "n", "lineno": 10}],
			  "values": [{"_type": "Call", "lineno": 10,
			   "func": {"_type": "Attribute", "lineno": 10, "attr": "bump", "ctx": "Load",
			    "value": {"_type": "Name", "id": "c", "ctx": "Load", "lineno": 10}},
			   "args": [], "keywords": []}]}}]}]}`

	out := runScript(t, doc, "f", map[string]Value{"start": NewInt64(10)})
	m := out.(*Map)
	n, ok := m.Get("n")
	require.True(t, ok)
	require.Equal(t, int64(12), n.(*Scalar).AsInt64())
}

func TestOperateChainedComparison(t *testing.T) {
	// def f(a, b, c):
	//     return {"ok": a < b < c}
	doc := `{"_type": "Module", "body": [
		{"_type": "FunctionDef", "name": "f", "lineno": 1,
		 "args": {"args": [{"arg": "a"}, {"arg": "b"}, {"arg": "c"}], "defaults": []},
		 "decorator_list": [],
		 "body": [
			{"_type": "Return", "lineno": 2,
			 "value": {"_type": "Dict", "lineno": 2,
			  "keys": [{"_type": "Constant", "value": "ok", "lineno": 2}],
			  "values": [{"_type": "Compare", "lineno": 2,
			   "left": {"_type": "Name", "id": "a", "ctx": "Load", "lineno": 2},
			   "ops": ["Lt", "Lt"],
			   "comparators": [
				{"_type": "Name", "id": "b", "ctx": "Load", "lineno": 2},
				{"_type": "Name", "id": "c", "ctx": "Load", "lineno": 2}]}]}}]}]}`

	out := runScript(t, doc, "f", map[string]Value{
		"a": NewInt64(1), "b": NewInt64(2), "c": NewInt64(3),
	})
	ok, _ := out.(*Map).Get("ok")
	require.False(t, ok.IsFalsy())

	out = runScript(t, doc, "f", map[string]Value{
		"a": NewInt64(2), "b": NewInt64(1), "c": NewInt64(3),
	})
	ok, _ = out.(*Map).Get("ok")
	require.True(t, ok.IsFalsy())
}
