package nimble

import (
	"fmt"
	"math"
	"regexp"
	"sync/atomic"
	"time"
)

// registerBuiltinModules builds the export tables for the three built-in
// modules: "nimblenet" (the host-facing surface: config, events,
// concurrency knobs, model/LLM/dataframe access),
// "nimblenetInternalTesting" (test-only introspection and simulation
// helpers), and "regex" (pattern matching). Each module is a plain *Map
// of name -> native Function; every member is either a constant or a
// callable, and a Map already satisfies both.
func (t *Task) registerBuiltinModules() {
	t.builtinModules["nimblenet"] = t.nimblenetModule()
	t.builtinModules["nimblenetInternalTesting"] = t.internalModule()
	t.builtinModules["regex"] = regexModule()
}

func native(name string, fn NativeFunc) *Function {
	return &Function{Name: name, Native: fn}
}

// parseDType maps a dtype name (as spelled by DType.String()) to its DType
// constant, used by zeros(shape, dtype) and tensor(list, dtype) to turn a
// script-supplied string into the tag tensor.go's buffer kernels switch on.
func parseDType(name string) (DType, error) {
	switch name {
	case "Bool":
		return DBool, nil
	case "Int32":
		return DInt32, nil
	case "Int64":
		return DInt64, nil
	case "Float":
		return DFloat, nil
	case "Double":
		return DDouble, nil
	case "String":
		return DString, nil
	case "UnicodeString":
		return DUnicodeString, nil
	}
	return 0, argumentError(token0(), "unrecognized dtype %q", name)
}

func (t *Task) nimblenetModule() *Map {
	m := NewMap()
	m.Set("get_config", native("get_config", func(i *Interp, args []Value) (Value, error) {
		return t.getConfig()
	}))
	m.Set("is_ready", native("is_ready", func(i *Interp, args []Value) (Value, error) {
		return NewBool(t.IsReady()), nil
	}))
	m.Set("sync", native("sync", func(i *Interp, args []Value) (Value, error) {
		return t.syncCall(i, args)
	}))
	m.Set("run_parallel", native("run_parallel", func(i *Interp, args []Value) (Value, error) {
		return t.runParallelCall(i, args)
	}))
	m.Set("set_threadpool_threads", native("set_threadpool_threads", func(i *Interp, args []Value) (Value, error) {
		var n int
		if err := UnpackArgs(args, "n", &n); err != nil {
			return nil, err
		}
		t.pool().Resize(n)
		return None, nil
	}))
	m.Set("ConcurrentExecutor", native("ConcurrentExecutor", func(i *Interp, args []Value) (Value, error) {
		if err := UnpackArgs(args); err != nil {
			return nil, err
		}
		return NewConcurrentExecutor(t), nil
	}))

	// zeros/tensor are the only module-level tensor constructors. Reshape,
	// sort, argsort, topk, arrange, min/max/sum/mean live as methods on the
	// Tensor value itself (tensor.go's Property), reached via t.reshape(...)
	// etc. once a tensor exists.
	m.Set("zeros", native("zeros", func(i *Interp, args []Value) (Value, error) {
		var shape *List
		dtypeName := "Double"
		if err := UnpackArgs(args, "shape", &shape, "dtype?", &dtypeName); err != nil {
			return nil, err
		}
		dims, err := intShapeFromList(shape)
		if err != nil {
			return nil, err
		}
		dt, err := parseDType(dtypeName)
		if err != nil {
			return nil, err
		}
		return NewTensor(dt, dims), nil
	}))
	m.Set("tensor", native("tensor", func(i *Interp, args []Value) (Value, error) {
		var list *List
		dtypeName := "Double"
		if err := UnpackArgs(args, "list", &list, "dtype?", &dtypeName); err != nil {
			return nil, err
		}
		dt, err := parseDType(dtypeName)
		if err != nil {
			return nil, err
		}
		return list.ToTensor(dt)
	}))

	// min/max/sum/mean(tensor): module-level aliases of the same reduce
	// kernels tensor.go's Property exposes as t.sum()/t.mean()/...
	m.Set("min", native("min", tensorReduceBuiltin((*Tensor).Min)))
	m.Set("max", native("max", tensorReduceBuiltin((*Tensor).Max)))
	m.Set("sum", native("sum", tensorReduceBuiltin((*Tensor).Sum)))
	m.Set("mean", native("mean", tensorReduceBuiltin((*Tensor).Mean)))

	m.Set("exp", native("exp", func(i *Interp, args []Value) (Value, error) {
		var x float64
		if err := UnpackArgs(args, "x", &x); err != nil {
			return nil, err
		}
		return NewDouble(math.Exp(x)), nil
	}))
	m.Set("pow", native("pow", func(i *Interp, args []Value) (Value, error) {
		var x, y float64
		if err := UnpackArgs(args, "x", &x, "y", &y); err != nil {
			return nil, err
		}
		return NewDouble(math.Pow(x, y)), nil
	}))
	m.Set("time", native("time", func(i *Interp, args []Value) (Value, error) {
		return NewDouble(float64(time.Now().UnixNano()) / 1e9), nil
	}))

	// log(type, dataMap) records an on-device telemetry event. Hosts wire
	// their own sinks for these; here the event is rendered as one line on
	// stdout.
	m.Set("log", native("log", func(i *Interp, args []Value) (Value, error) {
		var eventType string
		var data *Map
		if err := UnpackArgs(args, "type", &eventType, "dataMap", &data); err != nil {
			return nil, err
		}
		payload, err := toJSONString(data)
		if err != nil {
			return nil, err
		}
		fmt.Printf("nimblenet event %s: %s\n", eventType, payload)
		return None, nil
	}))

	m.Set("parse_json", native("parse_json", func(i *Interp, args []Value) (Value, error) {
		var s string
		if err := UnpackArgs(args, "s", &s); err != nil {
			return nil, err
		}
		return parseJSON(s)
	}))
	m.Set("to_json_str", native("to_json_str", func(i *Interp, args []Value) (Value, error) {
		var v Value
		if err := UnpackArgs(args, "v", &v); err != nil {
			return nil, err
		}
		s, err := toJSONString(v)
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	}))

	// Model/llm/Retriever/RawEventStore/Dataframe: thin host-contract
	// stubs (hoststub.go). Constructors always succeed; every method call
	// fails with a StatusError.
	m.Set("Model", hostStubConstructor("Model"))
	m.Set("llm", hostStubConstructor("Llm"))
	m.Set("Retriever", hostStubConstructor("Retriever"))
	m.Set("RawEventStore", hostStubConstructor("RawEventStore"))
	m.Set("Dataframe", hostStubConstructor("Dataframe"))

	m.Set("list_compatible_llms", native("list_compatible_llms", func(i *Interp, args []Value) (Value, error) {
		// No model registry exists in this runtime (model loading is an
		// explicit Non-goal), so the honest answer is always "none" rather
		// than a StatusError — this is a query, not an operation on a
		// model handle, and an empty list is a valid, well-typed result.
		return NewList(nil), nil
	}))
	return m
}

// tensorReduceBuiltin adapts a Tensor method (Min/Max/Sum/Mean, each
// `func(*Tensor) (Value, error)`) into the nimblenet-level
// min(tensor)/max(tensor)/sum(tensor)/mean(tensor) builtins, sharing the
// exact reduce kernels tensor.go's Property path uses for t.sum() etc.
func tensorReduceBuiltin(method func(*Tensor) (Value, error)) NativeFunc {
	return func(i *Interp, args []Value) (Value, error) {
		var tn *Tensor
		if err := UnpackArgs(args, "tensor", &tn); err != nil {
			return nil, err
		}
		return method(tn)
	}
}

func (t *Task) internalModule() *Map {
	m := NewMap()
	m.Set("assert_equals", native("assert_equals", func(i *Interp, args []Value) (Value, error) {
		var got, want Value
		if err := UnpackArgs(args, "got", &got, "want", &want); err != nil {
			return nil, err
		}
		if !valuesEqual(got, want) {
			return nil, newError(ErrAssertion, token0(), "assert_equals failed: %s != %s", got.String(), want.String())
		}
		return None, nil
	}))
	m.Set("get_chrono_time", native("get_chrono_time", func(i *Interp, args []Value) (Value, error) {
		return NewInt64(time.Now().UnixMilli()), nil
	}))
	m.Set("create_simulated_char_stream", native("create_simulated_char_stream", func(i *Interp, args []Value) (Value, error) {
		var text string
		intervalMs := 0
		if err := UnpackArgs(args, "text", &text, "intervalMs?", &intervalMs); err != nil {
			return nil, err
		}
		return newCharStream(text, intervalMs), nil
	}))
	m.Set("Retriever", hostStubConstructor("Retriever"))
	return m
}

// regexModule wraps Go's RE2-based regexp package; RE2's linear-time
// guarantee is a better fit for an on-device runtime than a backtracking
// engine. Divergences from CPython's `re`: no capture-group
// backreferences or lookaround assertions (RE2 cannot express them),
// `match` reports match-at-start rather than building a match object, and
// search/finditer return plain Maps/Lists describing a match rather than
// a stateful `re.Match` object.
func regexModule() *Map {
	m := NewMap()
	m.Set("match", native("match", func(i *Interp, args []Value) (Value, error) {
		var pattern, text string
		if err := UnpackArgs(args, "pattern", &pattern, "text", &text); err != nil {
			return nil, err
		}
		// match-at-start only: anchored at position 0 but not at the end,
		// unlike fullmatch below.
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return nil, argumentError(token0(), "invalid regex %q: %v", pattern, err)
		}
		return NewBool(re.MatchString(text)), nil
	}))
	m.Set("search", native("search", func(i *Interp, args []Value) (Value, error) {
		re, text, err := compileRegexArgs(args)
		if err != nil {
			return nil, err
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			return None, nil
		}
		return matchResult(text, loc), nil
	}))
	m.Set("fullmatch", native("fullmatch", func(i *Interp, args []Value) (Value, error) {
		var pattern, text string
		if err := UnpackArgs(args, "pattern", &pattern, "text", &text); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return nil, argumentError(token0(), "invalid regex %q: %v", pattern, err)
		}
		return NewBool(re.MatchString(text)), nil
	}))
	m.Set("split", native("split", func(i *Interp, args []Value) (Value, error) {
		re, text, err := compileRegexArgs(args)
		if err != nil {
			return nil, err
		}
		parts := re.Split(text, -1)
		out := make([]Value, len(parts))
		for idx, s := range parts {
			out[idx] = NewString(s)
		}
		return NewList(out), nil
	}))
	m.Set("findall", native("findall", func(i *Interp, args []Value) (Value, error) {
		re, text, err := compileRegexArgs(args)
		if err != nil {
			return nil, err
		}
		matches := re.FindAllString(text, -1)
		out := make([]Value, len(matches))
		for idx, s := range matches {
			out[idx] = NewString(s)
		}
		return NewList(out), nil
	}))
	m.Set("finditer", native("finditer", func(i *Interp, args []Value) (Value, error) {
		re, text, err := compileRegexArgs(args)
		if err != nil {
			return nil, err
		}
		locs := re.FindAllStringIndex(text, -1)
		out := make([]Value, len(locs))
		for idx, loc := range locs {
			out[idx] = matchResult(text, loc)
		}
		// Eagerly materialized into a List rather than a true lazy
		// iterator — the one documented divergence from CPython's
		// re.finditer, which yields match objects one at a time; nothing
		// in this runtime's comprehension/for-loop machinery needs
		// laziness here since regex results are never unbounded.
		return NewList(out), nil
	}))
	m.Set("sub", native("sub", func(i *Interp, args []Value) (Value, error) {
		var pattern, repl, text string
		if err := UnpackArgs(args, "pattern", &pattern, "repl", &repl, "text", &text); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, argumentError(token0(), "invalid regex %q: %v", pattern, err)
		}
		return NewString(re.ReplaceAllString(text, pythonReplToGo(repl))), nil
	}))
	m.Set("subn", native("subn", func(i *Interp, args []Value) (Value, error) {
		var pattern, repl, text string
		if err := UnpackArgs(args, "pattern", &pattern, "repl", &repl, "text", &text); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, argumentError(token0(), "invalid regex %q: %v", pattern, err)
		}
		count := len(re.FindAllStringIndex(text, -1))
		out := re.ReplaceAllString(text, pythonReplToGo(repl))
		return NewTuple([]Value{NewString(out), NewInt64(int64(count))}), nil
	}))
	return m
}

func compileRegexArgs(args []Value) (*regexp.Regexp, string, error) {
	var pattern, text string
	if err := UnpackArgs(args, "pattern", &pattern, "text", &text); err != nil {
		return nil, "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, "", argumentError(token0(), "invalid regex %q: %v", pattern, err)
	}
	return re, text, nil
}

// matchResult builds the simplified match description search/finditer
// return: a Map with the matched substring and its [start,end) byte offsets,
// rather than a full re.Match object — see regexModule's doc comment.
func matchResult(text string, loc []int) *Map {
	m := NewMap()
	m.Set("match", NewString(text[loc[0]:loc[1]]))
	m.Set("start", NewInt64(int64(loc[0])))
	m.Set("end", NewInt64(int64(loc[1])))
	return m
}

// pythonReplToGo rewrites Python re.sub's `\1`-style backreferences into
// Go regexp's `$1` syntax, the one syntactic divergence between the two
// replacement-string dialects that's cheap to paper over.
func pythonReplToGo(repl string) string {
	out := make([]byte, 0, len(repl))
	for i := 0; i < len(repl); i++ {
		if repl[i] == '\\' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			out = append(out, '$', repl[i+1])
			i++
			continue
		}
		out = append(out, repl[i])
	}
	return string(out)
}

// cancelFlag is the shared atomic cancel signal run_parallel workers
// check before starting a queued closure.
type cancelFlag struct{ v atomic.Bool }

func (c *cancelFlag) set()        { c.v.Store(true) }
func (c *cancelFlag) isSet() bool { return c.v.Load() }
