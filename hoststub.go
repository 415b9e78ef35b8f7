package nimble

import "fmt"

// HostStub models a host-contract object (Model, llm, Retriever,
// RawEventStore, Dataframe) whose behavior requires real model loading,
// network I/O, or persistent storage that this engine does not provide.
// Rather than under-implement the real method surface, a stub accepts any
// attribute name and fails loudly and uniformly at call time, so scripts
// get a typed "not available in this runtime" StatusError instead of a
// missing-symbol error.
type HostStub struct {
	kind string
	args []Value
}

func newHostStub(kind string, args []Value) *HostStub {
	return &HostStub{kind: kind, args: append([]Value(nil), args...)}
}

// hostStubConstructor builds the native function a module registers under
// e.g. "Model" or "Retriever": calling it with any arguments succeeds and
// returns a stub object, since constructing a handle (unlike operating it)
// needs no real model/network access.
func hostStubConstructor(kind string) *Function {
	return native(kind, func(i *Interp, args []Value) (Value, error) {
		return newHostStub(kind, args), nil
	})
}

func (h *HostStub) Kind() Kind       { return KindForeign }
func (h *HostStub) TypeName() string { return h.kind }
func (h *HostStub) IsFalsy() bool    { return false }
func (h *HostStub) Clone() Value     { return h }

func (h *HostStub) String() string {
	return fmt.Sprintf("<%s: not available in this runtime>", h.kind)
}

// isHostContractStubName reports whether name is one of the host-contract
// constructors a built-in module exposes as a stub, so import errors can
// say "not available in this runtime" instead of a generic missing-member
// KeyError.
func isHostContractStubName(name string) bool {
	switch name {
	case "Model", "Llm", "llm", "Retriever", "RawEventStore", "Dataframe":
		return true
	}
	return false
}

func (h *HostStub) Property(attrIndex int, name string) (Value, error) {
	return native(name, func(i *Interp, args []Value) (Value, error) {
		return nil, statusError(501, "%s.%s is not available in this runtime", h.kind, name)
	}), nil
}
