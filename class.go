package nimble

import "fmt"

// Class is a first-class value with a member table (attribute name ->
// value). Instantiating a class produces an Object with its own
// per-instance member table; attribute lookup falls back from instance to
// class; calling a method on an instance prepends the instance as the
// first argument. attrIndex (the interned attribute-index the AST
// carries) is accepted by Property/SetProperty for parity with the
// rest of the value model's dotted-access contract, but lookup here is
// name-keyed: unlike the fixed member layout of a compiled language, a
// script class's member set is only known by executing its body, so there
// is no benefit to indexing by position the way a compiled struct would.
type Class struct {
	Name    string
	Bases   []*Class
	Members *Map
}

func NewClass(name string, bases []*Class) *Class {
	return &Class{Name: name, Bases: bases, Members: NewMap()}
}

func (c *Class) Kind() Kind       { return KindClass }
func (c *Class) TypeName() string { return "Class" }
func (c *Class) IsFalsy() bool    { return false }
func (c *Class) Clone() Value     { return c }
func (c *Class) String() string   { return fmt.Sprintf("<class %s>", c.Name) }

func (c *Class) lookup(name string) (Value, bool) {
	if v, ok := c.Members.Get(name); ok {
		return v, true
	}
	for _, base := range c.Bases {
		if v, ok := base.lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Class) Property(attrIndex int, name string) (Value, error) {
	if v, ok := c.lookup(name); ok {
		return v, nil
	}
	return nil, typeError(token0(), "class %s has no attribute %q", c.Name, name)
}

func (c *Class) SetProperty(attrIndex int, name string, value Value) error {
	c.Members.Set(name, value)
	return nil
}

// Call instantiates the class: calling Class(args...) builds a new Object
// and, if the class (or a base) defines __init__, calls it with the
// object prepended as the receiver.
func (c *Class) Call(i *Interp, args []Value) (Value, error) {
	obj := &Object{Class: c, Members: NewMap()}
	if initFn, ok := c.lookup("__init__"); ok {
		if fn, ok := initFn.(*Function); ok {
			if _, err := fn.Call(i, append([]Value{obj}, args...)); err != nil {
				return nil, err
			}
		}
	}
	return obj, nil
}

// Object is an instance of a Class with its own per-instance member table.
type Object struct {
	Class   *Class
	Members *Map
}

func (o *Object) Kind() Kind       { return KindObject }
func (o *Object) TypeName() string { return o.Class.Name }
func (o *Object) IsFalsy() bool    { return false }
func (o *Object) Clone() Value     { return o }
func (o *Object) String() string   { return fmt.Sprintf("<%s object>", o.Class.Name) }

// Property looks up an instance attribute, falling back to the class (and
// its bases) for methods, binding a method as a Method on the instance.
func (o *Object) Property(attrIndex int, name string) (Value, error) {
	if v, ok := o.Members.Get(name); ok {
		return v, nil
	}
	if v, ok := o.Class.lookup(name); ok {
		if fn, ok := v.(*Function); ok {
			return &Method{Receiver: o, Fn: fn}, nil
		}
		return v, nil
	}
	return nil, typeError(token0(), "%s object has no attribute %q", o.Class.Name, name)
}

func (o *Object) SetProperty(attrIndex int, name string, value Value) error {
	o.Members.Set(name, value)
	return nil
}

func (o *Object) Equals(otherV Value) bool {
	other, ok := otherV.(*Object)
	return ok && o == other
}
