package adapter

import (
	"fmt"
	"maps"

	"github.com/kanengo/parcelgen/internal/bytecode"
)

type roleKind uint8

const (
	receiverRole roleKind = iota + 1
	parcelRole
	flagsRole
	propertyRole
	valueRole
)

// Role is a logical variable of a generated method.
type Role struct {
	kind roleKind
	name string
}

var (
	Receiver = Role{kind: receiverRole}
	Parcel   = Role{kind: parcelRole}
	Flags    = Role{kind: flagsRole}
	// Value is the value an adapter writes from or reads into.
	Value = Role{kind: valueRole}
)

// Property is the role of the named property.
func Property(name string) Role {
	return Role{kind: propertyRole, name: name}
}

func (r Role) String() string {
	switch r.kind {
	case receiverRole:
		return "receiver"
	case parcelRole:
		return "parcel"
	case flagsRole:
		return "flags"
	case propertyRole:
		return "property " + r.name
	case valueRole:
		return "value"
	}
	return "invalid role"
}

type binding struct {
	slot int
	typ  bytecode.Type
}

// Context binds roles to local slots of the method being built. A Context
// lives for one generated method.
type Context struct {
	b        *bytecode.MethodBuilder
	bindings map[Role]binding
}

func NewContext(b *bytecode.MethodBuilder) *Context {
	return &Context{b: b, bindings: map[Role]binding{}}
}

func (c *Context) Builder() *bytecode.MethodBuilder { return c.b }

// Bind binds r to slot, which holds values of type t.
func (c *Context) Bind(r Role, slot int, t bytecode.Type) *Context {
	c.bindings[r] = binding{slot: slot, typ: t}
	return c
}

// Derive returns a child context with every binding of c and Value rebound
// to slot.
func (c *Context) Derive(slot int, t bytecode.Type) *Context {
	child := &Context{b: c.b, bindings: maps.Clone(c.bindings)}
	return child.Bind(Value, slot, t)
}

func (c *Context) lookup(r Role) binding {
	bd, ok := c.bindings[r]
	if !ok {
		panic(fmt.Sprintf("adapter: %s is not bound", r))
	}
	return bd
}

// Slot returns the slot and type bound to r.
func (c *Context) Slot(r Role) (int, bytecode.Type) {
	bd := c.lookup(r)
	return bd.slot, bd.typ
}

// Load pushes the variable bound to r.
func (c *Context) Load(r Role) *bytecode.MethodBuilder {
	bd := c.lookup(r)
	return c.b.Load(bd.typ, bd.slot)
}

// Store pops the top of the stack into the variable bound to r.
func (c *Context) Store(r Role) *bytecode.MethodBuilder {
	bd := c.lookup(r)
	return c.b.Store(bd.typ, bd.slot)
}

// Local allocates a fresh slot for a value of type t and returns a context
// with Value bound to it.
func (c *Context) Local(t bytecode.Type) *Context {
	return c.Derive(c.b.NewLocal(t), t)
}
