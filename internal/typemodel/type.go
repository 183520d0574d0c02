// Package typemodel is the canonical representation of a declared property
// type: raw, array, parameterized, bounded or type variable, each with an
// independent nullability bit.
//
// Values are immutable. Nullability and boxing are decided from the richer
// declaration metadata when the value is built (see Parse), never re-derived
// from the raw type afterwards.
package typemodel

import (
	"strings"

	"github.com/kanengo/parcelgen/internal/bytecode"
)

type Kind uint8

const (
	Raw Kind = iota + 1
	Array
	Parameterized
	Bounded
	Variable
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Array:
		return "array"
	case Parameterized:
		return "parameterized"
	case Bounded:
		return "bounded"
	case Variable:
		return "variable"
	default:
		return "invalid"
	}
}

const ObjectName = "java.lang.Object"

// DeclaredType is a tagged union; exactly one variant is active.
type DeclaredType struct {
	kind     Kind
	name     string         // Raw, Parameterized: qualified name. Variable: variable name.
	elem     *DeclaredType  // Array element, Bounded inner.
	args     []DeclaredType // Parameterized type arguments.
	nullable bool
}

func NewRaw(name string) DeclaredType {
	return DeclaredType{kind: Raw, name: name}
}

func NewArray(elem DeclaredType) DeclaredType {
	return DeclaredType{kind: Array, elem: &elem}
}

func NewParameterized(name string, args ...DeclaredType) DeclaredType {
	return DeclaredType{kind: Parameterized, name: name, args: append([]DeclaredType(nil), args...)}
}

func NewBounded(inner DeclaredType) DeclaredType {
	return DeclaredType{kind: Bounded, elem: &inner}
}

func NewVariable(name string) DeclaredType {
	return DeclaredType{kind: Variable, name: name}
}

// WithNullable returns a copy of t with the nullable bit set to nullable.
func (t DeclaredType) WithNullable(nullable bool) DeclaredType {
	t.nullable = nullable
	return t
}

func (t DeclaredType) IsZero() bool { return t.kind == 0 }
func (t DeclaredType) Kind() Kind { return t.kind }
func (t DeclaredType) Nullable() bool { return t.nullable }
func (t DeclaredType) NumArgs() int { return len(t.args) }
func (t DeclaredType) IsArray() bool { return t.kind == Array }
func (t DeclaredType) IsVariable() bool { return t.kind == Variable }

// Name is the qualified class name of a raw or parameterized type, or the
// name of a type variable. It is empty for the other variants.
func (t DeclaredType) Name() string {
	switch t.kind {
	case Raw, Parameterized, Variable:
		return t.name
	}
	return ""
}

// Elem returns the element type of an array.
func (t DeclaredType) Elem() DeclaredType {
	if t.kind != Array {
		return DeclaredType{}
	}
	return *t.elem
}

// Inner returns the wrapped type of a bounded type.
func (t DeclaredType) Inner() DeclaredType {
	if t.kind != Bounded {
		return DeclaredType{}
	}
	return *t.elem
}

// Args returns a copy of the type arguments.
func (t DeclaredType) Args() []DeclaredType {
	return append([]DeclaredType(nil), t.args...)
}

func (t DeclaredType) Arg(i int) DeclaredType {
	return t.args[i]
}

// Erasure returns the concrete qualified type used for registry lookups.
// Arrays erase to "<elem>[]", bounded types to their inner type and type
// variables to java.lang.Object.
func (t DeclaredType) Erasure() string {
	switch t.kind {
	case Raw, Parameterized:
		return t.name
	case Array:
		return t.elem.Erasure() + "[]"
	case Bounded:
		return t.elem.Erasure()
	default:
		return ObjectName
	}
}

// Bytecode returns the erased descriptor type.
func (t DeclaredType) Bytecode() bytecode.Type {
	switch t.kind {
	case Raw, Parameterized:
		if p, ok := bytecode.PrimitiveNamed(t.name); ok {
			return p
		}
		return bytecode.ObjectType(t.name)
	case Array:
		return bytecode.ArrayOf(t.elem.Bytecode())
	case Bounded:
		return t.elem.Bytecode()
	default:
		return bytecode.ObjectType(ObjectName)
	}
}

// IsPrimitive reports whether t is a raw primitive type such as int.
func (t DeclaredType) IsPrimitive() bool {
	if t.kind != Raw {
		return false
	}
	_, ok := bytecode.PrimitiveNamed(t.name)
	return ok
}

// IsConcrete reports whether t mentions no type variable.
func (t DeclaredType) IsConcrete() bool {
	switch t.kind {
	case Variable:
		return false
	case Array, Bounded:
		return t.elem.IsConcrete()
	case Parameterized:
		for _, a := range t.args {
			if !a.IsConcrete() {
				return false
			}
		}
	}
	return true
}

// Substitute replaces type variables bound in env. Unbound variables are kept.
// The nullable bit of a replaced variable is merged into the replacement.
func (t DeclaredType) Substitute(env map[string]DeclaredType) DeclaredType {
	switch t.kind {
	case Variable:
		if r, ok := env[t.name]; ok {
			return r.WithNullable(r.nullable || t.nullable)
		}
	case Array:
		e := t.elem.Substitute(env)
		t.elem = &e
	case Bounded:
		e := t.elem.Substitute(env)
		t.elem = &e
	case Parameterized:
		args := make([]DeclaredType, len(t.args))
		for i, a := range t.args {
			args[i] = a.Substitute(env)
		}
		t.args = args
	}
	return t
}

// Equal reports structural equality, nullability included.
func (t DeclaredType) Equal(o DeclaredType) bool {
	return t.String() == o.String()
}

// Key identifies t in adapter caches.
func (t DeclaredType) Key() string {
	return t.String()
}

func (t DeclaredType) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t DeclaredType) write(b *strings.Builder) {
	switch t.kind {
	case Raw, Variable:
		b.WriteString(t.name)
	case Array:
		t.elem.write(b)
		b.WriteString("[]")
	case Parameterized:
		b.WriteString(t.name)
		b.WriteByte('<')
		for i, a := range t.args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteByte('>')
	case Bounded:
		b.WriteString("out ")
		t.elem.write(b)
	default:
		b.WriteString("<invalid>")
	}
	if t.nullable {
		b.WriteByte('?')
	}
}
