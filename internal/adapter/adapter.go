// Package adapter derives, for every declared property type, the strategy
// used to write it to and read it from a parcel, and emits the matching
// instruction sequences.
//
// Adapter is a closed set of variants. Code that needs to act on an adapter
// switches on its concrete type (see EmitWrite, EmitRead, ValueType and
// Describe).
package adapter

import (
	"fmt"
	"strings"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/typemodel"
)

// Adapter reads and writes one value shape.
type Adapter interface {
	isAdapter()
}

// Scalar is a primitive written with a single parcel primitive.
type Scalar struct {
	Type bytecode.Type
}

// Boxed is a boxed primitive or java.util.Date. It unboxes to Prim and
// delegates to the Scalar adapter for Prim.
type Boxed struct {
	Class string
	Prim  bytecode.Type
}

type PlatformKind uint8

const (
	String PlatformKind = iota + 1
	CharSequence
	ByteArray
)

// Platform is a built-in reference type with its own null-aware parcel
// primitive.
type Platform struct {
	Kind PlatformKind
}

// Container is a collection or map. Abstract is the declared capability,
// Concrete the class instantiated on decode. Elems holds one adapter for
// collections and key, value adapters for maps.
type Container struct {
	Abstract string
	Concrete string
	Map      bool
	Elems    []Adapter
}

// Array is a one-dimensional array; deeper arrays nest.
type Array struct {
	Component bytecode.Type
	Elem      Adapter
}

// Enum transmits the constant ordinal.
type Enum struct {
	Class string
}

// External delegates to a pluggable io.parcelgen.TypeAdapter.
type External struct {
	// Adapter is the adapter class.
	Adapter string
	// Type is the assisted type the adapter handles.
	Type typemodel.DeclaredType
	// Singleton adapters are reached through their INSTANCE field instead of
	// being constructed at every call site.
	Singleton bool
}

// Polymorphic defers to the runtime value's own writeToParcel and to the
// CREATOR of the class named in the parcel.
type Polymorphic struct {
	Class string
}

// Serializable is the opaque blob fallback.
type Serializable struct {
	Class string
}

// Sparse is one of the android.util sparse array classes. ValueType is the
// erased type returned by valueAt.
type Sparse struct {
	Class     string
	ValueType bytecode.Type
	Value     Adapter
}

// Optional prefixes its inner adapter with a presence flag.
type Optional struct {
	Inner Adapter
}

func (*Scalar) isAdapter() {}
func (*Boxed) isAdapter() {}
func (*Platform) isAdapter() {}
func (*Container) isAdapter() {}
func (*Array) isAdapter() {}
func (*Enum) isAdapter() {}
func (*External) isAdapter() {}
func (*Polymorphic) isAdapter() {}
func (*Serializable) isAdapter() {}
func (*Sparse) isAdapter() {}
func (*Optional) isAdapter() {}

// ValueType is the type of the value slot an adapter reads into and writes
// from.
func ValueType(a Adapter) bytecode.Type {
	switch a := a.(type) {
	case *Scalar:
		return a.Type
	case *Boxed:
		return bytecode.ObjectType(a.Class)
	case *Platform:
		switch a.Kind {
		case String:
			return stringType
		case CharSequence:
			return charSequenceType
		case ByteArray:
			return byteArrayType
		}
	case *Container:
		return bytecode.ObjectType(a.Abstract)
	case *Array:
		return bytecode.ArrayOf(a.Component)
	case *Enum:
		return bytecode.ObjectType(a.Class)
	case *External:
		return a.Type.Bytecode()
	case *Polymorphic:
		return bytecode.ObjectType(a.Class)
	case *Serializable:
		return bytecode.ObjectType(a.Class)
	case *Sparse:
		return bytecode.ObjectType(a.Class)
	case *Optional:
		return ValueType(a.Inner)
	}
	panic(fmt.Sprintf("adapter: unexpected adapter %T", a))
}

// Describe renders a as a compact tree, e.g.
// "container(java.util.List -> java.util.ArrayList)[optional(boxed(java.lang.Integer))]".
func Describe(a Adapter) string {
	var b strings.Builder
	describe(&b, a)
	return b.String()
}

func describe(b *strings.Builder, a Adapter) {
	switch a := a.(type) {
	case *Scalar:
		b.WriteString(a.Type.ClassName())
	case *Boxed:
		fmt.Fprintf(b, "boxed(%s)", a.Class)
	case *Platform:
		switch a.Kind {
		case String:
			b.WriteString("string")
		case CharSequence:
			b.WriteString("char-sequence")
		case ByteArray:
			b.WriteString("byte-array")
		}
	case *Container:
		fmt.Fprintf(b, "container(%s -> %s)[", a.Abstract, a.Concrete)
		for i, e := range a.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			describe(b, e)
		}
		b.WriteByte(']')
	case *Array:
		b.WriteString("array[")
		describe(b, a.Elem)
		b.WriteByte(']')
	case *Enum:
		fmt.Fprintf(b, "enum(%s)", a.Class)
	case *External:
		kind := "new"
		if a.Singleton {
			kind = "singleton"
		}
		fmt.Fprintf(b, "external(%s, %s, %s)", a.Adapter, a.Type, kind)
	case *Polymorphic:
		fmt.Fprintf(b, "parcelable(%s)", a.Class)
	case *Serializable:
		fmt.Fprintf(b, "serializable(%s)", a.Class)
	case *Sparse:
		fmt.Fprintf(b, "sparse(%s)[", a.Class)
		describe(b, a.Value)
		b.WriteByte(']')
	case *Optional:
		b.WriteString("optional(")
		describe(b, a.Inner)
		b.WriteByte(')')
	default:
		panic(fmt.Sprintf("adapter: unexpected adapter %T", a))
	}
}

var (
	objectType       = bytecode.ObjectType(classmodel.ObjectClass)
	stringType       = bytecode.ObjectType(classmodel.StringClass)
	charSequenceType = bytecode.ObjectType("java.lang.CharSequence")
	byteArrayType    = bytecode.ArrayOf(bytecode.ByteType)
	parcelType       = bytecode.ObjectType(classmodel.ParcelClass)
	parcelableType   = bytecode.ObjectType(classmodel.ParcelableClass)
	serializableType = bytecode.ObjectType(classmodel.SerializableClass)
	classLoaderType  = bytecode.ObjectType(classmodel.ClassLoaderClass)
	iteratorType     = bytecode.ObjectType("java.util.Iterator")
	entryType        = bytecode.ObjectType("java.util.Map$Entry")
	setType          = bytecode.ObjectType("java.util.Set")
)

const (
	collectionOwner = "java.util.Collection"
	mapOwner        = "java.util.Map"
	iteratorOwner   = "java.util.Iterator"
	entryOwner      = "java.util.Map$Entry"
)
