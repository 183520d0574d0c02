package classmodel

import (
	"sync"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/typemodel"
)

// Well-known platform class names.
const (
	ObjectClass       = typemodel.ObjectName
	EnumClass         = "java.lang.Enum"
	StringClass       = "java.lang.String"
	ClassClass        = "java.lang.Class"
	ClassLoaderClass  = "java.lang.ClassLoader"
	SerializableClass = "java.io.Serializable"
	DateClass         = "java.util.Date"
	ParcelClass       = "android.os.Parcel"
	ParcelableClass   = "android.os.Parcelable"
	CreatorClass      = "android.os.Parcelable$Creator"
	TypeAdapterClass  = "io.parcelgen.TypeAdapter"
	AutoParcelable    = "io.parcelgen.AutoParcelable"
)

type platformDecl struct {
	name       string
	kind       Kind
	access     bytecode.Access
	params     []string
	super      string
	interfaces []string
	methods    []Method
}

func platformDecls() []platformDecl {
	const (
		pub      = bytecode.Public
		final    = bytecode.Public | bytecode.Final
		abstract = bytecode.Public | bytecode.Abstract
	)
	iface := func(name string, params []string, supers ...string) platformDecl {
		return platformDecl{name: name, kind: KindInterface, access: abstract | bytecode.Interface, params: params, interfaces: supers}
	}
	class := func(access bytecode.Access, name string, params []string, super string, interfaces ...string) platformDecl {
		return platformDecl{name: name, kind: KindClass, access: access, params: params, super: super, interfaces: interfaces}
	}
	annotation := func(name string) platformDecl {
		return platformDecl{name: name, kind: KindAnnotation, access: abstract | bytecode.Interface}
	}
	boxed := func(name string, number bool) platformDecl {
		super := ObjectClass
		if number {
			super = "java.lang.Number"
		}
		return class(final, name, nil, super, "java.lang.Comparable<"+name+">", SerializableClass)
	}
	e, t, kv := []string{"E"}, []string{"T"}, []string{"K", "V"}

	return []platformDecl{
		{name: ObjectClass, kind: KindClass, access: pub},
		class(abstract, EnumClass, e, ObjectClass, "java.lang.Comparable<E>", SerializableClass),
		class(final, StringClass, nil, ObjectClass, "java.lang.CharSequence", "java.lang.Comparable<java.lang.String>", SerializableClass),
		class(final, ClassClass, t, ObjectClass),
		class(abstract, ClassLoaderClass, nil, ObjectClass),
		iface("java.lang.CharSequence", nil),
		iface("java.lang.Comparable", t),
		iface("java.lang.Iterable", t),
		class(abstract, "java.lang.Number", nil, ObjectClass, SerializableClass),
		boxed("java.lang.Boolean", false),
		boxed("java.lang.Character", false),
		boxed("java.lang.Byte", true),
		boxed("java.lang.Short", true),
		boxed("java.lang.Integer", true),
		boxed("java.lang.Long", true),
		boxed("java.lang.Float", true),
		boxed("java.lang.Double", true),
		iface(SerializableClass, nil),

		iface("java.util.Iterator", e),
		iface("java.util.Collection", e, "java.lang.Iterable<E>"),
		iface("java.util.List", e, "java.util.Collection<E>"),
		iface("java.util.Set", e, "java.util.Collection<E>"),
		iface("java.util.SortedSet", e, "java.util.Set<E>"),
		iface("java.util.NavigableSet", e, "java.util.SortedSet<E>"),
		class(pub, "java.util.ArrayList", e, ObjectClass, "java.util.List<E>", SerializableClass),
		class(pub, "java.util.LinkedList", e, ObjectClass, "java.util.List<E>", SerializableClass),
		class(pub, "java.util.HashSet", e, ObjectClass, "java.util.Set<E>", SerializableClass),
		class(pub, "java.util.LinkedHashSet", e, "java.util.HashSet<E>", "java.util.Set<E>", SerializableClass),
		class(pub, "java.util.TreeSet", e, ObjectClass, "java.util.NavigableSet<E>", SerializableClass),
		iface("java.util.Map", kv),
		iface("java.util.Map$Entry", kv),
		iface("java.util.SortedMap", kv, "java.util.Map<K, V>"),
		iface("java.util.NavigableMap", kv, "java.util.SortedMap<K, V>"),
		class(pub, "java.util.HashMap", kv, ObjectClass, "java.util.Map<K, V>", SerializableClass),
		class(pub, "java.util.LinkedHashMap", kv, "java.util.HashMap<K, V>", "java.util.Map<K, V>", SerializableClass),
		class(pub, "java.util.TreeMap", kv, ObjectClass, "java.util.NavigableMap<K, V>", SerializableClass),
		class(pub, DateClass, nil, ObjectClass, SerializableClass, "java.lang.Comparable<java.util.Date>"),

		class(final, ParcelClass, nil, ObjectClass),
		iface(ParcelableClass, nil),
		iface(CreatorClass, t),
		class(pub, "android.util.SparseArray", e, ObjectClass),
		class(pub, "android.util.SparseIntArray", nil, ObjectClass),
		class(pub, "android.util.SparseLongArray", nil, ObjectClass),
		class(pub, "android.util.SparseBooleanArray", nil, ObjectClass),

		iface(AutoParcelable, nil, ParcelableClass),
		{
			name: TypeAdapterClass, kind: KindInterface, access: abstract | bytecode.Interface, params: t,
			methods: []Method{
				{
					Access: abstract,
					Name:   "fromParcel",
					Params: []typemodel.DeclaredType{typemodel.NewRaw(ParcelClass)},
					Return: typemodel.NewVariable("T"),
				},
				{
					Access: abstract,
					Name:   "toParcel",
					Params: []typemodel.DeclaredType{typemodel.NewVariable("T"), typemodel.NewRaw(ParcelClass), typemodel.NewRaw("int")},
				},
			},
		},
		annotation(GlobalAdapterTag),
		annotation(LocalAdaptersTag),
	}
}

var platform = sync.OnceValue(func() []*ClassInfo {
	decls := platformDecls()
	out := make([]*ClassInfo, 0, len(decls))
	for _, d := range decls {
		c := &ClassInfo{
			Name:       d.name,
			Kind:       d.kind,
			Access:     d.access,
			Platform:   true,
			TypeParams: d.params,
			Methods:    d.methods,
		}
		if d.super != "" {
			c.Super = typemodel.MustParse(d.super, d.params...)
		}
		for _, i := range d.interfaces {
			c.Interfaces = append(c.Interfaces, typemodel.MustParse(i, d.params...))
		}
		out = append(out, c)
	}
	return out
})

// Platform returns the platform class declarations. The slice and its
// elements are shared and must not be modified.
func Platform() []*ClassInfo {
	return platform()
}
