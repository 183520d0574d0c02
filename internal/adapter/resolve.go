package adapter

import (
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/typemodel"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

type family struct {
	concrete string
	isMap    bool
}

func (f family) arity() int {
	if f.isMap {
		return 2
	}
	return 1
}

// containers maps every recognized container type to the class
// instantiated when decoding it.
var containers = map[string]family{
	"java.util.Collection":    {concrete: "java.util.ArrayList"},
	"java.util.List":          {concrete: "java.util.ArrayList"},
	"java.util.ArrayList":     {concrete: "java.util.ArrayList"},
	"java.util.LinkedList":    {concrete: "java.util.LinkedList"},
	"java.util.Set":           {concrete: "java.util.LinkedHashSet"},
	"java.util.LinkedHashSet": {concrete: "java.util.LinkedHashSet"},
	"java.util.HashSet":       {concrete: "java.util.HashSet"},
	"java.util.SortedSet":     {concrete: "java.util.TreeSet"},
	"java.util.NavigableSet":  {concrete: "java.util.TreeSet"},
	"java.util.TreeSet":       {concrete: "java.util.TreeSet"},
	"java.util.Map":           {concrete: "java.util.LinkedHashMap", isMap: true},
	"java.util.LinkedHashMap": {concrete: "java.util.LinkedHashMap", isMap: true},
	"java.util.HashMap":       {concrete: "java.util.HashMap", isMap: true},
	"java.util.SortedMap":     {concrete: "java.util.TreeMap", isMap: true},
	"java.util.NavigableMap":  {concrete: "java.util.TreeMap", isMap: true},
	"java.util.TreeMap":       {concrete: "java.util.TreeMap", isMap: true},
}

const sparseArray = "android.util.SparseArray"

// Resolve returns the adapter for a property of the scope's class.
func (s *Scope) Resolve(p classmodel.PropertySpec) (Adapter, error) {
	return s.resolve(p.Name, p.Type)
}

// ResolveType resolves a declared type outside of any property, e.g. for
// diagnostics.
func (s *Scope) ResolveType(t typemodel.DeclaredType) (Adapter, error) {
	return s.resolve(t.String(), t)
}

func (s *Scope) resolve(prop string, t typemodel.DeclaredType) (Adapter, error) {
	key := t.Key()
	if a, ok := s.cache.Load(key); ok {
		return a, nil
	}
	a, err := s.build(prop, t)
	if err != nil {
		return nil, err
	}
	a, _ = s.cache.LoadOrStore(key, a)
	return a, nil
}

// build applies the resolution order: exact type, array, container, enum,
// sparse array, parcelable, serializable.
func (s *Scope) build(prop string, t typemodel.DeclaredType) (Adapter, error) {
	switch t.Kind() {
	case typemodel.Bounded:
		inner := t.Inner()
		return s.resolve(prop, inner.WithNullable(inner.Nullable() || t.Nullable()))
	case typemodel.Variable:
		return nil, s.unsupported(prop, t)
	}

	if a, ok := s.lookup(t.Erasure()); ok {
		return optional(t, a), nil
	}

	if t.IsArray() {
		elem, err := s.resolve(prop, t.Elem())
		if err != nil {
			return nil, err
		}
		return &Array{Component: t.Elem().Bytecode(), Elem: elem}, nil
	}

	name := t.Erasure()
	if f, ok := containers[name]; ok {
		if t.NumArgs() != f.arity() {
			return nil, xerrors.Target(s.class, xerrors.MsgArity, prop, name, f.arity())
		}
		c := &Container{Abstract: name, Concrete: f.concrete, Map: f.isMap}
		for _, arg := range t.Args() {
			elem, err := s.resolve(prop, arg)
			if err != nil {
				return nil, err
			}
			c.Elems = append(c.Elems, elem)
		}
		return c, nil
	}

	o := s.registry.oracle
	if name != classmodel.EnumClass && o.Is(name, classmodel.EnumClass) {
		return optional(t, &Enum{Class: name}), nil
	}

	if name == sparseArray {
		if t.NumArgs() != 1 {
			return nil, xerrors.Target(s.class, xerrors.MsgSparseArgument, prop, name)
		}
		switch arg := t.Arg(0); arg.Kind() {
		case typemodel.Bounded, typemodel.Variable:
			return nil, xerrors.Target(s.class, xerrors.MsgSparseArgument, prop, name)
		default:
			value, err := s.resolve(prop, arg)
			if err != nil {
				return nil, err
			}
			return &Sparse{Class: name, ValueType: objectType, Value: value}, nil
		}
	}

	if o.Is(name, classmodel.ParcelableClass) {
		return &Polymorphic{Class: name}, nil
	}
	if o.Is(name, classmodel.SerializableClass) {
		return &Serializable{Class: name}, nil
	}
	return nil, s.unsupported(prop, t)
}

func (s *Scope) unsupported(prop string, t typemodel.DeclaredType) error {
	return xerrors.Target(s.class, xerrors.MsgUnsupportedType, prop, t)
}

// optional wraps nullable scalar, boxed, enum and external adapters in an
// Optional. The other adapters encode null themselves.
func optional(t typemodel.DeclaredType, a Adapter) Adapter {
	if !t.Nullable() {
		return a
	}
	switch a.(type) {
	case *Scalar, *Boxed, *Enum, *External:
		return &Optional{Inner: a}
	}
	return a
}
