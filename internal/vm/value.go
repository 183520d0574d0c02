package vm

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/runtime/parcel"
)

// Value is anything the machine can hold in a slot or on the stack:
//
//	int32            boolean, byte, char, short, int
//	int64, float32, float64
//	nil              null
//	string           java.lang.String
//	*Box             boxed primitives and java.util.Date
//	*EnumConst       enum constants
//	*Object          instances of loaded classes
//	*Array           arrays
//	*List, *Map      collections
//	*Sparse          android.util sparse arrays
//	*parcel.Parcel   android.os.Parcel
//	bytecode.Type    class literals
type Value = any

// Object is an instance of a loaded class.
type Object struct {
	Class  string
	Fields map[string]Value
}

// Box holds a primitive in its stack form (int32 for int-like kinds).
type Box struct {
	Class string
	V     Value
}

type EnumConst struct {
	Class   string
	Name    string
	Ordinal int32
}

func (e *EnumConst) String() string { return e.Class + "." + e.Name }

type Array struct {
	Elem   bytecode.Type
	Values []Value
}

// List backs lists and sets. Sets reject duplicates; TreeSet keeps its
// items ordered.
type List struct {
	Class string
	Items []Value
}

// Map keeps insertion order except for TreeMap, which is key ordered.
type Map struct {
	Class string
	Keys  []Value
	Vals  []Value
}

// Sparse is an int-keyed array ordered by key.
type Sparse struct {
	Class string
	Keys  []int32
	Vals  []Value
}

type iterator struct {
	items []Value
	next  int
}

type entry struct {
	key, val Value
}

type classLoader struct{}

// Boxing helpers for building values in tests and natives.

func Bool(v bool) *Box {
	if v {
		return &Box{Class: "java.lang.Boolean", V: int32(1)}
	}
	return &Box{Class: "java.lang.Boolean", V: int32(0)}
}

func Int(v int32) *Box { return &Box{Class: "java.lang.Integer", V: v} }
func Long(v int64) *Box { return &Box{Class: "java.lang.Long", V: v} }
func Short(v int16) *Box { return &Box{Class: "java.lang.Short", V: int32(v)} }
func Byte(v int8) *Box { return &Box{Class: "java.lang.Byte", V: int32(v)} }
func Char(v uint16) *Box { return &Box{Class: "java.lang.Character", V: int32(v)} }
func Float(v float32) *Box { return &Box{Class: "java.lang.Float", V: v} }
func Double(v float64) *Box { return &Box{Class: "java.lang.Double", V: v} }
func Date(millis int64) *Box { return &Box{Class: "java.util.Date", V: millis} }

func NewList(class string, items ...Value) *List {
	l := &List{Class: class}
	for _, it := range items {
		l.add(it)
	}
	return l
}

func NewMap(class string) *Map {
	return &Map{Class: class}
}

// Put sets key to val and returns m.
func (m *Map) Put(key, val Value) *Map {
	m.put(key, val)
	return m
}

func (m *Map) Get(key Value) (Value, bool) {
	for i, k := range m.Keys {
		if Equal(k, key) {
			return m.Vals[i], true
		}
	}
	return nil, false
}

func NewSparse(class string) *Sparse {
	return &Sparse{Class: class}
}

// Put sets key to val and returns s.
func (s *Sparse) Put(key int32, val Value) *Sparse {
	s.put(key, val)
	return s
}

func NewArray(elem bytecode.Type, values ...Value) *Array {
	return &Array{Elem: elem, Values: append([]Value{}, values...)}
}

// Equal reports deep structural equality of two values.
func Equal(a, b Value) bool {
	return reflect.DeepEqual(a, b)
}

func isSet(class string) bool {
	switch class {
	case "java.util.HashSet", "java.util.LinkedHashSet", "java.util.TreeSet":
		return true
	}
	return false
}

func (l *List) add(v Value) bool {
	if isSet(l.Class) {
		if slices.ContainsFunc(l.Items, func(it Value) bool { return Equal(it, v) }) {
			return false
		}
	}
	l.Items = append(l.Items, v)
	if l.Class == "java.util.TreeSet" {
		slices.SortStableFunc(l.Items, compare)
	}
	return true
}

func (m *Map) put(key, val Value) Value {
	for i, k := range m.Keys {
		if Equal(k, key) {
			old := m.Vals[i]
			m.Vals[i] = val
			return old
		}
	}
	if m.Class == "java.util.TreeMap" {
		i, _ := slices.BinarySearchFunc(m.Keys, key, compare)
		m.Keys = slices.Insert(m.Keys, i, key)
		m.Vals = slices.Insert(m.Vals, i, val)
		return nil
	}
	m.Keys = append(m.Keys, key)
	m.Vals = append(m.Vals, val)
	return nil
}

func (s *Sparse) put(key int32, val Value) {
	i, found := slices.BinarySearch(s.Keys, key)
	if found {
		s.Vals[i] = val
		return
	}
	s.Keys = slices.Insert(s.Keys, i, key)
	s.Vals = slices.Insert(s.Vals, i, val)
}

// compare orders the naturally comparable values: strings, boxes and enum
// constants.
func compare(a, b Value) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case *Box:
		if y, ok := b.(*Box); ok {
			return compareScalar(x.V, y.V)
		}
	case *EnumConst:
		if y, ok := b.(*EnumConst); ok {
			return cmp.Compare(x.Ordinal, y.Ordinal)
		}
	}
	panic(vmErrorf("java.lang.ClassCastException: %T is not comparable with %T", a, b))
}

func compareScalar(a, b Value) int {
	switch x := a.(type) {
	case int32:
		return cmp.Compare(x, b.(int32))
	case int64:
		return cmp.Compare(x, b.(int64))
	case float32:
		return cmp.Compare(x, b.(float32))
	case float64:
		return cmp.Compare(x, b.(float64))
	}
	panic(vmErrorf("cannot compare %T", a))
}

// ClassOf returns the runtime class name of v, "" for null.
func ClassOf(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return "java.lang.String"
	case *Object:
		return x.Class
	case *Box:
		return x.Class
	case *EnumConst:
		return x.Class
	case *List:
		return x.Class
	case *Map:
		return x.Class
	case *Sparse:
		return x.Class
	case *Array:
		return bytecode.ArrayOf(x.Elem).ClassName()
	case *parcel.Parcel:
		return "android.os.Parcel"
	case bytecode.Type:
		return "java.lang.Class"
	case *iterator:
		return "java.util.Iterator"
	case *entry:
		return "java.util.Map$Entry"
	case *classLoader:
		return "java.lang.ClassLoader"
	}
	return fmt.Sprintf("<%T>", v)
}

// zero is the default value of a slot of type t.
func zero(t bytecode.Type) Value {
	switch t.Sort() {
	case bytecode.Boolean, bytecode.Char, bytecode.Byte, bytecode.Short, bytecode.Int:
		return int32(0)
	case bytecode.Long:
		return int64(0)
	case bytecode.Float:
		return float32(0)
	case bytecode.Double:
		return float64(0)
	}
	return nil
}
