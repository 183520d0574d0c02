// Package hierarchy answers subtype queries over the class universe,
// including arrays and primitives.
package hierarchy

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/kanengo/parcelgen/internal/bytecode"
)

// ObjectName is the universal base class.
const ObjectName = "java.lang.Object"

// ClassPath exposes the declared supertypes of known classes.
type ClassPath interface {
	// Supertypes returns the declared superclass and interfaces of the class
	// with the dotted name. ok is false for classes outside the universe.
	Supertypes(name string) (super string, interfaces []string, ok bool)
}

type query struct {
	sub, sup string
}

// Oracle is safe for concurrent use; answers are memoized.
type Oracle struct {
	path ClassPath
	memo *xsync.MapOf[query, bool]
}

func New(path ClassPath) *Oracle {
	return &Oracle{path: path, memo: xsync.NewMapOf[query, bool]()}
}

// IsSubclassOf reports whether t is ancestor or a subtype of it.
//
// Method descriptors and zero types are not types of values; passing one is
// an engine defect and panics.
func (o *Oracle) IsSubclassOf(t, ancestor bytecode.Type) bool {
	mustBeValueType(t)
	mustBeValueType(ancestor)
	return o.isSubclassOf(t, ancestor)
}

func mustBeValueType(t bytecode.Type) {
	if t.IsZero() || t.Sort() == bytecode.MethodSort || t == bytecode.VoidType {
		panic(fmt.Sprintf("hierarchy: %q is not a value type", t.Descriptor()))
	}
}

func (o *Oracle) isSubclassOf(t, ancestor bytecode.Type) bool {
	if t == ancestor {
		return true
	}
	if t.IsPrimitive() || ancestor.IsPrimitive() {
		return false
	}
	if ancestor.ClassName() == ObjectName {
		return true
	}
	if t.ClassName() == ObjectName {
		return false
	}
	tArr, aArr := t.Sort() == bytecode.ArraySort, ancestor.Sort() == bytecode.ArraySort
	switch {
	case tArr && aArr:
		return o.isSubclassOf(t.Elem(), ancestor.Elem())
	case tArr || aArr:
		return false
	}
	return o.classExtends(t.ClassName(), ancestor.ClassName())
}

// classExtends walks the declared supertypes of sub.
func (o *Oracle) classExtends(sub, sup string) bool {
	q := query{sub, sup}
	if v, ok := o.memo.Load(q); ok {
		return v
	}
	v := o.search(sub, sup, map[string]bool{})
	o.memo.Store(q, v)
	return v
}

func (o *Oracle) search(sub, sup string, seen map[string]bool) bool {
	if sub == sup {
		return true
	}
	if seen[sub] {
		return false
	}
	seen[sub] = true
	super, interfaces, ok := o.path.Supertypes(sub)
	if !ok {
		return false
	}
	if super != "" && o.search(super, sup, seen) {
		return true
	}
	for _, i := range interfaces {
		if o.search(i, sup, seen) {
			return true
		}
	}
	return false
}

// Is is a convenience form of IsSubclassOf for two class names.
func (o *Oracle) Is(sub, sup string) bool {
	return o.IsSubclassOf(bytecode.ObjectType(sub), bytecode.ObjectType(sup))
}
