package adapter

import (
	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/internal/typemodel"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

const fromParcel = "fromParcel"

// newExternal validates the pluggable adapter class c. Every failure is an
// InvalidAdapter error naming c.
func newExternal(u *classmodel.Universe, o *hierarchy.Oracle, c *classmodel.ClassInfo) (*External, error) {
	switch {
	case !o.Is(c.Name, classmodel.TypeAdapterClass):
		return nil, xerrors.Adapter(c.Name, xerrors.MsgNotAnAdapter, classmodel.TypeAdapterClass)
	case c.Companion:
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterCompanion)
	case !c.Access.Has(bytecode.Public):
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterNotPublic)
	case c.IsAbstract() || c.Kind == classmodel.KindEnum:
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterAbstract)
	case len(c.TypeParams) > 0:
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterGeneric)
	}

	assisted, ok := assistedType(u, c)
	if !ok {
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterNoType)
	}

	singleton := c.Kind == classmodel.KindObject
	if !singleton && !hasDefaultConstructor(c) {
		return nil, xerrors.Adapter(c.Name, xerrors.MsgAdapterNoCtor)
	}
	return &External{Adapter: c.Name, Type: assisted.WithNullable(false), Singleton: singleton}, nil
}

func hasDefaultConstructor(c *classmodel.ClassInfo) bool {
	ctors := c.EffectiveConstructors()
	if len(ctors) == 0 {
		return true
	}
	for _, k := range ctors {
		if len(k.Params) == 0 && k.Access.Has(bytecode.Public) {
			return true
		}
	}
	return false
}

// assistedType walks the supertype graph of c, depth first, substituting
// type arguments along the way, until it finds a fromParcel(Parcel) whose
// return type is concrete.
func assistedType(u *classmodel.Universe, c *classmodel.ClassInfo) (typemodel.DeclaredType, bool) {
	type step struct {
		class *classmodel.ClassInfo
		env   map[string]typemodel.DeclaredType
	}
	seen := map[string]bool{}
	stack := []step{{class: c}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s.class.Name] {
			continue
		}
		seen[s.class.Name] = true

		for _, m := range s.class.MethodsNamed(fromParcel) {
			if len(m.Params) != 1 || m.Params[0].Erasure() != classmodel.ParcelClass || m.Return.IsZero() {
				continue
			}
			if ret := m.Return.Substitute(s.env); ret.IsConcrete() {
				return ret, true
			}
		}

		var supers []typemodel.DeclaredType
		if !s.class.Super.IsZero() {
			supers = append(supers, s.class.Super)
		}
		supers = append(supers, s.class.Interfaces...)
		// Pushed in reverse so that the superclass is visited first.
		for i := len(supers) - 1; i >= 0; i-- {
			sup := supers[i].Substitute(s.env)
			next, ok := u.Lookup(sup.Erasure())
			if !ok {
				continue
			}
			env := map[string]typemodel.DeclaredType{}
			if sup.Kind() == typemodel.Parameterized && sup.NumArgs() == len(next.TypeParams) {
				for j, p := range next.TypeParams {
					env[p] = sup.Arg(j)
				}
			}
			stack = append(stack, step{class: next, env: env})
		}
	}
	return typemodel.DeclaredType{}, false
}
