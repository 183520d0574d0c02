package classmodel

import (
	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/internal/typemodel"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

// IdentityField is the static factory field every parcelable class carries.
const IdentityField = "CREATOR"

type SpecKind uint8

const (
	// DataSpec is a positional data holder.
	DataSpec SpecKind = iota
	// ObjectSpec is a singleton without properties.
	ObjectSpec
)

func (k SpecKind) String() string {
	if k == ObjectSpec {
		return "object"
	}
	return "data"
}

// PropertySpec is one marshalled property, in primary constructor order.
type PropertySpec struct {
	Name   string
	Type   typemodel.DeclaredType
	Getter bytecode.Member
}

// ClassSpec is the validated, read-only description of one eligible class.
type ClassSpec struct {
	Class      *ClassInfo
	Kind       SpecKind
	Properties []PropertySpec
	// Constructor is the primary constructor. Unset for ObjectSpec.
	Constructor bytecode.Member
}

func (s *ClassSpec) Name() string { return s.Class.Name }

// Eligible reports whether c is a candidate for generated marshalling: a
// user class that is neither abstract nor an interface and that implements
// android.os.Parcelable.
func Eligible(o *hierarchy.Oracle, c *ClassInfo) bool {
	if c.Platform || c.Kind == KindInterface || c.Kind == KindAnnotation || c.Access.Has(bytecode.Abstract) {
		return false
	}
	return o.Is(c.Name, ParcelableClass)
}

// BuildSpec validates c and returns its ClassSpec. Every failure is an
// InvalidTarget error naming c.
func BuildSpec(c *ClassInfo) (*ClassSpec, error) {
	switch c.Kind {
	case KindClass, KindObject:
	default:
		return nil, xerrors.Target(c.Name, xerrors.MsgDisallowedKind, c.Kind)
	}
	if len(c.TypeParams) > 0 {
		return nil, xerrors.Target(c.Name, xerrors.MsgGenericClass)
	}
	if _, ok := c.Field(IdentityField); ok {
		return nil, xerrors.Target(c.Name, xerrors.MsgIdentityField)
	}

	if c.Kind == KindObject {
		return &ClassSpec{Class: c, Kind: ObjectSpec}, nil
	}
	if !c.Data {
		return nil, xerrors.Target(c.Name, xerrors.MsgUnsupportedModel)
	}

	ctor, err := primaryConstructor(c)
	if err != nil {
		return nil, err
	}

	spec := &ClassSpec{
		Class:       c,
		Kind:        DataSpec,
		Constructor: bytecode.Member{Owner: c.Name, Name: bytecode.InitName, Desc: ctor.Desc()},
	}
	for _, param := range ctor.Params {
		prop, ok := c.Property(param.Name)
		if !ok || !prop.Type.Equal(param.Type) {
			return nil, xerrors.Target(c.Name, xerrors.MsgUnmatchedParameter, param.Name)
		}
		if !prop.GetterAccess.Has(bytecode.Public) {
			return nil, xerrors.Target(c.Name, xerrors.MsgGetterNotPublic, prop.Name)
		}
		spec.Properties = append(spec.Properties, PropertySpec{
			Name: prop.Name,
			Type: prop.Type,
			Getter: bytecode.Member{
				Owner: c.Name,
				Name:  prop.GetterName(),
				Desc:  bytecode.MethodOf(prop.Type.Bytecode()),
			},
		})
	}
	return spec, nil
}

func primaryConstructor(c *ClassInfo) (Constructor, error) {
	all := c.EffectiveConstructors()
	var candidates []Constructor
	for _, k := range all {
		if k.Primary {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 && len(all) == 1 {
		candidates = all
	}
	switch len(candidates) {
	case 0:
		if len(all) > 1 {
			return Constructor{}, xerrors.Target(c.Name, xerrors.MsgAmbiguousConstructor, len(all))
		}
		return Constructor{}, xerrors.Target(c.Name, xerrors.MsgNoPrimaryConstructor)
	case 1:
	default:
		return Constructor{}, xerrors.Target(c.Name, xerrors.MsgAmbiguousConstructor, len(candidates))
	}
	if !candidates[0].Access.Has(bytecode.Public) {
		return Constructor{}, xerrors.Target(c.Name, xerrors.MsgConstructorNotPublic)
	}
	return candidates[0], nil
}
