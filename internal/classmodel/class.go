// Package classmodel describes the classes the generator works on: the
// platform universe, user classes loaded from TOML manifests, typed tag
// decoding, eligibility checks producing ClassSpecs, and a compiler for the
// original class skeletons.
package classmodel

import (
	"fmt"
	"strings"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/typemodel"
)

// Kind 声明类别
type Kind uint8

const (
	KindClass Kind = iota
	KindInterface
	KindEnum
	KindObject
	KindAnnotation
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	case KindAnnotation:
		return "annotation"
	}
	return fmt.Sprintf("kind(%d)", k)
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	case "enum":
		return KindEnum, nil
	case "object":
		return KindObject, nil
	case "annotation":
		return KindAnnotation, nil
	}
	return 0, fmt.Errorf("unknown class kind %q", s)
}

// Property is a declared property with its accessor.
type Property struct {
	Name         string
	Type         typemodel.DeclaredType
	Getter       string
	GetterAccess bytecode.Access
}

// GetterName is the accessor method name, getX unless declared otherwise.
func (p Property) GetterName() string {
	if p.Getter != "" {
		return p.Getter
	}
	return "get" + strings.ToUpper(p.Name[:1]) + p.Name[1:]
}

type Parameter struct {
	Name string
	Type typemodel.DeclaredType
}

type Constructor struct {
	Access  bytecode.Access
	Primary bool
	Params  []Parameter
}

// Desc is the erased constructor descriptor.
func (c Constructor) Desc() bytecode.Type {
	args := make([]bytecode.Type, len(c.Params))
	for i, p := range c.Params {
		args[i] = p.Type.Bytecode()
	}
	return bytecode.MethodOf(bytecode.VoidType, args...)
}

// Method is a method declaration. A zero Return means void.
type Method struct {
	Access bytecode.Access
	Name   string
	Params []typemodel.DeclaredType
	Return typemodel.DeclaredType
}

func (m Method) Desc() bytecode.Type {
	args := make([]bytecode.Type, len(m.Params))
	for i, p := range m.Params {
		args[i] = p.Bytecode()
	}
	ret := bytecode.VoidType
	if !m.Return.IsZero() {
		ret = m.Return.Bytecode()
	}
	return bytecode.MethodOf(ret, args...)
}

type Field struct {
	Access bytecode.Access
	Name   string
	Type   typemodel.DeclaredType
}

// ClassInfo is everything the class model knows about one class.
type ClassInfo struct {
	Name   string
	Kind   Kind
	Access bytecode.Access
	// Data marks a data holder whose primary constructor parameters are
	// its properties.
	Data      bool
	Companion bool
	Platform  bool

	TypeParams []string
	Super      typemodel.DeclaredType
	Interfaces []typemodel.DeclaredType

	Fields       []Field
	Methods      []Method
	Constructors []Constructor
	Properties   []Property
	Constants    []string

	Annotations []Annotation
}

// SuperName is the erased superclass, java.lang.Object when undeclared.
func (c *ClassInfo) SuperName() string {
	switch {
	case !c.Super.IsZero():
		return c.Super.Erasure()
	case c.Name == typemodel.ObjectName:
		return ""
	case c.Kind == KindEnum:
		return "java.lang.Enum"
	}
	return typemodel.ObjectName
}

func (c *ClassInfo) InterfaceNames() []string {
	names := make([]string, len(c.Interfaces))
	for i, t := range c.Interfaces {
		names[i] = t.Erasure()
	}
	return names
}

func (c *ClassInfo) IsAbstract() bool {
	return c.Access.Has(bytecode.Abstract) || c.Kind == KindInterface || c.Kind == KindAnnotation
}

func (c *ClassInfo) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *ClassInfo) Property(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// MethodsNamed returns the declared methods called name.
func (c *ClassInfo) MethodsNamed(name string) []Method {
	var ms []Method
	for _, m := range c.Methods {
		if m.Name == name {
			ms = append(ms, m)
		}
	}
	return ms
}

// EffectiveConstructors returns the declared constructors, or for a data
// class without any the implicit public primary constructor over all of its
// properties.
func (c *ClassInfo) EffectiveConstructors() []Constructor {
	if len(c.Constructors) > 0 || !c.Data {
		return c.Constructors
	}
	ctor := Constructor{Access: bytecode.Public, Primary: true}
	for _, p := range c.Properties {
		ctor.Params = append(ctor.Params, Parameter{Name: p.Name, Type: p.Type})
	}
	return []Constructor{ctor}
}

func (c *ClassInfo) Type() bytecode.Type {
	return bytecode.ObjectType(c.Name)
}
