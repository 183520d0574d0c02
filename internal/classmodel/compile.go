package classmodel

import (
	"github.com/kanengo/parcelgen/internal/bytecode"
)

// InstanceField holds the singleton of an object declaration.
const InstanceField = "INSTANCE"

// Compile produces the original class skeleton of c: declared fields plus a
// backing field per property, constructors that store their parameters into
// the matching backing fields, property getters, and for objects the
// INSTANCE field with its static initializer. Declared methods are kept
// without a body; enum constants become enum-flagged static fields.
func Compile(c *ClassInfo) *bytecode.Class {
	out := &bytecode.Class{
		Access:     c.Access,
		Name:       c.Name,
		Super:      c.SuperName(),
		Interfaces: c.InterfaceNames(),
	}
	self := c.Type()

	for _, f := range c.Fields {
		out.Fields = append(out.Fields, bytecode.Field{Access: f.Access, Name: f.Name, Desc: f.Type.Bytecode()})
	}
	for _, p := range c.Properties {
		if _, ok := c.Field(p.Name); ok {
			continue
		}
		out.Fields = append(out.Fields, bytecode.Field{
			Access: bytecode.Private | bytecode.Final,
			Name:   p.Name,
			Desc:   p.Type.Bytecode(),
		})
	}
	for _, name := range c.Constants {
		out.Fields = append(out.Fields, bytecode.Field{
			Access: bytecode.Public | bytecode.Static | bytecode.Final | bytecode.Enum,
			Name:   name,
			Desc:   self,
		})
	}

	ctors := c.EffectiveConstructors()
	if c.Kind == KindObject && len(ctors) == 0 {
		ctors = []Constructor{{Access: bytecode.Private}}
	}
	if c.Kind == KindClass && len(ctors) == 0 && !c.IsAbstract() {
		ctors = []Constructor{{Access: bytecode.Public}}
	}
	for _, k := range ctors {
		out.Methods = append(out.Methods, compileConstructor(c, k))
	}

	for _, p := range c.Properties {
		g := bytecode.NewMethod(p.GetterAccess, p.GetterName(), bytecode.MethodOf(p.Type.Bytecode()))
		g.Load(self, g.This()).
			GetField(c.Name, p.Name, p.Type.Bytecode()).
			Return(p.Type.Bytecode())
		out.Methods = append(out.Methods, g.Build())
	}

	if c.Kind == KindObject {
		out.Fields = append(out.Fields, bytecode.Field{
			Access: bytecode.Public | bytecode.Static | bytecode.Final,
			Name:   InstanceField,
			Desc:   self,
		})
		clinit := bytecode.NewMethod(bytecode.Static, bytecode.ClinitName, bytecode.MethodOf(bytecode.VoidType))
		clinit.New(c.Name).
			Dup().
			Invoke(bytecode.InvokeSpecial, c.Name, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType)).
			PutStatic(c.Name, InstanceField, self).
			Return(bytecode.VoidType)
		out.Methods = append(out.Methods, clinit.Build())
	}

	for _, m := range c.Methods {
		desc := m.Desc()
		if _, ok := out.Method(m.Name, desc); ok {
			continue
		}
		access := m.Access
		if c.IsAbstract() {
			access |= bytecode.Abstract
		}
		out.Methods = append(out.Methods, bytecode.Method{Access: access, Name: m.Name, Desc: desc})
	}
	return out
}

func compileConstructor(c *ClassInfo, k Constructor) bytecode.Method {
	self := c.Type()
	b := bytecode.NewMethod(k.Access, bytecode.InitName, k.Desc())
	b.Load(self, b.This())
	if super := c.SuperName(); super != "" {
		b.Invoke(bytecode.InvokeSpecial, super, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType))
	} else {
		b.Pop()
	}
	for i, p := range k.Params {
		if _, ok := c.Property(p.Name); !ok {
			continue
		}
		t := p.Type.Bytecode()
		b.Load(self, b.This()).
			Load(t, b.Arg(i)).
			PutField(c.Name, p.Name, t)
	}
	return b.Return(bytecode.VoidType).Build()
}
