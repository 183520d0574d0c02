package codegen

import (
	"slices"

	"github.com/kanengo/parcelgen/internal/adapter"
	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
)

// CreatorSuffix names the factory of a class: com.example.User$$Creator.
const CreatorSuffix = "$$Creator"

// Entry points of android.os.Parcelable and android.os.Parcelable$Creator.
const (
	WriteToParcel    = "writeToParcel"
	DescribeContents = "describeContents"
	CreateFromParcel = "createFromParcel"
	NewArray         = "newArray"
)

var (
	objectType  = bytecode.ObjectType(classmodel.ObjectClass)
	parcelType  = bytecode.ObjectType(classmodel.ParcelClass)
	creatorType = bytecode.ObjectType(classmodel.CreatorClass)

	WriteToParcelDesc    = bytecode.MethodOf(bytecode.VoidType, parcelType, bytecode.IntType)
	DescribeContentsDesc = bytecode.MethodOf(bytecode.IntType)
	CreateFromParcelDesc = bytecode.MethodOf(objectType, parcelType)
	NewArrayDesc         = bytecode.MethodOf(bytecode.ArrayOf(objectType), bytecode.IntType)

	voidDesc = bytecode.MethodOf(bytecode.VoidType)
)

func creatorName(class string) string {
	return class + CreatorSuffix
}

// patch returns a copy of c that carries a CREATOR field initialized with a
// fresh factory, the writer w and a describeContents returning 0. Existing
// CREATOR, writeToParcel and describeContents members are replaced.
func patch(c *bytecode.Class, w bytecode.Method) *bytecode.Class {
	factory := creatorName(c.Name)
	out := *c

	out.Fields = slices.DeleteFunc(slices.Clone(c.Fields), func(f bytecode.Field) bool {
		return f.Name == classmodel.IdentityField
	})
	out.Fields = append(out.Fields, bytecode.Field{
		Access: bytecode.Public | bytecode.Static | bytecode.Final,
		Name:   classmodel.IdentityField,
		Desc:   creatorType,
	})

	// 静态初始化: 先构造 CREATOR, 再执行原有的 <clinit>
	init := bytecode.NewMethod(bytecode.Static, bytecode.ClinitName, voidDesc)
	init.New(factory).
		Dup().
		Invoke(bytecode.InvokeSpecial, factory, bytecode.InitName, voidDesc).
		PutStatic(c.Name, classmodel.IdentityField, creatorType)

	out.Methods = nil
	var clinit *bytecode.Method
	for _, m := range c.Methods {
		switch {
		case m.Name == WriteToParcel && m.Desc == WriteToParcelDesc,
			m.Name == DescribeContents && m.Desc == DescribeContentsDesc:
			continue
		case m.Name == bytecode.ClinitName && m.Desc == voidDesc:
			prefix := init.Build()
			m.Code = append(prefix.Code, m.Code...)
			m.MaxLocals = max(m.MaxLocals, prefix.MaxLocals)
			clinit = &m
			continue
		}
		out.Methods = append(out.Methods, m)
	}
	if clinit == nil {
		m := init.Return(bytecode.VoidType).Build()
		clinit = &m
	}

	describe := bytecode.NewMethod(bytecode.Public, DescribeContents, DescribeContentsDesc)
	describe.Const(int32(0)).Return(bytecode.IntType)

	out.Methods = append(out.Methods, w, describe.Build(), *clinit)
	return &out
}

// dataWriter emits writeToParcel for a data class: every property is read
// through its getter and written in declaration order.
func dataWriter(spec *classmodel.ClassSpec, adapters []adapter.Adapter) bytecode.Method {
	b := bytecode.NewMethod(bytecode.Public, WriteToParcel, WriteToParcelDesc)
	ctx := adapter.NewContext(b).
		Bind(adapter.Receiver, b.This(), spec.Class.Type()).
		Bind(adapter.Parcel, b.Arg(0), parcelType).
		Bind(adapter.Flags, b.Arg(1), bytecode.IntType)

	for i, p := range spec.Properties {
		t := p.Getter.Desc.Return()
		slot := b.NewLocal(t)
		ctx.Load(adapter.Receiver).
			Invoke(bytecode.InvokeVirtual, p.Getter.Owner, p.Getter.Name, p.Getter.Desc).
			Store(t, slot)
		ctx.Bind(adapter.Property(p.Name), slot, t)
		adapter.EmitWrite(adapters[i], ctx.Derive(slot, t))
	}
	return b.Return(bytecode.VoidType).Build()
}

// objectWriter writes nothing: a singleton is identified by its class name.
func objectWriter() bytecode.Method {
	b := bytecode.NewMethod(bytecode.Public, WriteToParcel, WriteToParcelDesc)
	return b.Return(bytecode.VoidType).Build()
}

// dataFactory reads every property in declaration order and hands them to
// the primary constructor positionally.
func dataFactory(spec *classmodel.ClassSpec, adapters []adapter.Adapter) *bytecode.Class {
	name := creatorName(spec.Name())
	b := bytecode.NewMethod(bytecode.Public, CreateFromParcel, CreateFromParcelDesc)
	ctx := adapter.NewContext(b).
		Bind(adapter.Receiver, b.This(), bytecode.ObjectType(name)).
		Bind(adapter.Parcel, b.Arg(0), parcelType)

	values := make([]*adapter.Context, len(spec.Properties))
	for i, p := range spec.Properties {
		t := p.Getter.Desc.Return()
		slot := b.NewLocal(t)
		ctx.Bind(adapter.Property(p.Name), slot, t)
		values[i] = ctx.Derive(slot, t)
		adapter.EmitRead(adapters[i], values[i])
	}

	b.New(spec.Name()).Dup()
	for _, v := range values {
		v.Load(adapter.Value)
	}
	b.Invoke(bytecode.InvokeSpecial, spec.Constructor.Owner, bytecode.InitName, spec.Constructor.Desc).
		Return(objectType)

	return factoryClass(spec, b.Build())
}

// objectFactory returns the singleton without reading anything.
func objectFactory(spec *classmodel.ClassSpec) *bytecode.Class {
	self := spec.Class.Type()
	b := bytecode.NewMethod(bytecode.Public, CreateFromParcel, CreateFromParcelDesc)
	b.GetStatic(spec.Name(), classmodel.InstanceField, self).Return(objectType)
	return factoryClass(spec, b.Build())
}

func factoryClass(spec *classmodel.ClassSpec, create bytecode.Method) *bytecode.Class {
	name := creatorName(spec.Name())

	ctor := bytecode.NewMethod(bytecode.Public, bytecode.InitName, voidDesc)
	ctor.Load(bytecode.ObjectType(name), ctor.This()).
		Invoke(bytecode.InvokeSpecial, classmodel.ObjectClass, bytecode.InitName, voidDesc).
		Return(bytecode.VoidType)

	arr := bytecode.NewMethod(bytecode.Public, NewArray, NewArrayDesc)
	arr.Load(bytecode.IntType, arr.Arg(0)).
		NewArray(spec.Class.Type()).
		Return(bytecode.ArrayOf(objectType))

	return &bytecode.Class{
		Access:     bytecode.Public | bytecode.Final | bytecode.Synthetic,
		Name:       name,
		Super:      classmodel.ObjectClass,
		Interfaces: []string{classmodel.CreatorClass},
		Methods:    []bytecode.Method{ctor.Build(), create, arr.Build()},
	}
}
