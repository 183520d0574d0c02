package adapter

import (
	"fmt"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
)

// Let write(a) be the sequence that appends the value bound to Value to the
// parcel and read(a) the one that stores a decoded value into Value.
//
//	write(scalar t)      parcel.writeX(widen(v))
//	write(boxed b)       tmp = unbox(v); write(scalar)
//	write(optional a)    v == null ? writeInt(0) : writeInt(1); write(a)
//	write(container)     v == null ? writeInt(-1) : writeInt(size); for e in v: write(elem)
//	write(array)         v == null ? writeInt(-1) : writeInt(length); for e in v: write(elem)
//	write(sparse)        v == null ? writeInt(-1) : writeInt(size); for i: writeInt(keyAt(i)); write(valueAt(i))
//	write(enum)          writeInt(v.ordinal())
//	write(parcelable)    writeParcelable(v, flags)
//	write(serializable)  writeSerializable(v)
//	write(external)      adapter.toParcel(v, parcel, flags)

// EmitWrite emits the write sequence of a. The value is taken from the Value
// binding of ctx.
func EmitWrite(a Adapter, ctx *Context) {
	switch a := a.(type) {
	case *Scalar:
		wire, name, _ := scalarIO(a.Type)
		ctx.Load(Parcel)
		ctx.Load(Value).Convert(a.Type, wire)
		invokeParcel(ctx, name, bytecode.MethodOf(bytecode.VoidType, wire))
	case *Boxed:
		inner := ctx.Local(a.Prim)
		ctx.Load(Value)
		unbox(ctx.b, a)
		inner.Store(Value)
		EmitWrite(&Scalar{Type: a.Prim}, inner)
	case *Platform:
		writePlatform(a, ctx)
	case *Optional:
		b := ctx.b
		present, end := b.NewLabel(), b.NewLabel()
		ctx.Load(Value).Jump(bytecode.IfNonNull, present)
		writeInt(ctx, 0)
		b.Jump(bytecode.Goto, end)
		b.Mark(present)
		writeInt(ctx, 1)
		EmitWrite(a.Inner, ctx)
		b.Mark(end)
	case *Container:
		if a.Map {
			writeMap(a, ctx)
		} else {
			writeCollection(a, ctx)
		}
	case *Array:
		writeArray(a, ctx)
	case *Sparse:
		writeSparse(a, ctx)
	case *Enum:
		ctx.Load(Parcel)
		ctx.Load(Value).Invoke(bytecode.InvokeVirtual, a.Class, "ordinal", bytecode.MethodOf(bytecode.IntType))
		invokeParcel(ctx, "writeInt", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType))
	case *Polymorphic:
		ctx.Load(Parcel)
		ctx.Load(Value)
		ctx.Load(Flags)
		invokeParcel(ctx, "writeParcelable", bytecode.MethodOf(bytecode.VoidType, parcelableType, bytecode.IntType))
	case *Serializable:
		ctx.Load(Parcel)
		ctx.Load(Value)
		invokeParcel(ctx, "writeSerializable", bytecode.MethodOf(bytecode.VoidType, serializableType))
	case *External:
		adapterInstance(ctx.b, a)
		ctx.Load(Value)
		ctx.Load(Parcel)
		ctx.Load(Flags).Invoke(bytecode.InvokeInterface, classmodel.TypeAdapterClass, "toParcel", toParcelDesc)
	default:
		panic(fmt.Sprintf("adapter: unexpected adapter %T", a))
	}
}

// EmitRead emits the read sequence of a. The decoded value is stored into the
// Value binding of ctx.
func EmitRead(a Adapter, ctx *Context) {
	switch a := a.(type) {
	case *Scalar:
		wire, _, name := scalarIO(a.Type)
		ctx.Load(Parcel)
		invokeParcel(ctx, name, bytecode.MethodOf(wire)).Convert(wire, a.Type)
		ctx.Store(Value)
	case *Boxed:
		inner := ctx.Local(a.Prim)
		EmitRead(&Scalar{Type: a.Prim}, inner)
		box(ctx, inner, a)
		ctx.Store(Value)
	case *Platform:
		ctx.Load(Parcel)
		if a.Kind == ByteArray {
			invokeParcel(ctx, "createByteArray", bytecode.MethodOf(byteArrayType))
		} else {
			invokeParcel(ctx, "readString", bytecode.MethodOf(stringType))
		}
		ctx.Store(Value)
	case *Optional:
		b := ctx.b
		absent, end := b.NewLabel(), b.NewLabel()
		ctx.Load(Parcel)
		invokeParcel(ctx, "readInt", bytecode.MethodOf(bytecode.IntType)).Jump(bytecode.IfEq, absent)
		EmitRead(a.Inner, ctx)
		b.Jump(bytecode.Goto, end)
		b.Mark(absent)
		b.Const(nil)
		ctx.Store(Value)
		b.Mark(end)
	case *Container:
		readContainer(a, ctx)
	case *Array:
		readArray(a, ctx)
	case *Sparse:
		readSparse(a, ctx)
	case *Enum:
		t := bytecode.ObjectType(a.Class)
		ctx.b.Invoke(bytecode.InvokeStatic, a.Class, "values", bytecode.MethodOf(bytecode.ArrayOf(t)))
		ctx.Load(Parcel)
		invokeParcel(ctx, "readInt", bytecode.MethodOf(bytecode.IntType)).ArrayLoad(t)
		ctx.Store(Value)
	case *Polymorphic:
		t := bytecode.ObjectType(a.Class)
		ctx.Load(Parcel)
		ctx.b.Const(t).Invoke(bytecode.InvokeVirtual, classmodel.ClassClass, "getClassLoader", bytecode.MethodOf(classLoaderType))
		invokeParcel(ctx, "readParcelable", bytecode.MethodOf(parcelableType, classLoaderType)).CheckCast(t)
		ctx.Store(Value)
	case *Serializable:
		ctx.Load(Parcel)
		invokeParcel(ctx, "readSerializable", bytecode.MethodOf(serializableType)).CheckCast(bytecode.ObjectType(a.Class))
		ctx.Store(Value)
	case *External:
		adapterInstance(ctx.b, a)
		ctx.Load(Parcel).
			Invoke(bytecode.InvokeInterface, classmodel.TypeAdapterClass, "fromParcel", fromParcelDesc).
			CheckCast(a.Type.Bytecode())
		ctx.Store(Value)
	default:
		panic(fmt.Sprintf("adapter: unexpected adapter %T", a))
	}
}

var (
	toParcelDesc   = bytecode.MethodOf(bytecode.VoidType, objectType, parcelType, bytecode.IntType)
	fromParcelDesc = bytecode.MethodOf(objectType, parcelType)
)

// scalarIO returns the wire type and the parcel write and read primitives for
// the primitive t. boolean, char and short travel as int.
func scalarIO(t bytecode.Type) (wire bytecode.Type, write, read string) {
	switch t.Sort() {
	case bytecode.Boolean, bytecode.Char, bytecode.Short, bytecode.Int:
		return bytecode.IntType, "writeInt", "readInt"
	case bytecode.Byte:
		return bytecode.ByteType, "writeByte", "readByte"
	case bytecode.Long:
		return bytecode.LongType, "writeLong", "readLong"
	case bytecode.Float:
		return bytecode.FloatType, "writeFloat", "readFloat"
	case bytecode.Double:
		return bytecode.DoubleType, "writeDouble", "readDouble"
	}
	panic(fmt.Sprintf("adapter: %s is not a primitive", t))
}

func invokeParcel(ctx *Context, name string, desc bytecode.Type) *bytecode.MethodBuilder {
	return ctx.b.Invoke(bytecode.InvokeVirtual, classmodel.ParcelClass, name, desc)
}

func writeInt(ctx *Context, v int32) {
	ctx.Load(Parcel).Const(v)
	invokeParcel(ctx, "writeInt", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType))
}

func readInt(ctx *Context) {
	ctx.Load(Parcel)
	invokeParcel(ctx, "readInt", bytecode.MethodOf(bytecode.IntType))
}

func unbox(b *bytecode.MethodBuilder, a *Boxed) {
	if a.Class == classmodel.DateClass {
		b.Invoke(bytecode.InvokeVirtual, a.Class, "getTime", bytecode.MethodOf(bytecode.LongType))
		return
	}
	b.Invoke(bytecode.InvokeVirtual, a.Class, a.Prim.ClassName()+"Value", bytecode.MethodOf(a.Prim))
}

// box pushes the boxed form of the primitive bound to Value in inner.
func box(ctx, inner *Context, a *Boxed) {
	b := ctx.b
	if a.Class == classmodel.DateClass {
		b.New(a.Class).Dup()
		inner.Load(Value).Invoke(bytecode.InvokeSpecial, a.Class, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType, bytecode.LongType))
		return
	}
	boxed := bytecode.ObjectType(a.Class)
	inner.Load(Value).Invoke(bytecode.InvokeStatic, a.Class, "valueOf", bytecode.MethodOf(boxed, a.Prim))
}

func writePlatform(a *Platform, ctx *Context) {
	switch a.Kind {
	case String:
		ctx.Load(Parcel)
		ctx.Load(Value)
		invokeParcel(ctx, "writeString", bytecode.MethodOf(bytecode.VoidType, stringType))
	case ByteArray:
		ctx.Load(Parcel)
		ctx.Load(Value)
		invokeParcel(ctx, "writeByteArray", bytecode.MethodOf(bytecode.VoidType, byteArrayType))
	case CharSequence:
		b := ctx.b
		present, end := b.NewLabel(), b.NewLabel()
		ctx.Load(Value).Jump(bytecode.IfNonNull, present)
		ctx.Load(Parcel).Const(nil)
		invokeParcel(ctx, "writeString", bytecode.MethodOf(bytecode.VoidType, stringType))
		b.Jump(bytecode.Goto, end)
		b.Mark(present)
		ctx.Load(Parcel)
		ctx.Load(Value).Invoke(bytecode.InvokeInterface, "java.lang.CharSequence", "toString", bytecode.MethodOf(stringType))
		invokeParcel(ctx, "writeString", bytecode.MethodOf(bytecode.VoidType, stringType))
		b.Mark(end)
	default:
		panic(fmt.Sprintf("adapter: unexpected platform kind %d", a.Kind))
	}
}

// writeSize writes -1 and jumps to end when Value is null, otherwise pushes
// the parcel and Value and calls size to write the element count.
func writeSize(ctx *Context, end bytecode.LabelID, size func()) {
	b := ctx.b
	notNull := b.NewLabel()
	ctx.Load(Value).Jump(bytecode.IfNonNull, notNull)
	writeInt(ctx, -1)
	b.Jump(bytecode.Goto, end)
	b.Mark(notNull)
	ctx.Load(Parcel)
	size()
	invokeParcel(ctx, "writeInt", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType))
}

func writeCollection(a *Container, ctx *Context) {
	b := ctx.b
	loop, end := b.NewLabel(), b.NewLabel()
	writeSize(ctx, end, func() {
		ctx.Load(Value).Invoke(bytecode.InvokeInterface, collectionOwner, "size", bytecode.MethodOf(bytecode.IntType))
	})

	it := b.NewLocal(iteratorType)
	ctx.Load(Value).
		Invoke(bytecode.InvokeInterface, collectionOwner, "iterator", bytecode.MethodOf(iteratorType)).
		Store(iteratorType, it)
	b.Mark(loop)
	b.Load(iteratorType, it).
		Invoke(bytecode.InvokeInterface, iteratorOwner, "hasNext", bytecode.MethodOf(bytecode.BooleanType)).
		Jump(bytecode.IfEq, end)
	elem := ctx.Local(ValueType(a.Elems[0]))
	b.Load(iteratorType, it).Invoke(bytecode.InvokeInterface, iteratorOwner, "next", bytecode.MethodOf(objectType))
	checkCast(b, ValueType(a.Elems[0]))
	elem.Store(Value)
	EmitWrite(a.Elems[0], elem)
	b.Jump(bytecode.Goto, loop)
	b.Mark(end)
}

func writeMap(a *Container, ctx *Context) {
	b := ctx.b
	loop, end := b.NewLabel(), b.NewLabel()
	writeSize(ctx, end, func() {
		ctx.Load(Value).Invoke(bytecode.InvokeInterface, mapOwner, "size", bytecode.MethodOf(bytecode.IntType))
	})

	it := b.NewLocal(iteratorType)
	ctx.Load(Value).
		Invoke(bytecode.InvokeInterface, mapOwner, "entrySet", bytecode.MethodOf(setType)).
		Invoke(bytecode.InvokeInterface, collectionOwner, "iterator", bytecode.MethodOf(iteratorType)).
		Store(iteratorType, it)
	b.Mark(loop)
	b.Load(iteratorType, it).
		Invoke(bytecode.InvokeInterface, iteratorOwner, "hasNext", bytecode.MethodOf(bytecode.BooleanType)).
		Jump(bytecode.IfEq, end)
	entry := b.NewLocal(entryType)
	b.Load(iteratorType, it).
		Invoke(bytecode.InvokeInterface, iteratorOwner, "next", bytecode.MethodOf(objectType)).
		CheckCast(entryType).
		Store(entryType, entry)
	for i, accessor := range []string{"getKey", "getValue"} {
		t := ValueType(a.Elems[i])
		elem := ctx.Local(t)
		b.Load(entryType, entry).Invoke(bytecode.InvokeInterface, entryOwner, accessor, bytecode.MethodOf(objectType))
		checkCast(b, t)
		elem.Store(Value)
		EmitWrite(a.Elems[i], elem)
	}
	b.Jump(bytecode.Goto, loop)
	b.Mark(end)
}

func writeArray(a *Array, ctx *Context) {
	b := ctx.b
	loop, end := b.NewLabel(), b.NewLabel()
	writeSize(ctx, end, func() {
		ctx.Load(Value).ArrayLength()
	})

	i := b.NewLocal(bytecode.IntType)
	b.Const(int32(0)).Store(bytecode.IntType, i)
	b.Mark(loop)
	b.Load(bytecode.IntType, i)
	ctx.Load(Value).ArrayLength().Jump(bytecode.IfICmpGe, end)
	elem := ctx.Local(a.Component)
	ctx.Load(Value).Load(bytecode.IntType, i).ArrayLoad(a.Component)
	elem.Store(Value)
	EmitWrite(a.Elem, elem)
	b.IInc(i, 1).Jump(bytecode.Goto, loop)
	b.Mark(end)
}

func writeSparse(a *Sparse, ctx *Context) {
	b := ctx.b
	loop, end := b.NewLabel(), b.NewLabel()
	size := bytecode.MethodOf(bytecode.IntType)
	writeSize(ctx, end, func() {
		ctx.Load(Value).Invoke(bytecode.InvokeVirtual, a.Class, "size", size)
	})

	i := b.NewLocal(bytecode.IntType)
	b.Const(int32(0)).Store(bytecode.IntType, i)
	b.Mark(loop)
	b.Load(bytecode.IntType, i)
	ctx.Load(Value).Invoke(bytecode.InvokeVirtual, a.Class, "size", size).Jump(bytecode.IfICmpGe, end)

	ctx.Load(Parcel)
	ctx.Load(Value).
		Load(bytecode.IntType, i).
		Invoke(bytecode.InvokeVirtual, a.Class, "keyAt", bytecode.MethodOf(bytecode.IntType, bytecode.IntType))
	invokeParcel(ctx, "writeInt", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType))

	t := ValueType(a.Value)
	elem := ctx.Local(t)
	ctx.Load(Value).
		Load(bytecode.IntType, i).
		Invoke(bytecode.InvokeVirtual, a.Class, "valueAt", bytecode.MethodOf(a.ValueType, bytecode.IntType))
	if a.ValueType.IsReference() {
		checkCast(b, t)
	}
	elem.Store(Value)
	EmitWrite(a.Value, elem)
	b.IInc(i, 1).Jump(bytecode.Goto, loop)
	b.Mark(end)
}

// readSize reads the element count into a fresh local and stores null and
// jumps to isNull when it is negative.
func readSize(ctx *Context, isNull bytecode.LabelID) int {
	b := ctx.b
	n := b.NewLocal(bytecode.IntType)
	readInt(ctx)
	b.Store(bytecode.IntType, n).Load(bytecode.IntType, n).Jump(bytecode.IfLt, isNull)
	return n
}

// readLoop emits "for i := 0; i < n; i++ { body }" and jumps to end once
// done.
func readLoop(b *bytecode.MethodBuilder, n int, end bytecode.LabelID, body func(i int)) {
	loop := b.NewLabel()
	i := b.NewLocal(bytecode.IntType)
	b.Const(int32(0)).Store(bytecode.IntType, i)
	b.Mark(loop)
	b.Load(bytecode.IntType, i).Load(bytecode.IntType, n).Jump(bytecode.IfICmpGe, end)
	body(i)
	b.IInc(i, 1).Jump(bytecode.Goto, loop)
}

func markNull(ctx *Context, isNull, end bytecode.LabelID) {
	b := ctx.b
	b.Mark(isNull)
	b.Const(nil)
	ctx.Store(Value)
	b.Mark(end)
}

func readContainer(a *Container, ctx *Context) {
	b := ctx.b
	isNull, end := b.NewLabel(), b.NewLabel()
	n := readSize(ctx, isNull)
	b.New(a.Concrete).Dup().Invoke(bytecode.InvokeSpecial, a.Concrete, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType))
	ctx.Store(Value)

	readLoop(b, n, end, func(int) {
		elems := make([]*Context, len(a.Elems))
		for i, e := range a.Elems {
			elems[i] = ctx.Local(ValueType(e))
			EmitRead(e, elems[i])
		}
		ctx.Load(Value)
		for _, e := range elems {
			e.Load(Value)
		}
		if a.Map {
			b.Invoke(bytecode.InvokeInterface, mapOwner, "put", bytecode.MethodOf(objectType, objectType, objectType))
		} else {
			b.Invoke(bytecode.InvokeInterface, collectionOwner, "add", bytecode.MethodOf(bytecode.BooleanType, objectType))
		}
		b.Pop()
	})
	markNull(ctx, isNull, end)
}

func readArray(a *Array, ctx *Context) {
	b := ctx.b
	isNull, end := b.NewLabel(), b.NewLabel()
	n := readSize(ctx, isNull)
	b.Load(bytecode.IntType, n).NewArray(a.Component)
	ctx.Store(Value)

	readLoop(b, n, end, func(i int) {
		elem := ctx.Local(a.Component)
		EmitRead(a.Elem, elem)
		ctx.Load(Value).Load(bytecode.IntType, i)
		elem.Load(Value).ArrayStore(a.Component)
	})
	markNull(ctx, isNull, end)
}

func readSparse(a *Sparse, ctx *Context) {
	b := ctx.b
	isNull, end := b.NewLabel(), b.NewLabel()
	n := readSize(ctx, isNull)
	b.New(a.Class).Dup().Invoke(bytecode.InvokeSpecial, a.Class, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType))
	ctx.Store(Value)

	readLoop(b, n, end, func(int) {
		key := ctx.Local(bytecode.IntType)
		readInt(ctx)
		key.Store(Value)
		elem := ctx.Local(ValueType(a.Value))
		EmitRead(a.Value, elem)
		ctx.Load(Value)
		key.Load(Value)
		elem.Load(Value).Invoke(bytecode.InvokeVirtual, a.Class, "put", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType, a.ValueType))
	})
	markNull(ctx, isNull, end)
}

// adapterInstance pushes the pluggable adapter: its INSTANCE for singletons,
// a new instance otherwise.
func adapterInstance(b *bytecode.MethodBuilder, a *External) {
	t := bytecode.ObjectType(a.Adapter)
	if a.Singleton {
		b.GetStatic(a.Adapter, classmodel.InstanceField, t)
		return
	}
	b.New(a.Adapter).Dup().Invoke(bytecode.InvokeSpecial, a.Adapter, bytecode.InitName, bytecode.MethodOf(bytecode.VoidType))
}

func checkCast(b *bytecode.MethodBuilder, t bytecode.Type) {
	if t != objectType {
		b.CheckCast(t)
	}
}
