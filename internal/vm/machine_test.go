package vm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/runtime/parcel"
)

var (
	intArray  = bytecode.ArrayOf(bytecode.IntType)
	parcelT   = bytecode.ObjectType("android.os.Parcel")
	objectT   = bytecode.ObjectType("java.lang.Object")
	sumDesc   = bytecode.MethodOf(bytecode.IntType, intArray)
	writeDesc = bytecode.MethodOf(bytecode.VoidType, parcelT, bytecode.IntType)
)

// sumClass has a static sum(int[]) that loops over its argument.
func sumClass() *bytecode.Class {
	b := bytecode.NewMethod(bytecode.Public|bytecode.Static, "sum", sumDesc)
	acc := b.NewLocal(bytecode.IntType)
	i := b.NewLocal(bytecode.IntType)
	loop, done := b.NewLabel(), b.NewLabel()
	b.Const(int32(0)).Store(bytecode.IntType, acc)
	b.Const(int32(0)).Store(bytecode.IntType, i)
	b.Mark(loop)
	b.Load(bytecode.IntType, i).Load(intArray, b.Arg(0)).ArrayLength().Jump(bytecode.IfICmpGe, done)
	b.Load(intArray, b.Arg(0)).Load(bytecode.IntType, i).ArrayLoad(bytecode.IntType)
	b.Load(bytecode.IntType, acc).
		Invoke(bytecode.InvokeStatic, "test.Sum", "add", bytecode.MethodOf(bytecode.IntType, bytecode.IntType, bytecode.IntType)).
		Store(bytecode.IntType, acc)
	b.IInc(i, 1).Jump(bytecode.Goto, loop)
	b.Mark(done)
	b.Load(bytecode.IntType, acc).Return(bytecode.IntType)

	return &bytecode.Class{
		Access:  bytecode.Public,
		Name:    "test.Sum",
		Super:   "java.lang.Object",
		Methods: []bytecode.Method{b.Build()},
	}
}

func TestInvokeStaticWithLoop(t *testing.T) {
	m := New()
	m.Load(sumClass())
	m.RegisterNative("test.Sum", "add", bytecode.MethodOf(bytecode.IntType, bytecode.IntType, bytecode.IntType), func(_ *Machine, args []Value) Value {
		return args[0].(int32) + args[1].(int32)
	})

	got, err := m.InvokeStatic("test.Sum", "sum", sumDesc, NewArray(bytecode.IntType, int32(1), int32(2), int32(3), int32(4)))
	require.NoError(t, err)
	assert.Equal(t, int32(10), got)

	got, err = m.InvokeStatic("test.Sum", "sum", sumDesc, NewArray(bytecode.IntType))
	require.NoError(t, err)
	assert.Equal(t, int32(0), got)
}

func TestErrors(t *testing.T) {
	m := New()
	m.Load(sumClass())

	_, err := m.InvokeStatic("test.Sum", "sum", sumDesc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NullPointerException")

	// add is neither loaded nor native.
	_, err = m.InvokeStatic("test.Sum", "sum", sumDesc, NewArray(bytecode.IntType, int32(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchMethodError")

	_, err = m.InvokeStatic("test.Missing", "run", bytecode.MethodOf(bytecode.VoidType))
	assert.Error(t, err)

	_, err = m.NewObject("test.Missing", bytecode.MethodOf(bytecode.VoidType))
	assert.Contains(t, err.Error(), "NoClassDefFoundError")
}

func TestStepLimit(t *testing.T) {
	b := bytecode.NewMethod(bytecode.Public|bytecode.Static, "spin", bytecode.MethodOf(bytecode.VoidType))
	l := b.NewLabel()
	b.Mark(l)
	b.Jump(bytecode.Goto, l)
	m := New()
	m.MaxSteps = 1000
	m.Load(&bytecode.Class{Name: "test.Spin", Super: "java.lang.Object", Methods: []bytecode.Method{b.Build()}})

	_, err := m.InvokeStatic("test.Spin", "spin", bytecode.MethodOf(bytecode.VoidType))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit")
}

func TestParcelUnderflowIsAnError(t *testing.T) {
	m := New()
	_, err := m.InvokeVirtual(parcel.New(), "readLong", bytecode.MethodOf(bytecode.LongType))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough data")
}

func TestEnumConstants(t *testing.T) {
	enum := bytecode.ObjectType("test.Color")
	m := New()
	m.Load(&bytecode.Class{
		Access: bytecode.Public | bytecode.Final | bytecode.Enum,
		Name:   "test.Color",
		Super:  "java.lang.Enum",
		Fields: []bytecode.Field{
			{Access: bytecode.Public | bytecode.Static | bytecode.Final | bytecode.Enum, Name: "RED", Desc: enum},
			{Access: bytecode.Public | bytecode.Static | bytecode.Final | bytecode.Enum, Name: "GREEN", Desc: enum},
		},
	})

	values, err := m.InvokeStatic("test.Color", "values", bytecode.MethodOf(bytecode.ArrayOf(enum)))
	require.NoError(t, err)
	arr := values.(*Array)
	require.Len(t, arr.Values, 2)

	green, err := m.GetStatic("test.Color", "GREEN")
	require.NoError(t, err)
	assert.Same(t, green, arr.Values[1])

	ord, err := m.InvokeVirtual(green, "ordinal", bytecode.MethodOf(bytecode.IntType))
	require.NoError(t, err)
	assert.Equal(t, int32(1), ord)
	name, err := m.InvokeVirtual(green, "name", bytecode.MethodOf(bytecode.ObjectType("java.lang.String")))
	require.NoError(t, err)
	assert.Equal(t, "GREEN", name)
}

func TestCollectionsNatives(t *testing.T) {
	set := NewList("java.util.TreeSet", "b", "a", "b")
	assert.Equal(t, []Value{"a", "b"}, set.Items)

	mp := NewMap("java.util.TreeMap").Put(Int(3), "c").Put(Int(1), "a").Put(Int(3), "C")
	assert.Equal(t, []Value{Int(1), Int(3)}, mp.Keys)
	v, ok := mp.Get(Int(3))
	assert.True(t, ok)
	assert.Equal(t, "C", v)

	m := New()
	it, err := m.InvokeVirtual(NewList("java.util.ArrayList", "x", "y"), "iterator", bytecode.MethodOf(bytecode.ObjectType("java.util.Iterator")))
	require.NoError(t, err)
	var seen []Value
	for {
		more, err := m.InvokeVirtual(it, "hasNext", bytecode.MethodOf(bytecode.BooleanType))
		require.NoError(t, err)
		if more == int32(0) {
			break
		}
		next, err := m.InvokeVirtual(it, "next", bytecode.MethodOf(objectT))
		require.NoError(t, err)
		seen = append(seen, next)
	}
	assert.Equal(t, []Value{"x", "y"}, seen)

	sp := NewSparse("android.util.SparseIntArray").Put(9, int32(90)).Put(2, int32(20))
	assert.Equal(t, []int32{2, 9}, sp.Keys)
	at, err := m.InvokeVirtual(sp, "valueAt", bytecode.MethodOf(bytecode.IntType, bytecode.IntType), int32(1))
	require.NoError(t, err)
	assert.Equal(t, int32(90), at)
}

// pointClass is a Parcelable with a single int field and a CREATOR built
// from natives.
func pointClass(m *Machine) *bytecode.Class {
	b := bytecode.NewMethod(bytecode.Public, "writeToParcel", writeDesc)
	b.Load(parcelT, b.Arg(0)).
		Load(bytecode.ObjectType("test.Point"), b.This()).
		GetField("test.Point", "x", bytecode.IntType).
		Invoke(bytecode.InvokeVirtual, "android.os.Parcel", "writeInt", bytecode.MethodOf(bytecode.VoidType, bytecode.IntType)).
		Return(bytecode.VoidType)

	creator := bytecode.ObjectType("android.os.Parcelable$Creator")
	m.RegisterNative("test.PointCreator", "createFromParcel", bytecode.MethodOf(objectT, parcelT), func(_ *Machine, args []Value) Value {
		return &Object{Class: "test.Point", Fields: map[string]Value{"x": args[1].(*parcel.Parcel).ReadInt()}}
	})
	m.Load(&bytecode.Class{Name: "test.PointCreator", Super: "java.lang.Object"})
	clinit := bytecode.NewMethod(bytecode.Static, bytecode.ClinitName, bytecode.MethodOf(bytecode.VoidType))
	clinit.New("test.PointCreator").PutStatic("test.Point", "CREATOR", creator).Return(bytecode.VoidType)

	return &bytecode.Class{
		Access:     bytecode.Public,
		Name:       "test.Point",
		Super:      "java.lang.Object",
		Interfaces: []string{"android.os.Parcelable"},
		Fields: []bytecode.Field{
			{Access: bytecode.Public | bytecode.Static | bytecode.Final, Name: "CREATOR", Desc: creator},
			{Access: bytecode.Private, Name: "x", Desc: bytecode.IntType},
		},
		Methods: []bytecode.Method{b.Build(), clinit.Build()},
	}
}

func TestParcelables(t *testing.T) {
	m := New()
	m.Load(pointClass(m))
	pt := &Object{Class: "test.Point", Fields: map[string]Value{"x": int32(42)}}

	p := parcel.New()
	for _, v := range []Value{pt, nil} {
		_, err := m.InvokeVirtual(p, "writeParcelable", bytecode.MustParseDescriptor("(Landroid/os/Parcelable;I)V"), v, int32(0))
		require.NoError(t, err)
	}

	p.SetDataPosition(0)
	read := bytecode.MustParseDescriptor("(Ljava/lang/ClassLoader;)Landroid/os/Parcelable;")
	got, err := m.InvokeVirtual(p, "readParcelable", read, &classLoader{})
	require.NoError(t, err)
	assert.True(t, Equal(pt, got))
	got, err = m.InvokeVirtual(p, "readParcelable", read, &classLoader{})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, p.DataAvail())
}

func TestSerializableBlob(t *testing.T) {
	m := New()
	value := &Object{Class: "test.Blob", Fields: map[string]Value{
		"names":  NewList("java.util.ArrayList", "a", nil, "c"),
		"scores": NewMap("java.util.LinkedHashMap").Put("x", Double(1.5)).Put("y", Long(-2)),
		"bytes":  Bytes(1, 2, 255),
		"when":   Date(1_700_000_000_000),
		"nested": &Object{Class: "test.Inner", Fields: map[string]Value{"f": float32(0.25)}},
		"empty":  NewArray(bytecode.ObjectType("java.lang.String")),
	}}

	p := parcel.New()
	_, err := m.InvokeVirtual(p, "writeSerializable", bytecode.MustParseDescriptor("(Ljava/io/Serializable;)V"), value)
	require.NoError(t, err)
	p.SetDataPosition(0)
	got, err := m.InvokeVirtual(p, "readSerializable", bytecode.MustParseDescriptor("()Ljava/io/Serializable;"))
	require.NoError(t, err)
	if diff := cmp.Diff(value, got, cmp.Comparer(func(a, b bytecode.Type) bool { return a == b })); diff != "" {
		t.Errorf("serializable round trip (-want +got):\n%s", diff)
	}
}

func TestCheckCast(t *testing.T) {
	b := bytecode.NewMethod(bytecode.Public|bytecode.Static, "cast", bytecode.MethodOf(objectT, objectT))
	b.Load(objectT, b.Arg(0)).CheckCast(bytecode.ObjectType("java.lang.String")).Return(objectT)
	m := New(WithSubtypes(func(sub, sup string) bool { return sub == sup }))
	m.Load(&bytecode.Class{Name: "test.Cast", Super: "java.lang.Object", Methods: []bytecode.Method{b.Build()}})

	desc := bytecode.MethodOf(objectT, objectT)
	got, err := m.InvokeStatic("test.Cast", "cast", desc, "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	_, err = m.InvokeStatic("test.Cast", "cast", desc, Int(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ClassCastException")
	assert.True(t, errors.As(err, &vmError{}))
}

func TestConvert(t *testing.T) {
	for _, tc := range []struct {
		in   Value
		to   bytecode.Type
		want Value
	}{
		{int32(7), bytecode.BooleanType, int32(1)},
		{int32(0), bytecode.BooleanType, int32(0)},
		{int32(300), bytecode.ByteType, int32(44)},
		{int32(-1), bytecode.CharType, int32(0xffff)},
		{int32(70000), bytecode.ShortType, int32(4464)},
		{int32(3), bytecode.LongType, int64(3)},
		{int64(5), bytecode.IntType, int32(5)},
		{float32(2.5), bytecode.DoubleType, float64(2.5)},
		{float64(2.75), bytecode.IntType, int32(2)},
	} {
		assert.Equal(t, tc.want, convert(tc.in, bytecode.IntType, tc.to), "%v -> %s", tc.in, tc.to)
	}
}
