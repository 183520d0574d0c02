package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeConstruction(t *testing.T) {
	str := ObjectType("java.lang.String")
	assert.Equal(t, "Ljava/lang/String;", str.Descriptor())
	assert.Equal(t, "java.lang.String", str.ClassName())
	assert.Equal(t, "java/lang/String", str.InternalName())
	assert.Equal(t, ObjectSort, str.Sort())

	arr := ArrayOf(ArrayOf(IntType))
	assert.Equal(t, "[[I", arr.Descriptor())
	assert.Equal(t, "int[][]", arr.ClassName())
	assert.Equal(t, ArrayOf(IntType), arr.Elem())
	assert.True(t, arr.IsReference())
	assert.False(t, arr.IsPrimitive())

	m := MethodOf(VoidType, ObjectType("android.os.Parcel"), IntType)
	assert.Equal(t, "(Landroid/os/Parcel;I)V", m.Descriptor())
	assert.Equal(t, []Type{ObjectType("android.os.Parcel"), IntType}, m.Args())
	assert.Equal(t, VoidType, m.Return())
	assert.Equal(t, MethodSort, m.Sort())
}

func TestTypeSize(t *testing.T) {
	for _, tc := range []struct {
		typ  Type
		size int
	}{
		{IntType, 1},
		{BooleanType, 1},
		{LongType, 2},
		{DoubleType, 2},
		{VoidType, 0},
		{ObjectType("java.lang.Long"), 1},
		{ArrayOf(LongType), 1},
	} {
		assert.Equal(t, tc.size, tc.typ.Size(), tc.typ.String())
	}
}

func TestPrimitiveNamed(t *testing.T) {
	p, ok := PrimitiveNamed("long")
	require.True(t, ok)
	assert.Equal(t, LongType, p)
	assert.Equal(t, "long", p.ClassName())

	_, ok = PrimitiveNamed("java.lang.Long")
	assert.False(t, ok)
}

func TestParseDescriptor(t *testing.T) {
	for _, good := range []string{"I", "[J", "Ljava/util/List;", "()V", "(IJ[Ljava/lang/String;)Ljava/lang/Object;"} {
		typ, err := ParseDescriptor(good)
		require.NoError(t, err, good)
		assert.Equal(t, good, typ.Descriptor())
	}
	for _, bad := range []string{"", "X", "L;", "Ljava/lang/String", "[V", "(V)V", "(I", "()", "II"} {
		_, err := ParseDescriptor(bad)
		assert.Error(t, err, bad)
	}
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "public static final", (Public | Static | Final).String())
	assert.True(t, (Public | Abstract).Has(Abstract))
	assert.False(t, Public.Has(Public|Static))
}

func TestMethodBuilder(t *testing.T) {
	b := NewMethod(Public, "sum", MethodOf(LongType, IntType, LongType, IntType))
	assert.Equal(t, 0, b.This())
	assert.Equal(t, 1, b.Arg(0))
	assert.Equal(t, 2, b.Arg(1))
	assert.Equal(t, 4, b.Arg(2))

	tmp := b.NewLocal(LongType)
	assert.Equal(t, 5, tmp)

	end := b.NewLabel()
	b.Load(IntType, b.Arg(0)).Jump(IfEq, end)
	b.Mark(end)
	b.Const(int64(0)).Return(LongType)

	m := b.Build()
	assert.Equal(t, 7, m.MaxLocals)
	assert.Len(t, m.Code, 5)
	assert.Equal(t, Label, m.Code[2].Op)
}

func TestMethodBuilderMisuse(t *testing.T) {
	assert.Panics(t, func() { NewMethod(Public, "bad", IntType) })

	static := NewMethod(Public|Static, "f", MethodOf(VoidType))
	assert.Equal(t, 0, static.NewLocal(IntType))
	assert.Panics(t, func() { static.This() })

	unmarked := NewMethod(Public|Static, "g", MethodOf(VoidType))
	unmarked.Jump(Goto, unmarked.NewLabel())
	assert.Panics(t, func() { unmarked.Build() })

	assert.Panics(t, func() { unmarked.Const(42) })
	assert.Panics(t, func() { unmarked.Invoke(Goto, "A", "b", MethodOf(VoidType)) })
}
