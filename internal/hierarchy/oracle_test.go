package hierarchy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kanengo/parcelgen/internal/bytecode"
)

type classes map[string][]string // name -> super, interfaces...

func (c classes) Supertypes(name string) (string, []string, bool) {
	s, ok := c[name]
	if !ok {
		return "", nil, false
	}
	return s[0], s[1:], true
}

var universe = classes{
	"java.lang.Object":       {""},
	"java.lang.Number":       {"java.lang.Object", "java.io.Serializable"},
	"java.lang.Integer":      {"java.lang.Number", "java.lang.Comparable"},
	"java.lang.Comparable":   {""},
	"java.io.Serializable":   {""},
	"android.os.Parcelable":  {""},
	"com.example.Shape":      {"java.lang.Object", "android.os.Parcelable"},
	"com.example.Circle":     {"com.example.Shape"},
	"com.example.Loop":       {"com.example.Loop2"},
	"com.example.Loop2":      {"com.example.Loop"},
	"com.example.Standalone": {"java.lang.Object"},
}

func obj(name string) bytecode.Type { return bytecode.ObjectType(name) }

func TestReflexive(t *testing.T) {
	o := New(universe)
	for _, typ := range []bytecode.Type{
		bytecode.IntType,
		bytecode.BooleanType,
		obj("java.lang.Object"),
		obj("com.example.Circle"),
		obj("com.unknown.Thing"),
		bytecode.ArrayOf(bytecode.ArrayOf(obj("com.example.Circle"))),
	} {
		assert.True(t, o.IsSubclassOf(typ, typ), typ.String())
	}
}

func TestPrimitives(t *testing.T) {
	o := New(universe)
	assert.False(t, o.IsSubclassOf(bytecode.IntType, bytecode.LongType))
	assert.False(t, o.IsSubclassOf(bytecode.IntType, obj("java.lang.Integer")))
	assert.False(t, o.IsSubclassOf(bytecode.IntType, obj("java.lang.Object")))
	assert.False(t, o.IsSubclassOf(obj("java.lang.Integer"), bytecode.IntType))
}

func TestObjectIsRoot(t *testing.T) {
	o := New(universe)
	assert.True(t, o.IsSubclassOf(obj("com.example.Circle"), obj("java.lang.Object")))
	assert.True(t, o.IsSubclassOf(obj("com.unknown.Thing"), obj("java.lang.Object")))
	assert.True(t, o.IsSubclassOf(bytecode.ArrayOf(bytecode.IntType), obj("java.lang.Object")))
	assert.False(t, o.IsSubclassOf(obj("java.lang.Object"), obj("com.example.Shape")))
}

func TestDeclaredSupertypes(t *testing.T) {
	o := New(universe)
	assert.True(t, o.Is("com.example.Circle", "com.example.Shape"))
	assert.True(t, o.Is("com.example.Circle", "android.os.Parcelable"))
	assert.True(t, o.Is("java.lang.Integer", "java.io.Serializable"))
	assert.True(t, o.Is("java.lang.Integer", "java.lang.Comparable"))
	assert.False(t, o.Is("com.example.Shape", "com.example.Circle"))
	assert.False(t, o.Is("com.example.Standalone", "android.os.Parcelable"))
	assert.False(t, o.Is("com.unknown.Thing", "android.os.Parcelable"))
	assert.False(t, o.Is("com.example.Loop", "android.os.Parcelable"))
}

func TestArraysAreCovariant(t *testing.T) {
	o := New(universe)
	pairs := [][2]bytecode.Type{
		{obj("com.example.Circle"), obj("com.example.Shape")},
		{obj("com.example.Shape"), obj("com.example.Circle")},
		{bytecode.IntType, bytecode.LongType},
		{bytecode.IntType, bytecode.IntType},
		{obj("java.lang.Integer"), obj("java.lang.Number")},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		assert.Equal(t,
			o.IsSubclassOf(a, b),
			o.IsSubclassOf(bytecode.ArrayOf(a), bytecode.ArrayOf(b)),
			"%s <: %s", a, b)
	}
}

func TestArraysAndClassesNeverRelate(t *testing.T) {
	o := New(universe)
	arr := bytecode.ArrayOf(obj("com.example.Circle"))
	assert.False(t, o.IsSubclassOf(arr, obj("com.example.Shape")))
	assert.False(t, o.IsSubclassOf(arr, obj("java.io.Serializable")))
	assert.False(t, o.IsSubclassOf(obj("com.example.Circle"), arr))
}

func TestMalformedQueriesPanic(t *testing.T) {
	o := New(universe)
	method := bytecode.MethodOf(bytecode.VoidType, bytecode.IntType)
	assert.Panics(t, func() { o.IsSubclassOf(method, obj("java.lang.Object")) })
	assert.Panics(t, func() { o.IsSubclassOf(obj("java.lang.Object"), method) })
	assert.Panics(t, func() { o.IsSubclassOf(bytecode.Type{}, bytecode.IntType) })
}

func TestConcurrentQueries(t *testing.T) {
	o := New(universe)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, o.Is("com.example.Circle", "android.os.Parcelable"))
				assert.False(t, o.Is("com.example.Standalone", "com.example.Shape"))
			}
		}()
	}
	wg.Wait()
}
