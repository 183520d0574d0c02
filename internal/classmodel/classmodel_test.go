package classmodel

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

const userManifest = `
[[class]]
name = "com.example.User"
data = true
interfaces = ["android.os.Parcelable"]

  [[class.property]]
  name = "flag"
  type = "Boolean"
  getter = "isFlag"

  [[class.property]]
  name = "label"
  type = "String"

  [[class.property]]
  name = "maybeCount"
  type = "Int?"

  [[class.annotation]]
  type = "io.parcelgen.LocalAdapters"
  args = { value = ["com.example.PointAdapter"] }

[[class]]
name = "com.example.Registry"
kind = "object"
interfaces = ["io.parcelgen.AutoParcelable"]

[[class]]
name = "com.example.PointAdapter"
kind = "object"
interfaces = ["io.parcelgen.TypeAdapter<com.example.Point>"]

  [[class.method]]
  name = "fromParcel"
  params = ["Parcel"]
  returns = "com.example.Point"

  [[class.annotation]]
  type = "io.parcelgen.GlobalAdapter"

[[class]]
name = "com.example.Color"
kind = "enum"
constants = ["RED", "GREEN", "BLUE"]
`

func load(t *testing.T, src string) []*ClassInfo {
	t.Helper()
	classes, err := LoadManifest(strings.NewReader(src))
	require.NoError(t, err)
	return classes
}

func TestLoadManifest(t *testing.T) {
	classes := load(t, userManifest)
	require.Len(t, classes, 4)

	user := classes[0]
	assert.Equal(t, "com.example.User", user.Name)
	assert.Equal(t, KindClass, user.Kind)
	assert.True(t, user.Data)
	assert.True(t, user.Access.Has(bytecode.Public|bytecode.Final))
	require.Len(t, user.Properties, 3)
	assert.Equal(t, "isFlag", user.Properties[0].GetterName())
	assert.Equal(t, "getLabel", user.Properties[1].GetterName())
	assert.Equal(t, "java.lang.Integer?", user.Properties[2].Type.String())

	locals, ok, err := DecodeTag[LocalAdapters](user, LocalAdaptersTag)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"com.example.PointAdapter"}, locals.Value)

	_, ok, err = DecodeTag[GlobalAdapter](user, GlobalAdapterTag)
	require.NoError(t, err)
	assert.False(t, ok)

	adapter := classes[2]
	_, ok, err = DecodeTag[GlobalAdapter](adapter, GlobalAdapterTag)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "com.example.Point", adapter.Methods[0].Return.Name())

	color := classes[3]
	assert.Equal(t, KindEnum, color.Kind)
	assert.True(t, color.Access.Has(bytecode.Enum))
	assert.Equal(t, "java.lang.Enum", color.SuperName())
}

func TestLoadManifestErrors(t *testing.T) {
	for name, src := range map[string]string{
		"unknown key":     "[[class]]\nname = \"a.B\"\ncolour = \"red\"\n",
		"bad kind":        "[[class]]\nname = \"a.B\"\nkind = \"struct\"\n",
		"bad type":        "[[class]]\nname = \"a.B\"\n[[class.property]]\nname = \"x\"\ntype = \"List<\"\n",
		"bad modifier":    "[[class]]\nname = \"a.B\"\naccess = [\"sealed\"]\n",
		"missing name":    "[[class]]\ndata = true\n",
		"malformed toml":  "[[class]\n",
		"unnamed tag":     "[[class]]\nname = \"a.B\"\n[[class.annotation]]\n",
		"undeclared type": "[[class]]\nname = \"a.B\"\n[[class.property]]\nname = \"x\"\ntype = \"T<\"\n",
	} {
		_, err := LoadManifest(strings.NewReader(src))
		assert.Error(t, err, name)
	}
}

func TestUniverse(t *testing.T) {
	u, err := NewUniverse(load(t, userManifest)...)
	require.NoError(t, err)

	_, ok := u.Lookup("java.util.ArrayList")
	assert.True(t, ok)
	assert.Len(t, u.UserClasses(), 4)
	assert.Equal(t, []string{"com.example.PointAdapter"}, names(u.Tagged(GlobalAdapterTag)))

	o := hierarchy.New(u)
	assert.True(t, o.Is("java.util.LinkedHashSet", "java.util.Collection"))
	assert.True(t, o.Is("java.lang.Integer", "java.io.Serializable"))
	assert.True(t, o.Is("com.example.Registry", ParcelableClass))
	assert.True(t, o.Is("com.example.Color", EnumClass))
	assert.False(t, o.Is("java.util.TreeMap", "java.util.Collection"))

	_, err = NewUniverse(&ClassInfo{Name: "java.lang.String"})
	assert.Error(t, err)
}

func names(cs []*ClassInfo) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestEligible(t *testing.T) {
	u, err := NewUniverse(load(t, userManifest+`
[[class]]
name = "com.example.Shape"
access = ["public", "abstract"]
interfaces = ["android.os.Parcelable"]

[[class]]
name = "com.example.Plain"
data = true
`)...)
	require.NoError(t, err)
	o := hierarchy.New(u)

	var eligible []string
	for _, c := range u.UserClasses() {
		if Eligible(o, c) {
			eligible = append(eligible, c.Name)
		}
	}
	assert.Equal(t, []string{"com.example.Registry", "com.example.User"}, eligible)
}

func TestBuildSpec(t *testing.T) {
	classes := load(t, userManifest)

	spec, err := BuildSpec(classes[0])
	require.NoError(t, err)
	assert.Equal(t, DataSpec, spec.Kind)
	assert.Equal(t, "(ZLjava/lang/String;Ljava/lang/Integer;)V", spec.Constructor.Desc.Descriptor())
	require.Len(t, spec.Properties, 3)
	assert.Equal(t, bytecode.Member{Owner: "com.example.User", Name: "isFlag", Desc: bytecode.MethodOf(bytecode.BooleanType)}, spec.Properties[0].Getter)

	obj, err := BuildSpec(classes[1])
	require.NoError(t, err)
	assert.Equal(t, ObjectSpec, obj.Kind)
	assert.Empty(t, obj.Properties)
}

func TestBuildSpecFollowsConstructorOrder(t *testing.T) {
	c := load(t, `
[[class]]
name = "a.Pair"
data = true
  [[class.property]]
  name = "first"
  type = "Int"
  [[class.property]]
  name = "second"
  type = "Long"
  [[class.property]]
  name = "derived"
  type = "String"
  [[class.constructor]]
  params = [{ name = "second", type = "Long" }, { name = "first", type = "Int" }]
`)[0]
	spec, err := BuildSpec(c)
	require.NoError(t, err)
	require.Len(t, spec.Properties, 2)
	assert.Equal(t, "second", spec.Properties[0].Name)
	assert.Equal(t, "first", spec.Properties[1].Name)
}

func TestBuildSpecErrors(t *testing.T) {
	for _, tc := range []struct {
		name, src, msg string
	}{
		{"generic", "name = \"a.B\"\ndata = true\ntype-params = [\"T\"]", "generic classes are not supported"},
		{"enum", "name = \"a.B\"\nkind = \"enum\"", "enum cannot be processed"},
		{"not data", "name = \"a.B\"", "only data classes and objects are supported"},
		{"identity field", "name = \"a.B\"\ndata = true\n[[class.field]]\nname = \"CREATOR\"\ntype = \"Parcelable$Creator\"", "CREATOR"},
		{"ambiguous", "name = \"a.B\"\ndata = true\n[[class.constructor]]\n[[class.constructor]]\nparams = [{ name = \"x\", type = \"Int\" }]", "2 candidate primary constructors"},
		{"private ctor", "name = \"a.B\"\ndata = true\n[[class.constructor]]\naccess = [\"private\"]", "primary constructor must be public"},
		{"unmatched", "name = \"a.B\"\ndata = true\n[[class.constructor]]\nparams = [{ name = \"x\", type = \"Int\" }]", `constructor parameter "x" has no matching property`},
		{"private getter", "name = \"a.B\"\ndata = true\n[[class.property]]\nname = \"x\"\ntype = \"Int\"\ngetter-access = [\"private\"]", `property "x" has no public getter`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := load(t, "[[class]]\n"+tc.src+"\n")[0]
			_, err := BuildSpec(c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, xerrors.ErrInvalidTarget))
			assert.Contains(t, err.Error(), tc.msg)
			typ, ok := xerrors.TypeOf(err)
			assert.True(t, ok)
			assert.Equal(t, "a.B", typ)
		})
	}
}

func TestCompile(t *testing.T) {
	classes := load(t, userManifest)

	user := Compile(classes[0])
	assert.Equal(t, "java.lang.Object", user.Super)
	assert.Equal(t, []string{"android.os.Parcelable"}, user.Interfaces)
	_, ok := user.Field("label")
	assert.True(t, ok)
	ctor, ok := user.Method(bytecode.InitName, bytecode.MustParseDescriptor("(ZLjava/lang/String;Ljava/lang/Integer;)V"))
	require.True(t, ok)
	assert.Len(t, ctor.Code, 2+3*3+1)
	_, ok = user.Method("isFlag", bytecode.MethodOf(bytecode.BooleanType))
	assert.True(t, ok)

	registry := Compile(classes[1])
	_, ok = registry.Field(InstanceField)
	assert.True(t, ok)
	_, ok = registry.Method(bytecode.ClinitName, bytecode.MethodOf(bytecode.VoidType))
	assert.True(t, ok)
	init, ok := registry.Method(bytecode.InitName, bytecode.MethodOf(bytecode.VoidType))
	require.True(t, ok)
	assert.True(t, init.Access.Has(bytecode.Private))

	color := Compile(classes[3])
	require.Len(t, color.Fields, 3)
	assert.True(t, color.Fields[0].Access.Has(bytecode.Enum|bytecode.Static))
	assert.Equal(t, "java.lang.Enum", color.Super)
}
