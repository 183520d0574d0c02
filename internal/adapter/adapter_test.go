package adapter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/internal/hierarchy"
	"github.com/kanengo/parcelgen/internal/typemodel"
	"github.com/kanengo/parcelgen/internal/vm"
	"github.com/kanengo/parcelgen/runtime/parcel"
)

const testManifest = `
[[class]]
name = "test.Color"
kind = "enum"
constants = ["RED", "GREEN", "BLUE"]

[[class]]
name = "test.Point"

  [[class.field]]
  name = "x"
  type = "Int"

[[class]]
name = "test.Money"

[[class]]
name = "test.Blob"
interfaces = ["Serializable"]

[[class]]
name = "test.PointAdapter"
kind = "object"
interfaces = ["io.parcelgen.TypeAdapter<test.Point>"]

  [[class.annotation]]
  type = "io.parcelgen.GlobalAdapter"

[[class]]
name = "test.MoneyAdapter"
interfaces = ["io.parcelgen.TypeAdapter<test.Money>"]

[[class]]
name = "test.BaseAdapter"
access = ["public", "abstract"]
type-params = ["T"]
interfaces = ["io.parcelgen.TypeAdapter<T>"]

[[class]]
name = "test.ShadowPointAdapter"
super = "test.BaseAdapter<test.Point>"

[[class]]
name = "test.Holder"
data = true

  [[class.annotation]]
  type = "io.parcelgen.LocalAdapters"
  args = { value = ["test.ShadowPointAdapter", "test.MoneyAdapter"] }

[[class]]
name = "test.Plain"
data = true
`

type harness struct {
	t        *testing.T
	universe *classmodel.Universe
	registry *Registry
	machine  *vm.Machine
	holders  int
}

func newHarness(t *testing.T, src string) *harness {
	t.Helper()
	classes, err := classmodel.LoadManifest(strings.NewReader(src))
	require.NoError(t, err)
	u, err := classmodel.NewUniverse(classes...)
	require.NoError(t, err)
	o := hierarchy.New(u)
	r, err := NewRegistry(u, o)
	require.NoError(t, err)

	m := vm.New(vm.WithSubtypes(o.Is))
	for _, c := range classes {
		m.Load(classmodel.Compile(c))
	}
	h := &harness{t: t, universe: u, registry: r, machine: m}
	h.installAdapters()
	return h
}

// installAdapters backs the adapter classes of testManifest with natives. A
// Point travels as its x field; the shadowing adapter negates it so that the
// adapter in use can be told from the bytes.
func (h *harness) installAdapters() {
	point := func(scale int32) (vm.Native, vm.Native) {
		write := func(_ *vm.Machine, args []vm.Value) vm.Value {
			args[2].(*parcel.Parcel).WriteInt(scale * args[1].(*vm.Object).Fields["x"].(int32))
			return nil
		}
		read := func(_ *vm.Machine, args []vm.Value) vm.Value {
			x := args[1].(*parcel.Parcel).ReadInt()
			return &vm.Object{Class: "test.Point", Fields: map[string]vm.Value{"x": scale * x}}
		}
		return write, read
	}
	money := func(_ *vm.Machine, args []vm.Value) vm.Value {
		args[2].(*parcel.Parcel).WriteLong(7)
		return nil
	}
	moneyBack := func(_ *vm.Machine, args []vm.Value) vm.Value {
		args[1].(*parcel.Parcel).ReadLong()
		return &vm.Object{Class: "test.Money", Fields: map[string]vm.Value{}}
	}

	w, r := point(1)
	h.machine.RegisterNative("test.PointAdapter", "toParcel", toParcelDesc, w)
	h.machine.RegisterNative("test.PointAdapter", "fromParcel", fromParcelDesc, r)
	w, r = point(-1)
	h.machine.RegisterNative("test.ShadowPointAdapter", "toParcel", toParcelDesc, w)
	h.machine.RegisterNative("test.ShadowPointAdapter", "fromParcel", fromParcelDesc, r)
	h.machine.RegisterNative("test.MoneyAdapter", "toParcel", toParcelDesc, money)
	h.machine.RegisterNative("test.MoneyAdapter", "fromParcel", fromParcelDesc, moneyBack)
}

func (h *harness) scope(class string) *Scope {
	h.t.Helper()
	c, ok := h.universe.Lookup(class)
	require.True(h.t, ok, class)
	s, err := h.registry.Scope(&classmodel.ClassSpec{Class: c})
	require.NoError(h.t, err)
	return s
}

func (h *harness) resolve(class, notation string) (Adapter, error) {
	h.t.Helper()
	return h.scope(class).ResolveType(typemodel.MustParse(notation))
}

// roundTrip writes v as a value of the declared type through the adapter the
// scope of class resolves, reads it back, and returns the decoded value and
// the number of bytes written.
func (h *harness) roundTrip(class, notation string, v vm.Value) (vm.Value, int) {
	h.t.Helper()
	a, err := h.resolve(class, notation)
	require.NoError(h.t, err, notation)

	vt := ValueType(a)
	h.holders++
	name := fmt.Sprintf("test.Codec%d", h.holders)
	writeDesc := bytecode.MethodOf(bytecode.VoidType, parcelType, bytecode.IntType, vt)
	readDesc := bytecode.MethodOf(vt, parcelType)

	w := bytecode.NewMethod(bytecode.Public|bytecode.Static, "write", writeDesc)
	wctx := NewContext(w).
		Bind(Parcel, w.Arg(0), parcelType).
		Bind(Flags, w.Arg(1), bytecode.IntType).
		Bind(Value, w.Arg(2), vt)
	EmitWrite(a, wctx)
	w.Return(bytecode.VoidType)

	r := bytecode.NewMethod(bytecode.Public|bytecode.Static, "read", readDesc)
	rctx := NewContext(r).Bind(Parcel, r.Arg(0), parcelType).Local(vt)
	EmitRead(a, rctx)
	rctx.Load(Value).Return(vt)

	h.machine.Load(&bytecode.Class{
		Access:  bytecode.Public,
		Name:    name,
		Super:   classmodel.ObjectClass,
		Methods: []bytecode.Method{w.Build(), r.Build()},
	})

	p := parcel.Obtain()
	h.t.Cleanup(p.Recycle)
	_, err = h.machine.InvokeStatic(name, "write", writeDesc, p, int32(0), v)
	require.NoError(h.t, err, notation)
	size := p.DataSize()

	p.SetDataPosition(0)
	got, err := h.machine.InvokeStatic(name, "read", readDesc, p)
	require.NoError(h.t, err, notation)
	require.Zero(h.t, p.DataAvail(), "%s left unread bytes", notation)
	return got, size
}

func (h *harness) enum(class, name string) vm.Value {
	h.t.Helper()
	v, err := h.machine.GetStatic(class, name)
	require.NoError(h.t, err)
	return v
}
