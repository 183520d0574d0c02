// Package vm is a small interpreter for bytecode classes. It executes
// generated marshalling code against runtime/parcel so that encodings can be
// checked end to end. Platform classes (boxes, collections, Parcel, ...) are
// implemented as natives.
package vm

import (
	"errors"
	"fmt"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/runtime/parcel"
)

type vmError struct {
	err error
}

func (e vmError) Error() string { return "vm: " + e.err.Error() }
func (e vmError) Unwrap() error { return e.err }

func vmErrorf(format string, args ...any) vmError {
	return vmError{err: fmt.Errorf(format, args...)}
}

// catchPanics turns machine and parcel panics into errors.
func catchPanics(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok && errors.As(err, &vmError{}) {
		return err
	}
	return parcel.CatchPanics(r)
}

// Native implements a method in Go. For instance methods args[0] is the
// receiver.
type Native func(m *Machine, args []Value) Value

type methodKey struct {
	owner, name, desc string
}

// DefaultMaxSteps bounds the number of instructions a single Invoke runs.
const DefaultMaxSteps = 10_000_000

// Machine is not safe for concurrent use.
type Machine struct {
	classes     map[string]*bytecode.Class
	natives     map[methodKey]Native
	statics     map[string]map[string]Value
	initialized map[string]bool
	labels      map[*bytecode.Method]map[bytecode.LabelID]int
	subtype     func(sub, sup string) bool

	// MaxSteps limits the instructions executed per Invoke.
	MaxSteps int
	steps    int
}

type Option func(*Machine)

// WithSubtypes makes checkcast verify object classes with is.
func WithSubtypes(is func(sub, sup string) bool) Option {
	return func(m *Machine) { m.subtype = is }
}

func New(opts ...Option) *Machine {
	m := &Machine{
		classes:     map[string]*bytecode.Class{},
		natives:     map[methodKey]Native{},
		statics:     map[string]map[string]Value{},
		initialized: map[string]bool{},
		labels:      map[*bytecode.Method]map[bytecode.LabelID]int{},
		MaxSteps:    DefaultMaxSteps,
	}
	for _, o := range opts {
		o(m)
	}
	installNatives(m)
	return m
}

// Load adds classes. A class loaded again replaces the previous definition.
func (m *Machine) Load(classes ...*bytecode.Class) {
	for _, c := range classes {
		m.classes[c.Name] = c
		delete(m.initialized, c.Name)
		delete(m.statics, c.Name)
	}
}

// Class returns a loaded class.
func (m *Machine) Class(name string) (*bytecode.Class, bool) {
	c, ok := m.classes[name]
	return c, ok
}

// RegisterNative implements owner.name with fn.
func (m *Machine) RegisterNative(owner, name string, desc bytecode.Type, fn Native) {
	m.natives[methodKey{owner, name, desc.Descriptor()}] = fn
}

// InvokeStatic runs a static method.
func (m *Machine) InvokeStatic(owner, name string, desc bytecode.Type, args ...Value) (ret Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catchPanics(r)
		}
	}()
	m.steps = 0
	return m.invoke(bytecode.InvokeStatic, bytecode.Member{Owner: owner, Name: name, Desc: desc}, args), nil
}

// InvokeVirtual runs an instance method on recv, dispatching on its class.
func (m *Machine) InvokeVirtual(recv Value, name string, desc bytecode.Type, args ...Value) (ret Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catchPanics(r)
		}
	}()
	m.steps = 0
	member := bytecode.Member{Owner: ClassOf(recv), Name: name, Desc: desc}
	return m.invoke(bytecode.InvokeVirtual, member, append([]Value{recv}, args...)), nil
}

// NewObject instantiates class through the constructor with descriptor ctor.
func (m *Machine) NewObject(class string, ctor bytecode.Type, args ...Value) (obj Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catchPanics(r)
		}
	}()
	m.steps = 0
	obj = m.instantiate(class)
	m.invoke(bytecode.InvokeSpecial, bytecode.Member{Owner: class, Name: bytecode.InitName, Desc: ctor}, append([]Value{obj}, args...))
	return obj, nil
}

// GetStatic reads a static field, initializing its class first.
func (m *Machine) GetStatic(owner, name string) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catchPanics(r)
		}
	}()
	m.steps = 0
	return m.getStatic(owner, name), nil
}

func (m *Machine) getStatic(owner, name string) Value {
	m.ensureInit(owner)
	v, ok := m.statics[owner][name]
	if !ok {
		panic(vmErrorf("java.lang.NoSuchFieldError: %s.%s", owner, name))
	}
	return v
}

func (m *Machine) putStatic(owner, name string, v Value) {
	m.ensureInit(owner)
	if m.statics[owner] == nil {
		m.statics[owner] = map[string]Value{}
	}
	m.statics[owner][name] = v
}

// ensureInit runs the static initializer of a loaded class once. Enum
// constants are created before it runs.
func (m *Machine) ensureInit(name string) {
	if m.initialized[name] {
		return
	}
	c, ok := m.classes[name]
	if !ok {
		return
	}
	m.initialized[name] = true
	statics := map[string]Value{}
	m.statics[name] = statics
	var ordinal int32
	for _, f := range c.Fields {
		if !f.Access.Has(bytecode.Static) {
			continue
		}
		if c.Access.Has(bytecode.Enum) && f.Access.Has(bytecode.Enum) {
			statics[f.Name] = &EnumConst{Class: name, Name: f.Name, Ordinal: ordinal}
			ordinal++
			continue
		}
		statics[f.Name] = zero(f.Desc)
	}
	if clinit, ok := c.Method(bytecode.ClinitName, bytecode.MethodOf(bytecode.VoidType)); ok && clinit.Code != nil {
		m.exec(c, clinit, nil)
	}
}

// enumValues returns the constants of a loaded enum class in ordinal order.
func (m *Machine) enumValues(name string) *Array {
	c, ok := m.classes[name]
	if !ok || !c.Access.Has(bytecode.Enum) {
		panic(vmErrorf("%s is not a loaded enum", name))
	}
	m.ensureInit(name)
	arr := &Array{Elem: c.Type()}
	for _, f := range c.Fields {
		if f.Access.Has(bytecode.Enum | bytecode.Static) {
			arr.Values = append(arr.Values, m.statics[name][f.Name])
		}
	}
	return arr
}

// instantiate allocates an uninitialized instance.
func (m *Machine) instantiate(class string) Value {
	switch class {
	case "java.util.ArrayList", "java.util.LinkedList",
		"java.util.HashSet", "java.util.LinkedHashSet", "java.util.TreeSet":
		return &List{Class: class}
	case "java.util.HashMap", "java.util.LinkedHashMap", "java.util.TreeMap":
		return &Map{Class: class}
	case "android.util.SparseArray", "android.util.SparseIntArray",
		"android.util.SparseLongArray", "android.util.SparseBooleanArray":
		return &Sparse{Class: class}
	case "java.util.Date":
		return &Box{Class: class, V: int64(0)}
	}
	c, ok := m.classes[class]
	if !ok {
		panic(vmErrorf("java.lang.NoClassDefFoundError: %s", class))
	}
	if c.Access.Has(bytecode.Abstract) || c.Access.Has(bytecode.Interface) {
		panic(vmErrorf("java.lang.InstantiationError: %s", class))
	}
	m.ensureInit(class)
	obj := &Object{Class: class, Fields: map[string]Value{}}
	for c != nil {
		for _, f := range c.Fields {
			if _, set := obj.Fields[f.Name]; !set && !f.Access.Has(bytecode.Static) {
				obj.Fields[f.Name] = zero(f.Desc)
			}
		}
		c = m.classes[c.Super]
	}
	return obj
}

// invoke dispatches a call. args includes the receiver for instance calls.
func (m *Machine) invoke(op bytecode.Op, member bytecode.Member, args []Value) Value {
	desc := member.Desc.Descriptor()
	if op == bytecode.InvokeStatic {
		if fn, ok := m.natives[methodKey{member.Owner, member.Name, desc}]; ok {
			return fn(m, args)
		}
		m.ensureInit(member.Owner)
		if c, ok := m.classes[member.Owner]; ok {
			if meth, ok := c.Method(member.Name, member.Desc); ok && meth.Code != nil {
				return m.exec(c, meth, args)
			}
			if member.Name == "values" && c.Access.Has(bytecode.Enum) {
				return m.enumValues(member.Owner)
			}
		}
		panic(vmErrorf("java.lang.NoSuchMethodError: %s", member))
	}

	recv := args[0]
	if recv == nil {
		panic(vmErrorf("java.lang.NullPointerException: invoking %s on null", member))
	}

	start := member.Owner
	if op != bytecode.InvokeSpecial {
		start = ClassOf(recv)
	}
	for cls := start; cls != ""; {
		if fn, ok := m.natives[methodKey{cls, member.Name, desc}]; ok {
			return fn(m, args)
		}
		c, ok := m.classes[cls]
		if !ok {
			break
		}
		if meth, ok := c.Method(member.Name, member.Desc); ok && meth.Code != nil {
			return m.exec(c, meth, args)
		}
		cls = c.Super
	}
	if fn, ok := m.natives[methodKey{member.Owner, member.Name, desc}]; ok {
		return fn(m, args)
	}
	if op == bytecode.InvokeSpecial && member.Name == bytecode.InitName {
		// Constructors of classes outside the machine have no observable effect.
		return nil
	}
	panic(vmErrorf("java.lang.AbstractMethodError: %s on %s", member, ClassOf(recv)))
}

func (m *Machine) labelsOf(meth *bytecode.Method) map[bytecode.LabelID]int {
	if l, ok := m.labels[meth]; ok {
		return l
	}
	l := map[bytecode.LabelID]int{}
	for i, in := range meth.Code {
		if in.Op == bytecode.Label {
			l[in.Target] = i
		}
	}
	m.labels[meth] = l
	return l
}

type frame struct {
	stack []Value
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	if len(f.stack) == 0 {
		panic(vmErrorf("operand stack underflow"))
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popInt() int32 {
	v, ok := f.pop().(int32)
	if !ok {
		panic(vmErrorf("expected an int on the stack"))
	}
	return v
}

func (m *Machine) exec(c *bytecode.Class, meth *bytecode.Method, args []Value) Value {
	locals := make([]Value, max(meth.MaxLocals, len(args)))
	slot := 0
	if !meth.Access.Has(bytecode.Static) {
		locals[0] = args[0]
		args = args[1:]
		slot = 1
	}
	for i, t := range meth.Desc.Args() {
		locals[slot] = args[i]
		slot += t.Size()
	}

	labels := m.labelsOf(meth)
	f := &frame{}
	for pc := 0; pc < len(meth.Code); pc++ {
		m.steps++
		if m.MaxSteps > 0 && m.steps > m.MaxSteps {
			panic(vmErrorf("step limit %d exceeded in %s.%s", m.MaxSteps, c.Name, meth.Name))
		}
		in := meth.Code[pc]
		jump := func() {
			target, ok := labels[in.Target]
			if !ok {
				panic(vmErrorf("%s.%s: unknown label %d", c.Name, meth.Name, in.Target))
			}
			pc = target
		}

		switch in.Op {
		case bytecode.Nop, bytecode.Label:
		case bytecode.Const:
			f.push(in.Value)
		case bytecode.Load:
			f.push(locals[in.Local])
		case bytecode.Store:
			locals[in.Local] = f.pop()
		case bytecode.IInc:
			locals[in.Local] = locals[in.Local].(int32) + in.Delta
		case bytecode.Dup:
			v := f.pop()
			f.push(v)
			f.push(v)
		case bytecode.Pop:
			f.pop()
		case bytecode.Swap:
			a, b := f.pop(), f.pop()
			f.push(a)
			f.push(b)
		case bytecode.New:
			f.push(m.instantiate(in.Type.ClassName()))
		case bytecode.NewArray:
			n := f.popInt()
			if n < 0 {
				panic(vmErrorf("java.lang.NegativeArraySizeException: %d", n))
			}
			arr := &Array{Elem: in.Type, Values: make([]Value, n)}
			for i := range arr.Values {
				arr.Values[i] = zero(in.Type)
			}
			f.push(arr)
		case bytecode.ArrayLength:
			f.push(int32(len(asArray(f.pop()).Values)))
		case bytecode.ArrayLoad:
			i := f.popInt()
			arr := asArray(f.pop())
			checkIndex(arr, i)
			f.push(arr.Values[i])
		case bytecode.ArrayStore:
			v := f.pop()
			i := f.popInt()
			arr := asArray(f.pop())
			checkIndex(arr, i)
			arr.Values[i] = v
		case bytecode.GetField:
			obj := asObject(f.pop(), in.Member)
			v, ok := obj.Fields[in.Member.Name]
			if !ok {
				v = zero(in.Member.Desc)
			}
			f.push(v)
		case bytecode.PutField:
			v := f.pop()
			asObject(f.pop(), in.Member).Fields[in.Member.Name] = v
		case bytecode.GetStatic:
			f.push(m.getStatic(in.Member.Owner, in.Member.Name))
		case bytecode.PutStatic:
			m.putStatic(in.Member.Owner, in.Member.Name, f.pop())
		case bytecode.InvokeVirtual, bytecode.InvokeStatic, bytecode.InvokeSpecial, bytecode.InvokeInterface:
			n := len(in.Member.Desc.Args())
			if in.Op != bytecode.InvokeStatic {
				n++
			}
			if len(f.stack) < n {
				panic(vmErrorf("operand stack underflow calling %s", in.Member))
			}
			callArgs := append([]Value(nil), f.stack[len(f.stack)-n:]...)
			f.stack = f.stack[:len(f.stack)-n]
			ret := m.invoke(in.Op, in.Member, callArgs)
			if in.Member.Desc.Return() != bytecode.VoidType {
				f.push(ret)
			}
		case bytecode.CheckCast:
			v := f.pop()
			m.checkCast(v, in.Type)
			f.push(v)
		case bytecode.Convert:
			f.push(convert(f.pop(), in.From, in.Type))
		case bytecode.Goto:
			jump()
		case bytecode.IfEq:
			if f.popInt() == 0 {
				jump()
			}
		case bytecode.IfNe:
			if f.popInt() != 0 {
				jump()
			}
		case bytecode.IfLt:
			if f.popInt() < 0 {
				jump()
			}
		case bytecode.IfNull:
			if f.pop() == nil {
				jump()
			}
		case bytecode.IfNonNull:
			if f.pop() != nil {
				jump()
			}
		case bytecode.IfICmpGe:
			b, a := f.popInt(), f.popInt()
			if a >= b {
				jump()
			}
		case bytecode.Return:
			if in.Type == bytecode.VoidType || in.Type.IsZero() {
				return nil
			}
			return f.pop()
		default:
			panic(vmErrorf("%s.%s: unsupported instruction %s", c.Name, meth.Name, in.Op))
		}
	}
	panic(vmErrorf("%s.%s: fell off the end of the method", c.Name, meth.Name))
}

func asArray(v Value) *Array {
	arr, ok := v.(*Array)
	if !ok {
		if v == nil {
			panic(vmErrorf("java.lang.NullPointerException: array is null"))
		}
		panic(vmErrorf("expected an array, got %s", ClassOf(v)))
	}
	return arr
}

func checkIndex(arr *Array, i int32) {
	if i < 0 || int(i) >= len(arr.Values) {
		panic(vmErrorf("java.lang.ArrayIndexOutOfBoundsException: %d of %d", i, len(arr.Values)))
	}
}

func asObject(v Value, member bytecode.Member) *Object {
	obj, ok := v.(*Object)
	if !ok {
		panic(vmErrorf("field %s on %s", member, ClassOf(v)))
	}
	return obj
}

func (m *Machine) checkCast(v Value, t bytecode.Type) {
	if v == nil || m.subtype == nil || t.Sort() != bytecode.ObjectSort {
		return
	}
	if _, isArr := v.(*Array); isArr {
		if t.ClassName() != "java.lang.Object" {
			panic(vmErrorf("java.lang.ClassCastException: array cannot be cast to %s", t.ClassName()))
		}
		return
	}
	if cls := ClassOf(v); !m.subtype(cls, t.ClassName()) {
		panic(vmErrorf("java.lang.ClassCastException: %s cannot be cast to %s", cls, t.ClassName()))
	}
}

// convert implements primitive conversions between stack kinds.
func convert(v Value, from, to bytecode.Type) Value {
	var i int64
	var fl float64
	isFloat := false
	switch x := v.(type) {
	case int32:
		i = int64(x)
	case int64:
		i = x
	case float32:
		fl, isFloat = float64(x), true
	case float64:
		fl, isFloat = x, true
	default:
		panic(vmErrorf("cannot convert %T from %s to %s", v, from, to))
	}
	if isFloat {
		i = int64(fl)
	} else {
		fl = float64(i)
	}
	switch to.Sort() {
	case bytecode.Boolean:
		if i != 0 {
			return int32(1)
		}
		return int32(0)
	case bytecode.Byte:
		return int32(int8(i))
	case bytecode.Char:
		return int32(uint16(i))
	case bytecode.Short:
		return int32(int16(i))
	case bytecode.Int:
		return int32(i)
	case bytecode.Long:
		return i
	case bytecode.Float:
		return float32(fl)
	case bytecode.Double:
		return fl
	}
	panic(vmErrorf("cannot convert to %s", to))
}
