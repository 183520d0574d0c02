package vm

import (
	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/runtime/parcel"
)

var (
	collectionOwners = []string{
		"java.lang.Iterable", "java.util.Collection", "java.util.List", "java.util.Set",
		"java.util.SortedSet", "java.util.NavigableSet", "java.util.AbstractCollection",
		"java.util.ArrayList", "java.util.LinkedList", "java.util.HashSet",
		"java.util.LinkedHashSet", "java.util.TreeSet",
	}
	mapOwners = []string{
		"java.util.Map", "java.util.SortedMap", "java.util.NavigableMap",
		"java.util.AbstractMap", "java.util.HashMap", "java.util.LinkedHashMap", "java.util.TreeMap",
	}
)

const (
	objectDesc   = "Ljava/lang/Object;"
	stringDesc   = "Ljava/lang/String;"
	parcelOwner  = "android.os.Parcel"
	creatorOwner = "android.os.Parcelable$Creator"
)

func (m *Machine) native(owners []string, name, desc string, fn Native) {
	d := bytecode.MustParseDescriptor(desc)
	for _, o := range owners {
		m.RegisterNative(o, name, d, fn)
	}
}

func installNatives(m *Machine) {
	installLang(m)
	installCollections(m)
	installSparse(m)
	installParcel(m)
}

func installLang(m *Machine) {
	for _, b := range []struct {
		class, prim, getter string
	}{
		{"java.lang.Boolean", "Z", "booleanValue"},
		{"java.lang.Character", "C", "charValue"},
		{"java.lang.Byte", "B", "byteValue"},
		{"java.lang.Short", "S", "shortValue"},
		{"java.lang.Integer", "I", "intValue"},
		{"java.lang.Long", "J", "longValue"},
		{"java.lang.Float", "F", "floatValue"},
		{"java.lang.Double", "D", "doubleValue"},
	} {
		class, prim := b.class, b.prim
		self := bytecode.ObjectType(class).Descriptor()
		m.native([]string{class}, "valueOf", "("+prim+")"+self, func(_ *Machine, args []Value) Value {
			v := args[0]
			if prim == "Z" && v.(int32) != 0 {
				v = int32(1)
			}
			return &Box{Class: class, V: v}
		})
		m.native([]string{class, "java.lang.Number"}, b.getter, "()"+prim, func(_ *Machine, args []Value) Value {
			return args[0].(*Box).V
		})
	}

	m.native([]string{"java.lang.Enum"}, "ordinal", "()I", func(_ *Machine, args []Value) Value {
		return args[0].(*EnumConst).Ordinal
	})
	m.native([]string{"java.lang.Enum"}, "name", "()"+stringDesc, func(_ *Machine, args []Value) Value {
		return args[0].(*EnumConst).Name
	})
	m.native([]string{"java.lang.String", "java.lang.CharSequence"}, "toString", "()"+stringDesc, func(_ *Machine, args []Value) Value {
		return args[0]
	})
	m.native([]string{"java.lang.Class"}, "getClassLoader", "()Ljava/lang/ClassLoader;", func(_ *Machine, _ []Value) Value {
		return &classLoader{}
	})

	m.native([]string{"java.util.Date"}, bytecode.InitName, "(J)V", func(_ *Machine, args []Value) Value {
		args[0].(*Box).V = args[1].(int64)
		return nil
	})
	m.native([]string{"java.util.Date"}, "getTime", "()J", func(_ *Machine, args []Value) Value {
		return args[0].(*Box).V
	})
}

func installCollections(m *Machine) {
	m.native(collectionOwners, "size", "()I", func(_ *Machine, args []Value) Value {
		return int32(len(args[0].(*List).Items))
	})
	m.native(collectionOwners, "iterator", "()Ljava/util/Iterator;", func(_ *Machine, args []Value) Value {
		return &iterator{items: append([]Value(nil), args[0].(*List).Items...)}
	})
	m.native(collectionOwners, "add", "("+objectDesc+")Z", func(_ *Machine, args []Value) Value {
		if args[0].(*List).add(args[1]) {
			return int32(1)
		}
		return int32(0)
	})

	m.native(mapOwners, "size", "()I", func(_ *Machine, args []Value) Value {
		return int32(len(args[0].(*Map).Keys))
	})
	m.native(mapOwners, "entrySet", "()Ljava/util/Set;", func(_ *Machine, args []Value) Value {
		mp := args[0].(*Map)
		set := &List{Class: "java.util.LinkedHashSet"}
		for i, k := range mp.Keys {
			set.Items = append(set.Items, &entry{key: k, val: mp.Vals[i]})
		}
		return set
	})
	m.native(mapOwners, "put", "("+objectDesc+objectDesc+")"+objectDesc, func(_ *Machine, args []Value) Value {
		return args[0].(*Map).put(args[1], args[2])
	})

	m.native([]string{"java.util.Iterator"}, "hasNext", "()Z", func(_ *Machine, args []Value) Value {
		it := args[0].(*iterator)
		if it.next < len(it.items) {
			return int32(1)
		}
		return int32(0)
	})
	m.native([]string{"java.util.Iterator"}, "next", "()"+objectDesc, func(_ *Machine, args []Value) Value {
		it := args[0].(*iterator)
		if it.next >= len(it.items) {
			panic(vmErrorf("java.util.NoSuchElementException"))
		}
		it.next++
		return it.items[it.next-1]
	})
	m.native([]string{"java.util.Map$Entry"}, "getKey", "()"+objectDesc, func(_ *Machine, args []Value) Value {
		return args[0].(*entry).key
	})
	m.native([]string{"java.util.Map$Entry"}, "getValue", "()"+objectDesc, func(_ *Machine, args []Value) Value {
		return args[0].(*entry).val
	})
}

func installSparse(m *Machine) {
	for _, s := range []struct {
		class, value string
	}{
		{"android.util.SparseArray", objectDesc},
		{"android.util.SparseIntArray", "I"},
		{"android.util.SparseLongArray", "J"},
		{"android.util.SparseBooleanArray", "Z"},
	} {
		owners := []string{s.class}
		boolean := s.value == "Z"
		m.native(owners, "size", "()I", func(_ *Machine, args []Value) Value {
			return int32(len(args[0].(*Sparse).Keys))
		})
		m.native(owners, "keyAt", "(I)I", func(_ *Machine, args []Value) Value {
			sp := args[0].(*Sparse)
			i := args[1].(int32)
			if i < 0 || int(i) >= len(sp.Keys) {
				panic(vmErrorf("java.lang.ArrayIndexOutOfBoundsException: %d", i))
			}
			return sp.Keys[i]
		})
		m.native(owners, "valueAt", "(I)"+s.value, func(_ *Machine, args []Value) Value {
			sp := args[0].(*Sparse)
			i := args[1].(int32)
			if i < 0 || int(i) >= len(sp.Vals) {
				panic(vmErrorf("java.lang.ArrayIndexOutOfBoundsException: %d", i))
			}
			return sp.Vals[i]
		})
		m.native(owners, "put", "(I"+s.value+")V", func(_ *Machine, args []Value) Value {
			v := args[2]
			if boolean && v.(int32) != 0 {
				v = int32(1)
			}
			args[0].(*Sparse).put(args[1].(int32), v)
			return nil
		})
	}
}

func installParcel(m *Machine) {
	p := []string{parcelOwner}
	buf := func(v Value) *parcel.Parcel {
		pc, ok := v.(*parcel.Parcel)
		if !ok {
			panic(vmErrorf("expected a parcel, got %s", ClassOf(v)))
		}
		return pc
	}

	m.native(p, "writeInt", "(I)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteInt(args[1].(int32))
		return nil
	})
	m.native(p, "writeLong", "(J)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteLong(args[1].(int64))
		return nil
	})
	m.native(p, "writeFloat", "(F)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteFloat(args[1].(float32))
		return nil
	})
	m.native(p, "writeDouble", "(D)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteDouble(args[1].(float64))
		return nil
	})
	m.native(p, "writeByte", "(B)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteInt8(int8(args[1].(int32)))
		return nil
	})
	m.native(p, "writeString", "("+stringDesc+")V", func(_ *Machine, args []Value) Value {
		if args[1] == nil {
			buf(args[0]).WriteNullString()
			return nil
		}
		buf(args[0]).WriteString(args[1].(string))
		return nil
	})
	m.native(p, "writeByteArray", "([B)V", func(_ *Machine, args []Value) Value {
		buf(args[0]).WriteByteArray(toBytes(args[1]))
		return nil
	})

	m.native(p, "readInt", "()I", func(_ *Machine, args []Value) Value {
		return buf(args[0]).ReadInt()
	})
	m.native(p, "readLong", "()J", func(_ *Machine, args []Value) Value {
		return buf(args[0]).ReadLong()
	})
	m.native(p, "readFloat", "()F", func(_ *Machine, args []Value) Value {
		return buf(args[0]).ReadFloat()
	})
	m.native(p, "readDouble", "()D", func(_ *Machine, args []Value) Value {
		return buf(args[0]).ReadDouble()
	})
	m.native(p, "readByte", "()B", func(_ *Machine, args []Value) Value {
		return int32(buf(args[0]).ReadInt8())
	})
	m.native(p, "readString", "()"+stringDesc, func(_ *Machine, args []Value) Value {
		s, ok := buf(args[0]).ReadString()
		if !ok {
			return nil
		}
		return s
	})
	m.native(p, "createByteArray", "()[B", func(_ *Machine, args []Value) Value {
		return fromBytes(buf(args[0]).ReadByteArray())
	})

	m.native(p, "writeParcelable", "(Landroid/os/Parcelable;I)V", func(m *Machine, args []Value) Value {
		out, v := buf(args[0]), args[1]
		if v == nil {
			out.WriteNullString()
			return nil
		}
		out.WriteString(ClassOf(v))
		m.invoke(bytecode.InvokeVirtual, bytecode.Member{
			Owner: ClassOf(v),
			Name:  "writeToParcel",
			Desc:  bytecode.MustParseDescriptor("(Landroid/os/Parcel;I)V"),
		}, []Value{v, out, args[2]})
		return nil
	})
	m.native(p, "readParcelable", "(Ljava/lang/ClassLoader;)Landroid/os/Parcelable;", func(m *Machine, args []Value) Value {
		in := buf(args[0])
		name, ok := in.ReadString()
		if !ok {
			return nil
		}
		creator := m.getStatic(name, "CREATOR")
		return m.invoke(bytecode.InvokeInterface, bytecode.Member{
			Owner: creatorOwner,
			Name:  "createFromParcel",
			Desc:  bytecode.MustParseDescriptor("(Landroid/os/Parcel;)" + objectDesc),
		}, []Value{creator, in})
	})

	m.native(p, "writeSerializable", "(Ljava/io/Serializable;)V", func(m *Machine, args []Value) Value {
		out := buf(args[0])
		if args[1] == nil {
			out.WriteByteArray(nil)
			return nil
		}
		out.WriteByteArray(m.marshalSerializable(args[1]))
		return nil
	})
	m.native(p, "readSerializable", "()Ljava/io/Serializable;", func(m *Machine, args []Value) Value {
		data := buf(args[0]).ReadByteArray()
		if data == nil {
			return nil
		}
		return m.unmarshalSerializable(data)
	})
}

func toBytes(v Value) []byte {
	if v == nil {
		return nil
	}
	arr := asArray(v)
	b := make([]byte, len(arr.Values))
	for i, x := range arr.Values {
		b[i] = byte(x.(int32))
	}
	return b
}

func fromBytes(b []byte) Value {
	if b == nil {
		return nil
	}
	arr := &Array{Elem: bytecode.ByteType, Values: make([]Value, len(b))}
	for i, x := range b {
		arr.Values[i] = int32(int8(x))
	}
	return arr
}

// Bytes builds a byte[] value.
func Bytes(b ...byte) *Array {
	return fromBytes(append([]byte{}, b...)).(*Array)
}
