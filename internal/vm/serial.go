package vm

import (
	"github.com/goccy/go-json"

	"github.com/kanengo/parcelgen/internal/bytecode"
)

// node is the blob form of a serializable value graph.
type node struct {
	Kind   string          `json:"k"`
	Class  string          `json:"c,omitempty"`
	Int    int64           `json:"i,omitempty"`
	Float  float64         `json:"f,omitempty"`
	Str    string          `json:"s,omitempty"`
	Items  []node          `json:"v,omitempty"`
	Keys   []node          `json:"ks,omitempty"`
	Fields map[string]node `json:"fs,omitempty"`
}

const (
	nodeNull   = "null"
	nodeI32    = "i32"
	nodeI64    = "i64"
	nodeF32    = "f32"
	nodeF64    = "f64"
	nodeString = "str"
	nodeBox    = "box"
	nodeEnum   = "enum"
	nodeList   = "list"
	nodeMap    = "map"
	nodeSparse = "sparse"
	nodeArray  = "array"
	nodeObject = "object"
)

func (m *Machine) marshalSerializable(v Value) []byte {
	data, err := json.Marshal(toNode(v))
	if err != nil {
		panic(vmErrorf("java.io.NotSerializableException: %v", err))
	}
	return data
}

func (m *Machine) unmarshalSerializable(data []byte) Value {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		panic(vmErrorf("java.io.StreamCorruptedException: %v", err))
	}
	return m.fromNode(n)
}

func toNode(v Value) node {
	switch x := v.(type) {
	case nil:
		return node{Kind: nodeNull}
	case int32:
		return node{Kind: nodeI32, Int: int64(x)}
	case int64:
		return node{Kind: nodeI64, Int: x}
	case float32:
		return node{Kind: nodeF32, Float: float64(x)}
	case float64:
		return node{Kind: nodeF64, Float: x}
	case string:
		return node{Kind: nodeString, Str: x}
	case *Box:
		return node{Kind: nodeBox, Class: x.Class, Items: []node{toNode(x.V)}}
	case *EnumConst:
		return node{Kind: nodeEnum, Class: x.Class, Str: x.Name, Int: int64(x.Ordinal)}
	case *List:
		return node{Kind: nodeList, Class: x.Class, Items: toNodes(x.Items)}
	case *Map:
		return node{Kind: nodeMap, Class: x.Class, Keys: toNodes(x.Keys), Items: toNodes(x.Vals)}
	case *Sparse:
		n := node{Kind: nodeSparse, Class: x.Class, Items: toNodes(x.Vals)}
		for _, k := range x.Keys {
			n.Keys = append(n.Keys, node{Kind: nodeI32, Int: int64(k)})
		}
		return n
	case *Array:
		return node{Kind: nodeArray, Class: x.Elem.Descriptor(), Items: toNodes(x.Values)}
	case *Object:
		n := node{Kind: nodeObject, Class: x.Class, Fields: map[string]node{}}
		for k, f := range x.Fields {
			n.Fields[k] = toNode(f)
		}
		return n
	}
	panic(vmErrorf("java.io.NotSerializableException: %s", ClassOf(v)))
}

func toNodes(vs []Value) []node {
	ns := make([]node, len(vs))
	for i, v := range vs {
		ns[i] = toNode(v)
	}
	return ns
}

func (m *Machine) fromNode(n node) Value {
	switch n.Kind {
	case nodeNull:
		return nil
	case nodeI32:
		return int32(n.Int)
	case nodeI64:
		return n.Int
	case nodeF32:
		return float32(n.Float)
	case nodeF64:
		return n.Float
	case nodeString:
		return n.Str
	case nodeBox:
		if len(n.Items) != 1 {
			break
		}
		return &Box{Class: n.Class, V: m.fromNode(n.Items[0])}
	case nodeEnum:
		if _, ok := m.classes[n.Class]; ok {
			return m.getStatic(n.Class, n.Str)
		}
		return &EnumConst{Class: n.Class, Name: n.Str, Ordinal: int32(n.Int)}
	case nodeList:
		return &List{Class: n.Class, Items: m.fromNodes(n.Items)}
	case nodeMap:
		if len(n.Keys) != len(n.Items) {
			break
		}
		return &Map{Class: n.Class, Keys: m.fromNodes(n.Keys), Vals: m.fromNodes(n.Items)}
	case nodeSparse:
		if len(n.Keys) != len(n.Items) {
			break
		}
		sp := &Sparse{Class: n.Class, Vals: m.fromNodes(n.Items)}
		for _, k := range n.Keys {
			sp.Keys = append(sp.Keys, int32(k.Int))
		}
		return sp
	case nodeArray:
		elem, err := bytecode.ParseDescriptor(n.Class)
		if err != nil {
			break
		}
		return &Array{Elem: elem, Values: append([]Value{}, m.fromNodes(n.Items)...)}
	case nodeObject:
		obj := &Object{Class: n.Class, Fields: map[string]Value{}}
		for k, f := range n.Fields {
			obj.Fields[k] = m.fromNode(f)
		}
		return obj
	}
	panic(vmErrorf("java.io.StreamCorruptedException: bad %q node", n.Kind))
}

func (m *Machine) fromNodes(ns []node) []Value {
	if ns == nil {
		return nil
	}
	vs := make([]Value, len(ns))
	for i, n := range ns {
		vs[i] = m.fromNode(n)
	}
	return vs
}
