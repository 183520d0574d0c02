package bytecode

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the artifact encoding.
const (
	className       protowire.Number = 1
	classSuper      protowire.Number = 2
	classInterfaces protowire.Number = 3
	classAccess     protowire.Number = 4
	classField      protowire.Number = 5
	classMethod     protowire.Number = 6

	fieldAccess protowire.Number = 1
	fieldName   protowire.Number = 2
	fieldDesc   protowire.Number = 3

	methodAccess    protowire.Number = 1
	methodName      protowire.Number = 2
	methodDesc      protowire.Number = 3
	methodMaxLocals protowire.Number = 4
	methodCode      protowire.Number = 5

	insOp        protowire.Number = 1
	insType      protowire.Number = 2
	insFrom      protowire.Number = 3
	insLocal     protowire.Number = 4
	insDelta     protowire.Number = 5
	insTarget    protowire.Number = 6
	insMember    protowire.Number = 7
	insConstKind protowire.Number = 8
	insConstInt  protowire.Number = 9
	insConstBits protowire.Number = 10
	insConstStr  protowire.Number = 11

	memberOwner protowire.Number = 1
	memberName  protowire.Number = 2
	memberDesc  protowire.Number = 3
)

type constKind uint64

const (
	constNone constKind = iota
	constNil
	constInt32
	constInt64
	constFloat32
	constFloat64
	constString
	constClass
)

// Encode returns the binary artifact encoding of c.
func Encode(c *Class) []byte {
	var b []byte
	b = appendString(b, className, c.Name)
	b = appendString(b, classSuper, c.Super)
	for _, i := range c.Interfaces {
		b = protowire.AppendTag(b, classInterfaces, protowire.BytesType)
		b = protowire.AppendString(b, i)
	}
	b = appendVarint(b, classAccess, uint64(c.Access))
	for _, f := range c.Fields {
		var fb []byte
		fb = appendVarint(fb, fieldAccess, uint64(f.Access))
		fb = appendString(fb, fieldName, f.Name)
		fb = appendString(fb, fieldDesc, f.Desc.desc)
		b = appendBytes(b, classField, fb)
	}
	for _, m := range c.Methods {
		b = appendBytes(b, classMethod, encodeMethod(m))
	}
	return b
}

func encodeMethod(m Method) []byte {
	var b []byte
	b = appendVarint(b, methodAccess, uint64(m.Access))
	b = appendString(b, methodName, m.Name)
	b = appendString(b, methodDesc, m.Desc.desc)
	b = appendVarint(b, methodMaxLocals, uint64(m.MaxLocals))
	for _, in := range m.Code {
		b = appendBytes(b, methodCode, encodeInstruction(in))
	}
	return b
}

func encodeInstruction(in Instruction) []byte {
	var b []byte
	b = appendVarint(b, insOp, uint64(in.Op))
	b = appendString(b, insType, in.Type.desc)
	b = appendString(b, insFrom, in.From.desc)
	b = appendVarint(b, insLocal, uint64(in.Local))
	b = appendVarint(b, insDelta, protowire.EncodeZigZag(int64(in.Delta)))
	b = appendVarint(b, insTarget, uint64(in.Target))
	if in.Member != (Member{}) {
		var mb []byte
		mb = appendString(mb, memberOwner, in.Member.Owner)
		mb = appendString(mb, memberName, in.Member.Name)
		mb = appendString(mb, memberDesc, in.Member.Desc.desc)
		b = appendBytes(b, insMember, mb)
	}
	if in.Op != Const {
		return b
	}
	switch v := in.Value.(type) {
	case nil:
		b = appendVarint(b, insConstKind, uint64(constNil))
	case int32:
		b = appendVarint(b, insConstKind, uint64(constInt32))
		b = appendVarint(b, insConstInt, protowire.EncodeZigZag(int64(v)))
	case int64:
		b = appendVarint(b, insConstKind, uint64(constInt64))
		b = appendVarint(b, insConstInt, protowire.EncodeZigZag(v))
	case float32:
		b = appendVarint(b, insConstKind, uint64(constFloat32))
		b = protowire.AppendTag(b, insConstBits, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, uint64(math.Float32bits(v)))
	case float64:
		b = appendVarint(b, insConstKind, uint64(constFloat64))
		b = protowire.AppendTag(b, insConstBits, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	case string:
		b = appendVarint(b, insConstKind, uint64(constString))
		b = protowire.AppendTag(b, insConstStr, protowire.BytesType)
		b = protowire.AppendString(b, v)
	case Type:
		b = appendVarint(b, insConstKind, uint64(constClass))
		b = protowire.AppendTag(b, insConstStr, protowire.BytesType)
		b = protowire.AppendString(b, v.desc)
	default:
		panic(fmt.Sprintf("bytecode: unsupported constant %T", v))
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

var errTruncated = errors.New("bytecode: truncated artifact")

// fieldFunc is called for every field of a message. It returns the number of
// bytes consumed from b, or a negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func walk(b []byte, f fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := f(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

// Decode parses an artifact produced by Encode.
func Decode(data []byte) (*Class, error) {
	c := &Class{}
	var inner error
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == className && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			c.Name = s
			return n
		case num == classSuper && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			c.Super = s
			return n
		case num == classInterfaces && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			c.Interfaces = append(c.Interfaces, s)
			return n
		case num == classAccess && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			c.Access = Access(v)
			return n
		case num == classField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				f, err := decodeField(v)
				if err != nil {
					inner = err
				}
				c.Fields = append(c.Fields, f)
			}
			return n
		case num == classMethod && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m, err := decodeMethod(v)
				if err != nil {
					inner = err
				}
				c.Methods = append(c.Methods, m)
			}
			return n
		}
		return 0
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return nil, fmt.Errorf("bytecode: decode class %q: %w", c.Name, err)
	}
	if c.Name == "" {
		return nil, errTruncated
	}
	return c, nil
}

func decodeField(data []byte) (Field, error) {
	var f Field
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldAccess && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			f.Access = Access(v)
			return n
		case num == fieldName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			f.Name = s
			return n
		case num == fieldDesc && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			f.Desc = Type{s}
			return n
		}
		return 0
	})
	return f, err
}

func decodeMethod(data []byte) (Method, error) {
	var m Method
	var inner error
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == methodAccess && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Access = Access(v)
			return n
		case num == methodName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			m.Name = s
			return n
		case num == methodDesc && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			m.Desc = Type{s}
			return n
		case num == methodMaxLocals && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.MaxLocals = int(v)
			return n
		case num == methodCode && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				in, err := decodeInstruction(v)
				if err != nil {
					inner = err
				}
				m.Code = append(m.Code, in)
			}
			return n
		}
		return 0
	})
	if err == nil {
		err = inner
	}
	return m, err
}

func decodeInstruction(data []byte) (Instruction, error) {
	var (
		in    Instruction
		kind  constKind
		ival  uint64
		bits  uint64
		str   string
		inner error
	)
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case insOp:
				in.Op = Op(v)
			case insLocal:
				in.Local = int(v)
			case insDelta:
				in.Delta = int32(protowire.DecodeZigZag(v))
			case insTarget:
				in.Target = LabelID(v)
			case insConstKind:
				kind = constKind(v)
			case insConstInt:
				ival = v
			default:
				return 0
			}
			return n
		}
		switch {
		case num == insConstBits && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			bits = v
			return n
		case num == insMember && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m, err := decodeMember(v)
				if err != nil {
					inner = err
				}
				in.Member = m
			}
			return n
		case typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			switch num {
			case insType:
				in.Type = Type{s}
			case insFrom:
				in.From = Type{s}
			case insConstStr:
				str = s
			default:
				return 0
			}
			return n
		}
		return 0
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return in, err
	}
	switch kind {
	case constNone, constNil:
	case constInt32:
		in.Value = int32(protowire.DecodeZigZag(ival))
	case constInt64:
		in.Value = protowire.DecodeZigZag(ival)
	case constFloat32:
		in.Value = math.Float32frombits(uint32(bits))
	case constFloat64:
		in.Value = math.Float64frombits(bits)
	case constString:
		in.Value = str
	case constClass:
		in.Value = Type{str}
	default:
		return in, fmt.Errorf("unknown constant kind %d", kind)
	}
	return in, nil
}

func decodeMember(data []byte) (Member, error) {
	var m Member
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType {
			return 0
		}
		s, n := protowire.ConsumeString(b)
		switch num {
		case memberOwner:
			m.Owner = s
		case memberName:
			m.Name = s
		case memberDesc:
			m.Desc = Type{s}
		default:
			return 0
		}
		return n
	})
	return m, err
}
