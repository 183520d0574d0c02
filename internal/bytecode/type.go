// Package bytecode is a small instruction toolkit for synthesized classes:
// descriptor types, access flags, a typed instruction set, a method builder
// with locals and labels, a binary codec and a disassembler.
package bytecode

import (
	"fmt"
	"strings"
)

// Sort is the category of a Type.
type Sort uint8

const (
	Void Sort = iota
	Boolean
	Char
	Byte
	Short
	Int
	Float
	Long
	Double
	ArraySort
	ObjectSort
	MethodSort
)

// Type is a field or method descriptor such as "I", "[Ljava/lang/String;" or
// "(Landroid/os/Parcel;I)V". The zero Type is invalid.
type Type struct {
	desc string
}

var (
	VoidType    = Type{"V"}
	BooleanType = Type{"Z"}
	CharType    = Type{"C"}
	ByteType    = Type{"B"}
	ShortType   = Type{"S"}
	IntType     = Type{"I"}
	FloatType   = Type{"F"}
	LongType    = Type{"J"}
	DoubleType  = Type{"D"}
)

var primitiveNames = map[string]Type{
	"boolean": BooleanType,
	"char":    CharType,
	"byte":    ByteType,
	"short":   ShortType,
	"int":     IntType,
	"float":   FloatType,
	"long":    LongType,
	"double":  DoubleType,
}

// PrimitiveNamed returns the primitive type with the given source name.
func PrimitiveNamed(name string) (Type, bool) {
	t, ok := primitiveNames[name]
	return t, ok
}

// ObjectType returns the descriptor of the class with the dotted name.
func ObjectType(name string) Type {
	return Type{"L" + strings.ReplaceAll(name, ".", "/") + ";"}
}

// ArrayOf returns the array type with element type elem.
func ArrayOf(elem Type) Type {
	return Type{"[" + elem.desc}
}

// MethodOf returns a method descriptor.
func MethodOf(ret Type, args ...Type) Type {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(a.desc)
	}
	b.WriteByte(')')
	b.WriteString(ret.desc)
	return Type{b.String()}
}

// ParseDescriptor validates desc and returns its Type.
func ParseDescriptor(desc string) (Type, error) {
	if desc == "" {
		return Type{}, fmt.Errorf("bytecode: empty descriptor")
	}
	if desc[0] == '(' {
		end := strings.IndexByte(desc, ')')
		if end < 0 {
			return Type{}, fmt.Errorf("bytecode: malformed method descriptor %q", desc)
		}
		for rest := desc[1:end]; rest != ""; {
			n, err := fieldLen(rest)
			if err != nil || rest[:n] == "V" {
				return Type{}, fmt.Errorf("bytecode: malformed method descriptor %q", desc)
			}
			rest = rest[n:]
		}
		ret := desc[end+1:]
		if n, err := fieldLen(ret); err != nil || n != len(ret) {
			return Type{}, fmt.Errorf("bytecode: malformed method descriptor %q", desc)
		}
		return Type{desc}, nil
	}
	if n, err := fieldLen(desc); err != nil || n != len(desc) {
		return Type{}, fmt.Errorf("bytecode: malformed descriptor %q", desc)
	}
	return Type{desc}, nil
}

// MustParseDescriptor is like ParseDescriptor but panics on error.
func MustParseDescriptor(desc string) Type {
	t, err := ParseDescriptor(desc)
	if err != nil {
		panic(err)
	}
	return t
}

// fieldLen returns the length of the field descriptor at the start of s.
func fieldLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("truncated")
	}
	switch s[0] {
	case 'V', 'Z', 'C', 'B', 'S', 'I', 'F', 'J', 'D':
		return 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return 0, fmt.Errorf("unterminated class name")
		}
		return end + 1, nil
	case '[':
		n, err := fieldLen(s[1:])
		if err != nil {
			return 0, err
		}
		if s[1] == 'V' {
			return 0, fmt.Errorf("array of void")
		}
		return n + 1, nil
	}
	return 0, fmt.Errorf("unknown descriptor %q", s[:1])
}

func (t Type) IsZero() bool { return t.desc == "" }
func (t Type) Descriptor() string { return t.desc }
func (t Type) String() string { return t.desc }
func (t Type) IsWide() bool { return t.desc == "J" || t.desc == "D" }

func (t Type) IsReference() bool {
	s := t.Sort()
	return s == ArraySort || s == ObjectSort
}

func (t Type) IsPrimitive() bool {
	s := t.Sort()
	return s >= Boolean && s <= Double
}

func (t Type) Sort() Sort {
	if t.desc == "" {
		return Void
	}
	switch t.desc[0] {
	case 'Z':
		return Boolean
	case 'C':
		return Char
	case 'B':
		return Byte
	case 'S':
		return Short
	case 'I':
		return Int
	case 'F':
		return Float
	case 'J':
		return Long
	case 'D':
		return Double
	case '[':
		return ArraySort
	case 'L':
		return ObjectSort
	case '(':
		return MethodSort
	}
	return Void
}

// Size is the number of local slots a value of t occupies.
func (t Type) Size() int {
	switch t.Sort() {
	case Void, MethodSort:
		return 0
	case Long, Double:
		return 2
	}
	return 1
}

// InternalName is the slash separated name of a class type, or the
// descriptor of an array type.
func (t Type) InternalName() string {
	switch t.Sort() {
	case ObjectSort:
		return t.desc[1 : len(t.desc)-1]
	case ArraySort:
		return t.desc
	}
	return ""
}

// ClassName is the source name of t: "java.lang.String", "int" or "int[]".
func (t Type) ClassName() string {
	switch t.Sort() {
	case ObjectSort:
		return strings.ReplaceAll(t.InternalName(), "/", ".")
	case ArraySort:
		return t.Elem().ClassName() + "[]"
	case MethodSort:
		return ""
	}
	for name, p := range primitiveNames {
		if p == t {
			return name
		}
	}
	return "void"
}

// Elem is the element type of an array type.
func (t Type) Elem() Type {
	if t.Sort() != ArraySort {
		return Type{}
	}
	return Type{t.desc[1:]}
}

// Args returns the argument types of a method type.
func (t Type) Args() []Type {
	if t.Sort() != MethodSort {
		return nil
	}
	var args []Type
	rest := t.desc[1:strings.IndexByte(t.desc, ')')]
	for rest != "" {
		n, err := fieldLen(rest)
		if err != nil {
			panic(fmt.Sprintf("bytecode: corrupt method descriptor %q", t.desc))
		}
		args = append(args, Type{rest[:n]})
		rest = rest[n:]
	}
	return args
}

// Return returns the return type of a method type.
func (t Type) Return() Type {
	if t.Sort() != MethodSort {
		return Type{}
	}
	return Type{t.desc[strings.IndexByte(t.desc, ')')+1:]}
}
