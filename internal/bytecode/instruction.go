package bytecode

import "fmt"

// Op is an instruction opcode.
type Op uint8

const (
	Nop Op = iota
	// Const pushes Instruction.Value: int32, int64, float32, float64,
	// string, nil or a Type (class literal).
	Const
	Load
	Store
	IInc
	Dup
	Pop
	Swap
	New
	NewArray
	ArrayLength
	ArrayLoad
	ArrayStore
	GetField
	PutField
	GetStatic
	PutStatic
	InvokeVirtual
	InvokeStatic
	InvokeSpecial
	InvokeInterface
	CheckCast
	// Convert converts the top of the stack from From to Type.
	Convert
	Label
	Goto
	IfEq
	IfNe
	IfLt
	IfNull
	IfNonNull
	IfICmpGe
	Return
)

var opNames = [...]string{
	Nop:             "nop",
	Const:           "const",
	Load:            "load",
	Store:           "store",
	IInc:            "iinc",
	Dup:             "dup",
	Pop:             "pop",
	Swap:            "swap",
	New:             "new",
	NewArray:        "newarray",
	ArrayLength:     "arraylength",
	ArrayLoad:       "arrayload",
	ArrayStore:      "arraystore",
	GetField:        "getfield",
	PutField:        "putfield",
	GetStatic:       "getstatic",
	PutStatic:       "putstatic",
	InvokeVirtual:   "invokevirtual",
	InvokeStatic:    "invokestatic",
	InvokeSpecial:   "invokespecial",
	InvokeInterface: "invokeinterface",
	CheckCast:       "checkcast",
	Convert:         "convert",
	Label:           "label",
	Goto:            "goto",
	IfEq:            "ifeq",
	IfNe:            "ifne",
	IfLt:            "iflt",
	IfNull:          "ifnull",
	IfNonNull:       "ifnonnull",
	IfICmpGe:        "if_icmpge",
	Return:          "return",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// IsJump reports whether o transfers control to Instruction.Target.
func (o Op) IsJump() bool {
	return o >= Goto && o <= IfICmpGe
}

// IsInvoke reports whether o is one of the invoke instructions.
func (o Op) IsInvoke() bool {
	return o >= InvokeVirtual && o <= InvokeInterface
}

// LabelID names a position in a method body.
type LabelID int

// Member references a field or method of a class by its dotted owner name.
type Member struct {
	Owner string
	Name  string
	Desc  Type
}

func (m Member) String() string {
	return m.Owner + "." + m.Name + ":" + m.Desc.String()
}

// Instruction is one operation of a method body. Only the fields relevant to
// Op are set.
type Instruction struct {
	Op     Op
	Type   Type    // Load, Store, Return, New, NewArray, ArrayLoad, ArrayStore, CheckCast, Convert
	From   Type    // Convert
	Local  int     // Load, Store, IInc
	Delta  int32   // IInc
	Target LabelID // jumps, Label
	Member Member  // field and invoke instructions
	Value  any     // Const
}
