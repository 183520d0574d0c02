package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Format writes a readable listing of c to w.
func Format(w io.Writer, c *Class) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s class %s extends %s", c.Access, c.Name, c.Super)
	if len(c.Interfaces) > 0 {
		fmt.Fprintf(&b, " implements %s", strings.Join(c.Interfaces, ", "))
	}
	b.WriteString(" {\n")
	for _, f := range c.Fields {
		fmt.Fprintf(&b, "  %s %s %s\n", f.Access, f.Desc, f.Name)
	}
	for _, m := range c.Methods {
		fmt.Fprintf(&b, "\n  %s %s%s", m.Access, m.Name, m.Desc)
		if m.Code == nil {
			b.WriteString(";\n")
			continue
		}
		fmt.Fprintf(&b, " locals=%d\n", m.MaxLocals)
		for _, in := range m.Code {
			fmt.Fprintf(&b, "    %s\n", FormatInstruction(in))
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatInstruction renders a single instruction.
func FormatInstruction(in Instruction) string {
	switch in.Op {
	case Label:
		return fmt.Sprintf("L%d:", in.Target)
	case Const:
		switch v := in.Value.(type) {
		case nil:
			return "const null"
		case string:
			return fmt.Sprintf("const %q", v)
		case Type:
			return fmt.Sprintf("const class %s", v.ClassName())
		default:
			return fmt.Sprintf("const %v (%T)", v, v)
		}
	case Load, Store:
		return fmt.Sprintf("%s %s %d", in.Op, in.Type, in.Local)
	case IInc:
		return fmt.Sprintf("iinc %d %d", in.Local, in.Delta)
	case New, NewArray, ArrayLoad, ArrayStore, CheckCast, Return:
		if in.Type.IsZero() {
			return in.Op.String()
		}
		return fmt.Sprintf("%s %s", in.Op, in.Type)
	case Convert:
		return fmt.Sprintf("convert %s -> %s", in.From, in.Type)
	case GetField, PutField, GetStatic, PutStatic,
		InvokeVirtual, InvokeStatic, InvokeSpecial, InvokeInterface:
		return fmt.Sprintf("%s %s", in.Op, in.Member)
	}
	if in.Op.IsJump() {
		return fmt.Sprintf("%s L%d", in.Op, in.Target)
	}
	return in.Op.String()
}
