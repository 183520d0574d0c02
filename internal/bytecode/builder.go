package bytecode

import "fmt"

// MethodBuilder assembles a method body. Arguments occupy the first local
// slots (after the receiver for instance methods); NewLocal allocates the
// rest. Misuse of the builder is an engine defect and panics.
type MethodBuilder struct {
	access Access
	name   string
	desc   Type
	args   []int
	next   int
	labels int
	marked map[LabelID]bool
	code   []Instruction
}

func NewMethod(access Access, name string, desc Type) *MethodBuilder {
	if desc.Sort() != MethodSort {
		panic(fmt.Sprintf("bytecode: %s has non-method descriptor %s", name, desc))
	}
	b := &MethodBuilder{access: access, name: name, desc: desc, marked: map[LabelID]bool{}}
	if !access.Has(Static) {
		b.next = 1
	}
	for _, a := range desc.Args() {
		b.args = append(b.args, b.next)
		b.next += a.Size()
	}
	return b
}

// This is the slot of the receiver.
func (b *MethodBuilder) This() int {
	if b.access.Has(Static) {
		panic("bytecode: static method " + b.name + " has no receiver")
	}
	return 0
}

// Arg returns the slot of the i-th declared argument.
func (b *MethodBuilder) Arg(i int) int {
	return b.args[i]
}

// NewLocal allocates a fresh slot for a value of type t.
func (b *MethodBuilder) NewLocal(t Type) int {
	slot := b.next
	b.next += max(t.Size(), 1)
	return slot
}

func (b *MethodBuilder) NewLabel() LabelID {
	b.labels++
	return LabelID(b.labels)
}

// Mark places l at the current position.
func (b *MethodBuilder) Mark(l LabelID) {
	if b.marked[l] {
		panic(fmt.Sprintf("bytecode: label %d marked twice in %s", l, b.name))
	}
	b.marked[l] = true
	b.emit(Instruction{Op: Label, Target: l})
}

func (b *MethodBuilder) emit(in Instruction) *MethodBuilder {
	b.code = append(b.code, in)
	return b
}

func (b *MethodBuilder) Const(v any) *MethodBuilder {
	switch v.(type) {
	case nil, int32, int64, float32, float64, string, Type:
	default:
		panic(fmt.Sprintf("bytecode: unsupported constant %T", v))
	}
	return b.emit(Instruction{Op: Const, Value: v})
}

func (b *MethodBuilder) Load(t Type, slot int) *MethodBuilder {
	return b.emit(Instruction{Op: Load, Type: t, Local: slot})
}

func (b *MethodBuilder) Store(t Type, slot int) *MethodBuilder {
	return b.emit(Instruction{Op: Store, Type: t, Local: slot})
}

func (b *MethodBuilder) IInc(slot int, delta int32) *MethodBuilder {
	return b.emit(Instruction{Op: IInc, Local: slot, Delta: delta})
}

func (b *MethodBuilder) Dup() *MethodBuilder { return b.emit(Instruction{Op: Dup}) }
func (b *MethodBuilder) Pop() *MethodBuilder { return b.emit(Instruction{Op: Pop}) }
func (b *MethodBuilder) Swap() *MethodBuilder { return b.emit(Instruction{Op: Swap}) }

func (b *MethodBuilder) New(class string) *MethodBuilder {
	return b.emit(Instruction{Op: New, Type: ObjectType(class)})
}

func (b *MethodBuilder) NewArray(elem Type) *MethodBuilder {
	return b.emit(Instruction{Op: NewArray, Type: elem})
}

func (b *MethodBuilder) ArrayLength() *MethodBuilder {
	return b.emit(Instruction{Op: ArrayLength})
}

func (b *MethodBuilder) ArrayLoad(elem Type) *MethodBuilder {
	return b.emit(Instruction{Op: ArrayLoad, Type: elem})
}

func (b *MethodBuilder) ArrayStore(elem Type) *MethodBuilder {
	return b.emit(Instruction{Op: ArrayStore, Type: elem})
}

func (b *MethodBuilder) GetField(owner, name string, t Type) *MethodBuilder {
	return b.emit(Instruction{Op: GetField, Member: Member{owner, name, t}})
}

func (b *MethodBuilder) PutField(owner, name string, t Type) *MethodBuilder {
	return b.emit(Instruction{Op: PutField, Member: Member{owner, name, t}})
}

func (b *MethodBuilder) GetStatic(owner, name string, t Type) *MethodBuilder {
	return b.emit(Instruction{Op: GetStatic, Member: Member{owner, name, t}})
}

func (b *MethodBuilder) PutStatic(owner, name string, t Type) *MethodBuilder {
	return b.emit(Instruction{Op: PutStatic, Member: Member{owner, name, t}})
}

// Invoke emits one of the invoke instructions.
func (b *MethodBuilder) Invoke(op Op, owner, name string, desc Type) *MethodBuilder {
	if !op.IsInvoke() {
		panic(fmt.Sprintf("bytecode: %s is not an invoke", op))
	}
	if desc.Sort() != MethodSort {
		panic(fmt.Sprintf("bytecode: invoke %s.%s with non-method descriptor %s", owner, name, desc))
	}
	return b.emit(Instruction{Op: op, Member: Member{owner, name, desc}})
}

func (b *MethodBuilder) CheckCast(t Type) *MethodBuilder {
	return b.emit(Instruction{Op: CheckCast, Type: t})
}

// Convert converts the value on top of the stack. Conversions between
// identical types are dropped.
func (b *MethodBuilder) Convert(from, to Type) *MethodBuilder {
	if from == to {
		return b
	}
	return b.emit(Instruction{Op: Convert, From: from, Type: to})
}

// Jump emits a goto or a conditional branch to l.
func (b *MethodBuilder) Jump(op Op, l LabelID) *MethodBuilder {
	if !op.IsJump() {
		panic(fmt.Sprintf("bytecode: %s is not a jump", op))
	}
	return b.emit(Instruction{Op: op, Target: l})
}

// Return emits a return of a value of type t, or a void return for VoidType.
func (b *MethodBuilder) Return(t Type) *MethodBuilder {
	return b.emit(Instruction{Op: Return, Type: t})
}

// Len is the number of instructions emitted so far.
func (b *MethodBuilder) Len() int { return len(b.code) }

// Build finishes the method. Every referenced label must have been marked.
func (b *MethodBuilder) Build() Method {
	for _, in := range b.code {
		if in.Op.IsJump() && !b.marked[in.Target] {
			panic(fmt.Sprintf("bytecode: label %d used but never marked in %s", in.Target, b.name))
		}
	}
	return Method{
		Access:    b.access,
		Name:      b.name,
		Desc:      b.desc,
		MaxLocals: b.next,
		Code:      append([]Instruction(nil), b.code...),
	}
}
