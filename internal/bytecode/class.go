package bytecode

// Field is a class field definition.
type Field struct {
	Access Access
	Name   string
	Desc   Type
}

// Method is a method definition. Code is nil for methods without a body.
type Method struct {
	Access    Access
	Name      string
	Desc      Type
	MaxLocals int
	Code      []Instruction
}

// Class is a complete class definition.
type Class struct {
	Access     Access
	Name       string // dotted
	Super      string
	Interfaces []string
	Fields     []Field
	Methods    []Method
}

const (
	InitName   = "<init>"
	ClinitName = "<clinit>"
)

// Field returns the field called name.
func (c *Class) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Method returns the method with the given name and descriptor.
func (c *Class) Method(name string, desc Type) (*Method, bool) {
	for i := range c.Methods {
		if c.Methods[i].Name == name && c.Methods[i].Desc == desc {
			return &c.Methods[i], true
		}
	}
	return nil, false
}

// Type returns the descriptor of the class.
func (c *Class) Type() Type {
	return ObjectType(c.Name)
}
