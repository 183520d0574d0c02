package classmodel

import (
	"fmt"
	"reflect"

	"github.com/BurntSushi/toml"
)

const (
	GlobalAdapterTag = "io.parcelgen.GlobalAdapter"
	LocalAdaptersTag = "io.parcelgen.LocalAdapters"
)

// Annotation is a tag declared on a class. Its arguments are decoded on
// demand into a typed struct, see DecodeTag.
type Annotation struct {
	Type   string
	decode func(dst any) error
}

// NewAnnotation builds a tag whose arguments are held by the Go value args.
// args must be assignable to the destination passed to DecodeTag.
func NewAnnotation(typ string, args any) Annotation {
	return Annotation{Type: typ, decode: func(dst any) error {
		if args == nil {
			return nil
		}
		v := reflect.ValueOf(dst)
		if v.Kind() != reflect.Pointer || !reflect.ValueOf(args).Type().AssignableTo(v.Elem().Type()) {
			return fmt.Errorf("cannot decode %T into %T", args, dst)
		}
		v.Elem().Set(reflect.ValueOf(args))
		return nil
	}}
}

// tomlAnnotation decodes its arguments from a manifest table.
func tomlAnnotation(typ string, md *toml.MetaData, args toml.Primitive) Annotation {
	return Annotation{Type: typ, decode: func(dst any) error {
		return md.PrimitiveDecode(args, dst)
	}}
}

// LocalAdapters is the typed form of io.parcelgen.LocalAdapters: the ordered
// list of adapter classes that apply to the tagged class only.
type LocalAdapters struct {
	Value []string `toml:"value"`
}

// GlobalAdapter is the typed form of the zero-argument
// io.parcelgen.GlobalAdapter tag.
type GlobalAdapter struct{}

// DecodeTag decodes the arguments of the annotation of type typ on c into a
// T. ok is false when c does not carry the tag.
func DecodeTag[T any](c *ClassInfo, typ string) (tag T, ok bool, err error) {
	for _, a := range c.Annotations {
		if a.Type != typ {
			continue
		}
		if a.decode != nil {
			if err := a.decode(&tag); err != nil {
				return tag, true, fmt.Errorf("%s: decode tag %s: %w", c.Name, typ, err)
			}
		}
		return tag, true, nil
	}
	return tag, false, nil
}

// HasTag reports whether c carries an annotation of type typ.
func (c *ClassInfo) HasTag(typ string) bool {
	for _, a := range c.Annotations {
		if a.Type == typ {
			return true
		}
	}
	return false
}
