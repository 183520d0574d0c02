package classmodel

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/typemodel"
)

// manifest is the on-disk form of a class manifest:
//
//	[[class]]
//	name = "com.example.User"
//	data = true
//	interfaces = ["android.os.Parcelable"]
//
//	  [[class.property]]
//	  name = "label"
//	  type = "String?"
type manifest struct {
	Class []manifestClass `toml:"class"`
}

type manifestClass struct {
	Name        string                `toml:"name"`
	Kind        string                `toml:"kind"`
	Access      []string              `toml:"access"`
	Data        bool                  `toml:"data"`
	Companion   bool                  `toml:"companion"`
	TypeParams  []string              `toml:"type-params"`
	Super       string                `toml:"super"`
	Interfaces  []string              `toml:"interfaces"`
	Constants   []string              `toml:"constants"`
	Property    []manifestProperty    `toml:"property"`
	Constructor []manifestConstructor `toml:"constructor"`
	Method      []manifestMethod      `toml:"method"`
	Field       []manifestField       `toml:"field"`
	Annotation  []manifestAnnotation  `toml:"annotation"`
}

type manifestProperty struct {
	Name         string   `toml:"name"`
	Type         string   `toml:"type"`
	Getter       string   `toml:"getter"`
	GetterAccess []string `toml:"getter-access"`
}

type manifestParam struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type manifestConstructor struct {
	Access  []string        `toml:"access"`
	Primary bool            `toml:"primary"`
	Params  []manifestParam `toml:"params"`
}

type manifestMethod struct {
	Name    string   `toml:"name"`
	Access  []string `toml:"access"`
	Params  []string `toml:"params"`
	Returns string   `toml:"returns"`
}

type manifestField struct {
	Name   string   `toml:"name"`
	Type   string   `toml:"type"`
	Access []string `toml:"access"`
}

type manifestAnnotation struct {
	Type string          `toml:"type"`
	Args *toml.Primitive `toml:"args"`
}

// LoadManifestFile reads the class manifest at path.
func LoadManifestFile(path string) ([]*ClassInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes, err := LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return classes, nil
}

// LoadManifest decodes a TOML class manifest. Unknown keys are rejected.
func LoadManifest(r io.Reader) ([]*ClassInfo, error) {
	var m manifest
	md, err := toml.NewDecoder(r).Decode(&m)
	if err != nil {
		return nil, err
	}
	if unknown := undecoded(md); len(unknown) > 0 {
		return nil, fmt.Errorf("manifest has unknown keys %v", unknown)
	}

	classes := make([]*ClassInfo, 0, len(m.Class))
	for i, mc := range m.Class {
		c, err := mc.build(&md, i)
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", mc.Name, err)
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// undecoded returns the undecoded keys, ignoring tag arguments which are
// decoded later into their typed form.
func undecoded(md toml.MetaData) []string {
	var out []string
	for _, k := range md.Undecoded() {
		if len(k) >= 3 && k[0] == "class" && k[1] == "annotation" && k[2] == "args" {
			continue
		}
		out = append(out, k.String())
	}
	return out
}

func (mc manifestClass) build(md *toml.MetaData, index int) (*ClassInfo, error) {
	if mc.Name == "" {
		return nil, fmt.Errorf("class #%d has no name", index)
	}
	kind, err := parseKind(mc.Kind)
	if err != nil {
		return nil, err
	}
	access, err := parseAccess(mc.Access, bytecode.Public|bytecode.Final)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindInterface, KindAnnotation:
		access |= bytecode.Interface | bytecode.Abstract
		access &^= bytecode.Final
	case KindEnum:
		access |= bytecode.Enum
	}

	parse := func(notation string) (typemodel.DeclaredType, error) {
		return typemodel.Parse(notation, mc.TypeParams...)
	}

	c := &ClassInfo{
		Name:       mc.Name,
		Kind:       kind,
		Access:     access,
		Data:       mc.Data,
		Companion:  mc.Companion,
		TypeParams: mc.TypeParams,
		Constants:  mc.Constants,
	}
	if mc.Super != "" {
		if c.Super, err = parse(mc.Super); err != nil {
			return nil, err
		}
	}
	for _, i := range mc.Interfaces {
		t, err := parse(i)
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, t)
	}

	for _, mp := range mc.Property {
		t, err := parse(mp.Type)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", mp.Name, err)
		}
		getterAccess, err := parseAccess(mp.GetterAccess, bytecode.Public|bytecode.Final)
		if err != nil {
			return nil, err
		}
		if mp.Name == "" {
			return nil, fmt.Errorf("property without a name")
		}
		c.Properties = append(c.Properties, Property{Name: mp.Name, Type: t, Getter: mp.Getter, GetterAccess: getterAccess})
	}

	for _, mk := range mc.Constructor {
		ctorAccess, err := parseAccess(mk.Access, bytecode.Public)
		if err != nil {
			return nil, err
		}
		ctor := Constructor{Access: ctorAccess, Primary: mk.Primary}
		for _, p := range mk.Params {
			t, err := parse(p.Type)
			if err != nil {
				return nil, fmt.Errorf("constructor parameter %q: %w", p.Name, err)
			}
			ctor.Params = append(ctor.Params, Parameter{Name: p.Name, Type: t})
		}
		c.Constructors = append(c.Constructors, ctor)
	}

	for _, mm := range mc.Method {
		methodAccess, err := parseAccess(mm.Access, bytecode.Public)
		if err != nil {
			return nil, err
		}
		m := Method{Access: methodAccess, Name: mm.Name}
		for _, p := range mm.Params {
			t, err := parse(p)
			if err != nil {
				return nil, fmt.Errorf("method %q: %w", mm.Name, err)
			}
			m.Params = append(m.Params, t)
		}
		if mm.Returns != "" && mm.Returns != "Unit" && mm.Returns != "void" {
			if m.Return, err = parse(mm.Returns); err != nil {
				return nil, fmt.Errorf("method %q: %w", mm.Name, err)
			}
		}
		c.Methods = append(c.Methods, m)
	}

	for _, mf := range mc.Field {
		fieldAccess, err := parseAccess(mf.Access, bytecode.Private)
		if err != nil {
			return nil, err
		}
		t, err := parse(mf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", mf.Name, err)
		}
		c.Fields = append(c.Fields, Field{Access: fieldAccess, Name: mf.Name, Type: t})
	}

	for j, ma := range mc.Annotation {
		if ma.Type == "" {
			return nil, fmt.Errorf("annotation #%d has no type", j)
		}
		if ma.Args != nil {
			c.Annotations = append(c.Annotations, tomlAnnotation(ma.Type, md, *ma.Args))
		} else {
			c.Annotations = append(c.Annotations, Annotation{Type: ma.Type})
		}
	}
	return c, nil
}

var accessWords = map[string]bytecode.Access{
	"public":    bytecode.Public,
	"private":   bytecode.Private,
	"protected": bytecode.Protected,
	"internal":  bytecode.Public,
	"static":    bytecode.Static,
	"final":     bytecode.Final,
	"abstract":  bytecode.Abstract,
	"open":      0,
}

// parseAccess turns modifier words into access flags. An empty list means
// def; otherwise the words replace def, keeping only its visibility when the
// words name none.
func parseAccess(words []string, def bytecode.Access) (bytecode.Access, error) {
	if len(words) == 0 {
		return def, nil
	}
	var a bytecode.Access
	visibility := false
	for _, w := range words {
		f, ok := accessWords[strings.ToLower(w)]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", w)
		}
		switch strings.ToLower(w) {
		case "public", "private", "protected", "internal":
			visibility = true
		}
		a |= f
	}
	if !visibility {
		a |= def & (bytecode.Public | bytecode.Private | bytecode.Protected)
	}
	return a, nil
}
