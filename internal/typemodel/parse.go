package typemodel

import (
	"fmt"
	"strings"
	"unicode"
)

var aliases = map[string]string{
	"Boolean": "boolean",
	"Byte":    "byte",
	"Char":    "char",
	"Short":   "short",
	"Int":     "int",
	"Long":    "long",
	"Float":   "float",
	"Double":  "double",

	"Any":          ObjectName,
	"Object":       ObjectName,
	"String":       "java.lang.String",
	"CharSequence": "java.lang.CharSequence",
	"Number":       "java.lang.Number",
	"Enum":         "java.lang.Enum",
	"Integer":      "java.lang.Integer",
	"Character":    "java.lang.Character",

	"Iterable":          "java.lang.Iterable",
	"Collection":        "java.util.Collection",
	"MutableCollection": "java.util.Collection",
	"List":              "java.util.List",
	"MutableList":       "java.util.List",
	"ArrayList":         "java.util.ArrayList",
	"LinkedList":        "java.util.LinkedList",
	"Set":               "java.util.Set",
	"MutableSet":        "java.util.Set",
	"HashSet":           "java.util.HashSet",
	"LinkedHashSet":     "java.util.LinkedHashSet",
	"SortedSet":         "java.util.SortedSet",
	"NavigableSet":      "java.util.NavigableSet",
	"TreeSet":           "java.util.TreeSet",
	"Map":               "java.util.Map",
	"MutableMap":        "java.util.Map",
	"HashMap":           "java.util.HashMap",
	"LinkedHashMap":     "java.util.LinkedHashMap",
	"SortedMap":         "java.util.SortedMap",
	"NavigableMap":      "java.util.NavigableMap",
	"TreeMap":           "java.util.TreeMap",
	"Date":              "java.util.Date",
	"Serializable":      "java.io.Serializable",

	"Parcel":             "android.os.Parcel",
	"Parcelable":         "android.os.Parcelable",
	"SparseArray":        "android.util.SparseArray",
	"SparseIntArray":     "android.util.SparseIntArray",
	"SparseLongArray":    "android.util.SparseLongArray",
	"SparseBooleanArray": "android.util.SparseBooleanArray",
}

var primitiveArrays = map[string]string{
	"BooleanArray": "boolean",
	"ByteArray":    "byte",
	"CharArray":    "char",
	"ShortArray":   "short",
	"IntArray":     "int",
	"LongArray":    "long",
	"FloatArray":   "float",
	"DoubleArray":  "double",
}

var boxes = map[string]string{
	"boolean": "java.lang.Boolean",
	"byte":    "java.lang.Byte",
	"char":    "java.lang.Character",
	"short":   "java.lang.Short",
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"float":   "java.lang.Float",
	"double":  "java.lang.Double",
}

// BoxOf returns the boxed class name of a primitive name.
func BoxOf(primitive string) (string, bool) {
	b, ok := boxes[primitive]
	return b, ok
}

// Reference returns t as it is seen in reference position (type argument,
// Array<T> element or nullable declaration): primitives become their boxes.
func Reference(t DeclaredType) DeclaredType {
	if t.kind == Raw {
		if b, ok := boxes[t.name]; ok {
			return DeclaredType{kind: Raw, name: b, nullable: t.nullable}
		}
	}
	return t
}

// Parse decodes the declaration notation used by class manifests, e.g.
// "Map<String, List<Long?>>?", "IntArray", "Array<String>", "int[][]" or
// "out T". Identifiers listed in typeParams are type variables.
func Parse(notation string, typeParams ...string) (DeclaredType, error) {
	p := &parser{src: notation, vars: map[string]bool{}}
	for _, v := range typeParams {
		p.vars[v] = true
	}
	p.next()
	t, err := p.parseType(false)
	if err != nil {
		return DeclaredType{}, fmt.Errorf("typemodel: parse %q: %w", notation, err)
	}
	if p.tok != "" {
		return DeclaredType{}, fmt.Errorf("typemodel: parse %q: unexpected %q", notation, p.tok)
	}
	return t, nil
}

// MustParse is like Parse but panics on malformed notation.
func MustParse(notation string, typeParams ...string) DeclaredType {
	t, err := Parse(notation, typeParams...)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src  string
	pos  int
	tok  string
	vars map[string]bool
}

func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = ""
		return
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case c == '[' && p.pos+1 < len(p.src) && p.src[p.pos+1] == ']':
		p.pos += 2
	case strings.IndexByte("<>,?*", c) >= 0:
		p.pos++
	default:
		for p.pos < len(p.src) && isIdent(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == start {
			p.pos++
		}
	}
	p.tok = p.src[start:p.pos]
}

func isIdent(c byte) bool {
	return c == '.' || c == '$' || c == '_' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// parseType parses one type. ref reports whether the type is in reference
// position, where primitives are boxed.
func (p *parser) parseType(ref bool) (DeclaredType, error) {
	if p.tok == "*" {
		p.next()
		return NewBounded(NewRaw(ObjectName)), nil
	}
	if p.tok == "out" || p.tok == "in" {
		p.next()
		inner, err := p.parseType(true)
		if err != nil {
			return DeclaredType{}, err
		}
		return NewBounded(inner), nil
	}

	t, err := p.parseBase()
	if err != nil {
		return DeclaredType{}, err
	}
	for {
		switch p.tok {
		case "[]":
			p.next()
			t = NewArray(t)
			continue
		case "?":
			p.next()
			t = Reference(t).WithNullable(true)
			continue
		}
		break
	}
	if ref {
		t = Reference(t)
	}
	return t, nil
}

func (p *parser) parseBase() (DeclaredType, error) {
	name := p.tok
	if name == "" || !isIdent(name[0]) {
		return DeclaredType{}, fmt.Errorf("expected a type name, got %q", name)
	}
	p.next()

	if p.vars[name] {
		return NewVariable(name), nil
	}
	if prim, ok := primitiveArrays[name]; ok {
		return NewArray(NewRaw(prim)), nil
	}
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	if p.tok != "<" {
		if name == "Array" {
			return DeclaredType{}, fmt.Errorf("array requires an element type")
		}
		return NewRaw(name), nil
	}
	p.next()

	var args []DeclaredType
	for {
		arg, err := p.parseType(true)
		if err != nil {
			return DeclaredType{}, err
		}
		args = append(args, arg)
		if p.tok == "," {
			p.next()
			continue
		}
		if p.tok != ">" {
			return DeclaredType{}, fmt.Errorf("expected '>' or ',', got %q", p.tok)
		}
		p.next()
		break
	}

	if name == "Array" {
		if len(args) != 1 {
			return DeclaredType{}, fmt.Errorf("array takes exactly one type argument")
		}
		return NewArray(args[0]), nil
	}
	return NewParameterized(name, args...), nil
}
