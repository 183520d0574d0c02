package classmodel

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Universe is the immutable set of classes visible to one run: the platform
// classes plus every user class. It implements hierarchy.ClassPath.
type Universe struct {
	classes map[string]*ClassInfo
}

// NewUniverse returns a universe holding the platform classes and classes.
// A user class may not redeclare a name already present.
func NewUniverse(classes ...*ClassInfo) (*Universe, error) {
	u := &Universe{classes: map[string]*ClassInfo{}}
	for _, c := range Platform() {
		u.classes[c.Name] = c
	}
	for _, c := range classes {
		if _, dup := u.classes[c.Name]; dup {
			return nil, fmt.Errorf("class %q declared twice", c.Name)
		}
		u.classes[c.Name] = c
	}
	return u, nil
}

// Lookup returns the class with the dotted name.
func (u *Universe) Lookup(name string) (*ClassInfo, bool) {
	c, ok := u.classes[name]
	return c, ok
}

func (u *Universe) Supertypes(name string) (string, []string, bool) {
	c, ok := u.classes[name]
	if !ok {
		return "", nil, false
	}
	return c.SuperName(), c.InterfaceNames(), true
}

// Names returns every class name in sorted order.
func (u *Universe) Names() []string {
	names := maps.Keys(u.classes)
	slices.Sort(names)
	return names
}

// UserClasses returns the non-platform classes sorted by name.
func (u *Universe) UserClasses() []*ClassInfo {
	var out []*ClassInfo
	for _, name := range u.Names() {
		if c := u.classes[name]; !c.Platform {
			out = append(out, c)
		}
	}
	return out
}

// Tagged returns the classes carrying an annotation of type typ, sorted by
// name.
func (u *Universe) Tagged(typ string) []*ClassInfo {
	var out []*ClassInfo
	for _, name := range u.Names() {
		if c := u.classes[name]; c.HasTag(typ) {
			out = append(out, c)
		}
	}
	return out
}
