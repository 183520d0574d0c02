package bytecode

import "strings"

// Access is a bit set of class, field and method modifiers.
type Access uint32

const (
	Public    Access = 0x0001
	Private   Access = 0x0002
	Protected Access = 0x0004
	Static    Access = 0x0008
	Final     Access = 0x0010
	Interface Access = 0x0200
	Abstract  Access = 0x0400
	Synthetic Access = 0x1000
	Enum      Access = 0x4000
)

var accessNames = []struct {
	flag Access
	name string
}{
	{Public, "public"},
	{Private, "private"},
	{Protected, "protected"},
	{Static, "static"},
	{Final, "final"},
	{Interface, "interface"},
	{Abstract, "abstract"},
	{Synthetic, "synthetic"},
	{Enum, "enum"},
}

// Has reports whether every flag in f is set.
func (a Access) Has(f Access) bool { return a&f == f }

func (a Access) String() string {
	var parts []string
	for _, n := range accessNames {
		if a.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}
