package version

import (
	"fmt"
	"runtime/debug"
)

const (
	Major = 0
	Minor = 1
	Patch = 0
)

var (
	Version = SemVer{Major, Minor, Patch}
)

type SemVer struct {
	Major int
	Minor int
	Patch int
}

func (v SemVer) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Describe returns the version line printed by the CLI, with the VCS
// revision when the binary was built from a checkout.
func Describe() string {
	s := "parcelgen " + Version.String()
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return s
	}
	for _, kv := range info.Settings {
		if kv.Key == "vcs.revision" && len(kv.Value) >= 12 {
			return fmt.Sprintf("%s (%s, %s)", s, kv.Value[:12], info.GoVersion)
		}
	}
	return fmt.Sprintf("%s (%s)", s, info.GoVersion)
}
