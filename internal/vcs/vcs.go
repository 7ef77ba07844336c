package vcs

import (
	"fmt"
	"runtime/debug"
)

// Version derives a version string from the build's VCS metadata.
func Version() string {
	var (
		revision string
		modified bool
	)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return fmt.Sprintf("%s-dirty", revision)
	}

	return revision
}
