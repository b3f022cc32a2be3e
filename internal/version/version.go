package version

import "runtime/debug"

// Get returns the VCS revision baked into the binary, with a "-dirty"
// suffix for uncommitted changes.
func Get() string {
	var (
		revision string
		modified bool
	)

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unavailable"
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = true
			}
		}
	}

	if revision == "" {
		return "unavailable"
	}
	if modified {
		return revision + "-dirty"
	}
	return revision
}
