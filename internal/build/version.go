package build

import "fmt"

// These are overridden at link time with -ldflags "-X ...".
var (
	// Version is the release tag of the binary.
	Version = "0.1.0-dev"

	// Commit is the git commit the binary was built from.
	Commit = ""
)

// String returns the version line printed by `finreveal version`.
func String() string {
	if Commit == "" {
		return Version
	}

	return fmt.Sprintf("%s (%s)", Version, Commit)
}
