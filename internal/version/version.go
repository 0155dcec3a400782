// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of this build.
	Version = "0.1.0-dev"
	// Commit is the short git hash the binary was built from.
	Commit = "unknown"
	// BuildDate is the build timestamp in RFC 3339 form.
	BuildDate = "unknown"
)

// Info returns a single-line human-readable version string.
func Info() string {
	return fmt.Sprintf("lanward %s (commit %s, built %s)", Version, Commit, BuildDate)
}
