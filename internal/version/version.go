// Package version carries build identification injected at link time via
// -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the human-readable build identifier.
func String() string {
	if GitSHA == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitSHA)
}
