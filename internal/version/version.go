package version

import "fmt"

var (
	// Version is the release-packager version. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA the packager itself was built from.
	Commit = "none"
	// BuildTime is the UTC build timestamp of the packager.
	BuildTime = "unknown"
)

// Short returns only the version string.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("release-packager %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
