// Package version exposes the build metadata of the release-packager binary.
//
// Version, Commit and BuildTime are injected with -X linker flags; Full
// renders them for the `version` subcommand.
package version
