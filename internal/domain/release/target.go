package release

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// WindowsOS is the GOOS value whose binaries get the .exe suffix and a zip archive.
	WindowsOS = "windows"

	// ExecutableSuffix is appended to windows artifacts.
	ExecutableSuffix = ".exe"
)

var errInvalidTarget = errors.New("target must be in os/arch form")

// Target is one OS/architecture pair the program is compiled for.
type Target struct {
	// OS is the GOOS value.
	OS string `yaml:"os"`
	// Arch is the GOARCH value.
	Arch string `yaml:"arch"`
}

// DefaultTargets returns the release matrix in build order.
func DefaultTargets() []Target {
	return []Target{
		{OS: "linux", Arch: "amd64"},
		{OS: "linux", Arch: "arm"},
		{OS: "linux", Arch: "arm64"},
		{OS: "linux", Arch: "mips"},
		{OS: "linux", Arch: "mipsle"},
		{OS: WindowsOS, Arch: "amd64"},
	}
}

// ParseTarget parses the os/arch form printed by Target.String.
func ParseTarget(s string) (Target, error) {
	osName, arch, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found || osName == "" || arch == "" || strings.Contains(arch, "/") {
		return Target{}, fmt.Errorf("%q: %w", s, errInvalidTarget)
	}

	return Target{OS: osName, Arch: arch}, nil
}

// IsWindows reports whether the target belongs to the windows family.
func (t Target) IsWindows() bool {
	return t.OS == WindowsOS
}

// String renders the target as os/arch.
func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// ArtifactName returns the deterministic binary name for program on target:
// <program>_<os>_<arch>, plus .exe for windows.
func ArtifactName(program string, target Target) string {
	name := program + "_" + target.OS + "_" + target.Arch
	if target.IsWindows() {
		name += ExecutableSuffix
	}

	return name
}
