package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// ErrBuildFailed wraps every failed go build invocation.
var ErrBuildFailed = errors.New("build failed")

// GoCompiler builds one artifact per call with go build.
type GoCompiler struct {
	// GoBinary is the go executable; empty means "go" from PATH.
	GoBinary string
	// SourceDir is the directory of the main package; go runs there.
	SourceDir string
	// WorkDir receives the artifact.
	WorkDir string
	// Program is the artifact name prefix.
	Program string
	// CommitSymbol and DateSymbol are the -X targets for the metadata.
	CommitSymbol string
	DateSymbol   string
	// Stdout and Stderr receive the go command output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// LDFlags returns the linker flags for metadata.
// The date is single-quoted because it contains a space.
func (c *GoCompiler) LDFlags(metadata release.Metadata) string {
	return fmt.Sprintf("-s -w -X %s=%s -X '%s=%s'",
		c.CommitSymbol, metadata.Commit,
		c.DateSymbol, metadata.Date)
}

// Env returns the process environment for a build of target.
func (c *GoCompiler) Env(target release.Target) []string {
	return append(os.Environ(),
		"GOOS="+target.OS,
		"GOARCH="+target.Arch,
		"CGO_ENABLED=0",
	)
}

// Args returns the go arguments for a build writing to output.
func (c *GoCompiler) Args(output string, metadata release.Metadata) []string {
	return []string{
		"build",
		"-ldflags", c.LDFlags(metadata),
		"-o", output,
		".",
	}
}

// Compile builds target and returns the path of the produced binary.
func (c *GoCompiler) Compile(ctx context.Context, target release.Target, metadata release.Metadata) (string, error) {
	binary := c.GoBinary
	if binary == "" {
		binary = "go"
	}

	artifact := filepath.Join(c.WorkDir, release.ArtifactName(c.Program, target))

	output, err := filepath.Abs(artifact)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrBuildFailed, target, err)
	}

	cmd := exec.CommandContext(ctx, binary, c.Args(output, metadata)...)
	cmd.Dir = c.SourceDir
	cmd.Env = c.Env(target)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err = cmd.Run(); err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrBuildFailed, target, err)
	}

	if _, err = os.Stat(artifact); err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrBuildFailed, target, err)
	}

	return artifact, nil
}
