package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoRevision is returned when the short revision cannot be determined.
var ErrNoRevision = errors.New("revision is unavailable")

// Git reads the short revision of HEAD with the git client.
type Git struct {
	// Binary is the git executable; empty means "git" from PATH.
	Binary string
	// Dir is the directory git runs in; empty means the current one.
	Dir string
}

// Args returns the git arguments used for the lookup.
func (g *Git) Args() []string {
	return []string{"rev-parse", "--short", "HEAD"}
}

// Revision returns the abbreviated commit hash of HEAD.
func (g *Git) Revision(ctx context.Context) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "git"
	}

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, g.Args()...)
	cmd.Dir = g.Dir
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: git %s: %s", ErrNoRevision, strings.Join(g.Args(), " "), msg)
		}

		return "", fmt.Errorf("%w: %w", ErrNoRevision, err)
	}

	revision := strings.TrimSpace(string(out))
	if revision == "" {
		return "", fmt.Errorf("%w: git printed nothing", ErrNoRevision)
	}

	return revision, nil
}
