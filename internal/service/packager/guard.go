package packager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/release-packager/internal/logger"
)

const (
	// MarkerFilename marks a working directory owned by a running packager.
	MarkerFilename = ".release-packager.marker"

	// executableName is matched against running processes when a marker looks stale.
	executableName = "release-packager"

	// markerLifetime is the age after which a marker may be reclaimed.
	markerLifetime = 2 * time.Minute
)

// errPackagerRunning indicates another run owns the working directory.
var errPackagerRunning = errors.New("another packager run is in progress")

// processLister returns the processes running on this machine.
type processLister func() ([]ps.Process, error)

// guard keeps two packager runs out of the same working directory.
type guard struct {
	path      string
	processes processLister
	now       func() time.Time
}

func newGuard(workDir string, processes processLister, now func() time.Time) *guard {
	return &guard{
		path:      filepath.Join(workDir, MarkerFilename),
		processes: processes,
		now:       now,
	}
}

// acquire creates the marker, refusing while another run is alive.
func (g *guard) acquire(ctx context.Context) error {
	info, err := os.Stat(g.path)

	switch {
	case err == nil:
		if g.now().Sub(info.ModTime()) <= markerLifetime {
			return errPackagerRunning
		}

		logger.InfoKV(ctx, "Run marker is stale, checking running processes", "marker", g.path)

		if g.otherPackagerRunning(ctx) {
			return errPackagerRunning
		}

		if err = os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return err
	}

	marker, err := os.OpenFile(g.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errPackagerRunning
		}

		return err
	}

	return marker.Close()
}

// release removes the marker.
func (g *guard) release(ctx context.Context) {
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "marker", g.path, "error", err)
	}
}

// otherPackagerRunning reports whether a packager process other than this one exists.
// A failing process listing counts as running.
func (g *guard) otherPackagerRunning(ctx context.Context) bool {
	processList, err := g.processes()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)

		return true
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == executableName || process.Executable() == executableName+".exe" {
			return true
		}
	}

	return false
}
