package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"go.uber.org/multierr"

	"github.com/oshokin/release-packager/internal/archive"
	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/manifest"
	"github.com/oshokin/release-packager/internal/toolchain"
	"github.com/oshokin/release-packager/internal/vcs"
)

// Compiler builds the program for one target and returns the artifact path.
type Compiler interface {
	Compile(ctx context.Context, target release.Target, metadata release.Metadata) (string, error)
}

// RevisionSource returns the short revision identifier of the source tree.
type RevisionSource interface {
	Revision(ctx context.Context) (string, error)
}

// Options contains inputs for the packager entry point.
type Options struct {
	// Config is the run configuration; nil means config.Default().
	Config *config.Config
}

// Packager runs the release workflow. Build one with New.
type Packager struct {
	cfg       *config.Config
	compiler  Compiler
	archiver  archive.Archiver
	revisions RevisionSource
	now       func() time.Time
	processes processLister
}

// Option customizes a Packager.
type Option func(*Packager)

// WithCompiler replaces the go build compiler.
func WithCompiler(c Compiler) Option {
	return func(p *Packager) {
		p.compiler = c
	}
}

// WithArchiver replaces the zip/gzip archiver.
func WithArchiver(a archive.Archiver) Option {
	return func(p *Packager) {
		p.archiver = a
	}
}

// WithRevisionSource replaces the git revision lookup.
func WithRevisionSource(r RevisionSource) Option {
	return func(p *Packager) {
		p.revisions = r
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		p.now = now
	}
}

// withProcessLister replaces the go-ps process listing used by the run guard.
func withProcessLister(l processLister) Option {
	return func(p *Packager) {
		p.processes = l
	}
}

var (
	// errMetadata wraps failures to derive the build metadata.
	errMetadata = errors.New("derive build metadata")
	// errTargetsFailed is returned when at least one target did not produce an archive.
	errTargetsFailed = errors.New("release incomplete")
)

// Run executes the packaging workflow with the default collaborators.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-packager")

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	pkg, err := New(cfg)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	if _, err = pkg.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Packaging failed", "error", err)

		return err
	}

	logger.Info(ctx, "Packaging completed successfully")

	return nil
}

// New validates cfg and wires the collaborators.
func New(cfg *config.Config, options ...Option) (*Packager, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	p := &Packager{
		cfg: cfg,
		compiler: &toolchain.GoCompiler{
			GoBinary:     cfg.GoBinary,
			SourceDir:    cfg.SourcePath(),
			WorkDir:      cfg.WorkDir,
			Program:      cfg.Program,
			CommitSymbol: cfg.CommitSymbol,
			DateSymbol:   cfg.DateSymbol,
			Stdout:       os.Stdout,
			Stderr:       os.Stderr,
		},
		archiver: archive.NewByPlatform(),
		revisions: &vcs.Git{
			Binary: cfg.GitBinary,
			Dir:    cfg.SourcePath(),
		},
		now:       time.Now,
		processes: ps.Processes,
	}

	for _, option := range options {
		option(p)
	}

	return p, nil
}

// Run performs one release: guard, cleanup, metadata, compile, archive, manifest.
// The returned report is never nil once the metadata has been derived.
func (p *Packager) Run(ctx context.Context) (*release.Report, error) {
	runGuard := newGuard(p.cfg.WorkDir, p.processes, time.Now)
	if err := runGuard.acquire(ctx); err != nil {
		return nil, err
	}

	defer runGuard.release(ctx)

	p.cleanup(ctx)

	metadata, err := p.metadata(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Build metadata derived", "commit", metadata.Commit, "date", metadata.Date)

	report := release.NewReport(p.cfg.Targets)
	buildErr := p.compileAll(ctx, report, metadata)

	if buildErr == nil || p.cfg.KeepGoing {
		buildErr = multierr.Append(buildErr, p.archiveAll(ctx, report))
	}

	if buildErr == nil && !p.cfg.SkipManifest {
		buildErr = p.writeManifest(ctx, report, metadata)
	}

	logger.Info(ctx, "Release summary:\n"+report.Summary())

	if buildErr != nil {
		return report, fmt.Errorf("%w: %w", errTargetsFailed, buildErr)
	}

	return report, nil
}

// cleanup removes files named <program>* from the working directory.
// Directories and the run marker are left alone.
func (p *Packager) cleanup(ctx context.Context) {
	entries, err := os.ReadDir(p.cfg.WorkDir)
	if err != nil {
		logger.WarnKV(ctx, "Unable to list stale artifacts", "dir", p.cfg.WorkDir, "error", err)

		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == MarkerFilename || !strings.HasPrefix(name, p.cfg.Program) {
			continue
		}

		path := filepath.Join(p.cfg.WorkDir, name)
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove stale artifact", "file", path, "error", removeErr)

			continue
		}

		logger.DebugKV(ctx, "Removed stale artifact", "file", path)
	}
}

// metadata reads the revision and stamps the current UTC minute.
func (p *Packager) metadata(ctx context.Context) (release.Metadata, error) {
	revision, err := p.revisions.Revision(ctx)
	if err != nil {
		return release.Metadata{}, fmt.Errorf("%w: %w", errMetadata, err)
	}

	return release.NewMetadata(revision, p.now()), nil
}

// compileAll builds every target in order.
// Without KeepGoing the first failure stops the loop and leaves later targets skipped.
func (p *Packager) compileAll(ctx context.Context, report *release.Report, metadata release.Metadata) error {
	var errs error

	for i := range report.Results {
		result := &report.Results[i]
		targetCtx := logger.WithKV(ctx, "target", result.Target.String())

		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		logger.Info(targetCtx, "Compiling")

		artifact, err := p.compiler.Compile(targetCtx, result.Target, metadata)
		if err != nil {
			result.Status = release.StatusFailed
			result.Err = err
			errs = multierr.Append(errs, err)

			logger.ErrorKV(targetCtx, "Compilation failed", "error", err)

			if !p.cfg.KeepGoing {
				return errs
			}

			continue
		}

		result.Artifact = artifact
	}

	return errs
}

// archiveAll compresses every artifact compiled in this run.
func (p *Packager) archiveAll(ctx context.Context, report *release.Report) error {
	var errs error

	for i := range report.Results {
		result := &report.Results[i]
		if result.Artifact == "" {
			continue
		}

		targetCtx := logger.WithKV(ctx, "target", result.Target.String())

		archivePath, err := p.archiver.Archive(targetCtx, result.Artifact)
		if err != nil {
			result.Status = release.StatusFailed
			result.Err = err
			errs = multierr.Append(errs, err)

			logger.ErrorKV(targetCtx, "Archiving failed", "artifact", result.Artifact, "error", err)

			if !p.cfg.KeepGoing {
				return errs
			}

			continue
		}

		result.Archive = archivePath
		result.Status = release.StatusSucceeded

		logger.InfoKV(targetCtx, "Archived", "archive", archivePath)
	}

	return errs
}

// writeManifest records the checksum of every archive.
func (p *Packager) writeManifest(ctx context.Context, report *release.Report, metadata release.Metadata) error {
	m := manifest.New(p.cfg.Program, metadata)

	for _, result := range report.Results {
		if result.Status != release.StatusSucceeded {
			continue
		}

		if err := m.Add(result.Target, result.Archive); err != nil {
			return fmt.Errorf("fingerprint %s: %w", result.Archive, err)
		}
	}

	path := filepath.Join(p.cfg.WorkDir, manifest.Filename(p.cfg.Program))
	if err := m.Save(path); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Checksum manifest written", "path", path, "run_id", m.RunID)

	return nil
}
