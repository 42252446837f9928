package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// Config holds everything a packaging run needs.
// It is filled from command-line flags; there is no configuration file.
type Config struct {
	// Program is the output-name prefix of every artifact.
	Program string
	// SourceDir is the main package directory, relative to WorkDir or absolute.
	SourceDir string
	// WorkDir is where artifacts and archives are written and cleaned.
	WorkDir string
	// Targets is the ordered build matrix.
	Targets []release.Target
	// CommitSymbol is the linker symbol receiving the short revision.
	CommitSymbol string
	// DateSymbol is the linker symbol receiving the build date.
	DateSymbol string
	// GoBinary is the go command used for compilation.
	GoBinary string
	// GitBinary is the git command used for the revision lookup.
	GitBinary string
	// KeepGoing builds every target even after a failure and archives the successful ones.
	KeepGoing bool
	// SkipManifest disables writing the checksum manifest.
	SkipManifest bool
}

const (
	// DefaultProgram is the name of the released binary.
	DefaultProgram = "cfddns-go"

	// DefaultSourceDir points at the program package relative to the release folder.
	DefaultSourceDir = "../"

	// DefaultWorkDir is the current directory.
	DefaultWorkDir = "."

	// DefaultCommitSymbol receives the short revision identifier.
	DefaultCommitSymbol = "main.buildCommit"

	// DefaultDateSymbol receives the UTC build date.
	DefaultDateSymbol = "main.buildDate"

	// DefaultGoBinary is resolved through PATH.
	DefaultGoBinary = "go"

	// DefaultGitBinary is resolved through PATH.
	DefaultGitBinary = "git"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidProgram is returned for program names that cannot prefix a file name.
	errInvalidProgram = errors.New("program name must be a plain file name")
	// errNoTargets is returned when the build matrix is empty.
	errNoTargets = errors.New("at least one target is required")
	// errDuplicateTarget is returned when a target appears twice.
	errDuplicateTarget = errors.New("duplicate target")
	// errInvalidSymbol is returned for linker symbols without a package qualifier.
	errInvalidSymbol = errors.New("linker symbol must be package-qualified")
)

// Default returns the configuration of a bare invocation.
func Default() *Config {
	return &Config{
		Program:      DefaultProgram,
		SourceDir:    DefaultSourceDir,
		WorkDir:      DefaultWorkDir,
		Targets:      release.DefaultTargets(),
		CommitSymbol: DefaultCommitSymbol,
		DateSymbol:   DefaultDateSymbol,
		GoBinary:     DefaultGoBinary,
		GitBinary:    DefaultGitBinary,
	}
}

// Validate checks cfg and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Program = strings.TrimSpace(cfg.Program)
	if cfg.Program == "" || strings.HasPrefix(cfg.Program, ".") ||
		cfg.Program != filepath.Base(cfg.Program) ||
		strings.ContainsAny(cfg.Program, `*?[\`) {
		return fmt.Errorf("%q: %w", cfg.Program, errInvalidProgram)
	}

	if cfg.SourceDir == "" {
		cfg.SourceDir = DefaultSourceDir
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultWorkDir
	}

	if cfg.GoBinary == "" {
		cfg.GoBinary = DefaultGoBinary
	}

	if cfg.GitBinary == "" {
		cfg.GitBinary = DefaultGitBinary
	}

	if cfg.CommitSymbol == "" {
		cfg.CommitSymbol = DefaultCommitSymbol
	}

	if cfg.DateSymbol == "" {
		cfg.DateSymbol = DefaultDateSymbol
	}

	for _, symbol := range []string{cfg.CommitSymbol, cfg.DateSymbol} {
		if !strings.Contains(symbol, ".") || strings.ContainsAny(symbol, " =") {
			return fmt.Errorf("%q: %w", symbol, errInvalidSymbol)
		}
	}

	if len(cfg.Targets) == 0 {
		return errNoTargets
	}

	seen := make(map[release.Target]struct{}, len(cfg.Targets))
	for _, target := range cfg.Targets {
		if _, found := seen[target]; found {
			return fmt.Errorf("%s: %w", target, errDuplicateTarget)
		}

		seen[target] = struct{}{}
	}

	return nil
}

// SourcePath returns the source tree as seen from the current directory:
// SourceDir itself when absolute, otherwise SourceDir resolved against WorkDir.
func (c *Config) SourcePath() string {
	if filepath.IsAbs(c.SourceDir) {
		return filepath.Clean(c.SourceDir)
	}

	return filepath.Join(c.WorkDir, c.SourceDir)
}
