package packager

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/manifest"
)

var (
	errCompile = errors.New("unsupported GOOS/GOARCH pair")
	errGit     = errors.New("not a git repository")

	// buildTime is 2024-03-01 10:15 UTC expressed in another zone.
	buildTime = time.Date(2024, time.March, 1, 11, 15, 42, 0, time.FixedZone("CET", 60*60))
)

// fakeCompiler writes a binary containing the embedded metadata.
type fakeCompiler struct {
	workDir string
	program string
	failOn  map[release.Target]bool
	calls   []release.Target
}

func (f *fakeCompiler) Compile(_ context.Context, target release.Target, metadata release.Metadata) (string, error) {
	f.calls = append(f.calls, target)

	if f.failOn[target] {
		return "", fmt.Errorf("build %s: %w", target, errCompile)
	}

	path := filepath.Join(f.workDir, release.ArtifactName(f.program, target))
	contents := "commit=" + metadata.Commit + "\ndate=" + metadata.Date + "\n"

	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil { //nolint:gosec // Fake executable.
		return "", err
	}

	return path, nil
}

type fakeRevision struct {
	revision string
	err      error
}

func (f fakeRevision) Revision(context.Context) (string, error) {
	return f.revision, f.err
}

func noProcesses() ([]ps.Process, error) {
	return nil, nil
}

// newTestPackager wires fakes into a packager working in a temp directory.
func newTestPackager(t *testing.T, mutate func(*config.Config), options ...Option) (*Packager, *fakeCompiler) {
	t.Helper()

	cfg := config.Default()
	cfg.Program = "program"
	cfg.WorkDir = t.TempDir()

	if mutate != nil {
		mutate(cfg)
	}

	compiler := &fakeCompiler{workDir: cfg.WorkDir, program: cfg.Program}

	defaults := []Option{
		WithCompiler(compiler),
		WithRevisionSource(fakeRevision{revision: "abc1234"}),
		WithClock(func() time.Time { return buildTime }),
		withProcessLister(noProcesses),
	}

	pkg, err := New(cfg, append(defaults, options...)...)
	require.NoError(t, err)

	return pkg, compiler
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

func readGzip(t *testing.T, path string) string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = file.Close()
	}()

	reader, err := gzip.NewReader(file)
	require.NoError(t, err)

	contents, err := io.ReadAll(reader)
	require.NoError(t, err)

	return string(contents)
}

func readZip(t *testing.T, path string) (string, string) {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	require.Len(t, reader.File, 1)

	entry, err := reader.File[0].Open()
	require.NoError(t, err)

	defer func() {
		_ = entry.Close()
	}()

	contents, err := io.ReadAll(entry)
	require.NoError(t, err)

	return reader.File[0].Name, string(contents)
}

// TestRunProducesOneArchivePerTarget covers the abc1234 at 2024-03-01 10:15 scenario.
func TestRunProducesOneArchivePerTarget(t *testing.T) {
	t.Parallel()

	pkg, compiler := newTestPackager(t, nil)
	workDir := pkg.cfg.WorkDir

	report, err := pkg.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, release.DefaultTargets(), compiler.calls)
	require.Empty(t, report.Failed())

	require.ElementsMatch(t, []string{
		"program_linux_amd64.gz",
		"program_linux_arm.gz",
		"program_linux_arm64.gz",
		"program_linux_mips.gz",
		"program_linux_mipsle.gz",
		"program_windows_amd64.exe.zip",
		"program_checksums.yaml",
	}, listDir(t, workDir))

	embedded := "commit=abc1234\ndate=2024-03-01 10:15\n"

	for _, name := range []string{"linux_amd64", "linux_arm", "linux_arm64", "linux_mips", "linux_mipsle"} {
		require.Equal(t, embedded, readGzip(t, filepath.Join(workDir, "program_"+name+".gz")))
	}

	entryName, contents := readZip(t, filepath.Join(workDir, "program_windows_amd64.exe.zip"))
	require.Equal(t, "program_windows_amd64.exe", entryName)
	require.Equal(t, embedded, contents)

	m, err := manifest.Load(filepath.Join(workDir, "program_checksums.yaml"))
	require.NoError(t, err)
	require.Equal(t, "abc1234", m.Commit)
	require.Equal(t, "2024-03-01 10:15", m.Date)
	require.Len(t, m.Archives, 6)

	for _, result := range report.Results {
		require.Equal(t, release.StatusSucceeded, result.Status)
	}

	require.NoFileExists(t, filepath.Join(workDir, MarkerFilename))
}

// TestRunTwiceLeavesNoStaleArtifacts checks cleanup between consecutive runs.
func TestRunTwiceLeavesNoStaleArtifacts(t *testing.T) {
	t.Parallel()

	pkg, _ := newTestPackager(t, nil)
	workDir := pkg.cfg.WorkDir

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "program_freebsd_amd64.gz"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "program_linux_arm"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "unrelated.txt"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(workDir, "program_sources"), 0o750))

	_, err := pkg.Run(context.Background())
	require.NoError(t, err)

	first := listDir(t, workDir)

	_, err = pkg.Run(context.Background())
	require.NoError(t, err)

	second := listDir(t, workDir)
	require.Equal(t, first, second)
	require.NotContains(t, second, "program_freebsd_amd64.gz")
	require.NotContains(t, second, "program_linux_arm")
	require.Contains(t, second, "unrelated.txt")
	require.Contains(t, second, "program_sources")
}

// TestRunRevisionUnavailable aborts before compiling anything.
func TestRunRevisionUnavailable(t *testing.T) {
	t.Parallel()

	pkg, compiler := newTestPackager(t, nil, WithRevisionSource(fakeRevision{err: errGit}))

	report, err := pkg.Run(context.Background())
	require.ErrorIs(t, err, errMetadata)
	require.ErrorIs(t, err, errGit)
	require.Nil(t, report)
	require.Empty(t, compiler.calls)
	require.Empty(t, listDir(t, pkg.cfg.WorkDir))
}

// TestRunFailFast stops at the first failing target and archives nothing.
func TestRunFailFast(t *testing.T) {
	t.Parallel()

	mips := release.Target{OS: "linux", Arch: "mips"}

	pkg, compiler := newTestPackager(t, nil)
	compiler.failOn = map[release.Target]bool{mips: true}

	report, err := pkg.Run(context.Background())
	require.ErrorIs(t, err, errTargetsFailed)
	require.ErrorIs(t, err, errCompile)
	require.Equal(t, release.DefaultTargets()[:4], compiler.calls)
	require.Equal(t, []release.Target{mips}, report.Failed())

	for _, result := range report.Results {
		if result.Target != mips {
			require.Equal(t, release.StatusSkipped, result.Status, result.Target.String())
		}
	}

	require.NoFileExists(t, filepath.Join(pkg.cfg.WorkDir, "program_checksums.yaml"))
	require.NoFileExists(t, filepath.Join(pkg.cfg.WorkDir, "program_linux_amd64.gz"))
}

// TestRunKeepGoing builds every target and reports all failures together.
func TestRunKeepGoing(t *testing.T) {
	t.Parallel()

	arm := release.Target{OS: "linux", Arch: "arm"}
	windows := release.Target{OS: "windows", Arch: "amd64"}

	pkg, compiler := newTestPackager(t, func(cfg *config.Config) {
		cfg.KeepGoing = true
	})
	compiler.failOn = map[release.Target]bool{arm: true, windows: true}

	report, err := pkg.Run(context.Background())
	require.ErrorIs(t, err, errCompile)
	require.ErrorContains(t, err, "linux/arm")
	require.ErrorContains(t, err, "windows/amd64")
	require.Equal(t, release.DefaultTargets(), compiler.calls)
	require.Equal(t, []release.Target{arm, windows}, report.Failed())

	require.ElementsMatch(t, []string{
		"program_linux_amd64.gz",
		"program_linux_arm64.gz",
		"program_linux_mips.gz",
		"program_linux_mipsle.gz",
	}, listDir(t, pkg.cfg.WorkDir))
}

type failingArchiver struct{}

func (failingArchiver) Archive(_ context.Context, artifact string) (string, error) {
	return "", fmt.Errorf("compress %s: %w", artifact, os.ErrPermission)
}

// TestRunArchiveFailure propagates archiver errors instead of masking them.
func TestRunArchiveFailure(t *testing.T) {
	t.Parallel()

	pkg, _ := newTestPackager(t, func(cfg *config.Config) {
		cfg.Targets = []release.Target{{OS: "linux", Arch: "amd64"}}
	}, WithArchiver(failingArchiver{}))

	report, err := pkg.Run(context.Background())
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, release.StatusFailed, report.Results[0].Status)
	require.Equal(t, filepath.Join(pkg.cfg.WorkDir, "program_linux_amd64"), report.Results[0].Artifact)
}

// TestRunReducedMatrix builds only the configured targets, without a manifest.
func TestRunReducedMatrix(t *testing.T) {
	t.Parallel()

	pkg, compiler := newTestPackager(t, func(cfg *config.Config) {
		cfg.Targets = []release.Target{{OS: "windows", Arch: "amd64"}}
		cfg.SkipManifest = true
	})

	report, err := pkg.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, compiler.calls, 1)
	require.Equal(t, []string{filepath.Join(pkg.cfg.WorkDir, "program_windows_amd64.exe.zip")}, report.Archives())
	require.Equal(t, []string{"program_windows_amd64.exe.zip"}, listDir(t, pkg.cfg.WorkDir))
}

// TestRunCanceled leaves every target skipped once the context is done.
func TestRunCanceled(t *testing.T) {
	t.Parallel()

	pkg, compiler := newTestPackager(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := pkg.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, compiler.calls)
	require.Empty(t, report.Failed())
}

// TestNewRejectsInvalidConfig validates before wiring.
func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Targets = nil

	_, err := New(cfg)
	require.Error(t, err)
}

// initGitRepo creates a repository with one empty commit and returns its short revision.
func initGitRepo(t *testing.T, dir string) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	for _, args := range [][]string{
		{"init", "-q"},
		{"-c", "user.email=release@example.com", "-c", "user.name=release", "-c", "commit.gpgsign=false", "commit", "-q", "--allow-empty", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir

		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir

	out, err := cmd.Output()
	require.NoError(t, err)

	return strings.TrimSpace(string(out))
}

// TestMetadataReadsRevisionFromSourceTree runs git in the source tree, not the output directory.
func TestMetadataReadsRevisionFromSourceTree(t *testing.T) {
	t.Parallel()

	source := t.TempDir()
	revision := initGitRepo(t, source)

	cfg := config.Default()
	cfg.Program = "program"
	cfg.SourceDir = source
	cfg.WorkDir = t.TempDir()

	pkg, err := New(cfg, WithClock(func() time.Time { return buildTime }))
	require.NoError(t, err)

	metadata, err := pkg.metadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, revision, metadata.Commit)
	require.Equal(t, "2024-03-01 10:15", metadata.Date)
}

// TestCleanupKeepsDotFiles never touches hidden files, even next to the artifacts.
func TestCleanupKeepsDotFiles(t *testing.T) {
	t.Parallel()

	pkg, _ := newTestPackager(t, nil)
	workDir := pkg.cfg.WorkDir

	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".gitignore"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), nil, 0o600))

	_, err := pkg.Run(context.Background())
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(workDir, ".gitignore"))
	require.FileExists(t, filepath.Join(workDir, ".env"))

	cfg := config.Default()
	cfg.Program = "."
	cfg.WorkDir = workDir

	_, err = New(cfg)
	require.Error(t, err)
}
