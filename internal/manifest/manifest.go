package manifest

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-packager/internal/domain/release"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// FilenameSuffix completes <program> into the manifest file name.
	FilenameSuffix = "_checksums.yaml"

	// ChecksumFunction fingerprints every archive.
	ChecksumFunction crypto.Hash = crypto.SHA512

	// DefaultFileMode is used for the manifest file.
	DefaultFileMode os.FileMode = 0o644
)

var errHashUnavailable = errors.New("hash function unavailable")

// Manifest describes one packaging run.
type Manifest struct {
	// RunID identifies the run that produced the archives.
	RunID string `yaml:"run_id"`
	// Program is the released binary name.
	Program string `yaml:"program"`
	// Commit and Date are the values embedded in every binary.
	Commit string `yaml:"commit"`
	Date   string `yaml:"date"`
	// Algorithm names the checksum function.
	Algorithm string `yaml:"algorithm"`
	// Archives lists every archive in build order.
	Archives []Entry `yaml:"archives"`
}

// Entry is one archive and its checksum.
type Entry struct {
	Target   release.Target `yaml:"target"`
	File     string         `yaml:"file"`
	Checksum string         `yaml:"checksum"`
}

// New starts a manifest for a run with a fresh run id.
func New(program string, metadata release.Metadata) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Program:   program,
		Commit:    metadata.Commit,
		Date:      metadata.Date,
		Algorithm: ChecksumFunction.String(),
	}
}

// Filename returns the manifest file name for program.
func Filename(program string) string {
	return program + FilenameSuffix
}

// Add fingerprints the archive at path and appends it.
func (m *Manifest) Add(target release.Target, path string) error {
	checksum, err := FileChecksum(path)
	if err != nil {
		return err
	}

	m.Archives = append(m.Archives, Entry{
		Target:   target,
		File:     filepath.Base(path),
		Checksum: base64.StdEncoding.EncodeToString(checksum),
	})

	return nil
}

// Save writes the manifest as YAML to path.
func (m *Manifest) Save(path string) error {
	contents, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Load reads a manifest written by Save.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// FileChecksum returns the ChecksumFunction digest of the file at path.
func FileChecksum(path string) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := ChecksumFunction.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
