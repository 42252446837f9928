package archive

import (
	"context"
	"crypto"
	"errors"
	"os"
	"strings"

	"github.com/oshokin/release-packager/internal/domain/release"

	// Ensure SHA512 is registered for checksum verification.
	_ "crypto/sha512"
)

const (
	// ZipExtension is appended to windows artifacts.
	ZipExtension = ".zip"

	// GzipExtension is appended to every other artifact.
	GzipExtension = ".gz"

	// DefaultFileMode is used for archives.
	DefaultFileMode os.FileMode = 0o644

	// ChecksumFunction verifies compressed data before it lands on disk.
	ChecksumFunction crypto.Hash = crypto.SHA512
)

var errNotRegularFile = errors.New("artifact is not a regular file")

// Archiver compresses one artifact and returns the archive path.
// On success the uncompressed artifact no longer exists.
type Archiver interface {
	Archive(ctx context.Context, artifact string) (string, error)
}

// ByPlatform picks zip for windows executables and gzip for everything else.
type ByPlatform struct {
	Zip  Archiver
	Gzip Archiver
}

// NewByPlatform returns the default dispatcher.
func NewByPlatform() *ByPlatform {
	return &ByPlatform{
		Zip:  new(Zip),
		Gzip: new(Gzip),
	}
}

// Archive dispatches on the executable suffix.
func (b *ByPlatform) Archive(ctx context.Context, artifact string) (string, error) {
	if strings.HasSuffix(artifact, release.ExecutableSuffix) {
		return b.Zip.Archive(ctx, artifact)
	}

	return b.Gzip.Archive(ctx, artifact)
}

// statArtifact returns artifact's file info, rejecting anything but regular files.
func statArtifact(artifact string) (os.FileInfo, error) {
	info, err := os.Stat(artifact)
	if err != nil {
		return nil, err
	}

	if !info.Mode().IsRegular() {
		return nil, errNotRegularFile
	}

	return info, nil
}
