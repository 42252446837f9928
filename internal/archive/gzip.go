package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// Gzip replaces the artifact with a single-file gzip stream named <artifact>.gz,
// compressed at gzip.BestCompression.
type Gzip struct{}

// Archive compresses artifact, applies it as <artifact>.gz and removes the original.
func (*Gzip) Archive(ctx context.Context, artifact string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := statArtifact(artifact)
	if err != nil {
		return "", fmt.Errorf("gzip %s: %w", artifact, err)
	}

	compressed, err := compress(artifact, info)
	if err != nil {
		return "", fmt.Errorf("gzip %s: %w", artifact, err)
	}

	archivePath := artifact + GzipExtension

	if err = apply(archivePath, compressed, checksum(compressed)); err != nil {
		return "", fmt.Errorf("write %s: %w", archivePath, err)
	}

	if err = os.Remove(artifact); err != nil {
		return "", fmt.Errorf("remove %s: %w", artifact, err)
	}

	return archivePath, nil
}

// compress returns the gzip stream of artifact with its name and mtime in the header.
func compress(artifact string, info os.FileInfo) ([]byte, error) {
	src, err := os.Open(filepath.Clean(artifact))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = src.Close()
	}()

	var buffer bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buffer, gzip.BestCompression)
	if err != nil {
		return nil, err
	}

	writer.Name = filepath.Base(artifact)
	writer.ModTime = info.ModTime()

	if _, err = io.Copy(writer, src); err != nil {
		return nil, err
	}

	if err = writer.Close(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// checksum returns the ChecksumFunction digest of data.
func checksum(data []byte) []byte {
	hasher := ChecksumFunction.New()
	_, _ = hasher.Write(data)

	return hasher.Sum(nil)
}

// apply swaps data over path after go-update verifies it against sum.
// go-update renames over an existing file, so an empty placeholder is created
// first and removed again when the update fails.
func apply(path string, data, sum []byte) error {
	placeholder := false

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		file, createErr := os.Create(filepath.Clean(path))
		if createErr != nil {
			return createErr
		}

		placeholder = true

		if createErr = file.Close(); createErr != nil {
			_ = os.Remove(path)

			return createErr
		}
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: DefaultFileMode,
		Checksum:   sum,
		Hash:       ChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if placeholder {
			_ = os.Remove(path)
		}

		return err
	}

	// go-update leaves the replaced file behind on some platforms.
	_ = os.Remove(filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".old"))

	return nil
}
