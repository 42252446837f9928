package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Zip stores the artifact as the only entry of <artifact>.zip.
type Zip struct{}

// Archive writes the zip archive and deletes the original.
func (z *Zip) Archive(ctx context.Context, artifact string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := statArtifact(artifact)
	if err != nil {
		return "", fmt.Errorf("zip %s: %w", artifact, err)
	}

	archivePath := artifact + ZipExtension

	if err = writeZip(archivePath, artifact, info); err != nil {
		_ = os.Remove(archivePath)

		return "", fmt.Errorf("zip %s: %w", artifact, err)
	}

	if err = os.Remove(artifact); err != nil {
		return "", fmt.Errorf("remove %s: %w", artifact, err)
	}

	return archivePath, nil
}

func writeZip(archivePath, artifact string, info os.FileInfo) error {
	src, err := os.Open(filepath.Clean(artifact))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(filepath.Clean(archivePath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return err
	}

	writer := zip.NewWriter(dst)

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		_ = dst.Close()

		return err
	}

	header.Name = filepath.Base(artifact)
	header.Method = zip.Deflate

	entry, err := writer.CreateHeader(header)
	if err != nil {
		_ = dst.Close()

		return err
	}

	if _, err = io.Copy(entry, src); err != nil {
		_ = dst.Close()

		return err
	}

	if err = writer.Close(); err != nil {
		_ = dst.Close()

		return err
	}

	return dst.Close()
}
