// Package archive compresses release artifacts.
//
// Windows executables are stored in a zip archive next to the original, which
// is then deleted. Every other artifact is gzipped: the compressed stream is
// verified against its SHA-512 checksum, written atomically as <artifact>.gz,
// and the uncompressed original is removed.
package archive
