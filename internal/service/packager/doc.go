// Package packager produces one compressed, distributable archive per
// supported platform for the current source tree.
//
// A run removes stale artifacts, reads the short revision, compiles every
// target in order with the same metadata, archives each binary, and writes a
// checksum manifest. Collaborators are interfaces so tests can replace the
// go and git commands with fakes.
package packager
