// Package manifest writes the checksum list published next to the archives.
//
// Each archive is fingerprinted with SHA-512 (base64-encoded), and the YAML
// file also records the run id and the metadata stamped into the binaries.
package manifest
