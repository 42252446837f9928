// Package integration holds end-to-end tests that drive the packager with the
// real go and git commands. Tests skip when either command is missing.
package integration
