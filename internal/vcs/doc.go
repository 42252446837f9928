// Package vcs looks up the revision of the source tree being released.
package vcs
