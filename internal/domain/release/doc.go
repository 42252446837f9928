// Package release holds the value types of a packaging run: build targets,
// the metadata stamped into every binary, artifact naming, and the per-target
// report produced at the end of a run.
package release
