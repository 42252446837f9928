package release

import (
	"fmt"
	"strings"
)

// Status is the outcome of one target in a run.
type Status string

const (
	// StatusSucceeded means the target was compiled and archived.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means compiling or archiving the target returned an error.
	StatusFailed Status = "failed"
	// StatusSkipped means the run stopped before reaching the target.
	StatusSkipped Status = "skipped"
)

// Result describes what happened to a single target.
type Result struct {
	Target Target
	// Artifact is the uncompressed binary path, empty if compilation failed.
	Artifact string
	// Archive is the compressed file path, empty unless the target succeeded.
	Archive string
	Status  Status
	Err     error
}

// Report collects per-target results in matrix order.
type Report struct {
	Results []Result
}

// NewReport creates a report with every target marked skipped.
func NewReport(targets []Target) *Report {
	results := make([]Result, len(targets))
	for i, target := range targets {
		results[i] = Result{Target: target, Status: StatusSkipped}
	}

	return &Report{Results: results}
}

// Failed returns the targets whose status is failed.
func (r *Report) Failed() []Target {
	var failed []Target

	for _, result := range r.Results {
		if result.Status == StatusFailed {
			failed = append(failed, result.Target)
		}
	}

	return failed
}

// Archives returns the archive paths of succeeded targets.
func (r *Report) Archives() []string {
	archives := make([]string, 0, len(r.Results))

	for _, result := range r.Results {
		if result.Status == StatusSucceeded {
			archives = append(archives, result.Archive)
		}
	}

	return archives
}

// Summary renders one line per target: target, status, then the error or archive.
func (r *Report) Summary() string {
	lines := make([]string, 0, len(r.Results))

	for _, result := range r.Results {
		line := fmt.Sprintf("%-16s %-9s", result.Target, result.Status)

		switch {
		case result.Err != nil:
			line += " " + result.Err.Error()
		case result.Archive != "":
			line += " " + result.Archive
		}

		lines = append(lines, strings.TrimRight(line, " "))
	}

	return strings.Join(lines, "\n")
}
