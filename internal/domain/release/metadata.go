package release

import "time"

// DateLayout is the minute-precision layout of Metadata.Date.
const DateLayout = "2006-01-02 15:04"

// Metadata is derived once per run and embedded unchanged into every binary.
type Metadata struct {
	// Commit is the short revision identifier of the source tree.
	Commit string `yaml:"commit"`
	// Date is the UTC build time formatted with DateLayout.
	Date string `yaml:"date"`
}

// NewMetadata stamps commit with now converted to UTC.
func NewMetadata(commit string, now time.Time) Metadata {
	return Metadata{
		Commit: commit,
		Date:   now.UTC().Format(DateLayout),
	}
}
