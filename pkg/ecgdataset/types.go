package ecgdataset

import (
	"github.com/himanishpuri/ECGSegmenter/internal/dataset"
	"github.com/himanishpuri/ECGSegmenter/internal/storage"
)

var (
	// ErrNoSamples is returned by Load when the sample root holds no windows.
	ErrNoSamples = dataset.ErrNoSamples

	// ErrRecordNotFound is returned for unknown record IDs.
	ErrRecordNotFound = storage.ErrRecordNotFound
)

// Dataset is the in-memory form of a sample root: per-class windows and the
// matching one-hot label matrix.
type Dataset = dataset.Dataset

// LabelMatrix has one row per window and one column per class.
type LabelMatrix = dataset.LabelMatrix

// FetchReport summarises the download of one database.
type FetchReport struct {
	Database   string
	Downloaded int // Records with at least one newly written file
	Existing   int // Records already fully on disk
	Failed     int
}

// RecordReport describes what Segment did with one record.
type RecordReport struct {
	Name     string
	RecordID string // Catalog ID, empty when skipped
	Skipped  bool
	Reason   string // Why the record was skipped
	Samples  int    // Signal length
	Events   int    // Annotation events read
	Filtered int    // Events left after the boundary filter
	Unmapped int    // Filtered events with no class
	Windows  int    // Windows extracted
	Written  int    // Window files newly written
	Existing int    // Window files already present and left alone
}

// SegmentReport aggregates the records of one database.
type SegmentReport struct {
	Database string
	Records  []RecordReport
}

// Totals sums windows written and records skipped across the report.
func (r *SegmentReport) Totals() (windows, written, skipped int) {
	for _, rec := range r.Records {
		windows += rec.Windows
		written += rec.Written
		if rec.Skipped {
			skipped++
		}
	}
	return windows, written, skipped
}
