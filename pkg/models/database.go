package models

import "time"

// RecordInfo describes a record that has been segmented into the sample root.
type RecordInfo struct {
	ID        string // UUID
	Database  string // PhysioNet database, e.g. "mitdb"
	Name      string
	Channel   int
	Range     int
	Samples   int // Signal length
	Events    int // Annotation events read
	Windows   int // Windows materialized
	CreatedAt time.Time
}

// SampleEntry is the catalog row for one materialized window.
type SampleEntry struct {
	RecordID string
	Class    ClassID
	Index    int
	Position int
	Path     string
}
