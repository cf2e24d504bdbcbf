package main

import (
	"errors"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// SegmentRequest is the request body for POST /api/segment
type SegmentRequest struct {
	Database string `json:"database" binding:"required"`

	// Record limits the run to one record of the database
	Record string `json:"record,omitempty"`
}

// Validate rejects names that could escape the raw directory
func (r *SegmentRequest) Validate() error {
	if !namePattern.MatchString(r.Database) {
		return errors.New("invalid database name")
	}
	if r.Record != "" && !namePattern.MatchString(r.Record) {
		return errors.New("invalid record name")
	}
	return nil
}

// RecordReportDTO is the outcome for one record in a segment run
type RecordReportDTO struct {
	Name     string `json:"name"`
	RecordID string `json:"record_id,omitempty"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
	Events   int    `json:"events"`
	Filtered int    `json:"filtered"`
	Unmapped int    `json:"unmapped"`
	Windows  int    `json:"windows"`
	Written  int    `json:"written"`
	Existing int    `json:"existing"`
}

// SegmentResponse is the response for POST /api/segment
type SegmentResponse struct {
	Database string            `json:"database"`
	Records  []RecordReportDTO `json:"records"`
	Windows  int               `json:"windows"`
	Written  int               `json:"written"`
	Skipped  int               `json:"skipped_records"`
}

// RecordDTO represents a cataloged record in API responses
type RecordDTO struct {
	ID        string    `json:"id"`
	Database  string    `json:"database"`
	Name      string    `json:"name"`
	Channel   int       `json:"channel"`
	Range     int       `json:"range"`
	Samples   int       `json:"samples"`
	Events    int       `json:"events"`
	Windows   int       `json:"windows"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRecordsResponse is the response for GET /api/records
type ListRecordsResponse struct {
	Records []RecordDTO `json:"records"`
	Count   int         `json:"count"`
}

// DeleteRecordResponse is the response for DELETE /api/records/{id}
type DeleteRecordResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// DatasetResponse summarises the sample root as the loader sees it
type DatasetResponse struct {
	Windows int   `json:"windows"`
	Skipped int   `json:"skipped"`
	Counts  []int `json:"counts"`
	Width   int   `json:"width"`
}

// MetricsResponse provides server health and catalog metrics
type MetricsResponse struct {
	Status       string      `json:"status"`
	DatabasePath string      `json:"database_path"`
	SampleDir    string      `json:"sample_dir"`
	RecordCount  int         `json:"record_count"`
	WindowCounts map[int]int `json:"window_counts"`
	Range        int         `json:"range"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
