package ecgdataset

import (
	"context"

	"github.com/himanishpuri/ECGSegmenter/pkg/models"
)

type Service interface {
	Fetch(ctx context.Context, dbs ...string) ([]FetchReport, error)
	Segment(ctx context.Context, db string) (*SegmentReport, error)
	SegmentRecord(ctx context.Context, db, name string) (*RecordReport, error)
	Load(classes, nrInputs int) (*Dataset, error)
	Layout() error
	ListRecords() ([]models.RecordInfo, error)
	GetRecord(recordID string) (*models.RecordInfo, error)
	ClassCounts() (map[int]int, error)
	DeleteRecord(recordID string) error
	Close() error
}

type Catalog interface {
	RegisterRecord(info models.RecordInfo) (string, error)
	StoreSamples(samples []models.SampleEntry) error
	FindRecord(database, name string) (*models.RecordInfo, error)
	GetRecordByID(id string) (*models.RecordInfo, error)
	ListRecords() ([]models.RecordInfo, error)
	ClassCounts() (map[int]int, error)
	SamplePaths(recordID string) ([]string, error)
	DeleteRecordByID(id string) error
	Close() error
}

type Fetcher interface {
	Fetch(ctx context.Context, dbs ...string) ([]FetchReport, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
