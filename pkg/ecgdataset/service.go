package ecgdataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/himanishpuri/ECGSegmenter/internal/annotation"
	"github.com/himanishpuri/ECGSegmenter/internal/dataset"
	"github.com/himanishpuri/ECGSegmenter/internal/record"
	"github.com/himanishpuri/ECGSegmenter/internal/segment"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
	"github.com/himanishpuri/ECGSegmenter/pkg/models"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

// ecgService is the default implementation of the Service interface.
type ecgService struct {
	catalog Catalog
	fetcher Fetcher
	log     Logger
	config  *Config
	table   annotation.ClassTable
	classes int
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Range <= 0 {
		return nil, fmt.Errorf("range must be positive, got %d", cfg.Range)
	}
	if cfg.Channel < 1 {
		return nil, fmt.Errorf("channel must be at least 1, got %d", cfg.Channel)
	}
	if len(cfg.ClassTable) == 0 {
		return nil, errors.New("class table is empty")
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	// Create or use provided catalog
	catalog := cfg.Catalog
	if catalog == nil {
		var err error
		catalog, err = NewSQLiteCatalog(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewPhysioNetFetcher(cfg)
	}

	table := annotation.ClassTable(cfg.ClassTable)
	return &ecgService{
		catalog: catalog,
		fetcher: fetcher,
		log:     cfg.Logger,
		config:  cfg,
		table:   table,
		classes: table.NumClasses(),
	}, nil
}

// Fetch downloads raw records of the named PhysioNet databases into RawDir.
func (s *ecgService) Fetch(ctx context.Context, dbs ...string) ([]FetchReport, error) {
	return s.fetcher.Fetch(ctx, dbs...)
}

// Layout creates the sample root and its class partitions.
func (s *ecgService) Layout() error {
	return dataset.EnsureLayout(s.config.SampleDir, s.classes)
}

func (s *ecgService) writer() *dataset.Writer {
	return dataset.NewWriter(s.config.SampleDir,
		dataset.WithClasses(s.classes),
		dataset.WithOverwrite(s.config.Overwrite),
		dataset.WithLogger(s.log),
	)
}

// Segment windows every record of {RawDir}/{db} into the sample root,
// in record name order, and refreshes the manifest.
func (s *ecgService) Segment(ctx context.Context, db string) (*SegmentReport, error) {
	dir := filepath.Join(s.config.RawDir, db)
	sources, err := record.Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", db, err)
	}

	if err := s.Layout(); err != nil {
		return nil, fmt.Errorf("failed to prepare sample root: %w", err)
	}

	s.log.Infof("Segmenting %s: %d records, range %d, channel %d", db, len(sources), s.config.Range, s.config.Channel)

	w := s.writer()
	report := &SegmentReport{Database: db}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rr, err := s.segmentSource(ctx, db, src, w)
		if err != nil {
			return report, err
		}
		report.Records = append(report.Records, *rr)
	}

	if err := s.updateManifest(db); err != nil {
		return report, err
	}

	windows, written, skipped := report.Totals()
	s.log.Infof("Finished %s: %d windows (%d new), %d records skipped", db, windows, written, skipped)
	return report, nil
}

// SegmentRecord windows a single record of {RawDir}/{db}.
func (s *ecgService) SegmentRecord(ctx context.Context, db, name string) (*RecordReport, error) {
	dir := filepath.Join(s.config.RawDir, db)
	src := record.Source{
		Name:           name,
		SignalPath:     filepath.Join(dir, name+record.SignalExt),
		AnnotationPath: filepath.Join(dir, name+record.AnnotationExt),
	}
	if !utils.FileExists(src.SignalPath) {
		return nil, fmt.Errorf("record %s/%s: %w", db, name, fs.ErrNotExist)
	}

	if err := s.Layout(); err != nil {
		return nil, fmt.Errorf("failed to prepare sample root: %w", err)
	}

	rr, err := s.segmentSource(ctx, db, src, s.writer())
	if err != nil {
		return nil, err
	}
	if err := s.updateManifest(db); err != nil {
		return rr, err
	}
	return rr, nil
}

func (s *ecgService) segmentSource(ctx context.Context, db string, src record.Source, w *dataset.Writer) (*RecordReport, error) {
	rr := &RecordReport{Name: src.Name}

	// 1. Skip records already cataloged with the same parameters
	if !s.config.Overwrite {
		known, err := s.catalog.FindRecord(db, src.Name)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup for %s: %w", src.Name, err)
		}
		if known != nil && known.Range == s.config.Range && known.Channel == s.config.Channel {
			s.log.Infof("Record %s/%s already segmented, skipping", db, src.Name)
			rr.Skipped = true
			rr.Reason = "already segmented"
			rr.RecordID = known.ID
			return rr, nil
		}
	}

	// 2. A record without annotations cannot be labeled
	if !src.HasAnnotations() {
		s.log.Infof("No annotation file for %s, skipping", src.Name)
		rr.Skipped = true
		rr.Reason = "missing annotation file"
		return rr, nil
	}

	// 3. Read signal and annotations
	rec, err := record.ReadSignal(src.SignalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read signal %s: %w", src.SignalPath, err)
	}
	events, err := record.ReadAnnotations(src.AnnotationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations %s: %w", src.AnnotationPath, err)
	}
	rr.Samples = rec.Len
	rr.Events = len(events)

	// 4. Boundary filter and class mapping
	filtered := annotation.Filter(rec.Len, s.config.Range, events)
	labeled, unmapped := annotation.Classify(filtered, s.table)
	rr.Filtered = len(filtered)
	rr.Unmapped = unmapped
	if unmapped > 0 {
		s.log.Debugf("Record %s: %d events with unmapped codes", src.Name, unmapped)
	}

	// 5. Extract windows
	windows, err := segment.ExtractAll(ctx, rec, s.config.Channel-1, labeled, s.config.Range)
	if err != nil {
		return nil, err
	}
	rr.Windows = len(windows)

	// 6. Materialize
	wr, err := w.WriteAll(windows)
	if err != nil {
		return nil, fmt.Errorf("failed to write windows of %s: %w", src.Name, err)
	}
	rr.Written = wr.Written
	rr.Existing = wr.Skipped

	// 7. Catalog
	recordID, err := s.catalog.RegisterRecord(models.RecordInfo{
		Database: db,
		Name:     rec.Name,
		Channel:  s.config.Channel,
		Range:    s.config.Range,
		Samples:  rec.Len,
		Events:   len(events),
		Windows:  len(windows),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register record %s: %w", src.Name, err)
	}
	rr.RecordID = recordID

	entries := make([]models.SampleEntry, len(wr.Files))
	for i, f := range wr.Files {
		entries[i] = f.SampleEntry
		entries[i].RecordID = recordID
	}
	if err := s.catalog.StoreSamples(entries); err != nil {
		return nil, fmt.Errorf("failed to store samples of %s: %w", src.Name, err)
	}

	s.log.Infof("Record %s: %d events, %d in range, %d windows (%d new)",
		src.Name, rr.Events, rr.Filtered, rr.Windows, rr.Written)
	return rr, nil
}

func (s *ecgService) updateManifest(db string) error {
	m, err := dataset.ReadManifest(s.config.SampleDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		m = &dataset.Manifest{}
	}

	if m.Range != 0 && (m.Range != s.config.Range || m.Channel != s.config.Channel) {
		s.log.Warnf("Sample root was built with range %d channel %d, now %d/%d",
			m.Range, m.Channel, s.config.Range, s.config.Channel)
	}

	m.Range = s.config.Range
	m.Width = segment.Width(s.config.Range)
	m.Classes = s.classes
	m.Channel = s.config.Channel
	m.ClassTable = make(map[string]int, len(s.table))
	for code, id := range s.table {
		m.ClassTable[code] = int(id)
	}
	m.AddDatabase(db)
	m.GeneratedAt = time.Now().UTC()

	if err := dataset.WriteManifest(s.config.SampleDir, m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads the sample root into memory. classes <= 0 uses the class
// table's count; nrInputs <= 0 uses the manifest width, or 2*Range when
// there is no manifest.
func (s *ecgService) Load(classes, nrInputs int) (*Dataset, error) {
	if classes <= 0 {
		classes = s.classes
	}
	if nrInputs <= 0 {
		nrInputs = segment.Width(s.config.Range)
		if m, err := dataset.ReadManifest(s.config.SampleDir); err == nil && m.Width > 0 {
			nrInputs = m.Width
		}
	}

	ds, err := dataset.Load(s.config.SampleDir, classes, nrInputs, dataset.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loaded %d windows of width %d (%d skipped)", ds.Len(), nrInputs, ds.Skipped)
	return ds, nil
}

// ListRecords returns every cataloged record.
func (s *ecgService) ListRecords() ([]models.RecordInfo, error) {
	return s.catalog.ListRecords()
}

// GetRecord returns a cataloged record by ID.
func (s *ecgService) GetRecord(recordID string) (*models.RecordInfo, error) {
	return s.catalog.GetRecordByID(recordID)
}

// ClassCounts returns the number of cataloged windows per class.
func (s *ecgService) ClassCounts() (map[int]int, error) {
	return s.catalog.ClassCounts()
}

// DeleteRecord removes a record's window files and its catalog rows.
func (s *ecgService) DeleteRecord(recordID string) error {
	if _, err := s.GetRecord(recordID); err != nil {
		return fmt.Errorf("record %s: %w", recordID, err)
	}

	paths, err := s.catalog.SamplePaths(recordID)
	if err != nil {
		return fmt.Errorf("failed to list samples of %s: %w", recordID, err)
	}
	for _, p := range paths {
		if err := utils.DeleteFile(p); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}

	if err := s.catalog.DeleteRecordByID(recordID); err != nil {
		return err
	}
	s.log.Infof("Deleted record %s and %d window files", recordID, len(paths))
	return nil
}

// Close releases all resources held by the service.
func (s *ecgService) Close() error {
	return s.catalog.Close()
}
