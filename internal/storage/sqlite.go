package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/ECGSegmenter/pkg/models"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "datasets/catalog.sqlite3"

// ErrNilClient is returned by every method called on a nil or closed client.
var ErrNilClient = errors.New("db client is nil")

// ErrRecordNotFound is returned when no record has the requested ID.
var ErrRecordNotFound = errors.New("record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Record is one segmented recording.
type Record struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Database  string `gorm:"column:source_db;uniqueIndex:idx_record_unique,priority:1" json:"database"`
	Name      string `gorm:"column:record_name;uniqueIndex:idx_record_unique,priority:2" json:"name"`
	Channel   int    `gorm:"column:channel_no" json:"channel"`
	Range     int    `gorm:"column:half_width" json:"range"`
	Samples   int    `gorm:"column:sample_count" json:"samples"`
	Events    int    `gorm:"column:event_count" json:"events"`
	Windows   int    `gorm:"column:window_count" json:"windows"`
	CreatedAt time.Time
}

// Sample is one materialized window file.
type Sample struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	RecordID string `gorm:"type:varchar(36);index:idx_sample_record" json:"record_id"`
	Class    int    `gorm:"column:class_id;index:idx_sample_class" json:"class"`
	Index    int    `gorm:"column:event_index" json:"index"`
	Position int    `gorm:"column:sample_pos" json:"position"`
	Path     string `gorm:"column:file_path;uniqueIndex:idx_sample_path" json:"path"`
}

func (r Record) toInfo() models.RecordInfo {
	return models.RecordInfo{
		ID:        r.ID,
		Database:  r.Database,
		Name:      r.Name,
		Channel:   r.Channel,
		Range:     r.Range,
		Samples:   r.Samples,
		Events:    r.Events,
		Windows:   r.Windows,
		CreatedAt: r.CreatedAt,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ECG_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewDBClientWithPath opens the catalog. A postgres:// DSN selects PostgreSQL,
// anything else is treated as a SQLite file path.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	if isPostgresDSN(dbPath) {
		dialector = postgres.Open(dbPath)
	} else {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := utils.MakeDir(dir); err != nil {
				return nil, fmt.Errorf("creating db dir: %w", err)
			}
		}
		dialector = sqlite.Open(dbPath + "?_pragma=foreign_keys(1)")
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening catalog db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Record{}, &Sample{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ok() error {
	if c == nil || c.DB == nil {
		return ErrNilClient
	}
	return nil
}

// RegisterRecord inserts or updates the record identified by (database, name)
// and returns its ID. Re-registering keeps the ID and refreshes the counters.
func (c *DBClient) RegisterRecord(info models.RecordInfo) (string, error) {
	if err := c.ok(); err != nil {
		return "", err
	}

	var rec Record
	err := c.DB.Where("source_db = ? AND record_name = ?", info.Database, info.Name).First(&rec).Error
	if err == nil {
		updates := map[string]any{
			"channel_no":   info.Channel,
			"half_width":   info.Range,
			"sample_count": info.Samples,
			"event_count":  info.Events,
			"window_count": info.Windows,
		}
		if err := c.DB.Model(&rec).Updates(updates).Error; err != nil {
			return "", fmt.Errorf("updating record: %w", err)
		}
		return rec.ID, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing record: %w", err)
	}

	rec = Record{
		ID:       utils.GenerateUUID(),
		Database: info.Database,
		Name:     info.Name,
		Channel:  info.Channel,
		Range:    info.Range,
		Samples:  info.Samples,
		Events:   info.Events,
		Windows:  info.Windows,
	}
	if err := c.DB.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("creating record: %w", err)
	}
	return rec.ID, nil
}

// StoreSamples inserts sample rows in batches. Rows whose path is already
// cataloged are ignored.
func (c *DBClient) StoreSamples(samples []models.SampleEntry) error {
	if err := c.ok(); err != nil {
		return err
	}

	entries := make([]Sample, 0, len(samples))
	for _, s := range samples {
		entries = append(entries, Sample{
			RecordID: s.RecordID,
			Class:    int(s.Class),
			Index:    s.Index,
			Position: s.Position,
			Path:     s.Path,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	// paths are unique; rows already present from an earlier run are dropped
	err := c.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&entries, 500).Error
	if err != nil {
		return fmt.Errorf("batch insert samples: %w", err)
	}
	return nil
}

// FindRecord returns the record (database, name), or nil if it is not cataloged.
func (c *DBClient) FindRecord(database, name string) (*models.RecordInfo, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rec Record
	err := c.DB.Where("source_db = ? AND record_name = ?", database, name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	info := rec.toInfo()
	return &info, nil
}

// GetRecordByID returns a record by ID.
func (c *DBClient) GetRecordByID(id string) (*models.RecordInfo, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rec Record
	if err := c.DB.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("querying record: %w", err)
	}
	info := rec.toInfo()
	return &info, nil
}

// ListRecords returns all records ordered by database then name.
func (c *DBClient) ListRecords() ([]models.RecordInfo, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rows []Record
	if err := c.DB.Order("source_db, record_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	out := make([]models.RecordInfo, len(rows))
	for i, r := range rows {
		out[i] = r.toInfo()
	}
	return out, nil
}

// ClassCounts returns the number of cataloged windows per class.
func (c *DBClient) ClassCounts() (map[int]int, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rows []struct {
		ClassID int
		N       int
	}
	err := c.DB.Model(&Sample{}).Select("class_id, count(*) as n").Group("class_id").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting samples: %w", err)
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.ClassID] = r.N
	}
	return out, nil
}

// SamplePaths returns the window files cataloged for a record.
func (c *DBClient) SamplePaths(recordID string) ([]string, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var paths []string
	if err := c.DB.Model(&Sample{}).Where("record_id = ?", recordID).Order("file_path").Pluck("file_path", &paths).Error; err != nil {
		return nil, fmt.Errorf("querying sample paths: %w", err)
	}
	return paths, nil
}

// DeleteRecordByID removes a record and its sample rows in one transaction.
// Window files on disk are not touched here.
func (c *DBClient) DeleteRecordByID(id string) error {
	if err := c.ok(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", id).Delete(&Sample{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Record{}).Error
	})
}
