package ecgdataset

import (
	"path/filepath"
	"time"

	"github.com/himanishpuri/ECGSegmenter/internal/annotation"
	"github.com/himanishpuri/ECGSegmenter/internal/fetch"
	"github.com/himanishpuri/ECGSegmenter/internal/segment"
	"github.com/himanishpuri/ECGSegmenter/internal/storage"
	"github.com/himanishpuri/ECGSegmenter/pkg/models"
)

type Config struct {
	RawDir    string
	SampleDir string
	DBPath    string

	Range     int
	Channel   int // 1-based signal column after the time column
	Overwrite bool

	ClassTable map[string]models.ClassID

	Rdsamp       string
	Rdann        string
	FetchTimeout time.Duration

	Logger  Logger
	Catalog Catalog
	Fetcher Fetcher
}

type Option func(*Config)

func WithRawDir(dir string) Option {
	return func(c *Config) {
		c.RawDir = dir
	}
}

func WithSampleDir(dir string) Option {
	return func(c *Config) {
		c.SampleDir = dir
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithRange(rng int) Option {
	return func(c *Config) {
		c.Range = rng
	}
}

func WithChannel(channel int) Option {
	return func(c *Config) {
		c.Channel = channel
	}
}

// WithOverwrite lets Segment replace window files that already exist and
// re-process records the catalog already knows.
func WithOverwrite(overwrite bool) Option {
	return func(c *Config) {
		c.Overwrite = overwrite
	}
}

func WithClassTable(table map[string]models.ClassID) Option {
	return func(c *Config) {
		c.ClassTable = table
	}
}

func WithTools(rdsamp, rdann string) Option {
	return func(c *Config) {
		c.Rdsamp = rdsamp
		c.Rdann = rdann
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithCatalog(catalog Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

func WithFetcher(fetcher Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = fetcher
	}
}

func defaultConfig() *Config {
	return &Config{
		RawDir:       fetch.DefaultRawDir,
		SampleDir:    filepath.Join("datasets", "samples"),
		DBPath:       storage.DefaultDBFile,
		Range:        segment.DefaultRange,
		Channel:      1,
		ClassTable:   annotation.DefaultClassTable(),
		Rdsamp:       fetch.DefaultRdsamp,
		Rdann:        fetch.DefaultRdann,
		FetchTimeout: fetch.DefaultTimeout,
	}
}
