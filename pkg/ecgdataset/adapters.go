package ecgdataset

import (
	"context"

	"github.com/himanishpuri/ECGSegmenter/internal/fetch"
	"github.com/himanishpuri/ECGSegmenter/internal/storage"
)

// NewSQLiteCatalog opens the record catalog at dbPath. A postgres:// DSN
// selects the postgres driver instead.
func NewSQLiteCatalog(dbPath string) (Catalog, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// fetcherAdapter adapts fetch.Fetcher to the Fetcher interface.
type fetcherAdapter struct {
	f *fetch.Fetcher
}

// NewPhysioNetFetcher returns a Fetcher that shells out to the WFDB tools.
func NewPhysioNetFetcher(cfg *Config) Fetcher {
	opts := []fetch.Option{}
	if cfg.Logger != nil {
		opts = append(opts, fetch.WithLogger(cfg.Logger))
	}
	return &fetcherAdapter{f: fetch.NewFetcher(fetch.Config{
		RawDir:  cfg.RawDir,
		Rdsamp:  cfg.Rdsamp,
		Rdann:   cfg.Rdann,
		Timeout: cfg.FetchTimeout,
	}, opts...)}
}

func (a *fetcherAdapter) Fetch(ctx context.Context, dbs ...string) ([]FetchReport, error) {
	reports, err := a.f.Fetch(ctx, dbs...)

	out := make([]FetchReport, len(reports))
	for i, r := range reports {
		out[i] = FetchReport{
			Database:   r.Database,
			Downloaded: r.Downloaded,
			Existing:   r.Existing,
			Failed:     r.Failed,
		}
	}
	return out, err
}
