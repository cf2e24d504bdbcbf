package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/ECGSegmenter/internal/config"
	"github.com/himanishpuri/ECGSegmenter/pkg/ecgdataset"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
)

// Global flags
var (
	configFile string
	v          = config.New()
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Printf("❌ %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ecgsegmenter",
		Short:         "Segment annotated ECG recordings into labeled beat windows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			return loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ./ecgsegmenter.yaml or ./config/ecgsegmenter.yaml)")
	flags.String("raw", "", "Directory holding raw records, one subdirectory per database")
	flags.String("samples", "", "Sample root holding the class partitions")
	flags.String("db", "", "Catalog database (SQLite path or postgres:// DSN)")
	flags.Int("range", 0, "Half-width of each window in samples")
	flags.Int("channel", 0, "Signal column to segment, 1 = first column after time")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newFetchCmd(),
		newSegmentCmd(),
		newLoadCmd(),
		newListCmd(),
		newDeleteCmd(),
		newLayoutCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(v, configFile, cmd.Flags())
	if err != nil {
		return fail("Invalid configuration", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Debugf("Using config file %q", v.ConfigFileUsed())
	return nil
}

// createService creates a new ECG dataset service with configured options
func createService() (ecgdataset.Service, error) {
	return ecgdataset.NewService(
		ecgdataset.WithRawDir(cfg.RawDir),
		ecgdataset.WithSampleDir(cfg.SampleDir),
		ecgdataset.WithDBPath(cfg.DBPath),
		ecgdataset.WithRange(cfg.Range),
		ecgdataset.WithChannel(cfg.Channel),
		ecgdataset.WithOverwrite(cfg.Overwrite),
		ecgdataset.WithTools(cfg.Rdsamp, cfg.Rdann),
		ecgdataset.WithFetchTimeout(cfg.FetchTimeout),
	)
}

// withService opens the service, runs fn and closes it again
func withService(fn func(svc ecgdataset.Service) error) error {
	svc, err := createService()
	if err != nil {
		return fail("Failed to create service", err)
	}
	defer svc.Close()

	return fn(svc)
}

// reportedError marks an error that has already been shown to the user
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func fail(msg string, err error) error {
	fmt.Printf("\n❌ %s: %v\n", msg, err)
	logger.Errorf("%s: %v", msg, err)
	return &reportedError{err: err}
}

func printBanner() {
	banner := `
 _____ ____ ____   ____                                 _            
| ____/ ___/ ___| / ___|  ___  __ _ _ __ ___   ___ _ __ | |_ ___ _ __ 
|  _|| |  | |  _  \___ \ / _ \/ _` + "`" + ` | '_ ` + "`" + ` _ \ / _ \ '_ \| __/ _ \ '__|
| |__| |__| |_| |  ___) |  __/ (_| | | | | | |  __/ | | | ||  __/ |   
|_____\____\____| |____/ \___|\__, |_| |_| |_|\___|_| |_|\__\___|_|   
                              |___/                                   
           ECG Beat Segmentation CLI Tool
`
	fmt.Println(banner)
}
