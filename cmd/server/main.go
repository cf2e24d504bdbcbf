package main

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/himanishpuri/ECGSegmenter/internal/config"
	"github.com/himanishpuri/ECGSegmenter/pkg/ecgdataset"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("ecgsegmenter-server", pflag.ExitOnError)
	port := flags.Int("port", 8080, "HTTP server port")
	allowedOrigins := flags.String("origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	configFile := flags.String("config", "", "Config file")
	flags.String("raw", "", "Directory holding raw records")
	flags.String("samples", "", "Sample root")
	flags.String("db", "", "Catalog database (SQLite path or postgres:// DSN)")
	flags.Int("range", 0, "Half-width of each window in samples")
	flags.Int("channel", 0, "Signal column to segment")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(nil, *configFile, flags)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	// Parse allowed origins
	var origins []string
	if *allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(*allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	service, err := ecgdataset.NewService(
		ecgdataset.WithRawDir(cfg.RawDir),
		ecgdataset.WithSampleDir(cfg.SampleDir),
		ecgdataset.WithDBPath(cfg.DBPath),
		ecgdataset.WithRange(cfg.Range),
		ecgdataset.WithChannel(cfg.Channel),
		ecgdataset.WithOverwrite(cfg.Overwrite),
		ecgdataset.WithTools(cfg.Rdsamp, cfg.Rdann),
		ecgdataset.WithFetchTimeout(cfg.FetchTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           *port,
		DBPath:         cfg.DBPath,
		SampleDir:      cfg.SampleDir,
		Range:          cfg.Range,
		AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
