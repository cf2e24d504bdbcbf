package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/ECGSegmenter/internal/dataset"
	"github.com/himanishpuri/ECGSegmenter/internal/fetch"
	"github.com/himanishpuri/ECGSegmenter/pkg/ecgdataset"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [database...]",
		Short: "Download PhysioNet records with rdsamp/rdann",
		Long: "Download the signal and annotation files of every record of the given " +
			"databases (default: all of " + strings.Join(fetch.Names(), ", ") + ").",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc ecgdataset.Service) error {
				fmt.Println("📥 Downloading records from PhysioNet...")
				fmt.Println("   This may take a while for large databases")

				reports, err := svc.Fetch(cmd.Context(), args...)
				for _, r := range reports {
					fmt.Printf("   %-10s downloaded: %d | existing: %d | failed: %d\n",
						r.Database, r.Downloaded, r.Existing, r.Failed)
				}
				if err != nil {
					if errors.Is(err, fetch.ErrToolMissing) {
						fmt.Println("\n   Install the WFDB software package and make sure rdsamp and rdann are on PATH")
					}
					return fail("Failed to fetch records", err)
				}

				fmt.Println("\n✅ Done")
				return nil
			})
		},
	}
	return cmd
}

func newSegmentCmd() *cobra.Command {
	var recordName string

	cmd := &cobra.Command{
		Use:   "segment <database>",
		Short: "Cut labeled beat windows out of the raw records of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := args[0]
			log := logger.GetLogger()
			log.Infof("Executing command: segment %s", db)

			return withService(func(svc ecgdataset.Service) error {
				fmt.Printf("🔪 Segmenting %s (range %d, channel %d)...\n", db, cfg.Range, cfg.Channel)

				if recordName != "" {
					rr, err := svc.SegmentRecord(cmd.Context(), db, recordName)
					if err != nil {
						return fail("Failed to segment record", err)
					}
					printRecordReport(*rr)
					return nil
				}

				report, err := svc.Segment(cmd.Context(), db)
				if report != nil {
					for _, rr := range report.Records {
						printRecordReport(rr)
					}
				}
				if err != nil {
					return fail("Failed to segment database", err)
				}

				windows, written, skipped := report.Totals()
				fmt.Printf("\n✅ %d records, %d windows (%d new), %d records skipped\n",
					len(report.Records), windows, written, skipped)
				fmt.Printf("   Samples: %s\n", cfg.SampleDir)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&recordName, "record", "", "Segment a single record instead of the whole database")
	cmd.Flags().Bool("overwrite", false, "Rewrite existing window files and re-process cataloged records")
	return cmd
}

func printRecordReport(rr ecgdataset.RecordReport) {
	if rr.Skipped {
		fmt.Printf("   ⏭️  %-8s skipped (%s)\n", rr.Name, rr.Reason)
		return
	}
	fmt.Printf("   %-8s events: %d | in range: %d | unmapped: %d | windows: %d (new %d)\n",
		rr.Name, rr.Events, rr.Filtered, rr.Unmapped, rr.Windows, rr.Written)
}

func newLoadCmd() *cobra.Command {
	var inputs, classes, batchSize int
	var seed int64

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the sample root and report per-class window counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc ecgdataset.Service) error {
				fmt.Println("📂 Loading samples...")
				if classes <= 0 {
					classes = cfg.Classes
				}

				ds, err := svc.Load(classes, inputs)
				if err != nil {
					if errors.Is(err, dataset.ErrNoSamples) {
						fmt.Println("\n📭 No samples found. Run `ecgsegmenter segment <database>` first")
					}
					return fail("Failed to load samples", err)
				}

				fmt.Printf("\n✅ Loaded %d windows", ds.Len())
				if ds.Skipped > 0 {
					fmt.Printf(" (%d skipped for width)", ds.Skipped)
				}
				fmt.Println()
				for c, n := range ds.Counts() {
					fmt.Printf("   Class %d: %d\n", c, n)
				}
				fmt.Printf("   Label matrix: %d x %d\n", ds.Labels.Rows(), ds.Labels.Cols())

				if batchSize > 0 {
					x, y, err := dataset.Shuffle(ds.Flatten(), ds.Labels, rand.New(rand.NewSource(seed)))
					if err != nil {
						return fail("Failed to shuffle samples", err)
					}
					batches, err := dataset.Minibatches(x, y, batchSize)
					if err != nil {
						return fail("Failed to split minibatches", err)
					}
					fmt.Printf("   Minibatches: %d of %d (seed %d, %d rows dropped)\n",
						len(batches), batchSize, seed, len(x)-len(batches)*batchSize)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&inputs, "inputs", 0, "Expected window width (default: manifest width)")
	cmd.Flags().IntVar(&classes, "classes", 0, "Number of class partitions (default: classes setting)")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "Shuffle and split into minibatches of this size")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Shuffle seed")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cataloged records and window counts per class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc ecgdataset.Service) error {
				records, err := svc.ListRecords()
				if err != nil {
					return fail("Failed to list records", err)
				}
				if len(records) == 0 {
					fmt.Println("\n📭 No records in catalog")
					return nil
				}

				fmt.Printf("\n📚 Found %d record(s):\n\n", len(records))
				for i, r := range records {
					fmt.Printf("%d. %s/%s (ID: %s)\n", i+1, r.Database, r.Name, r.ID)
					fmt.Printf("   Samples: %d | Events: %d | Windows: %d | Range: %d | Channel: %d\n",
						r.Samples, r.Events, r.Windows, r.Range, r.Channel)
				}

				counts, err := svc.ClassCounts()
				if err != nil {
					return fail("Failed to count windows", err)
				}
				classes := make([]int, 0, len(counts))
				for c := range counts {
					classes = append(classes, c)
				}
				sort.Ints(classes)
				fmt.Println("\n📊 Windows per class:")
				for _, c := range classes {
					fmt.Printf("   Class %d: %d\n", c, counts[c])
				}
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record's window files and catalog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !utils.IsUUID(args[0]) {
				return fail("Invalid record ID", fmt.Errorf("%q is not a UUID", args[0]))
			}
			return withService(func(svc ecgdataset.Service) error {
				if err := svc.DeleteRecord(args[0]); err != nil {
					return fail("Failed to delete record", err)
				}
				fmt.Printf("\n✅ Deleted record %s\n", args[0])
				return nil
			})
		},
	}
}

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Create the sample root and its class partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc ecgdataset.Service) error {
				if err := svc.Layout(); err != nil {
					return fail("Failed to create layout", err)
				}
				fmt.Printf("\n✅ Sample root ready at %s\n", cfg.SampleDir)
				return nil
			})
		},
	}
}
