package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/himanishpuri/ECGSegmenter/internal/record"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

var (
	ErrToolMissing     = errors.New("wfdb tool not found in PATH")
	ErrUnknownDatabase = errors.New("unknown physionet database")
)

const (
	DefaultRdsamp  = "rdsamp"
	DefaultRdann   = "rdann"
	DefaultTimeout = 2 * time.Minute

	annotator = "atr"
)

var DefaultRawDir = filepath.Join("datasets", "raws")

// Databases lists the PhysioNet databases the fetcher knows, with their records.
//
//	nsrdb     normal sinus rhythm
//	apnea-ecg apnea
//	mitdb     arrhythmia
//	afdb      atrial fibrillation
//	svdb      supraventricular arrhythmia
var Databases = map[string][]string{
	"nsrdb": {"16265", "16272", "16273", "16420", "16483", "16539", "16773",
		"16786", "16795", "17052", "17453", "18177", "18184", "19088",
		"19090", "19093", "19140", "19830"},
	"apnea-ecg": {"a01", "a01er", "a01r", "a02", "a02er", "a02r", "a03",
		"a03er", "a03r", "a04", "a04er", "a04r", "a05", "a06",
		"a07", "a08", "a09", "a10", "a11", "a12", "a13", "a14",
		"a15", "a16", "a17", "a18", "a19", "a20", "b01", "b01er",
		"b01r", "b02", "b03", "b04", "b05", "c01", "c01er", "c01r",
		"c02", "c02er", "c02r", "c03", "c03er", "c03r", "c04",
		"c05", "c06", "c07", "c08", "c09", "c10", "x01", "x02",
		"x03", "x04", "x05", "x06", "x07", "x08", "x09", "x10",
		"x11", "x12", "x13", "x14", "x15", "x16", "x17", "x18",
		"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26",
		"x27", "x28", "x29", "x30", "x31", "x32", "x33", "x34", "x35"},
	"mitdb": {"100", "101", "102", "103", "104", "105", "106", "107", "108",
		"109", "111", "112", "113", "114", "115", "116", "117", "118",
		"119", "121", "122", "123", "124", "200", "201", "202", "203",
		"205", "207", "208", "209", "210", "212", "213", "214", "215",
		"217", "219", "220", "221", "222", "223", "228", "230", "231",
		"232", "233", "234"},
	"afdb": {"04015", "04043", "04048", "04126", "04746", "04908", "04936",
		"05091", "05121", "05261", "06426", "06453", "06995", "07162",
		"07859", "07879", "07910", "08215", "08219", "08378", "08405",
		"08434", "08455"},
	"svdb": {"800", "801", "802", "803", "804", "805", "806", "807", "808",
		"809", "810", "811", "812", "820", "821", "822", "823", "824",
		"825", "826", "827", "828", "829", "840", "841", "842", "843",
		"844", "845", "846", "847", "848", "849", "850", "851", "852",
		"853", "854", "855", "856", "857", "858", "859", "860", "861",
		"862", "863", "864", "865", "866", "867", "868", "869", "870",
		"871", "872", "873", "874", "875", "876", "877", "878", "879",
		"880", "881", "882", "883", "884", "885", "886", "887", "888",
		"889", "890", "891", "892", "893", "894"},
}

// Names returns the known database names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Databases))
	for name := range Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Runner executes a tool, streaming its standard output into stdout.
type Runner func(ctx context.Context, stdout io.Writer, name string, args ...string) error

// ExecRunner runs the tool as a subprocess.
func ExecRunner(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

type Config struct {
	RawDir  string
	Rdsamp  string
	Rdann   string
	Timeout time.Duration // per tool invocation, applied when ctx has no deadline
}

type Option func(*Fetcher)

func WithRunner(run Runner) Option {
	return func(f *Fetcher) { f.run = run }
}

func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(f *Fetcher) { f.lookPath = lookPath }
}

func WithLogger(log logger.Leveled) Option {
	return func(f *Fetcher) { f.log = log }
}

// Fetcher downloads PhysioNet records into {RawDir}/{db}/{record}.csv|.txt
// using the WFDB command line tools.
type Fetcher struct {
	cfg      Config
	run      Runner
	lookPath func(string) (string, error)
	log      logger.Leveled
}

// Report summarises one database download.
type Report struct {
	Database   string
	Downloaded int
	Existing   int
	Failed     int
}

func NewFetcher(cfg Config, opts ...Option) *Fetcher {
	if cfg.RawDir == "" {
		cfg.RawDir = DefaultRawDir
	}
	if cfg.Rdsamp == "" {
		cfg.Rdsamp = DefaultRdsamp
	}
	if cfg.Rdann == "" {
		cfg.Rdann = DefaultRdann
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	f := &Fetcher{
		cfg:      cfg,
		run:      ExecRunner,
		lookPath: exec.LookPath,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) RawDir() string {
	return f.cfg.RawDir
}

// ToolsInstalled checks that rdsamp and rdann can be found.
func (f *Fetcher) ToolsInstalled() error {
	for _, tool := range []string{f.cfg.Rdsamp, f.cfg.Rdann} {
		if _, err := f.lookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrToolMissing, tool)
		}
	}
	return nil
}

// Fetch downloads every record of the named databases, or of all known
// databases when none are named. Files already on disk are kept. A record
// that fails to download is logged and counted; only cancellation and
// setup failures abort the run.
func (f *Fetcher) Fetch(ctx context.Context, dbs ...string) ([]Report, error) {
	if len(dbs) == 0 {
		dbs = Names()
	}
	for _, db := range dbs {
		if _, ok := Databases[db]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDatabase, db)
		}
	}

	if err := f.ToolsInstalled(); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(dbs))
	for _, db := range dbs {
		report, err := f.fetchDatabase(ctx, db)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (f *Fetcher) fetchDatabase(ctx context.Context, db string) (Report, error) {
	report := Report{Database: db}
	dbDir := filepath.Join(f.cfg.RawDir, db)
	if err := utils.MakeDir(dbDir); err != nil {
		return report, fmt.Errorf("failed to create %s: %w", dbDir, err)
	}

	f.log.Infof("Downloading %s (%d records)", db, len(Databases[db]))
	for _, rec := range Databases[db] {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		downloaded, err := f.FetchRecord(ctx, db, rec)
		switch {
		case err != nil && ctx.Err() != nil:
			return report, ctx.Err()
		case err != nil:
			report.Failed++
			f.log.Warnf("Failed to fetch %s/%s: %v", db, rec, err)
		case downloaded == 0:
			report.Existing++
		default:
			report.Downloaded++
		}
	}

	if empty, err := utils.IsEmptyDir(dbDir); err == nil && empty {
		f.log.Debugf("Removing empty directory %s", dbDir)
		if err := os.Remove(dbDir); err != nil {
			return report, fmt.Errorf("failed to remove %s: %w", dbDir, err)
		}
	}
	return report, nil
}

// FetchRecord downloads the signal and annotation files of one record and
// returns how many of the two were newly written.
func (f *Fetcher) FetchRecord(ctx context.Context, db, rec string) (int, error) {
	dbDir := filepath.Join(f.cfg.RawDir, db)
	if err := utils.MakeDir(dbDir); err != nil {
		return 0, err
	}
	recordPath := db + "/" + rec

	jobs := []struct {
		path string
		tool string
		args []string
	}{
		{
			path: filepath.Join(dbDir, rec+record.SignalExt),
			tool: f.cfg.Rdsamp,
			args: []string{"-r", recordPath, "-c", "-H", "-f", "0", "-v", "-pe"},
		},
		{
			path: filepath.Join(dbDir, rec+record.AnnotationExt),
			tool: f.cfg.Rdann,
			args: []string{"-r", recordPath, "-f", "0", "-a", annotator, "-v"},
		},
	}

	downloaded := 0
	for _, job := range jobs {
		if utils.FileExists(job.path) {
			f.log.Debugf("File %s exists, skipping download", job.path)
			continue
		}
		if err := f.runToFile(ctx, job.path, job.tool, job.args...); err != nil {
			return downloaded, err
		}
		downloaded++
	}
	return downloaded, nil
}

// runToFile writes the tool output to a temporary file and moves it into
// place only when the tool succeeds.
func (f *Fetcher) runToFile(ctx context.Context, outputPath, tool string, args ...string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	tmpPath := outputPath + ".part"
	defer utils.DeleteFile(tmpPath)

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	f.log.Debugf("Running %s %s", tool, strings.Join(args, " "))
	runErr := f.run(ctx, out, tool, args...)
	closeErr := out.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, closeErr)
	}

	return utils.MoveFile(tmpPath, outputPath)
}
