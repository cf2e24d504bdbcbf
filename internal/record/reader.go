package record

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/himanishpuri/ECGSegmenter/pkg/models"
)

const (
	// SignalExt is the extension of rdsamp CSV exports.
	SignalExt = ".csv"
	// AnnotationExt is the extension of rdann text exports.
	AnnotationExt = ".txt"

	signalHeaderLines     = 2
	annotationHeaderLines = 1
)

// ErrMalformedRow is returned when a signal or annotation row cannot be parsed.
var ErrMalformedRow = errors.New("malformed row")

// Source locates the files of one record inside a database directory.
type Source struct {
	Name           string
	SignalPath     string
	AnnotationPath string
}

// HasAnnotations reports whether the annotation file of the record exists
func (s Source) HasAnnotations() bool {
	info, err := os.Stat(s.AnnotationPath)
	return err == nil && info.Mode().IsRegular()
}

// Discover lists the records in dir by their signal files, sorted by name.
// The annotation path is filled in whether or not the file exists.
func Discover(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading record dir: %w", err)
	}

	var out []Source
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != SignalExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), SignalExt)
		out = append(out, Source{
			Name:           name,
			SignalPath:     filepath.Join(dir, e.Name()),
			AnnotationPath: filepath.Join(dir, name+AnnotationExt),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// skipLines discards n header records from the csv reader
func skipLines(r *csv.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.Read(); err != nil {
			return err
		}
	}
	return nil
}

// ParseSignal reads a tabular signal export: two header lines, then rows of
// "time, ch1[, ch2...]". Sample values are kept as the original text tokens.
func ParseSignal(name string, r io.Reader) (*models.Recording, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rec := &models.Recording{Name: name}

	if err := skipLines(cr, signalHeaderLines); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, nil
		}
		return nil, fmt.Errorf("reading signal header: %w", err)
	}

	row := signalHeaderLines
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading signal row %d: %w", row+1, err)
		}
		row++

		if len(fields) < 2 {
			return nil, fmt.Errorf("signal row %d has %d columns: %w", row, len(fields), ErrMalformedRow)
		}
		if rec.Channels == nil {
			rec.Channels = make([][]string, len(fields)-1)
		}
		if len(fields)-1 != len(rec.Channels) {
			return nil, fmt.Errorf("signal row %d has %d channels, expected %d: %w",
				row, len(fields)-1, len(rec.Channels), ErrMalformedRow)
		}
		for c, v := range fields[1:] {
			rec.Channels[c] = append(rec.Channels[c], strings.TrimSpace(v))
		}
		rec.Len++
	}

	return rec, nil
}

// ReadSignal opens and parses a signal file; the record name is the file's
// base name without extension.
func ReadSignal(path string) (*models.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseSignal(name, f)
}

// ParseAnnotations reads a line-oriented annotation export: one header line,
// then whitespace-separated rows where field 1 is the sample position and
// field 2 the beat code. Blank lines are ignored; order is preserved.
func ParseAnnotations(r io.Reader) ([]models.AnnotationEvent, error) {
	sc := bufio.NewScanner(r)

	var events []models.AnnotationEvent
	line := 0
	for sc.Scan() {
		line++
		if line <= annotationHeaderLines {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("annotation line %d has %d fields: %w", line, len(fields), ErrMalformedRow)
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("annotation line %d position %q: %w", line, fields[1], ErrMalformedRow)
		}
		events = append(events, models.AnnotationEvent{Position: pos, Code: fields[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning annotations: %w", err)
	}
	return events, nil
}

// ReadAnnotations opens and parses an annotation file
func ReadAnnotations(path string) ([]models.AnnotationEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAnnotations(f)
}
