package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoSamples means no class partition under the sample root holds any
// window, i.e. the segmentation step has not been run.
var ErrNoSamples = errors.New("no samples found: process the raw data first")

// LabelMatrix is a one-hot class matrix, one row per window.
type LabelMatrix [][]float64

// Rows returns the number of windows
func (m LabelMatrix) Rows() int { return len(m) }

// Cols returns the number of classes
func (m LabelMatrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// ClassOf returns the column holding the 1 in row i, or -1.
func (m LabelMatrix) ClassOf(i int) int {
	for c, v := range m[i] {
		if v == 1 {
			return c
		}
	}
	return -1
}

// LabelMatrixFor builds the one-hot matrix for classes of the given sizes:
// counts[0] rows for class 0, then counts[1] rows for class 1, and so on.
func LabelMatrixFor(counts []int) LabelMatrix {
	total := 0
	for _, n := range counts {
		total += n
	}
	m := make(LabelMatrix, 0, total)
	for class, n := range counts {
		for i := 0; i < n; i++ {
			row := make([]float64, len(counts))
			row[class] = 1
			m = append(m, row)
		}
	}
	return m
}

// Dataset is the in-memory form of a sample root.
type Dataset struct {
	Classes [][][]float64 // Classes[c] holds the windows of class c in load order
	Sources [][]string    // file of each window, parallel to Classes
	Labels  LabelMatrix
	Skipped int // windows dropped for having the wrong width
}

// Counts returns the number of windows per class
func (d *Dataset) Counts() []int {
	out := make([]int, len(d.Classes))
	for c, ws := range d.Classes {
		out[c] = len(ws)
	}
	return out
}

// Len returns the total number of windows
func (d *Dataset) Len() int { return len(d.Labels) }

// Flatten concatenates the class sequences in label-matrix order.
func (d *Dataset) Flatten() [][]float64 {
	out := make([][]float64, 0, d.Len())
	for _, ws := range d.Classes {
		out = append(out, ws...)
	}
	return out
}

// parseSample parses whitespace-separated decimal tokens
func parseSample(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(data))
	out := make([]float64, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// listPartition returns the window files of one partition in name order.
// A missing partition is treated as empty.
func listPartition(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading partition: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Load reads partitions 0..classes-1 of root. Windows whose length is not
// nrInputs are skipped. It returns ErrNoSamples if no partition has files.
func Load(root string, classes, nrInputs int, opts ...Option) (*Dataset, error) {
	if classes <= 0 {
		return nil, fmt.Errorf("invalid class count %d", classes)
	}
	o := buildOptions(opts)

	listing := make([][]string, classes)
	total := 0
	for c := 0; c < classes; c++ {
		files, err := listPartition(PartitionDir(root, c))
		if err != nil {
			return nil, err
		}
		listing[c] = files
		total += len(files)
	}
	if total == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoSamples)
	}

	ds := &Dataset{
		Classes: make([][][]float64, classes),
		Sources: make([][]string, classes),
	}
	for c, files := range listing {
		for _, path := range files {
			o.log.Debugf("Loading %s", path)
			vec, err := parseSample(path)
			if err != nil {
				return nil, fmt.Errorf("loading sample: %w", err)
			}
			if len(vec) != nrInputs {
				o.log.Debugf("Skipping %s: %d samples, expected %d", path, len(vec), nrInputs)
				ds.Skipped++
				continue
			}
			ds.Classes[c] = append(ds.Classes[c], vec)
			ds.Sources[c] = append(ds.Sources[c], path)
		}
	}
	ds.Labels = LabelMatrixFor(ds.Counts())

	return ds, nil
}
