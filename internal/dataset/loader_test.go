package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/himanishpuri/ECGSegmenter/pkg/models"
)

func setupSampleRoot(t *testing.T) (string, *Writer) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "samples")
	if err := EnsureLayout(root, DefaultClasses); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}
	return root, NewWriter(root)
}

func ramp(start, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(start + i)
	}
	return out
}

func TestLoadRoundTrip(t *testing.T) {
	root, w := setupSampleRoot(t)

	original := []string{"-0.145", "-0.120", "0.005", "1.25", "-2.000", "0.333"}
	if _, _, err := w.Write(models.Window{Record: "100", Index: 3, Class: 1, Samples: original}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ds, err := Load(root, DefaultClasses, len(original))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ds.Classes[1]) != 1 {
		t.Fatalf("Expected 1 window in class 1, got %d", len(ds.Classes[1]))
	}

	got := ds.Classes[1][0]
	for i, tok := range original {
		want, _ := strconv.ParseFloat(tok, 64)
		if math.Abs(got[i]-want) > 1e-12 {
			t.Errorf("Sample %d: expected %v, got %v", i, want, got[i])
		}
	}
	if ds.Sources[1][0] != filepath.Join(root, "1", "100_3.txt") {
		t.Errorf("Unexpected source path %s", ds.Sources[1][0])
	}
}

func TestLoadSkipsWrongWidth(t *testing.T) {
	root, w := setupSampleRoot(t)

	w.Write(models.Window{Record: "100", Index: 0, Class: 0, Samples: ramp(0, 4)})
	w.Write(models.Window{Record: "100", Index: 1, Class: 0, Samples: ramp(0, 3)})
	w.Write(models.Window{Record: "100", Index: 2, Class: 2, Samples: ramp(0, 5)})

	ds, err := Load(root, DefaultClasses, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ds.Skipped != 2 {
		t.Errorf("Expected 2 skipped windows, got %d", ds.Skipped)
	}
	if ds.Len() != 1 {
		t.Errorf("Expected 1 loaded window, got %d", ds.Len())
	}
}

func TestLoadEmptyRoot(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{"missing root", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none") }},
		{"empty partitions", func(t *testing.T) string {
			root, _ := setupSampleRoot(t)
			return root
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.setup(t), DefaultClasses, 260)
			if !errors.Is(err, ErrNoSamples) {
				t.Errorf("Expected ErrNoSamples, got %v", err)
			}
		})
	}
}

func TestLoadAllMismatchedIsNotAnError(t *testing.T) {
	root, w := setupSampleRoot(t)
	w.Write(models.Window{Record: "100", Index: 0, Class: 0, Samples: ramp(0, 3)})

	ds, err := Load(root, DefaultClasses, 260)
	if err != nil {
		t.Fatalf("Expected no error when files exist but all mismatch, got %v", err)
	}
	if ds.Len() != 0 || ds.Skipped != 1 {
		t.Errorf("Expected 0 loaded / 1 skipped, got %d / %d", ds.Len(), ds.Skipped)
	}
}

func TestLoadBadToken(t *testing.T) {
	root, _ := setupSampleRoot(t)
	bad := filepath.Join(PartitionDir(root, 0), "100_0.txt")
	os.WriteFile(bad, []byte("1.0\nabc\n"), 0o644)

	if _, err := Load(root, DefaultClasses, 2); err == nil {
		t.Error("Expected parse error for non-numeric sample")
	}
}

func TestLoadOrderAndLabelMatrix(t *testing.T) {
	root, w := setupSampleRoot(t)

	// Written out of class order on purpose
	windows := []models.Window{
		{Record: "101", Index: 0, Class: 2, Samples: ramp(200, 3)},
		{Record: "100", Index: 0, Class: 0, Samples: ramp(0, 3)},
		{Record: "100", Index: 5, Class: 4, Samples: ramp(400, 3)},
		{Record: "100", Index: 1, Class: 0, Samples: ramp(10, 3)},
		{Record: "100", Index: 2, Class: 2, Samples: ramp(210, 3)},
	}
	if _, err := w.WriteAll(windows); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	ds, err := Load(root, DefaultClasses, 3)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	counts := ds.Counts()
	expectedCounts := []int{2, 0, 2, 0, 1}
	for c := range expectedCounts {
		if counts[c] != expectedCounts[c] {
			t.Errorf("Class %d: expected %d windows, got %d", c, expectedCounts[c], counts[c])
		}
	}

	m := ds.Labels
	if m.Rows() != 5 || m.Cols() != DefaultClasses {
		t.Fatalf("Expected 5x%d label matrix, got %dx%d", DefaultClasses, m.Rows(), m.Cols())
	}

	expectedClasses := []int{0, 0, 2, 2, 4}
	for i, row := range m {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if sum != 1 {
			t.Errorf("Row %d sums to %v, expected 1", i, sum)
		}
		if m.ClassOf(i) != expectedClasses[i] {
			t.Errorf("Row %d: expected class %d, got %d", i, expectedClasses[i], m.ClassOf(i))
		}
	}

	flat := ds.Flatten()
	if len(flat) != 5 {
		t.Fatalf("Expected 5 flattened windows, got %d", len(flat))
	}
	// 100_0 sorts before 100_1 within class 0; 100_2 before 101_0 within class 2
	if flat[0][0] != 0 || flat[1][0] != 10 || flat[2][0] != 210 || flat[3][0] != 200 || flat[4][0] != 400 {
		t.Errorf("Unexpected flatten order: %v", flat)
	}
}

func TestLabelMatrixFor(t *testing.T) {
	m := LabelMatrixFor([]int{1, 0, 3})
	if m.Rows() != 4 || m.Cols() != 3 {
		t.Fatalf("Expected 4x3, got %dx%d", m.Rows(), m.Cols())
	}
	expected := []int{0, 2, 2, 2}
	for i, c := range expected {
		if m.ClassOf(i) != c {
			t.Errorf("Row %d: expected class %d, got %d", i, c, m.ClassOf(i))
		}
	}

	if empty := LabelMatrixFor([]int{0, 0}); empty.Rows() != 0 || empty.Cols() != 0 {
		t.Errorf("Expected empty matrix, got %dx%d", empty.Rows(), empty.Cols())
	}
}
