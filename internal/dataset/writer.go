package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/himanishpuri/ECGSegmenter/pkg/models"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

// SampleExt is the extension of window files.
const SampleExt = ".txt"

// Writer materializes windows under a sample root laid out by EnsureLayout.
type Writer struct {
	root string
	opts *options
}

// WrittenWindow records where a window ended up and whether this call wrote it.
type WrittenWindow struct {
	models.SampleEntry
	Record string
	New    bool
}

// WriteReport summarizes a WriteAll call.
type WriteReport struct {
	Written int
	Skipped int
	Files   []WrittenWindow
}

func NewWriter(root string, opts ...Option) *Writer {
	return &Writer{root: root, opts: buildOptions(opts)}
}

// Root returns the sample root the writer targets
func (w *Writer) Root() string { return w.root }

// SamplePath returns {root}/{class}/{record}_{index}.txt for win.
func (w *Writer) SamplePath(win models.Window) string {
	name := win.Record + "_" + strconv.Itoa(win.Index) + SampleExt
	return filepath.Join(PartitionDir(w.root, int(win.Class)), name)
}

// Write stores one window, one sample per line. If the target file exists
// and overwrite was not requested, nothing is written and written is false.
// Samples go to a hidden .part file first, so an interrupted write never
// leaves a truncated window under the final name.
func (w *Writer) Write(win models.Window) (path string, written bool, err error) {
	if int(win.Class) < 0 || int(win.Class) >= w.opts.classes {
		return "", false, fmt.Errorf("window %s_%d has class %d outside 0..%d",
			win.Record, win.Index, win.Class, w.opts.classes-1)
	}

	path = w.SamplePath(win)
	if !w.opts.overwrite && utils.FileExists(path) {
		w.opts.log.Debugf("File %s exists. Skipping...", path)
		return path, false, nil
	}

	tmpPath, err := writePart(path, win.Samples)
	if err != nil {
		return "", false, err
	}

	if w.opts.overwrite {
		if err := utils.MoveFile(tmpPath, path); err != nil {
			os.Remove(tmpPath)
			return "", false, err
		}
	} else {
		// Link fails if another run placed the file since the check above
		err := os.Link(tmpPath, path)
		os.Remove(tmpPath)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				w.opts.log.Debugf("File %s exists. Skipping...", path)
				return path, false, nil
			}
			return "", false, fmt.Errorf("placing %s: %w", path, err)
		}
	}

	w.opts.log.Debugf("Writing %s", path)
	return path, true, nil
}

// writePart writes samples to a hidden temp file next to path and returns its name.
func writePart(path string, samples []string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return "", fmt.Errorf("creating sample file: %w", err)
	}
	tmpPath := f.Name()

	bw := bufio.NewWriter(f)
	for _, s := range samples {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("setting mode of %s: %w", path, err)
	}
	return tmpPath, nil
}

// WriteAll writes windows in order and stops at the first error.
func (w *Writer) WriteAll(windows []models.Window) (*WriteReport, error) {
	report := &WriteReport{Files: make([]WrittenWindow, 0, len(windows))}
	for _, win := range windows {
		path, isNew, err := w.Write(win)
		if err != nil {
			return report, err
		}
		if isNew {
			report.Written++
		} else {
			report.Skipped++
		}
		report.Files = append(report.Files, WrittenWindow{
			SampleEntry: models.SampleEntry{
				Class:    win.Class,
				Index:    win.Index,
				Position: win.Position,
				Path:     path,
			},
			Record: win.Record,
			New:    isNew,
		})
	}
	return report, nil
}
