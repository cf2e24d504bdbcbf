package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

// DefaultClasses is the number of class partitions in a sample root.
const DefaultClasses = 5

// PartitionDir returns the directory holding windows of the given class.
func PartitionDir(root string, class int) string {
	return filepath.Join(root, strconv.Itoa(class))
}

// EnsureLayout creates root and the partitions 0..classes-1 if they are
// missing. Existing partitions and their contents are left untouched, so it
// is safe to call on every run.
func EnsureLayout(root string, classes int) error {
	if classes <= 0 {
		return fmt.Errorf("invalid class count %d", classes)
	}
	for c := 0; c < classes; c++ {
		dir := PartitionDir(root, c)
		if utils.DirExists(dir) {
			continue
		}
		if err := utils.MakeDir(dir); err != nil {
			return fmt.Errorf("creating partition %s: %w", dir, err)
		}
	}
	return nil
}
