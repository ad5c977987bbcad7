package teerotate

import (
	"fmt"
	"os"
)

// FormatPath returns the path of the segment at index.
//
//	e.g. prefix "temp", suffix "log", index 7  => temp_007.log
//	     prefix "temp", suffix "",    index 1234 => temp_1234
func FormatPath(prefix, suffix string, index int) string {
	if suffix == "" {
		return fmt.Sprintf("%s_%03d", prefix, index)
	}
	return fmt.Sprintf("%s_%03d.%s", prefix, index, suffix)
}

// Evict removes the segment at index-fileCount, which has left the retention window.
// It returns the path it targeted, or "" when the target index is negative.
// A missing file is not an error.
func Evict(prefix, suffix string, fileCount, index int) (string, error) {
	target := index - fileCount
	if target < 0 {
		return "", nil
	}
	path := FormatPath(prefix, suffix, target)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return path, fmt.Errorf("teerotate: failed to remove %s: %w", path, err)
	}
	return path, nil
}
