package teerotate

import "time"

// FileState holds the state of the current write destination file
type FileState struct {
	// sequence index of the file
	Index int
	// written bytes since opened
	Size int64
	// OpenedAt time
	OpenedAt time.Time
}

// PolicyFunc is a type of rotate policy function
type PolicyFunc func(fileState FileState) bool

// NeedRotate reports whether need rotate
func (f PolicyFunc) NeedRotate(fileState FileState) bool {
	return f(fileState)
}

// SizeBasedPolicy returns size based rotate policy
func SizeBasedPolicy(size int64) PolicyFunc {
	return func(fileState FileState) bool {
		return fileState.Size >= size
	}
}
