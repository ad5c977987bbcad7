// Package file opens log segments and input sources in a way that does not
// block other processes from renaming or removing them.
package file

import "os"

// Create creates or truncates the named segment for writing.
func Create(name string, perm os.FileMode) (*os.File, error) {
	return openFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

// Open opens the named source for reading.
func Open(name string) (*os.File, error) {
	return openFile(name, os.O_RDONLY, 0)
}
