package internal

import (
	"bufio"
	"os"
	"sync"
)

const segmentBufferSize = 8 * 1024

// Segment is an open output file. Close may be called more than once.
type Segment struct {
	once sync.Once
	path string
	f    *os.File
	bw   *bufio.Writer
	err  error
}

// NewSegment wraps f, which was opened at path.
func NewSegment(path string, f *os.File) *Segment {
	return &Segment{
		path: path,
		f:    f,
		bw:   bufio.NewWriterSize(f, segmentBufferSize),
	}
}

// Path returns the path the segment was opened at.
func (s *Segment) Path() string {
	return s.path
}

// Write writes p and flushes it to the file.
func (s *Segment) Write(p []byte) (int, error) {
	n, err := s.bw.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.bw.Flush()
}

// Close flushes pending bytes and closes the file.
func (s *Segment) Close() error {
	s.once.Do(func() {
		ferr := s.bw.Flush()
		cerr := s.f.Close()
		if ferr != nil {
			s.err = ferr
		} else {
			s.err = cerr
		}
	})
	return s.err
}
