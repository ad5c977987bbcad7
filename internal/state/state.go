// Package state holds the rotation state of a writer.
//
// A State is owned by the single goroutine driving the writer and is not
// safe for concurrent use.
package state

import "time"

// State of the current segment
type State struct {
	index     int
	size      int64
	openedAt  time.Time
	lastFlush time.Time
}

// NewState creates a State for the segment at index, opened at now
func NewState(index int, now time.Time) *State {
	return &State{index: index, openedAt: now, lastFlush: now}
}

// Index returns the sequence index of the current segment
func (s *State) Index() int {
	return s.index
}

// Size returns the bytes written since the segment was opened
func (s *State) Size() int64 {
	return s.size
}

// OpenedAt returns the time the current segment was opened
func (s *State) OpenedAt() time.Time {
	return s.openedAt
}

// LastFlush returns the time of the last flush
func (s *State) LastFlush() time.Time {
	return s.lastFlush
}

// AddSize adds written bytes
func (s *State) AddSize(n int64) {
	s.size += n
}

// MarkFlushed records a flush at now
func (s *State) MarkFlushed(now time.Time) {
	s.lastFlush = now
}

// Advance moves to the next index with a fresh counter
func (s *State) Advance(now time.Time) {
	s.index++
	s.size = 0
	s.openedAt = now
}
