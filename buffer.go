package teerotate

import "bytes"

// LineBuffer accumulates input and hands out the part of it that is safe to
// write: everything up to the last line terminator, or everything once the
// buffer grows past the overflow size without one.
type LineBuffer struct {
	buf      []byte
	overflow int
}

// NewLineBuffer creates a LineBuffer that force-flushes above overflow bytes.
func NewLineBuffer(overflow int) *LineBuffer {
	if overflow <= 0 {
		overflow = DefaultOverflowSize
	}
	return &LineBuffer{buf: make([]byte, 0, overflow*2), overflow: overflow}
}

// Append adds chunk and returns the bytes to emit now, or nil.
// The returned slice is not retained by the buffer.
func (b *LineBuffer) Append(chunk []byte) []byte {
	b.buf = append(b.buf, chunk...)

	p := bytes.LastIndexByte(b.buf, '\n')
	if p < 0 {
		if len(b.buf) <= b.overflow {
			return nil
		}
		return b.Drain()
	}
	return b.take(p + 1)
}

// Drain returns all pending bytes and clears the buffer.
func (b *LineBuffer) Drain() []byte {
	return b.take(len(b.buf))
}

// Len returns the number of pending bytes.
func (b *LineBuffer) Len() int {
	return len(b.buf)
}

func (b *LineBuffer) take(n int) []byte {
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b.buf[:n])
	rest := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:rest]
	return out
}
