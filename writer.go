package teerotate

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/kei2100/teerotate/internal"
	"github.com/kei2100/teerotate/internal/file"
	"github.com/kei2100/teerotate/internal/state"
)

// NewWriter creates a *teerotate.Writer and opens the segment at index 0.
// Segments are named by FormatPath(prefix, suffix, index).
func NewWriter(prefix, suffix string, opts ...OptionFunc) (*Writer, error) {
	var opt option
	opt.apply(opts...)

	w := &Writer{
		prefix: prefix,
		suffix: suffix,
		opt:    opt,
		state:  state.NewState(0, opt.now()),
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Writer is a rotating file writer.
// A Writer is owned by a single goroutine and is not safe for concurrent use.
type Writer struct {
	seg   *internal.Segment
	state *state.State

	prefix string
	suffix string
	opt    option
}

// Write implements io.Writer.
// Write failures are logged and returned, the written size is counted regardless.
// Callers that favour availability may discard the error.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.seg.Write(p)
	w.state.AddSize(int64(len(p)))
	if err != nil {
		w.opt.logger.Warn("write failed",
			zap.String("path", w.seg.Path()),
			zap.Int("bytes", len(p)),
			zap.Error(err))
	}
	return n, err
}

// ShouldRotate reports whether the current segment should be rotated.
func (w *Writer) ShouldRotate() bool {
	return w.opt.policy.NeedRotate(w.FileState())
}

// FileState returns a snapshot of the current segment state.
func (w *Writer) FileState() FileState {
	return FileState{
		Index:    w.state.Index(),
		Size:     w.state.Size(),
		OpenedAt: w.state.OpenedAt(),
	}
}

// LastFlush returns the time bytes were last handed to the Writer by its owner.
func (w *Writer) LastFlush() time.Time {
	return w.state.LastFlush()
}

// MarkFlushed records a flush at now.
func (w *Writer) MarkFlushed(now time.Time) {
	w.state.MarkFlushed(now)
}

// Path returns the path of the current segment.
func (w *Writer) Path() string {
	return w.seg.Path()
}

// Rotate closes the current segment, evicts the segment that leaves the
// retention window and opens the next one.
// An error is returned only when the next segment cannot be created.
func (w *Writer) Rotate() error {
	if err := w.seg.Close(); err != nil {
		w.opt.logger.Warn("close failed", zap.String("path", w.seg.Path()), zap.Error(err))
		// not return
	}
	w.opt.logger.Debug("segment closed",
		zap.String("path", w.seg.Path()),
		zap.String("size", humanize.IBytes(uint64(w.state.Size()))))

	w.state.Advance(w.opt.now())
	w.evict()
	return w.open()
}

// Close flushes and closes the current segment.
func (w *Writer) Close() error {
	return w.seg.Close()
}

// With a file count of 0 only the open segment is kept, so the previous one
// is evicted as if the count were 1.
func (w *Writer) evict() {
	keeps := w.opt.fileCount
	if keeps < 1 {
		keeps = 1
	}
	path, err := Evict(w.prefix, w.suffix, keeps, w.state.Index())
	if err != nil {
		w.opt.logger.Warn("evict failed", zap.String("path", path), zap.Error(err))
		return
	}
	if path != "" {
		w.opt.logger.Debug("evicted", zap.String("path", path), zap.Int("index", w.state.Index()-keeps))
	}
}

func (w *Writer) open() error {
	path := FormatPath(w.prefix, w.suffix, w.state.Index())
	f, err := file.Create(path, w.opt.permission)
	if err != nil {
		return fmt.Errorf("teerotate: create file failed: %s: %w", path, err)
	}
	w.seg = internal.NewSegment(path, f)
	w.opt.logger.Info("new file", zap.String("path", path), zap.Int("index", w.state.Index()))
	return nil
}
