package teerotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kei2100/teerotate/internal/file"
	"github.com/kei2100/teerotate/logger"
)

// Ingester defaults
const (
	DefaultChunkSize      = 128
	DefaultReopenInterval = 250 * time.Millisecond
	readRetryInterval     = 100 * time.Millisecond
)

// Source is where input is read from: standard input, or a file that may be
// reopened each time its end is reached.
type Source struct {
	path   string
	reopen bool
}

// Stdin returns the standard input source.
func Stdin() Source {
	return Source{}
}

// File returns a file source. With reopen, reaching the end of the file
// reopens it and waits for more data instead of ending the stream.
func File(path string, reopen bool) Source {
	return Source{path: path, reopen: reopen}
}

// IsStdin reports whether s is the standard input source.
func (s Source) IsStdin() bool {
	return s.path == ""
}

func (s Source) String() string {
	if s.IsStdin() {
		return "stdin"
	}
	return s.path
}

type ingestOption struct {
	chunkSize      int
	reopenInterval time.Duration
	stdin          io.Reader
	logger         *zap.Logger
}

// IngestOptionFunc let you change Ingester behavior.
type IngestOptionFunc func(o *ingestOption)

func (o *ingestOption) apply(opts ...IngestOptionFunc) {
	o.chunkSize = DefaultChunkSize
	o.reopenInterval = DefaultReopenInterval
	o.stdin = os.Stdin
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = logger.L()
	}
}

func WithChunkSize(v int) IngestOptionFunc {
	return func(o *ingestOption) {
		o.chunkSize = v
	}
}

func WithReopenInterval(v time.Duration) IngestOptionFunc {
	return func(o *ingestOption) {
		o.reopenInterval = v
	}
}

// WithStdin replaces the reader used for the standard input source.
func WithStdin(r io.Reader) IngestOptionFunc {
	return func(o *ingestOption) {
		o.stdin = r
	}
}

func WithIngestLogger(l *zap.Logger) IngestOptionFunc {
	return func(o *ingestOption) {
		o.logger = l
	}
}

// Ingester reads a Source in fixed-size chunks.
type Ingester struct {
	src Source
	opt ingestOption

	r  io.Reader
	f  *os.File
	fi os.FileInfo
	// bytes consumed from f
	offset int64
}

// NewIngester creates an Ingester for src.
func NewIngester(src Source, opts ...IngestOptionFunc) *Ingester {
	var opt ingestOption
	opt.apply(opts...)
	if opt.chunkSize <= 0 {
		opt.chunkSize = DefaultChunkSize
	}
	return &Ingester{src: src, opt: opt}
}

// Open opens the source. It must be called before Run.
func (in *Ingester) Open() error {
	if in.src.IsStdin() {
		in.r = in.opt.stdin
		return nil
	}
	f, err := file.Open(in.src.path)
	if err != nil {
		return fmt.Errorf("teerotate: open source failed: %w", err)
	}
	in.setFile(f)
	return nil
}

// Run reads chunks and sends them to out until the source is exhausted or ctx
// is done. out is closed when Run returns.
func (in *Ingester) Run(ctx context.Context, out chan<- []byte) error {
	defer close(out)
	defer in.closeFile()

	if in.r == nil {
		return errors.New("teerotate: ingester is not opened")
	}

	buf := make([]byte, in.opt.chunkSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := in.r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			in.offset += int64(n)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if in.src.IsStdin() || !in.src.reopen {
				return nil
			}
			if !in.reopen(ctx) {
				return nil
			}
		default:
			in.opt.logger.Warn("read failed", zap.Stringer("source", in.src), zap.Error(err))
			if !sleep(ctx, readRetryInterval) {
				return nil
			}
		}
	}
}

// reopen waits for the reopen interval and opens the source again, resuming
// at the consumed offset when it is still the same, not truncated file.
// It reports false when ctx is done.
func (in *Ingester) reopen(ctx context.Context) bool {
	prev := in.fi
	in.closeFile()

	for {
		if !sleep(ctx, in.opt.reopenInterval) {
			return false
		}
		f, err := openContext(ctx, in.src.path)
		if ctx.Err() != nil {
			if f != nil {
				_ = f.Close()
			}
			return false
		}
		if err != nil {
			in.opt.logger.Debug("reopen failed", zap.Stringer("source", in.src), zap.Error(err))
			continue
		}
		fi, err := f.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			// pipes and devices start over from whatever the next writer sends
			in.offset = 0
			in.setFile(f)
			return true
		}
		if prev != nil && os.SameFile(prev, fi) && fi.Size() >= in.offset {
			if _, err := f.Seek(in.offset, io.SeekStart); err == nil {
				in.setFile(f)
				return true
			}
		}
		if in.offset > 0 {
			in.opt.logger.Info("source replaced or truncated, reading from start",
				zap.Stringer("source", in.src), zap.Int64("offset", in.offset))
		}
		in.offset = 0
		in.setFile(f)
		return true
	}
}

// openContext opens path, giving up when ctx is done. Opening a FIFO blocks
// until a writer appears; in that case the file is closed once the open returns.
func openContext(ctx context.Context, path string) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := file.Open(path)
		ch <- result{f, err}
	}()
	select {
	case r := <-ch:
		return r.f, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.f != nil {
				_ = r.f.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (in *Ingester) setFile(f *os.File) {
	in.f = f
	in.r = f
	in.fi, _ = f.Stat()
}

func (in *Ingester) closeFile() {
	if in.f == nil {
		return
	}
	if err := in.f.Close(); err != nil {
		in.opt.logger.Warn("close source failed", zap.Stringer("source", in.src), zap.Error(err))
	}
	in.f = nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
