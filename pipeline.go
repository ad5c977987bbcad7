package teerotate

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Pipeline is the single consumer of input chunks. It owns a LineBuffer and a
// Writer and decides when buffered bytes reach the disk.
type Pipeline struct {
	w   *Writer
	buf *LineBuffer
	opt pipelineOption

	written int64
}

// NewPipeline creates a Pipeline writing to w.
func NewPipeline(w *Writer, opts ...PipelineOptionFunc) *Pipeline {
	var opt pipelineOption
	opt.apply(opts...)
	return &Pipeline{
		w:   w,
		buf: NewLineBuffer(opt.overflowSize),
		opt: opt,
	}
}

// Run consumes chunks from in until in is closed, an empty chunk is received
// or ctx is done, then writes what is left and closes the Writer.
// A partial line is flushed once no input has arrived for the flush interval.
// The returned error is fatal: a new segment could not be created.
func (p *Pipeline) Run(ctx context.Context, in <-chan []byte) error {
	p.w.MarkFlushed(p.opt.now())

	timer := time.NewTimer(p.opt.flushInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.shutdown(in)

		case chunk, ok := <-in:
			if !ok || len(chunk) == 0 {
				return p.finalize()
			}
			if err := p.consume(chunk); err != nil {
				return err
			}

		case <-timer.C:
			if err := p.tick(); err != nil {
				return err
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.opt.flushInterval)
	}
}

// Written returns the number of bytes handed to the Writer so far.
func (p *Pipeline) Written() int64 {
	return p.written
}

func (p *Pipeline) consume(chunk []byte) error {
	if out := p.buf.Append(chunk); len(out) > 0 {
		if err := p.emit(out); err != nil {
			return err
		}
	}
	p.w.MarkFlushed(p.opt.now())
	return nil
}

func (p *Pipeline) tick() error {
	if p.buf.Len() == 0 {
		return nil
	}
	now := p.opt.now()
	if now.Sub(p.w.LastFlush()) < p.opt.flushInterval {
		return nil
	}
	if err := p.emit(p.buf.Drain()); err != nil {
		return err
	}
	p.w.MarkFlushed(now)
	return nil
}

func (p *Pipeline) emit(b []byte) error {
	_, _ = p.w.Write(b) // best effort, failures are logged by the Writer
	p.written += int64(len(b))
	if !p.w.ShouldRotate() {
		return nil
	}
	if err := p.w.Rotate(); err != nil {
		_ = p.w.Close()
		return err
	}
	return nil
}

// shutdown drains chunks that are already queued without waiting for more.
func (p *Pipeline) shutdown(in <-chan []byte) error {
	for {
		select {
		case chunk, ok := <-in:
			if !ok || len(chunk) == 0 {
				return p.finalize()
			}
			if err := p.consume(chunk); err != nil {
				return err
			}
		default:
			return p.finalize()
		}
	}
}

func (p *Pipeline) finalize() error {
	if rest := p.buf.Drain(); len(rest) > 0 {
		_, _ = p.w.Write(rest)
		p.written += int64(len(rest))
	}
	if err := p.w.Close(); err != nil {
		p.opt.logger.Warn("close failed", zap.String("path", p.w.Path()), zap.Error(err))
	}
	p.opt.logger.Info("end of stream",
		zap.String("path", p.w.Path()),
		zap.String("written", humanize.IBytes(uint64(p.written))))
	return nil
}
