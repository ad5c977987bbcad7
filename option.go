package teerotate

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kei2100/teerotate/logger"
)

// Default values
const (
	DefaultPermission    = 0644
	DefaultFileCount     = 10
	MaxFileCount         = 1000
	DefaultSize          = 1024 * 1024 * 10
	DefaultOverflowSize  = 4 * 1024
	DefaultFlushInterval = time.Second
	// chunks queued between the Ingester and the Pipeline
	DefaultQueueSize = 1024
)

type option struct {
	permission os.FileMode
	fileCount  int
	policy     PolicyFunc
	logger     *zap.Logger
	now        func() time.Time
}

// OptionFunc let you change Writer behavior.
type OptionFunc func(o *option)

func (o *option) apply(opts ...OptionFunc) {
	o.permission = DefaultPermission
	o.fileCount = DefaultFileCount
	o.policy = SizeBasedPolicy(DefaultSize)
	o.now = time.Now
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = logger.L()
	}
}

func WithPermission(v os.FileMode) OptionFunc {
	return func(o *option) {
		o.permission = v
	}
}

// WithFileCount sets the number of segments kept, clamped to [0, MaxFileCount].
func WithFileCount(v int) OptionFunc {
	return func(o *option) {
		o.fileCount = ClampFileCount(v)
	}
}

func WithPolicy(f PolicyFunc) OptionFunc {
	return func(o *option) {
		o.policy = f
	}
}

func WithLogger(l *zap.Logger) OptionFunc {
	return func(o *option) {
		o.logger = l
	}
}

// ClampFileCount clamps v to [0, MaxFileCount].
func ClampFileCount(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxFileCount {
		return MaxFileCount
	}
	return v
}

type pipelineOption struct {
	overflowSize  int
	flushInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// PipelineOptionFunc let you change Pipeline behavior.
type PipelineOptionFunc func(o *pipelineOption)

func (o *pipelineOption) apply(opts ...PipelineOptionFunc) {
	o.overflowSize = DefaultOverflowSize
	o.flushInterval = DefaultFlushInterval
	o.now = time.Now
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = logger.L()
	}
}

// WithOverflowSize sets the buffered size above which pending bytes are flushed without a line terminator.
func WithOverflowSize(v int) PipelineOptionFunc {
	return func(o *pipelineOption) {
		o.overflowSize = v
	}
}

// WithFlushInterval sets how long the pipeline waits for input before flushing a partial line.
func WithFlushInterval(v time.Duration) PipelineOptionFunc {
	return func(o *pipelineOption) {
		o.flushInterval = v
	}
}

func WithPipelineLogger(l *zap.Logger) PipelineOptionFunc {
	return func(o *pipelineOption) {
		o.logger = l
	}
}
