package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kei2100/teerotate"
	"github.com/kei2100/teerotate/internal/config"
	"github.com/kei2100/teerotate/internal/daemon"
	"github.com/kei2100/teerotate/logger"
)

func action(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	l, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger.SetLogger(l)
	defer logger.Sync()

	if cfg.Daemon {
		if _, child := daemon.IsChild(); !child {
			pid, err := daemon.Start(progname, cfg.Ident, os.Args[1:])
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			announceDaemon(cfg.Ident, pid)
			return nil
		}
		release, err := daemon.Acquire(progname, cfg.Ident)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer release()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, l)
}

func announceDaemon(ident string, pid int) {
	p := daemon.PathsFor(progname, ident)
	logger.Printf("daemon %s started (pid %d), output in %s and %s", ident, pid, p.Out, p.Err)
}

func run(ctx context.Context, cfg config.Config, l *zap.Logger) error {
	size, err := cfg.FileSizeBytes()
	if err != nil {
		l.Warn("invalid file size, using default",
			zap.String("file_size", cfg.FileSize),
			zap.String("default", humanize.IBytes(uint64(size))),
			zap.Error(err))
	}

	ing := teerotate.NewIngester(cfg.Source(), teerotate.WithIngestLogger(l))
	if err := ing.Open(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	w, err := teerotate.NewWriter(cfg.Prefix, cfg.Suffix,
		teerotate.WithFileCount(cfg.FileCount),
		teerotate.WithPolicy(teerotate.SizeBasedPolicy(size)),
		teerotate.WithLogger(l))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	l.Debug("started",
		zap.Stringer("source", cfg.Source()),
		zap.String("file_size", humanize.IBytes(uint64(size))),
		zap.Int("file_count", cfg.FileCount))

	chunks := make(chan []byte, teerotate.DefaultQueueSize)
	go func() {
		if err := ing.Run(ctx, chunks); err != nil {
			l.Error("ingestion stopped", zap.Error(err))
		}
	}()
	if err := teerotate.NewPipeline(w, teerotate.WithPipelineLogger(l)).Run(ctx, chunks); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
