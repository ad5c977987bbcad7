package main

import (
	"github.com/urfave/cli/v2"

	"github.com/kei2100/teerotate"
	"github.com/kei2100/teerotate/internal/config"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML config file; flags override its values",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Path prefix of the log files",
			Value: config.DefaultPrefix,
		},
		&cli.StringFlag{
			Name:  "suffix",
			Usage: "Extension of the log files, empty for none",
			Value: config.DefaultSuffix,
		},
		&cli.StringFlag{
			Name:  "file-size",
			Usage: "Size at which a new file is started, e.g. 512k, 10m, 1g",
			Value: config.DefaultFileSize,
		},
		&cli.IntFlag{
			Name:  "file-count",
			Usage: "Number of files kept, 0 to 1000",
			Value: teerotate.DefaultFileCount,
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Read from this file instead of stdin",
		},
		&cli.BoolFlag{
			Name:  "continue-read",
			Usage: "Reopen --file at its end and keep reading",
		},
		&cli.BoolFlag{
			Name:  "daemon",
			Usage: "Detach from the terminal (requires --ident)",
		},
		&cli.StringFlag{
			Name:  "ident",
			Usage: "Identity of the daemon, used to name its pid and output files",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Diagnostic log level: debug, info, warn, error",
			Value: config.DefaultLogLevel,
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Diagnostic log format: console or json",
			Value: config.DefaultLogFormat,
		},
	}
}

// loadConfig builds the Config from defaults, the --config file and the
// flags that were set explicitly.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	strs := map[string]*string{
		"prefix":     &cfg.Prefix,
		"suffix":     &cfg.Suffix,
		"file-size":  &cfg.FileSize,
		"file":       &cfg.File,
		"ident":      &cfg.Ident,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("file-count") {
		cfg.FileCount = c.Int("file-count")
	}
	if c.IsSet("continue-read") {
		cfg.ContinueRead = c.Bool("continue-read")
	}
	if c.IsSet("daemon") {
		cfg.Daemon = c.Bool("daemon")
	}

	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
