// Package config holds the settings of a teerotate run.
//
// Values come from Default, then an optional YAML file (Load), then command
// line flags that were set explicitly.
package config

import (
	"errors"
	"fmt"

	"github.com/mitchellh/go-homedir"

	"github.com/kei2100/teerotate"
)

// Defaults
const (
	DefaultPrefix    = "temp"
	DefaultSuffix    = "log"
	DefaultFileSize  = "10m"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// ErrIdentRequired is returned by Validate when daemon mode has no identity.
var ErrIdentRequired = errors.New("config: --ident is required with --daemon")

// Config represents a teerotate.yaml configuration file.
type Config struct {
	Prefix       string `yaml:"prefix"`
	Suffix       string `yaml:"suffix"`
	FileSize     string `yaml:"file_size"`
	FileCount    int    `yaml:"file_count"`
	File         string `yaml:"file"`
	ContinueRead bool   `yaml:"continue_read"`
	Daemon       bool   `yaml:"daemon"`
	Ident        string `yaml:"ident"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Prefix:    DefaultPrefix,
		Suffix:    DefaultSuffix,
		FileSize:  DefaultFileSize,
		FileCount: teerotate.DefaultFileCount,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Normalize clamps the file count and expands a leading ~ in paths.
func (c *Config) Normalize() error {
	c.FileCount = teerotate.ClampFileCount(c.FileCount)

	prefix, err := homedir.Expand(c.Prefix)
	if err != nil {
		return fmt.Errorf("config: prefix %q: %w", c.Prefix, err)
	}
	c.Prefix = prefix

	if c.File != "" {
		f, err := homedir.Expand(c.File)
		if err != nil {
			return fmt.Errorf("config: file %q: %w", c.File, err)
		}
		c.File = f
	}
	return nil
}

// Validate reports settings that cannot run.
func (c Config) Validate() error {
	if c.Prefix == "" {
		return errors.New("config: prefix must not be empty")
	}
	if c.Daemon && c.Ident == "" {
		return ErrIdentRequired
	}
	return nil
}

// FileSizeBytes returns the parsed file size.
// On a parse failure it returns teerotate.DefaultSize and the error, which
// the caller is expected to report and otherwise ignore.
func (c Config) FileSizeBytes() (int64, error) {
	n, err := ParseSize(c.FileSize)
	if err != nil {
		return teerotate.DefaultSize, err
	}
	return n, nil
}

// Source returns the input source.
func (c Config) Source() teerotate.Source {
	if c.File == "" {
		return teerotate.Stdin()
	}
	return teerotate.File(c.File, c.ContinueRead)
}
