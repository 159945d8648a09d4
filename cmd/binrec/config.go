package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/binrec"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by all commands. It is read from an
// optional YAML file; flags given on the command line win.
type Config struct {
	Codec        string `yaml:"codec"`
	Level        int    `yaml:"level"`
	SegmentLimit string `yaml:"segment_limit"`
	BufferSize   string `yaml:"buffer_size"`
	IOLimit      string `yaml:"io_limit"`
	MaxOpenFiles int64  `yaml:"max_open_files"`
	MaxPipes     int64  `yaml:"max_pipes"`
	Report       bool   `yaml:"report"`
	LogFormat    string `yaml:"log_format"`
	LogLevel     string `yaml:"log_level"`
	MetricsAddr  string `yaml:"metrics_addr"`
	Archive      string `yaml:"archive"`
	Jobs         int    `yaml:"jobs"`
}

// DefaultConfig returns the settings used without a config file.
func DefaultConfig() Config {
	return Config{
		Codec:        binrec.CodecGzip.String(),
		Level:        binrec.DefaultLevel,
		MaxOpenFiles: binrec.DefaultMaxOpenFiles,
		LogFormat:    "text",
		LogLevel:     "info",
		Jobs:         4,
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// bindFlags registers the config flags on fs with the values of cfg as
// defaults.
func (c *Config) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Codec, "codec", c.Codec, "segment codec: gzip, zstd or lz4")
	fs.IntVar(&c.Level, "level", c.Level, "compression level")
	fs.StringVar(&c.SegmentLimit, "segment-limit", c.SegmentLimit, "uncompressed bytes per segment before a continuation is started, empty for 2 GiB - 2 MiB")
	fs.StringVar(&c.BufferSize, "buffer-size", c.BufferSize, "record buffer size, empty for 64 KiB")
	fs.StringVar(&c.IOLimit, "io-limit", c.IOLimit, "combined segment throughput per second, empty for no limit")
	fs.Int64Var(&c.MaxOpenFiles, "max-open-files", c.MaxOpenFiles, "cap on concurrently open record files")
	fs.Int64Var(&c.MaxPipes, "max-pipes", c.MaxPipes, "cap on concurrently running compression workers, 0 for no cap")
	fs.BoolVar(&c.Report, "report", c.Report, "log the compression ratio of every segment")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&c.Archive, "archive", c.Archive, "copy sealed segments to a directory, s3://bucket/prefix or minio://endpoint/bucket/prefix")
}

// merge overlays the flags that were set explicitly in fs onto c.
func (c *Config) merge(flags *Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "codec":
			c.Codec = flags.Codec
		case "level":
			c.Level = flags.Level
		case "segment-limit":
			c.SegmentLimit = flags.SegmentLimit
		case "buffer-size":
			c.BufferSize = flags.BufferSize
		case "io-limit":
			c.IOLimit = flags.IOLimit
		case "max-open-files":
			c.MaxOpenFiles = flags.MaxOpenFiles
		case "max-pipes":
			c.MaxPipes = flags.MaxPipes
		case "report":
			c.Report = flags.Report
		case "log-format":
			c.LogFormat = flags.LogFormat
		case "log-level":
			c.LogLevel = flags.LogLevel
		case "metrics-addr":
			c.MetricsAddr = flags.MetricsAddr
		case "archive":
			c.Archive = flags.Archive
		}
	})
}

// settings is the parsed form of Config.
type settings struct {
	codec        binrec.Codec
	level        int
	segmentLimit int64
	bufferSize   int
	ioLimit      int64
	logLevel     slog.Level
}

func (c *Config) parse() (settings, error) {
	var s settings
	var err error

	if s.codec, err = binrec.ParseCodec(c.Codec); err != nil {
		return s, err
	}
	s.level = c.Level
	if s.segmentLimit, err = parseBytes("segment-limit", c.SegmentLimit); err != nil {
		return s, err
	}
	size, err := parseBytes("buffer-size", c.BufferSize)
	if err != nil {
		return s, err
	}
	s.bufferSize = int(size)
	if s.ioLimit, err = parseBytes("io-limit", c.IOLimit); err != nil {
		return s, err
	}
	if err := s.logLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return s, fmt.Errorf("log-level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return s, fmt.Errorf("log-format: unknown format %q", c.LogFormat)
	}
	return s, nil
}

func parseBytes(name, v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return int64(n), nil
}
