package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultClientName    = "sjconv"
	DefaultPorts         = 2
	DefaultLogLevel      = "info"
	DefaultStatsInterval = 2 * time.Second

	// MaxPorts bounds the channel count.
	MaxPorts = 256
)

var ErrInvalid = errors.New("config: invalid")

// Config holds the effective settings of one sjconv run.
type Config struct {
	File          string
	Ports         int
	ClientName    string
	LogLevel      string
	StatsInterval time.Duration

	// Version is set by the --version flag and never read from a file.
	Version bool
}

// File is the YAML schema. Absent keys leave the defaults in place.
type File struct {
	File          string         `yaml:"file"`
	Ports         *int           `yaml:"ports"`
	ClientName    string         `yaml:"client_name"`
	LogLevel      string         `yaml:"log_level"`
	StatsInterval *time.Duration `yaml:"stats_interval"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Ports:         DefaultPorts,
		ClientName:    DefaultClientName,
		LogLevel:      DefaultLogLevel,
		StatsInterval: DefaultStatsInterval,
	}
}

// Load reads a YAML file and applies it on top of the defaults. A relative
// impulse response path is resolved against the file's directory.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	c := Default()
	ApplyFile(c, &f)

	if c.File != "" && !filepath.IsAbs(c.File) {
		c.File = filepath.Clean(filepath.Join(filepath.Dir(path), c.File))
	}
	return c, nil
}

// ApplyFile copies the keys present in f onto dst.
func ApplyFile(dst *Config, f *File) {
	if dst == nil || f == nil {
		return
	}
	if s := strings.TrimSpace(f.File); s != "" {
		dst.File = s
	}
	if f.Ports != nil {
		dst.Ports = *f.Ports
	}
	if s := strings.TrimSpace(f.ClientName); s != "" {
		dst.ClientName = s
	}
	if s := strings.TrimSpace(f.LogLevel); s != "" {
		dst.LogLevel = s
	}
	if f.StatsInterval != nil {
		dst.StatsInterval = *f.StatsInterval
	}
}

// Validate checks the settings needed to start the effect.
func (c *Config) Validate() error {
	if c.File == "" {
		return fmt.Errorf("%w: an impulse response file is required (--file)", ErrInvalid)
	}
	if c.Ports < 1 {
		return fmt.Errorf("%w: ports must be >= 1, got %d", ErrInvalid, c.Ports)
	}
	if c.Ports > MaxPorts {
		return fmt.Errorf("%w: ports must be <= %d, got %d", ErrInvalid, MaxPorts, c.Ports)
	}
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("%w: client name must not be empty", ErrInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("%w: stats interval must be >= 0, got %s", ErrInvalid, c.StatsInterval)
	}
	return nil
}

// Level returns the slog level for c.LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return l, nil
}
