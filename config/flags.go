package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Parse builds the effective configuration from command-line arguments.
// Defaults come first, then the optional --config file, then every flag the
// user set explicitly. flag.ErrHelp is returned unchanged for -h.
func Parse(name string, args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		file       string
		ports      int
		configPath string
		clientName string
		logLevel   string
		interval   time.Duration
		version    bool
	)
	fs.StringVar(&file, "file", "", "Impulse response WAV file (mono)")
	fs.StringVar(&file, "f", "", "Shorthand for -file")
	fs.IntVar(&ports, "ports", DefaultPorts, "Number of channels (input/output port pairs)")
	fs.IntVar(&ports, "p", DefaultPorts, "Shorthand for -ports")
	fs.StringVar(&configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&clientName, "name", DefaultClientName, "Audio server client name")
	fs.StringVar(&logLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.DurationVar(&interval, "stats-interval", DefaultStatsInterval, "Diagnostics interval, 0 disables")
	fs.BoolVar(&version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrInvalid, fs.Arg(0))
	}

	c := Default()
	if configPath != "" {
		loaded, err := Load(configPath)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file", "f":
			c.File = file
		case "ports", "p":
			c.Ports = ports
		case "name":
			c.ClientName = clientName
		case "log-level":
			c.LogLevel = logLevel
		case "stats-interval":
			c.StatsInterval = interval
		case "version":
			c.Version = version
		}
	})

	if c.Version {
		return c, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
