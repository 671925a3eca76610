package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/WangYihang/Blocklist-Merger/pkg/config"
)

// Config holds the command line options
type Config struct {
	// Input/Output
	ConfigFile string `short:"c" long:"config" description:"Settings file (.json, .yaml or .toml)" default:"appsettings.json"`
	OutputFile string `short:"o" long:"output" description:"Output file, overrides OutputFileName from the settings"`

	// Filtering
	Workers        int  `long:"workers" description:"Goroutines scanning the coverage window, 0 uses GOMAXPROCS" default:"0"`
	Window         int  `long:"window" description:"Coverage window growth per round" default:"250"`
	MultiPass      bool `long:"multi-pass" description:"Repeat coverage rounds until nothing is removed"`
	ExtraFiltering bool `long:"extra-filtering" description:"Run the exhaustive coverage pass against external lists"`

	// HTTP
	FetchConcurrency int    `long:"fetch-concurrency" description:"Sources downloaded at once, 0 downloads all of them together" default:"8"`
	HTTPTimeout      int    `long:"http-timeout" description:"HTTP request timeout in seconds" default:"120"`
	Retries          int    `long:"retries" description:"Extra attempts after a transport error or 5xx" default:"3"`
	UserAgent        string `long:"user-agent" description:"HTTP User-Agent header, defaults to blocklist-merger/<version>"`
	MaxResponseSize  int64  `long:"max-response-size" description:"Maximum size of one source in bytes" default:"268435456"`

	// Logging
	LogLevel  string `long:"log-level" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	LogFormat string `long:"log-format" description:"Log format" choice:"text" choice:"json" default:"text"`

	// UI
	NoProgress bool `long:"no-progress" description:"Disable progress bars"`

	// Metrics
	MetricsAddr     string `long:"metrics-addr" description:"Serve Prometheus metrics on this address during the run"`
	MetricsTextfile string `long:"metrics-textfile" description:"Write Prometheus metrics to this file after the run"`

	Version bool `short:"v" long:"version" description:"Print the version and exit"`

	// Real HTTP timeout duration (not parsed from flags directly)
	HTTPTimeoutDuration time.Duration

	// long names of the options given on the command line
	set map[string]bool
}

// ParseFlags parses os.Args
func ParseFlags() (*Config, error) {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			// Help has been printed by the library, exit cleanly
			os.Exit(0)
		}
		return nil, err
	}
	return cfg, nil
}

// ParseArgs parses args into a validated Config
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.set = make(map[string]bool)
	for _, name := range []string{"output", "multi-pass", "extra-filtering"} {
		if opt := parser.FindOptionByLongName(name); opt != nil && opt.IsSet() {
			cfg.set[name] = true
		}
	}

	cfg.HTTPTimeoutDuration = time.Duration(cfg.HTTPTimeout) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version {
		return nil
	}

	if strings.TrimSpace(c.ConfigFile) == "" {
		return fmt.Errorf("settings file must not be empty")
	}

	if c.Workers < 0 {
		return fmt.Errorf("number of workers must be >= 0, got %d", c.Workers)
	}

	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0, got %d", c.Window)
	}

	if c.FetchConcurrency < 0 {
		return fmt.Errorf("fetch concurrency must be >= 0, got %d", c.FetchConcurrency)
	}

	if c.HTTPTimeoutDuration <= 0 {
		return fmt.Errorf("HTTP timeout must be > 0, got %s", c.HTTPTimeoutDuration)
	}

	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}

	if c.MaxResponseSize <= 0 {
		return fmt.Errorf("max response size must be > 0, got %d", c.MaxResponseSize)
	}

	return nil
}

// Apply overrides settings with the options given on the command line
func (c *Config) Apply(settings *config.Settings) {
	if c.set["output"] && c.OutputFile != "" {
		settings.OutputFileName = c.OutputFile
	}
	if c.set["multi-pass"] {
		settings.MultiPassFilter = c.MultiPass
	}
	if c.set["extra-filtering"] {
		settings.ExtraFiltering = c.ExtraFiltering
	}
}
