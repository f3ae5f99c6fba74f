// Package config loads gateway startup configuration from command-line
// flags, optionally overlaid with a YAML file, the same two-layer scheme
// the teacher's own config package uses (stdlib flag.FlagSet plus
// gopkg.in/yaml.v2, with the YAML file taking precedence over flag
// defaults but not over flags explicitly passed on the command line).
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds every knob cmd/gatewayd exposes.
type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	Address         string        `yaml:"address"`
	MetricsListener string        `yaml:"metrics-listener"`
	MetricsPrefix   string        `yaml:"metrics-prefix"`
	DebugGCMetrics  bool          `yaml:"debug-gc-metrics"`
	RuntimeMetrics  bool          `yaml:"runtime-metrics"`

	AccessLogDisabled    bool `yaml:"access-log-disabled"`
	AccessLogJSONEnabled bool `yaml:"access-log-json"`
	ApplicationLogJSON   bool `yaml:"application-log-json"`

	PreDirectory    string `yaml:"pre-directory"`
	RouteDirectory  string `yaml:"route-directory"`
	PostDirectory   string `yaml:"post-directory"`
	ErrorDirectory  string `yaml:"error-directory"`
	ScriptSuffix    string `yaml:"script-suffix"`

	PollInterval time.Duration `yaml:"poll-interval"`

	HealthCheckPath string `yaml:"healthcheck-path"`

	ReadTimeout  time.Duration `yaml:"read-timeout"`
	WriteTimeout time.Duration `yaml:"write-timeout"`
}

// New builds a Config with its FlagSet populated with defaults, mirroring
// the teacher's config.NewConfig.
func New() *Config {
	c := &Config{}

	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.ConfigFile, "config-file", "", "if provided, this YAML file overrides flag defaults; flags given on the command line still win")

	fs.StringVar(&c.Address, "address", ":9090", "network address the gateway listens on")
	fs.StringVar(&c.MetricsListener, "metrics-listener", ":9911", "network address serving /metrics; empty disables it")
	fs.StringVar(&c.MetricsPrefix, "metrics-prefix", "gatewayd.", "not applied: exported metric names always start with \"gatewayd.\"")
	fs.BoolVar(&c.DebugGCMetrics, "debug-gc-metrics", false, "collect GC pause metrics in addition to filter/request metrics")
	fs.BoolVar(&c.RuntimeMetrics, "runtime-metrics", false, "collect Go runtime memory metrics in addition to filter/request metrics")

	fs.BoolVar(&c.AccessLogDisabled, "access-log-disabled", false, "disable the access log")
	fs.BoolVar(&c.AccessLogJSONEnabled, "access-log-json", false, "emit access log entries as JSON lines instead of combined log format")
	fs.BoolVar(&c.ApplicationLogJSON, "application-log-json", false, "emit application log entries as JSON")

	fs.StringVar(&c.PreDirectory, "pre-directory", "", "directory of PRE-kind filter scripts")
	fs.StringVar(&c.RouteDirectory, "route-directory", "", "directory of ROUTE-kind filter scripts")
	fs.StringVar(&c.PostDirectory, "post-directory", "", "directory of POST-kind filter scripts")
	fs.StringVar(&c.ErrorDirectory, "error-directory", "", "directory of ERROR-kind filter scripts")
	fs.StringVar(&c.ScriptSuffix, "script-suffix", ".lua", "file suffix a filter script must have to be picked up")

	fs.DurationVar(&c.PollInterval, "poll-interval", 5*time.Second, "how often filter directories are rescanned for changes")

	fs.StringVar(&c.HealthCheckPath, "healthcheck-path", "/healthcheck", "request path answered directly by the bundled healthcheck filter")

	fs.DurationVar(&c.ReadTimeout, "read-timeout", 30*time.Second, "net/http server ReadTimeout")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", 60*time.Second, "net/http server WriteTimeout")

	c.Flags = fs
	return c
}

// Parse parses os.Args[1:] into c, overlaying a YAML config file's values
// when -config-file is given, then re-parsing the command line so that
// explicit flags still win over the file.
func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[1:])
}

func (c *Config) ParseArgs(args []string) error {
	if err := c.Flags.Parse(args); err != nil {
		return err
	}
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %v", c.Flags.Args())
	}

	if c.ConfigFile == "" {
		return nil
	}

	yamlBytes, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}
	if err := yaml.Unmarshal(yamlBytes, c); err != nil {
		return fmt.Errorf("unmarshalling config file: %w", err)
	}

	return c.Flags.Parse(args)
}
