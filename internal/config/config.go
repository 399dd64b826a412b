package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/monitor"
	"github.com/maxbolgarin/curatrak/internal/server"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/curatrak/internal/tracker"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

// Legacy Azure OpenAI variables used when the AI Foundry ones are not set
const (
	legacyAPIKeyEnv     = "AZURE_OPENAI_API_KEY"
	legacyDeploymentEnv = "AZURE_OPENAI_DEPLOYMENT"
)

// Config represents the main application configuration
type Config struct {
	Agent    adapter.Config `yaml:"agent"`
	Tracking tracker.Config `yaml:"tracking"`
	Sink     sink.Config    `yaml:"sink"`
	Server   server.Config  `yaml:"server"`
	Monitor  monitor.Config `yaml:"monitor"`

	Debug bool `yaml:"debug" env:"CURATRAK_DEBUG"`

	// TrackingEnabled overrides tracking.enabled when set in the environment
	TrackingEnabled string `yaml:"-" env:"CURATRAK_ENABLED"`
}

// Load reads configuration from the YAML file at path, or from the environment
// only when path is empty. Environment variables override the file.
func Load(path string) (Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, errm.Wrap(err, "failed to read config")
	}

	if err := cfg.applyOverrides(); err != nil {
		return Config{}, err
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SetDefaults fills values shared between sections and the legacy fallbacks.
func (c *Config) SetDefaults() {
	c.Agent.APIKey = lang.Check(c.Agent.APIKey, os.Getenv(legacyAPIKeyEnv))
	c.Agent.Model = lang.Check(lang.Check(c.Agent.Model, os.Getenv(legacyDeploymentEnv)), adapter.DefaultModel)
	c.Tracking.Model = lang.Check(c.Tracking.Model, c.Agent.Model)
	if c.Tracking.Enabled == nil {
		c.Tracking.Enabled = tracker.Enable(true)
	}

	c.Sink.Type = lang.Check(c.Sink.Type, sink.TypeFile)
	c.Sink.File.Path = lang.Check(c.Sink.File.Path, sink.DefaultLogFile)
	c.Sink.File.MaxBackups = lang.Check(c.Sink.File.MaxBackups, sink.DefaultMaxBackups)

	// the monitor reads what the file sink writes
	c.Monitor.LogFile = lang.Check(c.Monitor.LogFile, c.Sink.File.Path)
	c.Monitor.MaxBackups = lang.Check(c.Monitor.MaxBackups, c.Sink.File.MaxBackups)
}

func (c *Config) applyOverrides() error {
	if c.TrackingEnabled == "" {
		return nil
	}
	enabled, err := strconv.ParseBool(c.TrackingEnabled)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTrackingEnabled, c.TrackingEnabled)
	}
	c.Tracking.Enabled = tracker.Enable(enabled)
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Sink.Type {
	case sink.TypeFile:
	case sink.TypeHTTP, sink.TypeBoth:
		if c.Sink.HTTP.URL == "" {
			return ErrMissingTrackingURL
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSinkType, c.Sink.Type)
	}
	if c.Sink.File.MaxSizeBytes < 0 {
		return ErrInvalidMaxSize
	}
	if c.Monitor.Interval < 0 {
		return ErrInvalidInterval
	}
	return nil
}

// Profile is the client description an OpenAI-compatible host expects
type Profile struct {
	Model           string `json:"model"`
	APIKey          string `json:"api_key"`
	APIBase         string `json:"api_base"`
	APIVersion      string `json:"api_version"`
	Azure           bool   `json:"azure"`
	CuratrakEnabled bool   `json:"curatrak_enabled"`
}

const redacted = "***"

// Profile returns the client description with the API key redacted.
func (c Config) Profile() Profile {
	return Profile{
		Model:           lang.Check(c.Agent.Model, adapter.DefaultModel),
		APIKey:          lang.If(c.Agent.APIKey != "", redacted, ""),
		APIBase:         stripQuery(lang.Check(c.Agent.Endpoint, adapter.DefaultEndpoint)),
		APIVersion:      lang.Check(c.Agent.APIVersion, adapter.DefaultAPIVersion),
		Azure:           true,
		CuratrakEnabled: c.Tracking.IsEnabled(),
	}
}

func stripQuery(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
