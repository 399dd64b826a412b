package sink

import (
	"time"

	"github.com/maxbolgarin/lang"
)

const (
	DefaultLogFile = "curatrak_workflows.log"

	DefaultMaxBackups  = 3
	defaultHTTPTimeout = 10 * time.Second
	eventsPath         = "/api/workflows/events"
)

// FileConfig configures the local append-only event log
type FileConfig struct {
	Path string `yaml:"log_file" env:"CURATRAK_LOG_FILE"`
	// MaxSizeBytes enables size based rotation when positive
	MaxSizeBytes int64 `yaml:"max_size_bytes" env:"CURATRAK_MAX_SIZE_BYTES"`
	MaxBackups   int   `yaml:"max_backups" env:"CURATRAK_MAX_BACKUPS"`
}

func (c *FileConfig) prepare() {
	c.Path = lang.Check(c.Path, DefaultLogFile)
	c.MaxBackups = lang.Check(c.MaxBackups, DefaultMaxBackups)
}

// HTTPConfig configures the remote workflow tracking API
type HTTPConfig struct {
	URL     string        `yaml:"url" env:"CURATRAK_URL"`
	APIKey  string        `yaml:"api_key" env:"CURATRAK_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"CURATRAK_TIMEOUT"`
}

// Type selects where workflow events are written
type Type string

const (
	TypeFile Type = "file"
	TypeHTTP Type = "http"
	TypeBoth Type = "both"
)

// Config represents event sink configuration
type Config struct {
	Type Type       `yaml:"type" env:"CURATRAK_SINK"`
	File FileConfig `yaml:"file"`
	HTTP HTTPConfig `yaml:"http"`
}
