package tracker

// Config represents workflow tracking configuration
type Config struct {
	// Enabled switches event emission, nil means enabled.
	// The environment override is applied by the config package.
	Enabled *bool `yaml:"enabled"`
	// Model tags every event, it is the default model of the wrapped client
	Model string `yaml:"-"`
}

// IsEnabled reports whether events should be emitted, tracking is on unless disabled explicitly.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Enable returns a value for Config.Enabled.
func Enable(v bool) *bool {
	return &v
}
