package adapter

import (
	"net/url"
	"strings"
	"time"

	"github.com/maxbolgarin/lang"
)

const (
	DefaultEndpoint   = "https://your-endpoint-here.com/models/chat/completions"
	DefaultAPIVersion = "2024-05-01-preview"
	DefaultModel      = "grok-3"

	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "curatrak/0.1.0 (https://github.com/maxbolgarin/curatrak)"

	apiVersionParam = "api-version"
)

// Config represents configuration of the remote chat completion endpoint
type Config struct {
	APIKey     string        `yaml:"api_key" env:"AZURE_AI_FOUNDRY_API_KEY"`
	Endpoint   string        `yaml:"endpoint" env:"AZURE_AI_FOUNDRY_ENDPOINT"`
	APIVersion string        `yaml:"api_version" env:"AZURE_OPENAI_API_VERSION"`
	Model      string        `yaml:"model" env:"AZURE_AI_FOUNDRY_MODEL"`
	Timeout    time.Duration `yaml:"timeout" env:"AGENT_TIMEOUT"`
	ProxyURL   string        `yaml:"proxy_url" env:"AGENT_PROXY_URL"`
	UserAgent  string        `yaml:"user_agent" env:"AGENT_USER_AGENT"`
}

func (c *Config) PrepareAndValidate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "api_key", Reason: "is required"}
	}

	c.Endpoint = lang.Check(c.Endpoint, DefaultEndpoint)
	c.APIVersion = lang.Check(c.APIVersion, DefaultAPIVersion)
	c.Model = lang.Check(c.Model, DefaultModel)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)
	c.UserAgent = lang.Check(c.UserAgent, defaultUserAgent)

	if _, err := BuildURL(c.Endpoint, c.APIVersion); err != nil {
		return err
	}

	return nil
}

// BuildURL appends the api-version query parameter to the endpoint unless it is already present.
// The rest of the endpoint is kept as written.
func BuildURL(endpoint, apiVersion string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ConfigError{Field: "endpoint", Reason: "must be an absolute URL: " + endpoint}
	}

	if u.Query().Get(apiVersionParam) != "" || apiVersion == "" {
		return endpoint, nil
	}

	base, fragment, hasFragment := strings.Cut(endpoint, "#")
	switch {
	case !strings.Contains(base, "?"):
		base += "?"
	case !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&"):
		base += "&"
	}
	base += apiVersionParam + "=" + url.QueryEscape(apiVersion)
	if hasFragment {
		base += "#" + fragment
	}

	return base, nil
}
