// Package config assembles the exporter's configuration from, in order
// of precedence: environment variables (with best-effort .env loading),
// an optional YAML file, and interactive prompts for whatever is still
// missing. The API token is only ever sourced from the environment or a
// prompt, never from the config file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables, matching the original tool.
const (
	EnvSiteURL   = "CONFLUENCE_URL"
	EnvEmail     = "CONFLUENCE_EMAIL"
	EnvToken     = "CONFLUENCE_TOKEN"
	EnvSpaceKey  = "CONFLUENCE_SPACE"
	EnvOutputDir = "OUTPUT_DIR"
)

// DefaultOutputDir is used when no output directory is configured.
const DefaultOutputDir = "./confluence_export"

// Config is everything the exporter needs to run.
type Config struct {
	SiteURL   string `yaml:"site_url"`
	Email     string `yaml:"email"`
	Token     string `yaml:"-"`
	SpaceKey  string `yaml:"space"`
	OutputDir string `yaml:"output_dir"`
}

// ValidationError reports a missing or malformed configuration field.
// It is fatal and raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Prompter supplies interactive fallback values. A nil Prompter turns
// missing required fields into validation errors instead.
type Prompter interface {
	Prompt(label string) (string, error)
	PasswordPrompt(label string) (string, error)
}

// Load builds a Config. file may be empty; prompter may be nil.
func Load(file string, prompter Prompter) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setFromEnv(&cfg.SiteURL, EnvSiteURL)
	setFromEnv(&cfg.Email, EnvEmail)
	setFromEnv(&cfg.Token, EnvToken)
	setFromEnv(&cfg.SpaceKey, EnvSpaceKey)
	setFromEnv(&cfg.OutputDir, EnvOutputDir)

	if prompter != nil {
		if err := cfg.promptMissing(prompter); err != nil {
			return nil, err
		}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) promptMissing(p Prompter) error {
	var err error
	if c.SiteURL == "" {
		if c.SiteURL, err = p.Prompt("Enter your Confluence URL: "); err != nil {
			return err
		}
	}
	if c.Email == "" {
		if c.Email, err = p.Prompt("Enter your Confluence email: "); err != nil {
			return err
		}
	}
	if c.Token == "" {
		if c.Token, err = p.PasswordPrompt("Enter your Confluence API token: "); err != nil {
			return err
		}
	}
	if c.SpaceKey == "" {
		if c.SpaceKey, err = p.Prompt("Enter the Confluence space key: "); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every required field is present and that the
// site URL is absolute with both scheme and host.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return &ValidationError{Field: "site_url", Reason: "required"}
	}
	u, err := url.Parse(c.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:  "site_url",
			Reason: "must be a complete URL (e.g. https://your-domain.atlassian.net)",
		}
	}
	if c.Email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if c.Token == "" {
		return &ValidationError{Field: "token", Reason: "required"}
	}
	if c.SpaceKey == "" {
		return &ValidationError{Field: "space", Reason: "required"}
	}
	return nil
}
