package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Loader handles loading and validation of the feed definitions file
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads and validates the TOML feed definitions file
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration file %s: %w", l.configPath, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse configuration file %s: %w", l.configPath, err)
	}

	if err := l.validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", l.configPath, err)
	}

	slog.Debug("Configuration loaded", "path", l.configPath, "feeds", len(config.Feeds))

	return &config, nil
}

// validate checks every feed definition for well-formedness
func (l *Loader) validate(config *Config) error {
	if len(config.Feeds) == 0 {
		return fmt.Errorf("no feeds defined")
	}

	seen := make(map[string]string, len(config.Feeds))

	for _, feed := range config.Feeds {
		if feed.Title == "" {
			return fmt.Errorf("feed title is required")
		}
		if feed.Filename == "" {
			return fmt.Errorf("feed %q: filename is required", feed.Title)
		}
		if filepath.Base(feed.Filename) != feed.Filename {
			return fmt.Errorf("feed %q: filename %q must not contain path separators", feed.Title, feed.Filename)
		}
		if other, ok := seen[feed.Filename]; ok {
			return fmt.Errorf("feeds %q and %q share output filename %q", other, feed.Title, feed.Filename)
		}
		seen[feed.Filename] = feed.Title

		if err := l.validateRule(&feed.Rule); err != nil {
			return fmt.Errorf("feed %q: %w", feed.Title, err)
		}
	}

	return nil
}

func (l *Loader) validateRule(rule *Rule) error {
	if rule.URL == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(rule.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rule.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https scheme", rule.URL)
	}
	if rule.Item == "" {
		return fmt.Errorf("item selector is required")
	}
	if rule.Heading == "" {
		return fmt.Errorf("heading selector is required")
	}
	if rule.Date != nil && rule.Date.Selector == "" {
		return fmt.Errorf("date selector is required when a date is configured")
	}
	return nil
}
