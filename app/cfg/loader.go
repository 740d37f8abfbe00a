package cfg

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Paths
	ConfigPath string `long:"config" env:"RSSPLS_CONFIG" default:"feeds.toml" description:"Path to the feed definitions file"`
	OutputDir  string `long:"output" env:"RSSPLS_OUTPUT" description:"Directory to write generated feeds to (overrides the config file)"`
	CacheDB    string `long:"cache-db" env:"RSSPLS_CACHE_DB" default:"rsspls-cache.db" description:"Path to the HTTP cache database"`

	// Processing configuration
	WorkerCount     int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of feeds processed concurrently"`
	RequestTimeout  int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"HTTP request timeout in seconds"`
	RefreshInterval int `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"3600" description:"Regeneration interval in seconds (serve mode)"`

	// Serve mode
	Serve bool   `long:"serve" env:"RSSPLS_SERVE" description:"Keep running and serve generated feeds over HTTP"`
	Port  string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"RSSPLS_USER_AGENT" default:"rsspls/1.0" description:"Default user agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigPath:      raw.ConfigPath,
		OutputDir:       raw.OutputDir,
		CacheDB:         raw.CacheDB,
		WorkerCount:     raw.WorkerCount,
		RequestTimeout:  raw.RequestTimeout,
		RefreshInterval: raw.RefreshInterval,
		Serve:           raw.Serve,
		Port:            raw.Port,
		UserAgent:       raw.UserAgent,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
