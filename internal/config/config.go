// Package config defines BlankTrace's runtime configuration schema and
// loads it from YAML, matching the shape documented in spec §3/§6.
package config

import (
	"errors"
	"fmt"
	"regexp"
)

// RotationMode controls when the fingerprint rewriter refreshes the
// advertised User-Agent / Accept-Language pair.
type RotationMode string

const (
	RotationEveryRequest RotationMode = "every_request"
	RotationInterval     RotationMode = "interval"
	RotationLaunch       RotationMode = "launch"
)

// FingerprintPolicy controls header rewriting for outbound requests.
type FingerprintPolicy struct {
	RotationMode            RotationMode `yaml:"rotation_mode"`
	RotationIntervalSeconds int          `yaml:"rotation_interval_seconds"`
	RandomizeUserAgent      bool         `yaml:"randomize_user_agent"`
	RandomizeAcceptLanguage bool         `yaml:"randomize_accept_language"`
	StripReferer            bool         `yaml:"strip_referer"`
}

// CookiePolicy controls cookie stripping in both directions.
type CookiePolicy struct {
	BlockAll          bool     `yaml:"block_all"`
	LogAttempts       bool     `yaml:"log_attempts"`
	AutoBlockTrackers bool     `yaml:"auto_block_trackers"`
	AllowList         []string `yaml:"allow_list"`
	BlockList         []string `yaml:"block_list"`
}

// BlockingPolicy controls tracker-domain blocking.
type BlockingPolicy struct {
	AutoBlock          bool     `yaml:"auto_block"`
	AutoBlockThreshold uint64   `yaml:"auto_block_threshold"`
	BlockList          []string `yaml:"block_list"`
	BlockPatterns      []string `yaml:"block_patterns"`

	// CompiledPatterns is populated by Validate and is not part of the YAML
	// schema; it is what internal/rewrite actually consults.
	CompiledPatterns []*regexp.Regexp `yaml:"-"`
}

// CleanupPolicy controls the retention-purge scheduler.
type CleanupPolicy struct {
	Enabled         bool `yaml:"enabled"`
	RetentionDays   int  `yaml:"retention_days"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// Config is the fully-resolved runtime configuration for the proxy.
type Config struct {
	ListenPort int    `yaml:"listen_port"`
	DBPath     string `yaml:"db_path"`
	CACertPath string `yaml:"ca_cert_path"`
	CAKeyPath  string `yaml:"ca_key_path"`

	Fingerprint FingerprintPolicy `yaml:"fingerprint"`
	Cookies     CookiePolicy      `yaml:"cookies"`
	Blocking    BlockingPolicy    `yaml:"blocking"`
	Cleanup     CleanupPolicy     `yaml:"cleanup"`
}

// Default returns the documented defaults from spec §3/§6.
func Default() Config {
	return Config{
		ListenPort: 8080,
		DBPath:     "blanktrace.db",
		CACertPath: "ca_cert.pem",
		CAKeyPath:  "ca_key.pem",
		Fingerprint: FingerprintPolicy{
			RotationMode:            RotationLaunch,
			RotationIntervalSeconds: 3600,
			RandomizeUserAgent:      true,
			RandomizeAcceptLanguage: true,
			StripReferer:            true,
		},
		Cookies: CookiePolicy{
			BlockAll:          false,
			LogAttempts:       true,
			AutoBlockTrackers: true,
		},
		Blocking: BlockingPolicy{
			AutoBlock:          true,
			AutoBlockThreshold: 25,
		},
		Cleanup: CleanupPolicy{
			Enabled:         true,
			RetentionDays:   30,
			IntervalSeconds: 3600,
		},
	}
}

// Validate checks internal consistency and compiles block_patterns. A
// pattern that fails to compile is a fatal configuration error per spec §4.5.
func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port out of range: %d", c.ListenPort)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.CACertPath == "" || c.CAKeyPath == "" {
		return errors.New("ca_cert_path and ca_key_path must both be set")
	}

	switch c.Fingerprint.RotationMode {
	case RotationEveryRequest, RotationInterval, RotationLaunch:
	case "":
		c.Fingerprint.RotationMode = RotationLaunch
	default:
		return fmt.Errorf("unknown fingerprint rotation_mode: %q", c.Fingerprint.RotationMode)
	}
	if c.Fingerprint.RotationMode == RotationInterval && c.Fingerprint.RotationIntervalSeconds <= 0 {
		return errors.New("rotation_interval_seconds must be positive when rotation_mode is interval")
	}

	if c.Blocking.AutoBlock && c.Blocking.AutoBlockThreshold == 0 {
		return errors.New("auto_block_threshold must be positive when auto_block is enabled")
	}

	compiled := make([]*regexp.Regexp, 0, len(c.Blocking.BlockPatterns))
	for _, pattern := range c.Blocking.BlockPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid block pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	c.Blocking.CompiledPatterns = compiled

	if c.Cleanup.Enabled && c.Cleanup.IntervalSeconds <= 0 {
		return errors.New("cleanup.interval_seconds must be positive when cleanup is enabled")
	}
	if c.Cleanup.Enabled && c.Cleanup.RetentionDays <= 0 {
		return errors.New("cleanup.retention_days must be positive when cleanup is enabled")
	}

	return nil
}
