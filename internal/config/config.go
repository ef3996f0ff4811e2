// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package config defines the application configuration and its layered
// loading: built-in defaults, an optional YAML file, then environment
// variables, with the later layers winning.
package config

import (
	"fmt"
	"time"

	"github.com/cosmerec/cosmerec/internal/intent"
	"github.com/cosmerec/cosmerec/internal/models"
	"github.com/cosmerec/cosmerec/internal/recommend"
	"github.com/cosmerec/cosmerec/internal/rules"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Logging   LoggingConfig    `koanf:"logging"`
	Alias     AliasConfig      `koanf:"alias"`
	Rules     RulesConfig      `koanf:"rules"`
	Intent    intent.Config    `koanf:"intent"`
	Recommend recommend.Config `koanf:"recommend"`
	Audit     AuditConfig      `koanf:"audit"`
	Security  SecurityConfig   `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// AliasConfig holds alias resolver settings.
type AliasConfig struct {
	// TTL is how long the merged alias table stays fresh.
	TTL time.Duration `koanf:"ttl"`

	// WarmInterval is how often the background warmer refreshes the
	// table. Zero disables the warmer.
	WarmInterval time.Duration `koanf:"warm_interval"`
}

// RulesConfig holds rule store and engine settings.
type RulesConfig struct {
	// FilePaths lists JSON rule files loaded at startup. Empty uses the
	// built-in default rule set.
	FilePaths []string `koanf:"file_paths"`

	// CacheTTL is the rule store cache window.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// MaxFamilyPenalty caps the summed penalty per rule family.
	MaxFamilyPenalty int `koanf:"max_family_penalty"`
}

// EngineConfig converts the rules section into the engine's own config.
func (r RulesConfig) EngineConfig() rules.Config {
	return rules.Config{MaxFamilyPenalty: r.MaxFamilyPenalty}
}

// AuditConfig holds audit sink settings.
type AuditConfig struct {
	// Sink selects the audit backend: "memory", "badger", or "none".
	Sink string `koanf:"sink"`

	// Path is the Badger store directory for the badger sink.
	Path string `koanf:"path"`

	// Retention is how long Badger entries are kept.
	Retention time.Duration `koanf:"retention"`

	// MaxHits bounds the memory sink.
	MaxHits int `koanf:"max_hits"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1,65535]", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}

	if c.Alias.TTL <= 0 {
		return fmt.Errorf("alias.ttl must be positive, got %v", c.Alias.TTL)
	}
	if c.Rules.CacheTTL <= 0 {
		return fmt.Errorf("rules.cache_ttl must be positive, got %v", c.Rules.CacheTTL)
	}
	if c.Rules.MaxFamilyPenalty < 0 {
		return fmt.Errorf("rules.max_family_penalty must not be negative, got %d", c.Rules.MaxFamilyPenalty)
	}

	if sum := c.Intent.Weights.Sum(); sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("intent.weights must sum to 1.0, got %.3f", sum)
	}

	if c.Recommend.DefaultTopN <= 0 {
		return fmt.Errorf("recommend.default_top_n must be positive, got %d", c.Recommend.DefaultTopN)
	}

	switch c.Audit.Sink {
	case "memory", "badger", "none":
	default:
		return fmt.Errorf("audit.sink %q must be memory, badger, or none", c.Audit.Sink)
	}
	if c.Audit.Sink == "badger" && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required for the badger sink")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %v", c.Security.RateLimitWindow)
		}
	}

	return nil
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Alias: AliasConfig{
			TTL:          time.Hour,
			WarmInterval: 15 * time.Minute,
		},
		Rules: RulesConfig{
			FilePaths:        nil,
			CacheTTL:         5 * time.Minute,
			MaxFamilyPenalty: 50,
		},
		Intent: intent.Config{
			Weights:            models.DefaultScoringWeights(),
			Thresholds:         intent.DefaultConfig().Thresholds,
			BrandBonusPerMatch: 5,
			BrandBonusCap:      15,
			CategoryBonus:      5,
		},
		Recommend: recommend.DefaultConfig(),
		Audit: AuditConfig{
			Sink:      "memory",
			Path:      "/data/audit",
			Retention: 90 * 24 * time.Hour,
			MaxHits:   10000,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}
