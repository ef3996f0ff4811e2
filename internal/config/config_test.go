// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(_ *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"console log format", func(c *Config) { c.Logging.Format = "console" }, false},
		{"zero alias ttl", func(c *Config) { c.Alias.TTL = 0 }, true},
		{"zero rules cache ttl", func(c *Config) { c.Rules.CacheTTL = 0 }, true},
		{"negative family penalty", func(c *Config) { c.Rules.MaxFamilyPenalty = -1 }, true},
		{"zero family penalty disables cap", func(c *Config) { c.Rules.MaxFamilyPenalty = 0 }, false},
		{"weights not summing to one", func(c *Config) { c.Intent.Weights.Tag = 0.9 }, true},
		{"zero top n", func(c *Config) { c.Recommend.DefaultTopN = 0 }, true},
		{"bad audit sink", func(c *Config) { c.Audit.Sink = "kafka" }, true},
		{"badger sink without path", func(c *Config) {
			c.Audit.Sink = "badger"
			c.Audit.Path = ""
		}, true},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }, true},
		{"zero rate limit when disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALIAS_TTL", "30m")
	t.Setenv("AUDIT_SINK", "none")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Alias.TTL != 30*time.Minute {
		t.Errorf("Alias.TTL = %v, want 30m", cfg.Alias.TTL)
	}
	if cfg.Audit.Sink != "none" {
		t.Errorf("Audit.Sink = %q, want none", cfg.Audit.Sink)
	}
}

func TestLoadWithKoanf_FileLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8181
rules:
  file_paths:
    - /etc/cosmerec/rules.json
security:
  cors_origins:
    - https://app.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181 from file", cfg.Server.Port)
	}
	if len(cfg.Rules.FilePaths) != 1 {
		t.Errorf("Rules.FilePaths = %v, want one entry", cfg.Rules.FilePaths)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	// Defaults still apply for everything the file does not set.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadWithKoanf_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9292")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 9292 {
		t.Errorf("Server.Port = %d, want env override 9292", cfg.Server.Port)
	}
}

func TestLoadWithKoanf_CommaSeparatedSlices(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want two entries", cfg.Security.CORSOrigins)
	}
}
