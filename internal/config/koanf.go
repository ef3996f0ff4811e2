// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cosmerec/config.yaml",
	"/etc/cosmerec/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches the env override and then the default paths,
// returning the first file that exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists the config paths parsed as comma-separated
// slices when set from the environment.
var sliceConfigPaths = []string{
	"rules.file_paths",
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for
// the known slice fields. YAML-provided slices are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables are skipped so random environment variables never
// pollute the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - ALIAS_TTL -> alias.ttl
//   - RULES_FILE_PATHS -> rules.file_paths
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Alias resolver mappings
		"alias_ttl":           "alias.ttl",
		"alias_warm_interval": "alias.warm_interval",

		// Rule store and engine mappings
		"rules_file_paths":         "rules.file_paths",
		"rules_cache_ttl":          "rules.cache_ttl",
		"rules_max_family_penalty": "rules.max_family_penalty",

		// Intent mappings
		"intent_weight_tag":       "intent.weights.tag",
		"intent_weight_name":      "intent.weights.name",
		"intent_weight_category":  "intent.weights.category",
		"intent_weight_semantic":  "intent.weights.semantic",
		"intent_threshold_high":   "intent.thresholds.high",
		"intent_threshold_medium": "intent.thresholds.medium",
		"intent_threshold_low":    "intent.thresholds.low",
		"intent_brand_bonus":      "intent.brand_bonus_per_match",
		"intent_brand_bonus_cap":  "intent.brand_bonus_cap",
		"intent_category_bonus":   "intent.category_bonus",

		// Recommendation pipeline mappings
		"recommend_default_top_n":   "recommend.default_top_n",
		"recommend_concurrency":     "recommend.max_concurrency",
		"recommend_ruleset_version": "recommend.ruleset_version",
		"recommend_catalog_path":    "recommend.catalog_path",

		// Audit mappings
		"audit_sink":      "audit.sink",
		"audit_path":      "audit.path",
		"audit_retention": "audit.retention",
		"audit_max_hits":  "audit.max_hits",

		// Security mappings
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
