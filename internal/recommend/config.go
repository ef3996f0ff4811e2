// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package recommend

// Config holds recommendation pipeline configuration.
type Config struct {
	// DefaultTopN is the result size when a request does not set top_n.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxConcurrency bounds the number of candidates evaluated in
	// parallel. Zero or negative falls back to 8.
	MaxConcurrency int `koanf:"max_concurrency"`

	// RulesetVersion pins the ruleset version fetched from the store.
	// Empty selects the store's current version.
	RulesetVersion string `koanf:"ruleset_version"`

	// CatalogPath points at a JSON candidate catalog consulted when a
	// request carries no inline candidates. Empty disables the catalog.
	CatalogPath string `koanf:"catalog_path"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTopN:    10,
		MaxConcurrency: 8,
	}
}

func (c Config) concurrency() int {
	if c.MaxConcurrency <= 0 {
		return 8
	}
	return c.MaxConcurrency
}
