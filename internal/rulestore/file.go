// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rulestore

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/cosmerec/cosmerec/internal/models"
)

// ruleFile is the on-disk rule file layout.
type ruleFile struct {
	Version        string              `json:"version"`
	Rules          []models.Rule       `json:"rules"`
	AliasOverrides map[string][]string `json:"alias_overrides,omitempty"`
}

// FileStore loads rules and alias overrides from JSON files on every
// call, so edits to the files are picked up without a restart. Wrap it
// in a CachedStore to bound the file I/O.
type FileStore struct {
	paths []string
}

// NewFileStore creates a store reading the given rule files. Multiple
// files (e.g. eligibility and scoring rules kept separately) are
// concatenated in path order.
func NewFileStore(paths ...string) *FileStore {
	return &FileStore{paths: paths}
}

// ActiveRules implements Store.
func (s *FileStore) ActiveRules(_ context.Context, version string) ([]models.Rule, error) {
	var all []models.Rule
	for _, path := range s.paths {
		rf, err := s.load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if version != "" && rf.Version != "" && rf.Version != version {
			continue
		}
		all = append(all, rf.Rules...)
	}
	if err := ValidateRuleset(all); err != nil {
		return nil, fmt.Errorf("%w: invalid ruleset: %v", ErrUnavailable, err)
	}
	return all, nil
}

// AliasOverrides implements Store, merging overrides across files in
// path order (later files win per alias).
func (s *FileStore) AliasOverrides(_ context.Context) (map[string][]string, error) {
	merged := make(map[string][]string)
	for _, path := range s.paths {
		rf, err := s.load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for k, v := range rf.AliasOverrides {
			merged[k] = v
		}
	}
	return merged, nil
}

// load reads and decodes one rule file.
func (s *FileStore) load(path string) (*ruleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rf ruleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &rf, nil
}
