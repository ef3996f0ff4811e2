// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package rulestore provides the rule set and alias-override backends
// for the recommendation pipeline.
//
// The Store interface has three provided implementations that compose as
// decorators: MemoryStore (seeded defaults), FileStore (JSON rule files),
// and the resilience wrappers NewBreakerStore and NewCachedStore.
package rulestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cosmerec/cosmerec/internal/models"
)

// ErrUnavailable marks a rule store failure. Rule evaluation cannot
// proceed without a rule set, so this error is fatal to the request.
var ErrUnavailable = errors.New("rule store unavailable")

// Store supplies safety rules and alias overrides.
type Store interface {
	// ActiveRules returns the rules for the given ruleset version.
	// Empty version selects the store's current version.
	ActiveRules(ctx context.Context, version string) ([]models.Rule, error)

	// AliasOverrides returns the alias override table.
	AliasOverrides(ctx context.Context) (map[string][]string, error)
}

// MemoryStore is an in-memory Store seeded with the default rule set.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	rules     []models.Rule
	overrides map[string][]string
}

// NewMemoryStore creates a store holding the given rules and overrides.
func NewMemoryStore(rules []models.Rule, overrides map[string][]string) *MemoryStore {
	return &MemoryStore{rules: rules, overrides: overrides}
}

// NewDefaultStore creates a memory store seeded with the built-in rules.
func NewDefaultStore() *MemoryStore {
	return NewMemoryStore(DefaultRules(), nil)
}

// ActiveRules implements Store. Version filtering matches rules whose
// RulesetVersion equals the requested version or is empty.
func (s *MemoryStore) ActiveRules(_ context.Context, version string) ([]models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if version == "" || r.RulesetVersion == "" || r.RulesetVersion == version {
			out = append(out, r)
		}
	}
	return out, nil
}

// AliasOverrides implements Store.
func (s *MemoryStore) AliasOverrides(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out, nil
}

// Replace swaps the stored rules and overrides atomically.
func (s *MemoryStore) Replace(rules []models.Rule, overrides map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	s.overrides = overrides
}

// DefaultRules returns the built-in seed rule set covering the
// anticoagulant, retinoid-in-pregnancy, and photosensitivity concerns.
func DefaultRules() []models.Rule {
	return []models.Rule{
		{
			ID:            "ELG_001",
			Type:          models.RuleTypeEligibility,
			Action:        models.ActionExclude,
			Match:         models.MatchCondition,
			MedCode:       "B01AA03",
			IngredientTag: "aha",
			Condition:     models.Eq("leave_on", true),
			Severity:      models.SeverityHigh,
			Confidence:    "high",
			Rationale:     "항응고제 복용 중에는 각질 제거 성분(AHA)의 리브온 사용을 피하세요.",
			CitationURL:   "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC6204211/",
			Active:        true,
		},
		{
			ID:            "ELG_002",
			Type:          models.RuleTypeEligibility,
			Action:        models.ActionExclude,
			Match:         models.MatchCondition,
			IngredientTag: "retinoid",
			Condition:     models.Eq("preg_lact", true),
			Severity:      models.SeverityHigh,
			Confidence:    "high",
			Rationale:     "임신·수유 중에는 레티노이드 성분 사용을 피하세요.",
			CitationURL:   "https://pubmed.ncbi.nlm.nih.gov/21569104/",
			Active:        true,
		},
		{
			ID:            "SCR_001",
			Type:          models.RuleTypeScoring,
			Action:        models.ActionPenalize,
			Match:         models.MatchTag,
			MedCode:       "B01AA03",
			IngredientTag: "bha",
			Weight:        15,
			Severity:      models.SeverityMedium,
			Confidence:    "moderate",
			Rationale:     "항응고제 복용 중 BHA 성분은 자극 위험이 있어 감점됩니다.",
			Active:        true,
		},
		{
			ID:            "SCR_002",
			Type:          models.RuleTypeScoring,
			Action:        models.ActionPenalize,
			Match:         models.MatchCondition,
			MedCode:       "H02AB",
			IngredientTag: "vitamin_c",
			Condition:     models.Eq("day_use", true),
			Weight:        10,
			Severity:      models.SeverityLow,
			Confidence:    "moderate",
			Rationale:     "스테로이드 복용 중 고농도 비타민C의 주간 사용은 감점됩니다.",
			Active:        true,
		},
	}
}

// ValidateRuleset checks a rule set for integrity: unique IDs, known
// enum values, sane weights, and a predicate on every condition rule.
func ValidateRuleset(rules []models.Rule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.ID == "" {
			return fmt.Errorf("rule at index %d has empty id", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		switch r.Type {
		case models.RuleTypeEligibility, models.RuleTypeScoring:
		default:
			return fmt.Errorf("rule %s: unknown rule_type %q", r.ID, r.Type)
		}
		switch r.Action {
		case models.ActionExclude, models.ActionPenalize:
		default:
			return fmt.Errorf("rule %s: unknown action %q", r.ID, r.Action)
		}
		switch r.Match {
		case models.MatchTag, models.MatchCondition:
		default:
			return fmt.Errorf("rule %s: unknown match_type %q", r.ID, r.Match)
		}

		if r.Type == models.RuleTypeEligibility && r.Action != models.ActionExclude {
			return fmt.Errorf("rule %s: eligibility rules must exclude", r.ID)
		}
		if r.Type == models.RuleTypeScoring && r.Action != models.ActionPenalize {
			return fmt.Errorf("rule %s: scoring rules must penalize", r.ID)
		}
		if r.Match == models.MatchCondition && r.Condition == nil {
			return fmt.Errorf("rule %s: condition rule without a predicate", r.ID)
		}
		if r.Weight < 0 || r.Weight > 100 {
			return fmt.Errorf("rule %s: weight %d out of range [0,100]", r.ID, r.Weight)
		}
		if r.MedCode == "" && r.IngredientTag == "" {
			return fmt.Errorf("rule %s: neither med_code nor ingredient_tag set", r.ID)
		}
	}
	return nil
}

// cacheEntry is one cached store result.
type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

// CachedStore decorates a Store with per-operation TTL caching, so the
// backing store is consulted once per TTL window rather than per request.
type CachedStore struct {
	next Store
	ttl  time.Duration

	mu        sync.RWMutex
	rules     map[string]cacheEntry[[]models.Rule]
	overrides *cacheEntry[map[string][]string]
	nowFn     func() time.Time
}

// NewCachedStore wraps next with a TTL cache. A non-positive ttl
// defaults to 5 minutes.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		next:  next,
		ttl:   ttl,
		rules: make(map[string]cacheEntry[[]models.Rule]),
		nowFn: time.Now,
	}
}

// ActiveRules implements Store, serving cached rule sets per version.
// A backing-store failure within the TTL window is never observed.
func (c *CachedStore) ActiveRules(ctx context.Context, version string) ([]models.Rule, error) {
	now := c.nowFn()

	c.mu.RLock()
	entry, ok := c.rules[version]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.value, nil
	}

	rules, err := c.next.ActiveRules(ctx, version)
	if err != nil {
		// Serve the stale entry if one exists; a stale rule set beats
		// no rule set only within reason, so expired entries older
		// than one extra TTL are not reused.
		if ok && now.Before(entry.expires.Add(c.ttl)) {
			return entry.value, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.rules[version] = cacheEntry[[]models.Rule]{value: rules, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return rules, nil
}

// AliasOverrides implements Store with the same caching policy.
func (c *CachedStore) AliasOverrides(ctx context.Context) (map[string][]string, error) {
	now := c.nowFn()

	c.mu.RLock()
	entry := c.overrides
	c.mu.RUnlock()
	if entry != nil && now.Before(entry.expires) {
		return entry.value, nil
	}

	overrides, err := c.next.AliasOverrides(ctx)
	if err != nil {
		if entry != nil && now.Before(entry.expires.Add(c.ttl)) {
			return entry.value, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.overrides = &cacheEntry[map[string][]string]{value: overrides, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return overrides, nil
}
