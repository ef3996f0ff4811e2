// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rulestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cosmerec/cosmerec/internal/models"
)

// flakyStore fails on demand and counts calls.
type flakyStore struct {
	mu    sync.Mutex
	fail  bool
	calls int
	rules []models.Rule
}

func (f *flakyStore) ActiveRules(_ context.Context, _ string) ([]models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("backend down")
	}
	return f.rules, nil
}

func (f *flakyStore) AliasOverrides(_ context.Context) (map[string][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("backend down")
	}
	return map[string][]string{"MULTI:X": {"X01"}}, nil
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func TestDefaultRulesAreValid(t *testing.T) {
	rules := DefaultRules()
	if len(rules) == 0 {
		t.Fatal("DefaultRules() is empty")
	}
	if err := ValidateRuleset(rules); err != nil {
		t.Errorf("default ruleset invalid: %v", err)
	}
}

func TestMemoryStore_VersionFilter(t *testing.T) {
	rules := []models.Rule{
		{ID: "A", Type: models.RuleTypeScoring, Action: models.ActionPenalize, Match: models.MatchTag, IngredientTag: "aha", Active: true, RulesetVersion: "v1"},
		{ID: "B", Type: models.RuleTypeScoring, Action: models.ActionPenalize, Match: models.MatchTag, IngredientTag: "bha", Active: true, RulesetVersion: "v2"},
		{ID: "C", Type: models.RuleTypeScoring, Action: models.ActionPenalize, Match: models.MatchTag, IngredientTag: "pha", Active: true},
	}
	s := NewMemoryStore(rules, nil)
	ctx := context.Background()

	all, err := s.ActiveRules(ctx, "")
	if err != nil {
		t.Fatalf("ActiveRules: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unversioned query returned %d rules, want 3", len(all))
	}

	v1, err := s.ActiveRules(ctx, "v1")
	if err != nil {
		t.Fatalf("ActiveRules(v1): %v", err)
	}
	// v1 plus the unversioned rule.
	if len(v1) != 2 {
		t.Errorf("v1 query returned %d rules, want 2", len(v1))
	}
}

func TestValidateRuleset(t *testing.T) {
	valid := models.Rule{
		ID: "OK", Type: models.RuleTypeScoring, Action: models.ActionPenalize,
		Match: models.MatchTag, IngredientTag: "aha", Weight: 10, Active: true,
	}

	tests := []struct {
		name    string
		mutate  func(r *models.Rule)
		wantErr bool
	}{
		{"valid rule", func(_ *models.Rule) {}, false},
		{"empty id", func(r *models.Rule) { r.ID = "" }, true},
		{"bad type", func(r *models.Rule) { r.Type = "vibes" }, true},
		{"bad action", func(r *models.Rule) { r.Action = "delete" }, true},
		{"bad match", func(r *models.Rule) { r.Match = "regex" }, true},
		{"eligibility must exclude", func(r *models.Rule) { r.Type = models.RuleTypeEligibility }, true},
		{"scoring must penalize", func(r *models.Rule) { r.Action = models.ActionExclude }, true},
		{"condition without predicate", func(r *models.Rule) { r.Match = models.MatchCondition }, true},
		{"negative weight", func(r *models.Rule) { r.Weight = -1 }, true},
		{"weight over 100", func(r *models.Rule) { r.Weight = 101 }, true},
		{"no anchor", func(r *models.Rule) { r.IngredientTag = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := ValidateRuleset([]models.Rule{r})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRuleset() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("duplicate ids", func(t *testing.T) {
		if err := ValidateRuleset([]models.Rule{valid, valid}); err == nil {
			t.Error("duplicate rule ids accepted")
		}
	})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	content := `{
		"version": "v1",
		"rules": [
			{
				"rule_id": "FILE_001",
				"rule_type": "scoring",
				"action": "penalize",
				"match_type": "condition",
				"med_code": "H02AB",
				"ingredient_tag": "vitamin_c",
				"condition": {"op": "eq", "attr": "day_use", "value": true},
				"weight": 10,
				"active": true
			}
		],
		"alias_overrides": {"MULTI:HTN": ["C03AA01"]}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path)
	ctx := context.Background()

	rules, err := s.ActiveRules(ctx, "")
	if err != nil {
		t.Fatalf("ActiveRules: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "FILE_001" {
		t.Fatalf("rules = %+v, want FILE_001", rules)
	}
	if rules[0].Condition == nil || rules[0].Condition.Op != models.PredEq {
		t.Errorf("condition not decoded: %+v", rules[0].Condition)
	}

	overrides, err := s.AliasOverrides(ctx)
	if err != nil {
		t.Fatalf("AliasOverrides: %v", err)
	}
	if len(overrides["MULTI:HTN"]) != 1 {
		t.Errorf("overrides = %v", overrides)
	}
}

func TestFileStore_MissingFileIsUnavailable(t *testing.T) {
	s := NewFileStore("/nonexistent/rules.json")
	_, err := s.ActiveRules(context.Background(), "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestCachedStore_ServesWithinTTL(t *testing.T) {
	backend := &flakyStore{rules: DefaultRules()}
	s := NewCachedStore(backend, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.ActiveRules(ctx, ""); err != nil {
			t.Fatalf("ActiveRules: %v", err)
		}
	}

	backend.mu.Lock()
	calls := backend.calls
	backend.mu.Unlock()
	if calls != 1 {
		t.Errorf("backend called %d times within TTL, want 1", calls)
	}
}

func TestCachedStore_ServesStaleOnFailure(t *testing.T) {
	backend := &flakyStore{rules: DefaultRules()}
	s := NewCachedStore(backend, 10*time.Millisecond)
	ctx := context.Background()

	if _, err := s.ActiveRules(ctx, ""); err != nil {
		t.Fatalf("warm-up: %v", err)
	}

	backend.setFail(true)
	// Expire the entry but stay inside the stale-serving window.
	s.mu.Lock()
	entry := s.rules[""]
	entry.expires = s.nowFn().Add(-time.Millisecond)
	s.rules[""] = entry
	s.mu.Unlock()

	rules, err := s.ActiveRules(ctx, "")
	if err != nil {
		t.Fatalf("stale entry not served: %v", err)
	}
	if len(rules) == 0 {
		t.Error("stale entry empty")
	}
}

func TestBreakerStore_WrapsFailuresAsUnavailable(t *testing.T) {
	backend := &flakyStore{fail: true}
	s := NewBreakerStore(backend)
	ctx := context.Background()

	_, err := s.ActiveRules(ctx, "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestBreakerStore_OpensAfterRepeatedFailures(t *testing.T) {
	backend := &flakyStore{fail: true}
	s := NewBreakerStore(backend)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = s.ActiveRules(ctx, "")
	}

	backend.mu.Lock()
	callsWhileFailing := backend.calls
	backend.mu.Unlock()

	// Once the breaker opens, calls fail fast without touching the
	// backend, so it sees fewer calls than were made.
	if callsWhileFailing >= 10 {
		t.Errorf("breaker never opened: backend saw %d calls", callsWhileFailing)
	}

	// And the caller still gets a fatal, well-typed error.
	if _, err := s.ActiveRules(ctx, ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("open-circuit error = %v, want ErrUnavailable", err)
	}
}

func TestBreakerStore_PassesThroughWhenHealthy(t *testing.T) {
	backend := &flakyStore{rules: DefaultRules()}
	s := NewBreakerStore(backend)
	ctx := context.Background()

	rules, err := s.ActiveRules(ctx, "")
	if err != nil {
		t.Fatalf("ActiveRules: %v", err)
	}
	if len(rules) != len(DefaultRules()) {
		t.Errorf("got %d rules, want %d", len(rules), len(DefaultRules()))
	}

	overrides, err := s.AliasOverrides(ctx)
	if err != nil {
		t.Fatalf("AliasOverrides: %v", err)
	}
	if len(overrides) != 1 {
		t.Errorf("overrides = %v", overrides)
	}
}
