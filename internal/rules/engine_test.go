// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rules

import (
	"context"
	"testing"
	"time"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/models"
)

func codeSet(codes ...models.MedicationCode) alias.CodeSet {
	set := make(alias.CodeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func warfarinAHARule() models.Rule {
	return models.Rule{
		ID:            "ELG_001",
		Type:          models.RuleTypeEligibility,
		Action:        models.ActionExclude,
		Match:         models.MatchCondition,
		MedCode:       "B01AA03",
		IngredientTag: "aha",
		Condition:     models.Eq("leave_on", true),
		Severity:      models.SeverityHigh,
		Active:        true,
	}
}

func retinoidPregRule() models.Rule {
	return models.Rule{
		ID:            "ELG_002",
		Type:          models.RuleTypeEligibility,
		Action:        models.ActionExclude,
		Match:         models.MatchCondition,
		IngredientTag: "retinoid",
		Condition:     models.Eq("preg_lact", true),
		Severity:      models.SeverityHigh,
		Active:        true,
	}
}

func bhaPenaltyRule(weight int) models.Rule {
	return models.Rule{
		ID:            "SCR_001",
		Type:          models.RuleTypeScoring,
		Action:        models.ActionPenalize,
		Match:         models.MatchTag,
		MedCode:       "B01AA03",
		IngredientTag: "bha",
		Weight:        weight,
		Severity:      models.SeverityMedium,
		Active:        true,
	}
}

func TestEvaluate_WarfarinAHALeaveOnExcluded(t *testing.T) {
	// The expansion of MULTI:ANTICOAG contains B01AA03, so an AHA
	// leave-on product must be excluded for a user declaring the group.
	resolver := alias.NewResolver(nil, time.Hour)
	expanded := resolver.Expand(context.Background(), []models.MedicationCode{"MULTI:ANTICOAG"})

	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Name: "AHA Peel", Tags: []string{"aha"}}
	uc := &models.UseContext{LeaveOn: true}

	v := e.Evaluate("req-1", []models.Rule{warfarinAHARule()}, cand, expanded, uc)

	if !v.Excluded {
		t.Fatal("candidate not excluded")
	}
	if len(v.ExclusionRuleIDs) != 1 || v.ExclusionRuleIDs[0] != "ELG_001" {
		t.Errorf("ExclusionRuleIDs = %v, want [ELG_001]", v.ExclusionRuleIDs)
	}
	if len(v.Hits) != 1 || v.Hits[0].HitType != models.ActionExclude {
		t.Errorf("hits = %+v, want one exclusion hit", v.Hits)
	}
	if v.Hits[0].RequestID != "req-1" || v.Hits[0].ProductID != "p1" {
		t.Errorf("hit not attributed to request/product: %+v", v.Hits[0])
	}
}

func TestEvaluate_RinseOffNotExcluded(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha"}}
	uc := &models.UseContext{LeaveOn: false}

	v := e.Evaluate("req", []models.Rule{warfarinAHARule()}, cand, codeSet("B01AA03"), uc)
	if v.Excluded {
		t.Error("rinse-off product excluded despite leave_on condition")
	}
}

func TestEvaluate_ExclusionMonotonicity(t *testing.T) {
	// Adding medication codes can only add exclusions, never remove them.
	e := NewEngine(DefaultConfig())
	ruleSet := []models.Rule{warfarinAHARule()}
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha"}}
	uc := &models.UseContext{LeaveOn: true}

	small := codeSet("C09AA02")
	if v := e.Evaluate("req", ruleSet, cand, small, uc); v.Excluded {
		t.Fatal("excluded without the triggering medication")
	}

	larger := codeSet("C09AA02", "B01AA03")
	if v := e.Evaluate("req", ruleSet, cand, larger, uc); !v.Excluded {
		t.Error("superset of medications lost the exclusion")
	}
}

func TestEvaluate_CollectsAllExclusionHits(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha", "retinoid"}}
	uc := &models.UseContext{LeaveOn: true, PregnantOrLactating: true}

	ruleSet := []models.Rule{warfarinAHARule(), retinoidPregRule()}
	v := e.Evaluate("req", ruleSet, cand, codeSet("B01AA03"), uc)

	if len(v.ExclusionRuleIDs) != 2 {
		t.Errorf("ExclusionRuleIDs = %v, want both rules collected", v.ExclusionRuleIDs)
	}
}

func TestEvaluate_PenaltyOrderIndependent(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"bha", "vitamin_c"}}
	uc := &models.UseContext{DayUse: true}

	vitCRule := models.Rule{
		ID:            "SCR_002",
		Type:          models.RuleTypeScoring,
		Action:        models.ActionPenalize,
		Match:         models.MatchCondition,
		MedCode:       "H02AB",
		IngredientTag: "vitamin_c",
		Condition:     models.Eq("day_use", true),
		Weight:        10,
		Active:        true,
	}

	forward := []models.Rule{bhaPenaltyRule(15), vitCRule}
	reversed := []models.Rule{vitCRule, bhaPenaltyRule(15)}
	expanded := codeSet("B01AA03", "H02AB04")

	a := e.Evaluate("req", forward, cand, expanded, uc)
	b := e.Evaluate("req", reversed, cand, expanded, uc)

	if a.Penalty != b.Penalty {
		t.Errorf("penalty depends on rule order: %d vs %d", a.Penalty, b.Penalty)
	}
	if a.Penalty != 25 {
		t.Errorf("penalty = %d, want 25", a.Penalty)
	}
	if a.PenaltyHitCount != 2 {
		t.Errorf("PenaltyHitCount = %d, want 2", a.PenaltyHitCount)
	}
}

func TestEvaluate_ExpiredRuleNeverFires(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha"}}
	uc := &models.UseContext{LeaveOn: true}

	expired := warfarinAHARule()
	past := time.Now().Add(-time.Hour)
	expired.ExpiresAt = &past

	v := e.Evaluate("req", []models.Rule{expired}, cand, codeSet("B01AA03"), uc)
	if v.Excluded || len(v.Hits) != 0 {
		t.Errorf("expired rule fired: %+v", v)
	}
}

func TestEvaluate_InactiveRuleNeverFires(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha"}}
	uc := &models.UseContext{LeaveOn: true}

	inactive := warfarinAHARule()
	inactive.Active = false

	v := e.Evaluate("req", []models.Rule{inactive}, cand, codeSet("B01AA03"), uc)
	if v.Excluded || len(v.Hits) != 0 {
		t.Errorf("inactive rule fired: %+v", v)
	}
}

func TestEvaluate_BrokenPredicateSkipsRuleOnly(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha", "bha"}}
	uc := &models.UseContext{LeaveOn: true}

	broken := warfarinAHARule()
	broken.Condition = models.Eq("no_such_attribute", true)

	ruleSet := []models.Rule{broken, bhaPenaltyRule(15)}
	v := e.Evaluate("req", ruleSet, cand, codeSet("B01AA03"), uc)

	if v.Excluded {
		t.Error("broken rule excluded the candidate")
	}
	if v.Penalty != 15 {
		t.Errorf("remaining rules did not apply: penalty = %d, want 15", v.Penalty)
	}
}

func TestEvaluate_SeverityFallbackWeight(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"bha"}}

	rule := bhaPenaltyRule(0)
	rule.Severity = models.SeverityHigh

	v := e.Evaluate("req", []models.Rule{rule}, cand, codeSet("B01AA03"), &models.UseContext{})
	if v.Penalty != 20 {
		t.Errorf("penalty = %d, want severity fallback 20", v.Penalty)
	}
}

func TestEvaluate_FamilyPenaltyCap(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"bha", "aha", "vitamin_c"}}

	// Three anticoagulant-family rules totalling 90 raw penalty.
	mk := func(id, tag string) models.Rule {
		return models.Rule{
			ID: id, Type: models.RuleTypeScoring, Action: models.ActionPenalize,
			Match: models.MatchTag, MedCode: "B01AA03", IngredientTag: tag,
			Weight: 30, Active: true,
		}
	}
	ruleSet := []models.Rule{mk("SCR_A", "bha"), mk("SCR_B", "aha"), mk("SCR_C", "vitamin_c")}

	v := e.Evaluate("req", ruleSet, cand, codeSet("B01AA03"), &models.UseContext{})

	if v.Penalty > 50 {
		t.Errorf("family penalty %d exceeds cap 50", v.Penalty)
	}
	if v.PenaltyHitCount != 3 {
		t.Errorf("PenaltyHitCount = %d, want 3", v.PenaltyHitCount)
	}
	// Hit weights reflect what was actually applied after capping:
	// each 30 scales to 30*50/90 = 16, and the sum equals the penalty.
	total := 0
	for _, h := range v.Hits {
		if h.Weight != 16 {
			t.Errorf("hit %s weight = %d, want capped 16", h.RuleID, h.Weight)
		}
		total += h.Weight
	}
	if total != v.Penalty {
		t.Errorf("hit weights sum %d != penalty %d", total, v.Penalty)
	}
}

func TestEvaluate_CapDisabled(t *testing.T) {
	e := NewEngine(Config{MaxFamilyPenalty: 0})
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"bha", "aha"}}

	ruleSet := []models.Rule{
		{ID: "A", Action: models.ActionPenalize, Match: models.MatchTag, MedCode: "B01AA03", IngredientTag: "bha", Weight: 40, Active: true},
		{ID: "B", Action: models.ActionPenalize, Match: models.MatchTag, MedCode: "B01AA03", IngredientTag: "aha", Weight: 40, Active: true},
	}
	v := e.Evaluate("req", ruleSet, cand, codeSet("B01AA03"), &models.UseContext{})
	if v.Penalty != 80 {
		t.Errorf("penalty = %d, want uncapped 80", v.Penalty)
	}
}

func TestMedCodeMatches_ATCPrefixBothDirections(t *testing.T) {
	tests := []struct {
		name     string
		ruleCode models.MedicationCode
		expanded alias.CodeSet
		want     bool
	}{
		{"exact", "B01AA03", codeSet("B01AA03"), true},
		{"rule is class prefix of user code", "H02AB", codeSet("H02AB04"), true},
		{"user class covers specific rule", "C03AA01", codeSet("C03"), true},
		{"disjoint", "B01AA03", codeSet("C09AA02"), false},
		{"empty set", "B01AA03", codeSet(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := medCodeMatches(tt.ruleCode, tt.expanded); got != tt.want {
				t.Errorf("medCodeMatches(%q) = %v, want %v", tt.ruleCode, got, tt.want)
			}
		})
	}
}

func TestEvaluate_NoAnchorNeverApplies(t *testing.T) {
	e := NewEngine(DefaultConfig())
	cand := &models.Candidate{ProductID: "p1", Tags: []string{"aha"}}

	anchorless := models.Rule{
		ID: "BAD", Action: models.ActionExclude, Match: models.MatchTag, Active: true,
	}
	v := e.Evaluate("req", []models.Rule{anchorless}, cand, codeSet("B01AA03"), &models.UseContext{})
	if len(v.Hits) != 0 {
		t.Errorf("anchorless rule fired: %+v", v.Hits)
	}
}
