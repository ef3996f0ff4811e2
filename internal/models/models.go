// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package models defines the shared domain types for the recommendation
// pipeline: medication codes, safety rules, rule hits, scoring weights,
// and product candidates.
package models

import (
	"strings"
	"time"
)

// GroupAliasPrefix marks a medication code as a group alias that expands
// to multiple concrete ATC codes or state markers.
const GroupAliasPrefix = "MULTI:"

// MedicationCode is an ATC code (e.g. "B01AA03"), a state marker
// (e.g. "PREGNANCY"), or a group alias (e.g. "MULTI:ANTICOAG").
type MedicationCode string

// IsGroupAlias reports whether the code is a group alias.
// This is a pure syntactic check; it does not consult the alias table.
func (c MedicationCode) IsGroupAlias() bool {
	return strings.HasPrefix(string(c), GroupAliasPrefix)
}

// RuleType distinguishes eligibility rules (hard gates) from scoring
// rules (soft penalties).
type RuleType string

// Rule types.
const (
	RuleTypeEligibility RuleType = "eligibility"
	RuleTypeScoring     RuleType = "scoring"
)

// RuleAction is the effect a firing rule has on a candidate.
type RuleAction string

// Rule actions.
const (
	ActionExclude  RuleAction = "exclude"
	ActionPenalize RuleAction = "penalize"
)

// MatchType selects how a rule is matched against a candidate.
type MatchType string

// Match types. Tag rules fire on ingredient-tag (and optional medication)
// membership alone; condition rules additionally gate on a predicate over
// the use context.
const (
	MatchTag       MatchType = "tag"
	MatchCondition MatchType = "condition"
)

// Severity is the clinical severity of a rule, used as the penalty
// fallback when a scoring rule carries no explicit weight.
type Severity string

// Severities.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rule is a single safety rule linking a medication (or medication group)
// and/or an ingredient tag to an exclusion or penalty.
type Rule struct {
	// ID uniquely identifies the rule (e.g. "ELG_001", "SCR_002").
	ID string `json:"rule_id"`

	// Type is eligibility or scoring.
	Type RuleType `json:"rule_type"`

	// Action is exclude or penalize. Eligibility rules exclude,
	// scoring rules penalize.
	Action RuleAction `json:"action"`

	// Match is tag or condition.
	Match MatchType `json:"match_type"`

	// MedCode is the medication code (possibly an ATC prefix such as
	// "H02AB") this rule applies to. Empty means the rule applies
	// regardless of medications.
	MedCode MedicationCode `json:"med_code,omitempty"`

	// IngredientTag is the normalized ingredient tag (e.g. "aha",
	// "retinoid") the rule applies to. Empty means any candidate.
	IngredientTag string `json:"ingredient_tag,omitempty"`

	// Condition is the predicate evaluated against the use context for
	// condition-matched rules. Nil for tag rules.
	Condition *Predicate `json:"condition,omitempty"`

	// Weight is the penalty applied by a scoring rule. Zero means fall
	// back to the severity-derived default.
	Weight int `json:"weight,omitempty"`

	// Severity drives the penalty fallback and audit reporting.
	Severity Severity `json:"severity,omitempty"`

	// Confidence is the evidence confidence: high, moderate, or low.
	Confidence string `json:"confidence,omitempty"`

	// Rationale is the human-readable justification shown to users.
	Rationale string `json:"rationale_ko,omitempty"`

	// CitationURL links to the supporting evidence.
	CitationURL string `json:"citation_url,omitempty"`

	// Active gates the rule. Inactive rules never fire.
	Active bool `json:"active"`

	// ExpiresAt, when set, deactivates the rule after that instant.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// RulesetVersion tags the rule set this rule belongs to.
	RulesetVersion string `json:"ruleset_version,omitempty"`
}

// Expired reports whether the rule has expired relative to now.
func (r *Rule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Fireable reports whether the rule may fire at all: active and not expired.
func (r *Rule) Fireable(now time.Time) bool {
	return r.Active && !r.Expired(now)
}

// RuleHit is the append-only audit record of a single rule firing against
// a single candidate during one request.
type RuleHit struct {
	RequestID string     `json:"request_id"`
	ProductID string     `json:"product_id"`
	RuleID    string     `json:"rule_id"`
	HitType   RuleAction `json:"hit_type"`
	Weight    int        `json:"weight"`
	Reason    string     `json:"reason"`
	Timestamp time.Time  `json:"timestamp"`
}

// Candidate is a cosmetic product under evaluation. Tags are normalized
// (lowercased, trimmed) ingredient and property tags.
type Candidate struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Brand     string   `json:"brand"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
}

// NormalizedTags returns the candidate's tags lowercased and trimmed,
// with empty entries dropped.
func (c *Candidate) NormalizedTags() []string {
	out := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether the candidate carries the given normalized tag.
func (c *Candidate) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range c.Tags {
		if strings.ToLower(strings.TrimSpace(t)) == tag {
			return true
		}
	}
	return false
}

// UseContext describes how a product is intended to be used. Condition
// rules evaluate predicates against these attributes.
type UseContext struct {
	// LeaveOn is true for products left on the skin (creams, serums)
	// as opposed to rinse-off products (cleansers).
	LeaveOn bool `json:"leave_on"`

	// DayUse is true when the product is applied during daytime.
	DayUse bool `json:"day_use"`

	// Face is true when the product is applied to the face.
	Face bool `json:"face"`

	// LargeArea hints that the product covers a large body area.
	LargeArea bool `json:"large_area_hint"`

	// PregnantOrLactating is true when the user declared pregnancy or
	// lactation status.
	PregnantOrLactating bool `json:"preg_lact"`

	// Numeric holds optional named numeric attributes (e.g. ingredient
	// concentrations) referenced by comparison predicates.
	Numeric map[string]float64 `json:"numeric,omitempty"`
}

// Attr resolves a named attribute for predicate evaluation. Boolean
// attributes use the canonical names leave_on, day_use, face,
// large_area_hint and preg_lact; anything else is looked up in Numeric.
func (u *UseContext) Attr(name string) (any, bool) {
	switch name {
	case "leave_on":
		return u.LeaveOn, true
	case "day_use":
		return u.DayUse, true
	case "face":
		return u.Face, true
	case "large_area_hint":
		return u.LargeArea, true
	case "preg_lact":
		return u.PregnantOrLactating, true
	}
	if u.Numeric != nil {
		if v, ok := u.Numeric[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// ScoringWeights blends the four intent sub-scores into the raw intent
// score. The weights must sum to 1.0.
type ScoringWeights struct {
	Tag      float64 `json:"tag" koanf:"tag"`
	Name     float64 `json:"name" koanf:"name"`
	Category float64 `json:"category" koanf:"category"`
	Semantic float64 `json:"semantic" koanf:"semantic"`
}

// DefaultScoringWeights returns the standard weight distribution.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Tag:      0.40,
		Name:     0.30,
		Category: 0.15,
		Semantic: 0.15,
	}
}

// Sum returns the total of all weights. A valid configuration sums to 1.0.
func (w ScoringWeights) Sum() float64 {
	return w.Tag + w.Name + w.Category + w.Semantic
}

// Verdict is the outcome of evaluating all rules against one candidate.
type Verdict struct {
	// Excluded is true when at least one exclusion rule fired.
	Excluded bool `json:"excluded"`

	// ExclusionRuleIDs lists every exclusion rule that fired. All
	// exclusion hits are collected so audit records are complete even
	// when the first hit already seals the outcome.
	ExclusionRuleIDs []string `json:"exclusion_rule_ids,omitempty"`

	// Penalty is the total score penalty from scoring rules, after
	// same-family capping. Meaningless when Excluded is true.
	Penalty int `json:"penalty"`

	// PenaltyHitCount is the number of penalizing rules that fired.
	PenaltyHitCount int `json:"penalty_hit_count"`

	// Hits holds every rule hit (exclusions and penalties) for auditing.
	Hits []RuleHit `json:"hits,omitempty"`
}
