// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package rules evaluates safety rules against product candidates.
//
// The engine applies two rule classes: eligibility rules hard-exclude a
// candidate, scoring rules accumulate a penalty. Every exclusion hit is
// collected (no short-circuit) so the audit trail is complete, and
// penalties are capped per drug/ingredient family so stacked rules about
// one concern stay bounded.
package rules

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
)

// Config holds rule engine configuration.
type Config struct {
	// MaxFamilyPenalty caps the summed penalty per rule family.
	// Zero or negative disables capping. Default: 50.
	MaxFamilyPenalty int `koanf:"max_family_penalty"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MaxFamilyPenalty: 50}
}

// severityFallback is the penalty applied by a scoring rule that carries
// no explicit weight.
var severityFallback = map[models.Severity]int{
	models.SeverityHigh:   20,
	models.SeverityMedium: 10,
	models.SeverityLow:    5,
}

// Engine evaluates a rule set against candidates.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
	nowFn  func() time.Time
}

// NewEngine creates a rule engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logging.WithComponent("rules"),
		nowFn:  time.Now,
	}
}

// Evaluate applies every fireable rule to one candidate and returns the
// verdict. expanded is the union set of concrete medication codes from
// alias resolution; uc is the declared use context.
//
// Rules whose predicate fails to evaluate are logged and skipped; the
// remaining rules still apply. Evaluation order does not affect the
// outcome: exclusion is a disjunction and penalties are a capped sum.
func (e *Engine) Evaluate(requestID string, ruleSet []models.Rule, cand *models.Candidate, expanded alias.CodeSet, uc *models.UseContext) models.Verdict {
	now := e.nowFn()
	var verdict models.Verdict
	var penaltyIdx []int
	var penaltyFamilies []string

	for i := range ruleSet {
		rule := &ruleSet[i]
		if !rule.Fireable(now) {
			continue
		}
		if !e.applies(rule, cand, expanded) {
			continue
		}

		if rule.Match == models.MatchCondition {
			ok, err := evalPredicate(rule.Condition, cand, uc)
			if err != nil {
				metrics.RulesSkipped.Inc()
				e.logger.Warn().
					Str("rule_id", rule.ID).
					Err(err).
					Msg("rule evaluation skipped")
				continue
			}
			if !ok {
				continue
			}
		}

		hit := models.RuleHit{
			RequestID: requestID,
			ProductID: cand.ProductID,
			RuleID:    rule.ID,
			HitType:   rule.Action,
			Reason:    hitReason(rule),
			Timestamp: now,
		}

		switch rule.Action {
		case models.ActionExclude:
			verdict.ExclusionRuleIDs = append(verdict.ExclusionRuleIDs, rule.ID)
			verdict.Hits = append(verdict.Hits, hit)
			metrics.RecordRuleHit(string(models.ActionExclude))

		case models.ActionPenalize:
			hit.Weight = penaltyWeight(rule)
			verdict.Hits = append(verdict.Hits, hit)
			penaltyIdx = append(penaltyIdx, len(verdict.Hits)-1)
			penaltyFamilies = append(penaltyFamilies, ruleFamily(rule))
			metrics.RecordRuleHit(string(models.ActionPenalize))

		default:
			metrics.RulesSkipped.Inc()
			e.logger.Warn().
				Str("rule_id", rule.ID).
				Str("action", string(rule.Action)).
				Msg("rule with unknown action skipped")
		}
	}

	verdict.Excluded = len(verdict.ExclusionRuleIDs) > 0
	verdict.PenaltyHitCount = len(penaltyIdx)
	verdict.Penalty = applyFamilyCaps(penaltyFamilies, penaltyIdx, verdict.Hits, e.cfg.MaxFamilyPenalty)
	return verdict
}

// applies checks the rule's tag and medication anchors against the
// candidate. A rule with neither anchor never applies.
func (e *Engine) applies(rule *models.Rule, cand *models.Candidate, expanded alias.CodeSet) bool {
	if rule.IngredientTag == "" && rule.MedCode == "" {
		return false
	}
	if rule.IngredientTag != "" && !cand.HasTag(rule.IngredientTag) {
		return false
	}
	if rule.MedCode != "" && !medCodeMatches(rule.MedCode, expanded) {
		return false
	}
	return true
}

// medCodeMatches reports whether a rule's medication code matches any
// code in the expanded set. ATC codes are hierarchical, so a match in
// either prefix direction counts: rule "H02AB" covers the user's
// "H02AB02", and the user's class-level "C03" covers rule "C03AA01".
func medCodeMatches(ruleCode models.MedicationCode, expanded alias.CodeSet) bool {
	rc := string(ruleCode)
	for c := range expanded {
		cs := string(c)
		if strings.HasPrefix(cs, rc) || strings.HasPrefix(rc, cs) {
			return true
		}
	}
	return false
}

// penaltyWeight returns the rule's explicit weight, falling back to the
// severity-derived default.
func penaltyWeight(rule *models.Rule) int {
	if rule.Weight > 0 {
		return rule.Weight
	}
	if w, ok := severityFallback[rule.Severity]; ok {
		return w
	}
	return severityFallback[models.SeverityLow]
}

// hitReason builds the human-readable reason recorded with a hit.
func hitReason(rule *models.Rule) string {
	if rule.Rationale != "" {
		return rule.Rationale
	}
	var b strings.Builder
	b.WriteString("rule ")
	b.WriteString(rule.ID)
	if rule.IngredientTag != "" {
		b.WriteString(" matched ingredient ")
		b.WriteString(rule.IngredientTag)
	}
	if rule.MedCode != "" {
		b.WriteString(" for medication ")
		b.WriteString(string(rule.MedCode))
	}
	return b.String()
}
