// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rules

import (
	"strings"

	"github.com/cosmerec/cosmerec/internal/models"
)

// ruleFamily assigns a rule to a drug or ingredient family for penalty
// capping. Several rules about the same underlying concern (e.g. three
// anticoagulant rules) should not stack their penalties without bound.
func ruleFamily(r *models.Rule) string {
	med := string(r.MedCode)
	switch {
	case strings.HasPrefix(med, "B01"):
		return "anticoagulant"
	case strings.HasPrefix(med, "H02"):
		return "steroid"
	case strings.HasPrefix(med, models.GroupAliasPrefix):
		return strings.ToLower(strings.TrimPrefix(med, models.GroupAliasPrefix))
	}

	switch r.IngredientTag {
	case "aha", "bha", "pha":
		return "exfoliant"
	case "retinoid", "retinol":
		return "retinoid"
	case "vitamin_c":
		return "vitamin_c"
	}
	if r.IngredientTag != "" {
		return "ingredient_" + r.IngredientTag
	}
	if med != "" {
		return "med_" + med
	}
	return "general"
}

// applyFamilyCaps caps the summed penalty per family at maxPerFamily,
// scaling each member hit's weight down proportionally when the cap is
// hit. Flooring the scaled weights keeps every family at or under the
// cap. Returns the total penalty after capping.
//
// families and indices are parallel slices: families[i] is the family of
// the penalize hit at hits[indices[i]]. Hit weights are mutated in place
// so the audit trail records the weight actually applied, and the total
// always equals the sum of the recorded weights.
func applyFamilyCaps(families []string, indices []int, hits []models.RuleHit, maxPerFamily int) int {
	total := 0
	if maxPerFamily <= 0 {
		for _, idx := range indices {
			total += hits[idx].Weight
		}
		return total
	}

	sums := make(map[string]int)
	for i, idx := range indices {
		sums[families[i]] += hits[idx].Weight
	}

	for i, idx := range indices {
		sum := sums[families[i]]
		if sum > maxPerFamily {
			hits[idx].Weight = hits[idx].Weight * maxPerFamily / sum
		}
		total += hits[idx].Weight
	}
	return total
}
