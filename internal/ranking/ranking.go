// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package ranking orders admitted candidates deterministically.
package ranking

import (
	"sort"

	"github.com/cosmerec/cosmerec/internal/models"
)

// Item is one admitted candidate with its scores.
type Item struct {
	Candidate models.Candidate `json:"candidate"`

	// FinalScore is the intent score minus the rule penalty, floored
	// at zero.
	FinalScore float64 `json:"final_score"`

	// IntentScore is the raw intent match score before penalties.
	IntentScore float64 `json:"intent_score"`

	// Penalty is the total rule penalty applied.
	Penalty int `json:"penalty"`

	// PenaltyHits is the number of penalizing rules that fired.
	PenaltyHits int `json:"penalty_hits"`

	// Band is the confidence band of the intent score.
	Band string `json:"band"`

	// Hits holds the rule hits recorded for this candidate.
	Hits []models.RuleHit `json:"hits,omitempty"`
}

// FinalScore computes the final score from an intent score and penalty,
// floored at zero.
func FinalScore(intentScore float64, penalty int) float64 {
	final := intentScore - float64(penalty)
	if final < 0 {
		return 0
	}
	return final
}

// Rank sorts items deterministically and truncates to topN.
//
// Order: final score descending, then raw intent score descending, then
// fewer penalty hits first. The sort is stable, so items equal on all
// three keys keep their candidate-fetch order. topN <= 0 returns all
// items.
func Rank(items []Item, topN int) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.IntentScore != b.IntentScore {
			return a.IntentScore > b.IntentScore
		}
		return a.PenaltyHits < b.PenaltyHits
	})

	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}
	return items
}
