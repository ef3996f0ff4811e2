// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cosmerec/cosmerec/internal/models"
)

// SemanticScorer scores how well a candidate matches an intent's keyword
// set beyond exact tag/name hits. Implementations must return a value in
// [0, 100]. The default is token overlap; an embedding-backed scorer can
// be plugged in without touching the matcher.
type SemanticScorer interface {
	Score(cand *models.Candidate, keywords []string) float64
}

// TokenOverlapScorer is the default semantic scorer: the fraction of
// intent keywords that appear among the candidate's name and tag tokens,
// with substring containment for agglutinated Korean product names.
type TokenOverlapScorer struct{}

// NewTokenOverlapScorer returns the default semantic scorer.
func NewTokenOverlapScorer() *TokenOverlapScorer {
	return &TokenOverlapScorer{}
}

// Score implements SemanticScorer.
func (s *TokenOverlapScorer) Score(cand *models.Candidate, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	tokens := tokenize(cand.Name)
	for _, t := range cand.NormalizedTags() {
		tokens = append(tokens, tokenize(t)...)
	}
	if len(tokens) == 0 {
		return 0
	}

	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if tokensContain(tokens, kw) {
			matched++
		}
	}

	score := float64(matched) / float64(len(keywords)) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// tokenize lowercases and splits on anything that is not a letter or
// digit. Hangul counts as letters, so Korean terms survive intact.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokensContain reports whether any token matches the keyword exactly or
// by containment. Containment requires at least two runes on the shorter
// side to avoid single-syllable false positives.
func tokensContain(tokens []string, kw string) bool {
	kwLen := utf8.RuneCountInString(kw)
	for _, tok := range tokens {
		if tok == kw {
			return true
		}
		if kwLen >= 2 && strings.Contains(tok, kw) {
			return true
		}
		if utf8.RuneCountInString(tok) >= 2 && strings.Contains(kw, tok) {
			return true
		}
	}
	return false
}
