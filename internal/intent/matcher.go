// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package intent scores how well a cosmetic product matches a user's
// declared skin intents (moisturizing, soothing, brightening, ...).
//
// Four sub-scores are computed per intent -- tag, name, category, and
// semantic -- each bounded [0, 100], then blended with configured weights.
// Multi-intent requests take the per-dimension maximum across intents, so
// a product strong for any requested intent is not diluted by the others.
package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/models"
)

// Breakdown holds the four blended sub-scores, each in [0, 100].
type Breakdown struct {
	Tag      float64 `json:"tag"`
	Name     float64 `json:"name"`
	Category float64 `json:"category"`
	Semantic float64 `json:"semantic"`
}

// Score is the intent-match result for one candidate.
type Score struct {
	// Total is the weighted blend plus bonuses, clamped to [0, 100].
	Total float64 `json:"total"`

	// Breakdown holds the per-dimension maxima across intents.
	Breakdown Breakdown `json:"breakdown"`

	// Band is the confidence band derived from Total.
	Band string `json:"band"`

	// Confidence is a diagnostic quality estimate in [0, 1]. It does
	// not affect ranking.
	Confidence float64 `json:"confidence"`

	// MatchedIntents lists requested intents that contributed any
	// sub-score, in declaration order.
	MatchedIntents []string `json:"matched_intents,omitempty"`
}

// Matcher computes intent match scores.
type Matcher struct {
	cfg      Config
	profiles map[string]Profile
	semantic SemanticScorer
	logger   zerolog.Logger
}

// NewMatcher creates a matcher with the built-in intent vocabulary.
// A nil scorer falls back to the token-overlap default.
func NewMatcher(cfg Config, semantic SemanticScorer) *Matcher {
	if semantic == nil {
		semantic = NewTokenOverlapScorer()
	}
	if cfg.Weights.Sum() == 0 {
		cfg.Weights = models.DefaultScoringWeights()
	}
	return &Matcher{
		cfg:      cfg,
		profiles: defaultProfiles,
		semantic: semantic,
		logger:   logging.WithComponent("intent"),
	}
}

// Score evaluates the candidate against the requested intents.
// Unknown intents are skipped with a debug log; an empty or fully unknown
// intent list yields a zero score in the lowest band.
func (m *Matcher) Score(cand *models.Candidate, intents []string) Score {
	var (
		best       Breakdown
		matched    []string
		seen       = make(map[string]bool)
		kwMatches  int
		catMatched bool
	)

	for _, name := range intents {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		profile, ok := m.profiles[name]
		if !ok {
			m.logger.Debug().Str("intent", name).Msg("unknown intent skipped")
			continue
		}

		tag, tagKw := m.tagScore(cand, &profile)
		nameScore, nameKw := m.nameScore(cand, &profile)
		category, catHit := m.categoryScore(cand, &profile)
		semantic := clamp100(m.semantic.Score(cand, profile.Keywords()))

		kwMatches += tagKw + nameKw
		if catHit {
			catMatched = true
		}

		// Per-dimension maximum; the first declared intent wins ties.
		if tag > best.Tag {
			best.Tag = tag
		}
		if nameScore > best.Name {
			best.Name = nameScore
		}
		if category > best.Category {
			best.Category = category
		}
		if semantic > best.Semantic {
			best.Semantic = semantic
		}

		if tag > 0 || nameScore > 0 || category > 0 || semantic > 0 {
			matched = append(matched, name)
		}
	}

	w := m.cfg.Weights
	total := w.Tag*best.Tag + w.Name*best.Name + w.Category*best.Category + w.Semantic*best.Semantic
	total += m.brandBonus(cand.Brand, matched)
	if catMatched {
		total += m.cfg.CategoryBonus
	}
	total = clamp100(total)

	return Score{
		Total:          total,
		Breakdown:      best,
		Band:           m.band(total),
		Confidence:     m.confidence(best, kwMatches),
		MatchedIntents: matched,
	}
}

// tagScore scores the candidate's tags against the profile's keyword
// tiers: first primary hit, first secondary hit, every ingredient hit.
func (m *Matcher) tagScore(cand *models.Candidate, p *Profile) (float64, int) {
	tags := cand.NormalizedTags()
	score := 0.0
	matches := 0

	for _, kw := range p.Primary {
		if tagsContain(tags, kw) {
			score += primaryTagPoints * p.Weight
			matches++
			break
		}
	}
	for _, kw := range p.Secondary {
		if tagsContain(tags, kw) {
			score += secondaryTagPoints * p.Weight
			matches++
			break
		}
	}
	for _, kw := range p.Ingredients {
		if tagsContain(tags, kw) {
			score += ingredientTagPoints * p.Weight
			matches++
		}
	}
	return clamp100(score), matches
}

// nameScore scores keyword substring hits in the product name. Longer
// keywords carry more signal, scaled up to double points.
func (m *Matcher) nameScore(cand *models.Candidate, p *Profile) (float64, int) {
	name := strings.ToLower(cand.Name)
	score := 0.0
	matches := 0

	for _, kw := range p.Keywords() {
		kw = strings.ToLower(kw)
		if kw == "" || !strings.Contains(name, kw) {
			continue
		}
		lengthWeight := float64(utf8.RuneCountInString(kw)) / 3.0
		if lengthWeight > 2.0 {
			lengthWeight = 2.0
		}
		score += nameMatchPoints * p.Weight * lengthWeight
		matches++
	}
	return clamp100(score), matches
}

// categoryScore scores the candidate's category against the profile's
// suitable categories, scaled by the category's own weight.
func (m *Matcher) categoryScore(cand *models.Candidate, p *Profile) (float64, bool) {
	category := strings.ToLower(strings.TrimSpace(cand.Category))
	if category == "" {
		return 0, false
	}
	for _, c := range p.Categories {
		c = strings.ToLower(c)
		if strings.Contains(category, c) || strings.Contains(c, category) {
			return clamp100(categoryMatchPoints * categoryWeight(category)), true
		}
	}
	return 0, false
}

// brandBonus rewards brands with recognized expertise in the matched
// intents. Each matched intent contributes the base points scaled by the
// brand's expertise multiplier minus one; the sum is capped.
func (m *Matcher) brandBonus(brand string, matched []string) float64 {
	expertise, ok := brandExpertise[brand]
	if !ok {
		return 0
	}
	bonus := 0.0
	for _, intent := range matched {
		if mult, ok := expertise[intent]; ok {
			bonus += m.cfg.BrandBonusPerMatch * (mult - 1.0)
		}
	}
	if bonus > m.cfg.BrandBonusCap {
		bonus = m.cfg.BrandBonusCap
	}
	return bonus
}

// band maps a total score to its confidence band.
func (m *Matcher) band(total float64) string {
	t := m.cfg.Thresholds
	switch {
	case total >= t.High:
		return BandHigh
	case total >= t.Medium:
		return BandMedium
	case total >= t.Low:
		return BandLow
	default:
		return BandVeryLow
	}
}

// confidence estimates match quality from sub-score strength, dimension
// diversity, and keyword support. Diagnostic only.
func (m *Matcher) confidence(b Breakdown, kwMatches int) float64 {
	dims := []float64{b.Tag, b.Name, b.Category, b.Semantic}
	sum, nonZero, maxDim := 0.0, 0, 0.0
	for _, d := range dims {
		if d > 0 {
			sum += d
			nonZero++
		}
		if d > maxDim {
			maxDim = d
		}
	}
	if nonZero == 0 {
		return 0
	}

	avg := sum / float64(nonZero)
	diversity := float64(nonZero) / float64(len(dims))
	kwFactor := float64(kwMatches) / 3.0
	if kwFactor > 1 {
		kwFactor = 1
	}

	conf := 0.4*avg/100 + 0.3*diversity + 0.2*kwFactor + 0.1*maxDim/100
	if conf > 1 {
		conf = 1
	}
	return conf
}

// categoryWeight looks up the weight for a candidate category, matching
// by containment so "수분 크림" still resolves to "크림".
func categoryWeight(category string) float64 {
	if w, ok := categoryWeights[category]; ok {
		return w
	}
	for name, w := range categoryWeights {
		if strings.Contains(category, name) {
			return w
		}
	}
	return 1.0
}

// tagsContain reports whether any normalized tag matches the keyword
// exactly or by containment (two-rune minimum on the shorter side).
func tagsContain(tags []string, kw string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return false
	}
	return tokensContain(tags, kw)
}

// clamp100 bounds a score to [0, 100].
func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
