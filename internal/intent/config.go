// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package intent

import "github.com/cosmerec/cosmerec/internal/models"

// Base points per keyword tier when matched against candidate tags.
const (
	primaryTagPoints    = 25.0
	secondaryTagPoints  = 15.0
	ingredientTagPoints = 10.0
	nameMatchPoints     = 15.0
	categoryMatchPoints = 20.0
)

// Profile describes one supported intent: its keyword tiers, the
// categories that suit it, and a per-intent weight multiplier.
type Profile struct {
	// Primary keywords are the intent's core terms (first match scores).
	Primary []string `koanf:"primary"`

	// Secondary keywords are weaker associations (first match scores).
	Secondary []string `koanf:"secondary"`

	// Ingredients are hero-ingredient keywords (every match scores).
	Ingredients []string `koanf:"ingredients"`

	// Categories are product categories that suit this intent.
	Categories []string `koanf:"categories"`

	// Weight scales this intent's tag and name sub-scores.
	Weight float64 `koanf:"weight"`
}

// Keywords returns primary and secondary keywords in tier order.
func (p *Profile) Keywords() []string {
	out := make([]string, 0, len(p.Primary)+len(p.Secondary))
	out = append(out, p.Primary...)
	out = append(out, p.Secondary...)
	return out
}

// Thresholds are the confidence band cutoffs on the final score.
type Thresholds struct {
	High   float64 `koanf:"high"`
	Medium float64 `koanf:"medium"`
	Low    float64 `koanf:"low"`
}

// Confidence band names.
const (
	BandHigh    = "high"
	BandMedium  = "medium"
	BandLow     = "low"
	BandVeryLow = "very_low"
)

// Config holds intent matching configuration.
type Config struct {
	// Weights blends the four sub-scores. Must sum to 1.0.
	Weights models.ScoringWeights `koanf:"weights"`

	// Thresholds are the confidence band cutoffs. Default 80/60/40.
	Thresholds Thresholds `koanf:"thresholds"`

	// BrandBonusPerMatch is the base points scaled by the brand's
	// expertise multiplier minus one, per matched intent. Default 5.
	BrandBonusPerMatch float64 `koanf:"brand_bonus_per_match"`

	// BrandBonusCap bounds the total brand bonus. Default 15.
	BrandBonusCap float64 `koanf:"brand_bonus_cap"`

	// CategoryBonus is the flat bonus when the candidate's category
	// suits a requested intent. Default 5.
	CategoryBonus float64 `koanf:"category_bonus"`
}

// DefaultConfig returns the standard intent matching configuration.
func DefaultConfig() Config {
	return Config{
		Weights:            models.DefaultScoringWeights(),
		Thresholds:         Thresholds{High: 80, Medium: 60, Low: 40},
		BrandBonusPerMatch: 5,
		BrandBonusCap:      15,
		CategoryBonus:      5,
	}
}

// defaultProfiles is the built-in intent vocabulary. Keywords are Korean
// because the product catalog is; tags and category names are matched
// case-insensitively either way.
var defaultProfiles = map[string]Profile{
	"moisturizing": {
		Primary:     []string{"보습", "수분"},
		Secondary:   []string{"촉촉", "수분감", "영양"},
		Ingredients: []string{"히알루론산", "글리세린", "세라마이드", "스쿠알란"},
		Categories:  []string{"크림", "로션", "에센스", "세럼", "앰플"},
		Weight:      1.0,
	},
	"soothing": {
		Primary:     []string{"진정", "수딩"},
		Secondary:   []string{"민감", "저자극", "쿨링"},
		Ingredients: []string{"시카", "센텔라", "판테놀", "알로에", "마데카소사이드"},
		Categories:  []string{"크림", "앰플", "마스크", "토너"},
		Weight:      1.0,
	},
	"brightening": {
		Primary:     []string{"미백", "브라이트닝"},
		Secondary:   []string{"톤업", "화사", "광채"},
		Ingredients: []string{"비타민c", "나이아신아마이드", "알부틴", "글루타치온"},
		Categories:  []string{"세럼", "앰플", "에센스"},
		Weight:      1.0,
	},
	"anti-aging": {
		Primary:     []string{"주름", "안티에이징"},
		Secondary:   []string{"탄력", "리프팅", "퍼밍"},
		Ingredients: []string{"레티놀", "펩타이드", "콜라겐", "아데노신"},
		Categories:  []string{"크림", "세럼", "앰플", "아이크림"},
		Weight:      1.2,
	},
	"acne-care": {
		Primary:     []string{"여드름", "트러블"},
		Secondary:   []string{"피지", "블레미쉬", "잡티"},
		Ingredients: []string{"살리실산", "티트리", "바하", "아연"},
		Categories:  []string{"세럼", "스팟", "클렌저", "토너"},
		Weight:      1.1,
	},
	"sensitive-care": {
		Primary:     []string{"민감성", "저자극"},
		Secondary:   []string{"무향료", "순한", "약산성"},
		Ingredients: []string{"판테놀", "마데카소사이드", "베타글루칸"},
		Categories:  []string{"크림", "로션", "클렌저"},
		Weight:      1.0,
	},
	"pore-care": {
		Primary:     []string{"모공", "피지"},
		Secondary:   []string{"블랙헤드", "각질", "피지조절"},
		Ingredients: []string{"바하", "클레이", "나이아신아마이드"},
		Categories:  []string{"토너", "클렌저", "마스크"},
		Weight:      1.0,
	},
}

// brandExpertise maps each brand to its recognized intents and the
// expertise multiplier per intent. A multiplier m earns a bonus of
// BrandBonusPerMatch * (m - 1) when that intent is matched.
var brandExpertise = map[string]map[string]float64{
	"스킨1004":  {"acne-care": 1.3, "sensitive-care": 1.2},
	"라운드랩":   {"acne-care": 1.2, "sensitive-care": 1.1},
	"토리든":    {"moisturizing": 1.2, "anti-aging": 1.1},
	"웰라쥬":    {"moisturizing": 1.3, "soothing": 1.1},
	"이니스프리":  {"brightening": 1.1, "pore-care": 1.1},
}

// categoryWeights scales the category sub-score by the candidate's own
// category. Treatment formats carry more intent signal than wash-off.
var categoryWeights = map[string]float64{
	"에센스":  1.2,
	"앰플":   1.2,
	"세럼":   1.2,
	"크림":   1.1,
	"마스크":  1.1,
	"로션":   1.0,
	"에멀젼":  1.0,
	"토너":   0.9,
	"클렌저":  0.8,
}

// SupportedIntents returns the sorted-insensitive list of known intents.
func SupportedIntents() []string {
	out := make([]string, 0, len(defaultProfiles))
	for name := range defaultProfiles {
		out = append(out, name)
	}
	return out
}

// IsSupportedIntent reports whether the intent tag is known.
func IsSupportedIntent(name string) bool {
	_, ok := defaultProfiles[name]
	return ok
}
