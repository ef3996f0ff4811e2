// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package alias resolves medication group aliases (MULTI:*) into concrete
// ATC codes and state markers.
//
// The resolver merges a built-in default table with overrides fetched from
// the rule store, caches the merged table with a TTL, and fails open:
// resolution never returns an error to callers. When the override source
// is unavailable the previous good table (or the defaults) keeps serving
// and the degradation is logged.
package alias

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
)

// DefaultTTL is how long a merged alias table stays fresh before the next
// read triggers a refresh.
const DefaultTTL = time.Hour

// defaultRefreshInterval is the minimum spacing between refresh attempts
// against a failing override source.
const defaultRefreshInterval = 10 * time.Second

// defaultAliases is the built-in alias table. Overrides from the rule
// store are merged on top, winning per alias.
var defaultAliases = map[string][]string{
	"MULTI:ANTICOAG": {
		"B01AA03", // warfarin
		"B01AC06", // aspirin
		"B01AC04", "B01AC05", "B01AC07", "B01AC22", "B01AC24",
		"B01AE07", // dabigatran
		"B01AF01", "B01AF02", "B01AF03",
	},
	"MULTI:HTN":       {"C03", "C07", "C09", "C08", "C02"},
	"MULTI:DM":        {"A10BA02", "A10BB01", "A10BF01"},
	"MULTI:STEROID":   {"H02AB02", "H02AB04", "H02AB06"},
	"MULTI:PREG_LACT": {"PREGNANCY", "LACTATION"},
}

// atcPattern matches plausible ATC codes at any hierarchy level
// (e.g. "B01", "B01AA", "B01AA03").
var atcPattern = regexp.MustCompile(`^[A-Z]\d{2}(?:[A-Z]{1,2}(?:\d{2})?)?$`)

// stateMarkers are the recognized non-ATC state markers.
var stateMarkers = map[string]bool{
	"PREGNANCY": true,
	"LACTATION": true,
}

// OverrideSource supplies alias overrides, typically the rule store.
type OverrideSource interface {
	AliasOverrides(ctx context.Context) (map[string][]string, error)
}

// CodeSet is a set of concrete medication codes, the sole medication
// input to rule evaluation.
type CodeSet map[models.MedicationCode]struct{}

// Has reports whether the set contains the exact code.
func (s CodeSet) Has(code models.MedicationCode) bool {
	_, ok := s[code]
	return ok
}

// Slice returns the set's codes in unspecified order.
func (s CodeSet) Slice() []models.MedicationCode {
	out := make([]models.MedicationCode, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}

// Overlap reports that two input codes expanded to one or more shared
// concrete codes. Informational only; it never blocks resolution.
type Overlap struct {
	A      models.MedicationCode   `json:"a"`
	B      models.MedicationCode   `json:"b"`
	Shared []models.MedicationCode `json:"shared"`
}

// Resolver resolves group aliases against a cached merged alias table.
//
// Readers always observe whole table snapshots: the table map is never
// mutated after installation, only replaced under the write lock.
type Resolver struct {
	mu       sync.RWMutex
	table    map[string][]string
	loadedAt time.Time

	refreshMu sync.Mutex
	limiter   *rate.Limiter

	source OverrideSource
	ttl    time.Duration
	logger zerolog.Logger
	nowFn  func() time.Time
}

// NewResolver creates a resolver backed by the given override source.
// A nil source serves the built-in defaults only. A non-positive ttl
// falls back to DefaultTTL.
func NewResolver(source OverrideSource, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		source:  source,
		ttl:     ttl,
		limiter: rate.NewLimiter(rate.Every(defaultRefreshInterval), 1),
		logger:  logging.WithComponent("alias"),
		nowFn:   time.Now,
	}
}

// IsGroupAlias reports whether the code is a group alias. Pure syntactic
// check, no table lookup.
func IsGroupAlias(code models.MedicationCode) bool {
	return code.IsGroupAlias()
}

// IsValid reports whether the code is a known group alias, a plausible
// ATC code, or a recognized state marker.
func (r *Resolver) IsValid(ctx context.Context, code models.MedicationCode) bool {
	if code == "" {
		return false
	}
	if IsGroupAlias(code) {
		table := r.snapshot(ctx)
		_, ok := table[string(code)]
		return ok
	}
	return atcPattern.MatchString(string(code)) || stateMarkers[string(code)]
}

// Resolve maps one code to its concrete codes. Non-alias codes resolve to
// themselves; unknown aliases fall back to the literal code so downstream
// matching simply never fires for them.
func (r *Resolver) Resolve(ctx context.Context, code models.MedicationCode) []models.MedicationCode {
	if !IsGroupAlias(code) {
		return []models.MedicationCode{code}
	}

	table := r.snapshot(ctx)
	expanded, ok := table[string(code)]
	if !ok {
		r.logger.Warn().Str("code", string(code)).Msg("unknown group alias, falling back to literal code")
		return []models.MedicationCode{code}
	}

	out := make([]models.MedicationCode, len(expanded))
	for i, c := range expanded {
		out[i] = models.MedicationCode(c)
	}
	return out
}

// ResolveBatch resolves every input code and reports pairwise expansion
// overlaps. Overlaps are informational; both codes still contribute their
// full expansions.
func (r *Resolver) ResolveBatch(ctx context.Context, codes []models.MedicationCode) (map[models.MedicationCode][]models.MedicationCode, []Overlap) {
	resolved := make(map[models.MedicationCode][]models.MedicationCode, len(codes))
	for _, code := range codes {
		if _, seen := resolved[code]; seen {
			continue
		}
		resolved[code] = r.Resolve(ctx, code)
	}

	overlaps := detectOverlaps(codes, resolved)
	if len(overlaps) > 0 {
		metrics.AliasOverlapsDetected.Add(float64(len(overlaps)))
		for _, o := range overlaps {
			r.logger.Debug().
				Str("a", string(o.A)).
				Str("b", string(o.B)).
				Int("shared", len(o.Shared)).
				Msg("overlapping alias expansions")
		}
	}
	return resolved, overlaps
}

// Expand resolves all codes and returns the union set of concrete codes.
// This set is the sole medication input to rule evaluation.
func (r *Resolver) Expand(ctx context.Context, codes []models.MedicationCode) CodeSet {
	set := make(CodeSet)
	for _, code := range codes {
		for _, c := range r.Resolve(ctx, code) {
			set[c] = struct{}{}
		}
	}
	return set
}

// Stale reports whether the current table is past its TTL, which means
// the last refresh attempt failed and resolution is serving fallback
// data. Used to flag degraded responses.
func (r *Resolver) Stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table == nil || r.nowFn().Sub(r.loadedAt) >= r.ttl
}

// Refresh forces a table refresh regardless of TTL, subject to the rate
// limiter. Used by the periodic cache warmer.
func (r *Resolver) Refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	r.refreshLocked(ctx)
}

// snapshot returns the current table, refreshing it first when stale.
// Refreshes are mutually exclusive; concurrent readers either serve the
// previous snapshot or wait for the single in-flight refresh.
func (r *Resolver) snapshot(ctx context.Context) map[string][]string {
	r.mu.RLock()
	table := r.table
	fresh := table != nil && r.nowFn().Sub(r.loadedAt) < r.ttl
	r.mu.RUnlock()

	if fresh {
		metrics.AliasCacheHits.Inc()
		return table
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another goroutine may have refreshed while we waited.
	r.mu.RLock()
	table = r.table
	fresh = table != nil && r.nowFn().Sub(r.loadedAt) < r.ttl
	r.mu.RUnlock()
	if fresh {
		return table
	}

	return r.refreshLocked(ctx)
}

// refreshLocked rebuilds the merged table. Must hold refreshMu.
//
// On override failure the previous good table keeps serving (or the
// defaults when no table was ever installed); loadedAt is left stale so
// the next read retries, gated by the limiter.
func (r *Resolver) refreshLocked(ctx context.Context) map[string][]string {
	if !r.limiter.Allow() {
		metrics.AliasCacheRefreshes.WithLabelValues("throttled").Inc()
		return r.currentOrDefaults()
	}

	merged := make(map[string][]string, len(defaultAliases))
	for k, v := range defaultAliases {
		merged[k] = v
	}

	if r.source != nil {
		overrides, err := r.source.AliasOverrides(ctx)
		if err != nil {
			metrics.AliasCacheRefreshes.WithLabelValues("degraded").Inc()
			r.logger.Warn().Err(err).Msg("alias override fetch failed, serving previous table")
			return r.installFallback()
		}
		for k, v := range overrides {
			merged[k] = v
		}
	}

	r.mu.Lock()
	r.table = merged
	r.loadedAt = r.nowFn()
	r.mu.Unlock()

	metrics.AliasCacheRefreshes.WithLabelValues("ok").Inc()
	r.logger.Debug().Int("aliases", len(merged)).Msg("alias table refreshed")
	return merged
}

// installFallback ensures a usable table exists after a failed refresh
// without marking it fresh, so recovery is attempted on later reads.
func (r *Resolver) installFallback() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.table == nil {
		defaults := make(map[string][]string, len(defaultAliases))
		for k, v := range defaultAliases {
			defaults[k] = v
		}
		r.table = defaults
	}
	return r.table
}

// currentOrDefaults returns the installed table, or the defaults when
// nothing was ever installed.
func (r *Resolver) currentOrDefaults() map[string][]string {
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()
	if table != nil {
		return table
	}
	return r.installFallback()
}

// detectOverlaps computes pairwise intersections between the expansions
// of distinct input codes, preserving input order.
func detectOverlaps(codes []models.MedicationCode, resolved map[models.MedicationCode][]models.MedicationCode) []Overlap {
	var overlaps []Overlap
	seen := make(map[models.MedicationCode]bool, len(codes))
	ordered := make([]models.MedicationCode, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			ordered = append(ordered, c)
		}
	}

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			shared := intersect(resolved[ordered[i]], resolved[ordered[j]])
			if len(shared) > 0 {
				overlaps = append(overlaps, Overlap{A: ordered[i], B: ordered[j], Shared: shared})
			}
		}
	}
	return overlaps
}

// intersect returns the codes present in both slices, in a's order.
func intersect(a, b []models.MedicationCode) []models.MedicationCode {
	inB := make(map[models.MedicationCode]bool, len(b))
	for _, c := range b {
		inB[c] = true
	}
	var shared []models.MedicationCode
	for _, c := range a {
		if inB[c] {
			shared = append(shared, c)
		}
	}
	return shared
}
