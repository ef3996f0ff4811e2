// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rulestore

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
)

// BreakerStore decorates a Store with a circuit breaker per operation,
// shielding the request path from a flapping backing store. When the
// circuit is open, calls fail fast with ErrUnavailable (for rules) or
// the raw breaker error (for overrides, which the alias resolver
// already treats as a recoverable degradation).
type BreakerStore struct {
	next       Store
	rulesCB    *gobreaker.CircuitBreaker[[]models.Rule]
	overrideCB *gobreaker.CircuitBreaker[map[string][]string]
}

// NewBreakerStore wraps next with circuit breakers. The breakers open
// after a 60% failure rate over at least 5 requests and probe again
// after 30 seconds.
func NewBreakerStore(next Store) *BreakerStore {
	logger := logging.WithComponent("rulestore")

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 2,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("rule store breaker state change")
			},
		}
	}

	return &BreakerStore{
		next:       next,
		rulesCB:    gobreaker.NewCircuitBreaker[[]models.Rule](settings("rulestore-rules")),
		overrideCB: gobreaker.NewCircuitBreaker[map[string][]string](settings("rulestore-overrides")),
	}
}

// ActiveRules implements Store through the rules breaker.
func (b *BreakerStore) ActiveRules(ctx context.Context, version string) ([]models.Rule, error) {
	rules, err := b.rulesCB.Execute(func() ([]models.Rule, error) {
		return b.next.ActiveRules(ctx, version)
	})
	if err != nil {
		metrics.RuleStoreErrors.WithLabelValues("active_rules").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rules, nil
}

// AliasOverrides implements Store through the overrides breaker.
func (b *BreakerStore) AliasOverrides(ctx context.Context) (map[string][]string, error) {
	overrides, err := b.overrideCB.Execute(func() (map[string][]string, error) {
		return b.next.AliasOverrides(ctx)
	})
	if err != nil {
		metrics.RuleStoreErrors.WithLabelValues("alias_overrides").Inc()
		return nil, err
	}
	return overrides, nil
}
