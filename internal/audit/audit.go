// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package audit records rule hits for traceability.
//
// Every rule that fires during a recommendation request produces a
// RuleHit; the pipeline hands batches of hits to a Sink without waiting
// for the write. Two sinks are provided: MemorySink for tests and
// single-node deployments, BadgerSink for durable storage.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
)

// Sink receives rule hits. Record must be safe for concurrent use and
// must not block the caller on slow storage; errors are handled inside
// the sink (logged and counted), never surfaced to the request path.
type Sink interface {
	Record(ctx context.Context, hits []models.RuleHit)
}

// Reader queries stored hits. MemorySink and BadgerSink implement it.
type Reader interface {
	Query(filter Filter) ([]models.RuleHit, error)
}

// Filter selects hits when querying a sink that supports reads.
type Filter struct {
	RequestID string
	ProductID string
	RuleID    string
	HitType   models.RuleAction
	Since     time.Time
	Limit     int
}

// Stats summarizes a sink's contents.
type Stats struct {
	Total      int `json:"total"`
	Exclusions int `json:"exclusions"`
	Penalties  int `json:"penalties"`
}

// MemorySink is a bounded in-memory hit store. When the cap is reached
// the oldest tenth of entries is evicted to make room.
type MemorySink struct {
	mu     sync.RWMutex
	hits   []models.RuleHit
	maxLen int
}

// DefaultMaxHits is the default in-memory hit cap.
const DefaultMaxHits = 10000

// NewMemorySink creates a memory sink holding at most maxLen hits.
// Non-positive maxLen falls back to DefaultMaxHits.
func NewMemorySink(maxLen int) *MemorySink {
	if maxLen <= 0 {
		maxLen = DefaultMaxHits
	}
	return &MemorySink{maxLen: maxLen}
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, hits []models.RuleHit) {
	if len(hits) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits = append(s.hits, hits...)
	if len(s.hits) > s.maxLen {
		// Drop the oldest 10% (at least the overflow) in one cut so
		// eviction is amortized rather than per-append.
		drop := s.maxLen / 10
		if overflow := len(s.hits) - s.maxLen; drop < overflow {
			drop = overflow
		}
		s.hits = append([]models.RuleHit(nil), s.hits[drop:]...)
	}

	metrics.AuditRecordsWritten.WithLabelValues("memory").Add(float64(len(hits)))
}

// Query returns hits matching the filter, newest first. The error is
// always nil; it exists to satisfy Reader alongside BadgerSink.
func (s *MemorySink) Query(filter Filter) ([]models.RuleHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RuleHit
	for i := len(s.hits) - 1; i >= 0; i-- {
		h := s.hits[i]
		if !matchesFilter(&h, &filter) {
			continue
		}
		out = append(out, h)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Stats returns a summary of the stored hits.
func (s *MemorySink) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.hits)}
	for i := range s.hits {
		switch s.hits[i].HitType {
		case models.ActionExclude:
			st.Exclusions++
		case models.ActionPenalize:
			st.Penalties++
		}
	}
	return st
}

// matchesFilter checks one hit against the filter's set fields.
func matchesFilter(h *models.RuleHit, f *Filter) bool {
	if f.RequestID != "" && h.RequestID != f.RequestID {
		return false
	}
	if f.ProductID != "" && h.ProductID != f.ProductID {
		return false
	}
	if f.RuleID != "" && h.RuleID != f.RuleID {
		return false
	}
	if f.HitType != "" && h.HitType != f.HitType {
		return false
	}
	if !f.Since.IsZero() && h.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// NopSink discards all hits. Used when auditing is disabled.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(_ context.Context, _ []models.RuleHit) {}
