// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package recommend orchestrates the recommendation pipeline.
//
// One request flows through five stages: the rule set is fetched from
// the store (fatal on failure), medication codes are expanded through
// the alias resolver (fail-open), every candidate is gated and penalized
// by the rule engine, survivors receive an intent match score, and the
// admitted set is ranked deterministically. All rule hits are handed to
// the audit sink off the request path.
package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/audit"
	"github.com/cosmerec/cosmerec/internal/intent"
	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
	"github.com/cosmerec/cosmerec/internal/ranking"
	"github.com/cosmerec/cosmerec/internal/rules"
	"github.com/cosmerec/cosmerec/internal/rulestore"
)

// Request is one recommendation request.
type Request struct {
	MedicationCodes []models.MedicationCode
	Intents         []string
	UseContext      models.UseContext
	TopN            int
	Candidates      []models.Candidate
}

// Result is the outcome of one recommendation request.
type Result struct {
	RequestID string
	Items     []ranking.Item
	Admitted  int
	Excluded  int
	Overlaps  []alias.Overlap

	// Degraded is true when alias resolution served a stale or fallback
	// table. Results are still safe: defaults remain in effect.
	Degraded bool
}

// Engine runs the recommendation pipeline.
type Engine struct {
	cfg      Config
	store    rulestore.Store
	resolver *alias.Resolver
	rules    *rules.Engine
	matcher  *intent.Matcher
	sink     audit.Sink
	source   CandidateSource
	logger   zerolog.Logger
}

// NewEngine wires the pipeline stages together. A nil sink disables
// auditing.
func NewEngine(cfg Config, store rulestore.Store, resolver *alias.Resolver, ruleEngine *rules.Engine, matcher *intent.Matcher, sink audit.Sink) *Engine {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		rules:    ruleEngine,
		matcher:  matcher,
		sink:     sink,
		logger:   logging.WithComponent("recommend"),
	}
}

// SetCandidateSource installs the catalog consulted when a request does
// not inline its own candidates. Must be called before serving.
func (e *Engine) SetCandidateSource(source CandidateSource) {
	e.source = source
}

// Recommend evaluates and ranks the request's candidates.
//
// A rule store failure is fatal: without rules no safety gating is
// possible, so no candidates are returned. Alias degradation is not
// fatal; the result carries the Degraded flag instead. An empty
// candidate list yields an empty, successful result.
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}
	logger := e.logger.With().Str("request_id", requestID).Logger()

	ruleSet, err := e.store.ActiveRules(ctx, e.cfg.RulesetVersion)
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("rule set fetch failed, refusing to recommend")
		return nil, fmt.Errorf("fetch active rules: %w", err)
	}

	_, overlaps := e.resolver.ResolveBatch(ctx, req.MedicationCodes)
	expanded := e.resolver.Expand(ctx, req.MedicationCodes)

	result := &Result{
		RequestID: requestID,
		Overlaps:  overlaps,
		Degraded:  e.resolver.Stale(),
	}

	if len(req.Candidates) == 0 && e.source != nil {
		req.Candidates, err = e.source.Candidates(ctx)
		if err != nil {
			metrics.RecommendRequestsTotal.WithLabelValues("error").Inc()
			logger.Error().Err(err).Msg("candidate source failed")
			return nil, fmt.Errorf("fetch candidates: %w", err)
		}
	}

	if len(req.Candidates) == 0 {
		metrics.RecommendRequestsTotal.WithLabelValues("ok").Inc()
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
		return result, nil
	}

	items, excluded, hits := e.evaluateAll(requestID, ruleSet, req, expanded)

	topN := req.TopN
	if topN <= 0 {
		topN = e.cfg.DefaultTopN
	}
	result.Items = ranking.Rank(items, topN)
	result.Admitted = len(items)
	result.Excluded = excluded

	e.recordHits(ctx, hits)

	metrics.CandidatesEvaluated.Add(float64(len(req.Candidates)))
	metrics.CandidatesExcluded.Add(float64(excluded))
	metrics.RecommendRequestsTotal.WithLabelValues("ok").Inc()
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Int("candidates", len(req.Candidates)).
		Int("admitted", result.Admitted).
		Int("excluded", result.Excluded).
		Bool("degraded", result.Degraded).
		Dur("took", time.Since(start)).
		Msg("recommendation completed")

	return result, nil
}

// evaluateAll runs rule evaluation and intent scoring over every
// candidate with bounded parallelism. Results keep candidate order so
// the stable ranking sort is deterministic across runs.
func (e *Engine) evaluateAll(requestID string, ruleSet []models.Rule, req *Request, expanded alias.CodeSet) (items []ranking.Item, excluded int, hits []models.RuleHit) {
	type slot struct {
		verdict models.Verdict
		score   intent.Score
	}
	slots := make([]slot, len(req.Candidates))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.concurrency())
	for i := range req.Candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			cand := &req.Candidates[i]
			slots[i].verdict = e.rules.Evaluate(requestID, ruleSet, cand, expanded, &req.UseContext)
			if !slots[i].verdict.Excluded {
				slots[i].score = e.matcher.Score(cand, req.Intents)
			}
		}(i)
	}
	wg.Wait()

	for i := range slots {
		v := &slots[i].verdict
		hits = append(hits, v.Hits...)
		if v.Excluded {
			excluded++
			continue
		}
		score := slots[i].score
		items = append(items, ranking.Item{
			Candidate:   req.Candidates[i],
			FinalScore:  ranking.FinalScore(score.Total, v.Penalty),
			IntentScore: score.Total,
			Penalty:     v.Penalty,
			PenaltyHits: v.PenaltyHitCount,
			Band:        score.Band,
			Hits:        v.Hits,
		})
	}
	return items, excluded, hits
}

// recordHits hands the request's hits to the audit sink without waiting.
// The sink's own context is detached from the request so a client
// disconnect does not lose audit records.
func (e *Engine) recordHits(ctx context.Context, hits []models.RuleHit) {
	if len(hits) == 0 {
		return
	}
	go e.sink.Record(context.WithoutCancel(ctx), hits)
}
