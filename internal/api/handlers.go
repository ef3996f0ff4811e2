// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package api exposes the recommendation pipeline over HTTP.
//
// Routing uses chi; all responses share the models.APIResponse envelope
// with a request ID, and errors carry machine-readable codes.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/audit"
	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/models"
	"github.com/cosmerec/cosmerec/internal/recommend"
	"github.com/cosmerec/cosmerec/internal/rulestore"
	"github.com/cosmerec/cosmerec/internal/validation"
)

// maxRequestBody bounds recommendation request bodies (1 MiB).
const maxRequestBody = 1 << 20

// Handler serves the API endpoints.
type Handler struct {
	engine   *recommend.Engine
	resolver *alias.Resolver
	store    rulestore.Store
	hits     audit.Reader
}

// NewHandler creates the API handler. hits may be nil when the audit
// sink is not queryable; the audit endpoint then returns 404.
func NewHandler(engine *recommend.Engine, resolver *alias.Resolver, store rulestore.Store, hits audit.Reader) *Handler {
	return &Handler{
		engine:   engine,
		resolver: resolver,
		store:    store,
		hits:     hits,
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "ok",
		Data:   map[string]string{"status": "healthy"},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

// Recommend handles POST /api/v1/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RecommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}

	if err := validation.ValidateRequest(ctx, &req, h.resolver); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	result, err := h.engine.Recommend(ctx, &recommend.Request{
		MedicationCodes: req.MedicationCodes,
		Intents:         req.Intents,
		UseContext:      req.UseContext,
		TopN:            req.TopN,
		Candidates:      req.Candidates,
	})
	if err != nil {
		if errors.Is(err, rulestore.ErrUnavailable) {
			respondError(w, r, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "safety rules are unavailable, no recommendations can be made", err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "recommendation failed", err)
		return
	}

	items := make([]models.RecommendedProduct, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, models.RecommendedProduct{
			Candidate:      item.Candidate,
			FinalScore:     item.FinalScore,
			IntentScore:    item.IntentScore,
			Penalty:        item.Penalty,
			ConfidenceBand: item.Band,
			Reasons:        hitReasons(item.Hits),
			RuleHits:       item.Hits,
		})
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.RecommendationResponse{
			RequestID: result.RequestID,
			Items:     items,
			Admitted:  result.Admitted,
			Excluded:  result.Excluded,
			Degraded:  result.Degraded,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: result.RequestID,
			Count:     len(items),
		},
	})
}

// ResolveAlias handles GET /api/v1/aliases/{code}.
func (h *Handler) ResolveAlias(w http.ResponseWriter, r *http.Request) {
	code := models.MedicationCode(chi.URLParam(r, "code"))
	if !h.resolver.IsValid(r.Context(), code) {
		respondError(w, r, http.StatusNotFound, "UNKNOWN_CODE", "not a known alias, ATC code, or state marker", nil)
		return
	}

	expanded := h.resolver.Resolve(r.Context(), code)
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]any{
			"code":           code,
			"is_group_alias": code.IsGroupAlias(),
			"expanded":       expanded,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: logging.RequestIDFromContext(r.Context()),
			Count:     len(expanded),
		},
	})
}

// Rules handles GET /api/v1/rules.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	rules, err := h.store.ActiveRules(r.Context(), version)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "rule store is unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   rules,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: logging.RequestIDFromContext(r.Context()),
			Count:     len(rules),
		},
	})
}

// AuditHits handles GET /api/v1/audit/hits.
func (h *Handler) AuditHits(w http.ResponseWriter, r *http.Request) {
	if h.hits == nil {
		respondError(w, r, http.StatusNotFound, "AUDIT_DISABLED", "the configured audit sink is not queryable", nil)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		RequestID: q.Get("request_id"),
		ProductID: q.Get("product_id"),
		RuleID:    q.Get("rule_id"),
		HitType:   models.RuleAction(q.Get("hit_type")),
		Limit:     getIntParam(r, "limit", 100),
	}

	hits, err := h.hits.Query(filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "audit query failed", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   hits,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: logging.RequestIDFromContext(r.Context()),
			Count:     len(hits),
		},
	})
}

// hitReasons extracts the distinct human-readable reasons from hits.
func hitReasons(hits []models.RuleHit) []string {
	var reasons []string
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if h.Reason == "" || seen[h.Reason] {
			continue
		}
		seen[h.Reason] = true
		reasons = append(reasons, h.Reason)
	}
	return reasons
}
