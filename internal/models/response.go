// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package models

import "time"

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response-level metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Count     int       `json:"count,omitempty"`
}

// APIError describes an API-level failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RecommendationRequest is the body of POST /api/v1/recommendations.
//
// Candidates may be supplied inline; when omitted the server's configured
// candidate source is consulted.
type RecommendationRequest struct {
	MedicationCodes []MedicationCode `json:"medication_codes" validate:"dive,min=1,max=64"`
	Intents         []string         `json:"intents" validate:"max=8,dive,min=1,max=32"`
	UseContext      UseContext       `json:"use_context"`
	TopN            int              `json:"top_n" validate:"min=0,max=100"`
	Candidates      []Candidate      `json:"candidates,omitempty" validate:"max=1000"`
}

// RecommendedProduct is one ranked entry in a recommendation response.
type RecommendedProduct struct {
	Candidate      Candidate `json:"product"`
	FinalScore     float64   `json:"final_score"`
	IntentScore    float64   `json:"intent_score"`
	Penalty        int       `json:"penalty"`
	ConfidenceBand string    `json:"confidence_band"`
	Reasons        []string  `json:"reasons,omitempty"`
	RuleHits       []RuleHit `json:"rule_hits,omitempty"`
}

// RecommendationResponse is the payload of a successful recommendation.
type RecommendationResponse struct {
	RequestID string               `json:"request_id"`
	Items     []RecommendedProduct `json:"items"`
	Admitted  int                  `json:"admitted"`
	Excluded  int                  `json:"excluded"`
	Degraded  bool                 `json:"degraded"`
}
