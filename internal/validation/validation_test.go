// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package validation

import (
	"context"
	"testing"
	"time"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/models"
)

func TestValidateRequest(t *testing.T) {
	resolver := alias.NewResolver(nil, time.Hour)
	ctx := context.Background()

	valid := func() *models.RecommendationRequest {
		return &models.RecommendationRequest{
			MedicationCodes: []models.MedicationCode{"B01AA03", "MULTI:ANTICOAG"},
			Intents:         []string{"moisturizing"},
			TopN:            10,
			Candidates: []models.Candidate{
				{ProductID: "p1", Name: "수분 크림", Category: "크림", Tags: []string{"수분"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *models.RecommendationRequest)
		wantErr bool
	}{
		{"valid", func(_ *models.RecommendationRequest) {}, false},
		{"no medications is fine", func(r *models.RecommendationRequest) { r.MedicationCodes = nil }, false},
		{"malformed atc code", func(r *models.RecommendationRequest) {
			r.MedicationCodes = []models.MedicationCode{"not-a-code"}
		}, true},
		{"lowercase atc rejected", func(r *models.RecommendationRequest) {
			r.MedicationCodes = []models.MedicationCode{"b01aa03"}
		}, true},
		{"state marker accepted", func(r *models.RecommendationRequest) {
			r.MedicationCodes = []models.MedicationCode{"PREGNANCY"}
		}, false},
		{"unknown alias accepted", func(r *models.RecommendationRequest) {
			r.MedicationCodes = []models.MedicationCode{"MULTI:NOPE"}
		}, false},
		{"unknown intent accepted", func(r *models.RecommendationRequest) {
			r.Intents = []string{"levitation"}
		}, false},
		{"negative top_n", func(r *models.RecommendationRequest) { r.TopN = -1 }, true},
		{"candidate without id", func(r *models.RecommendationRequest) {
			r.Candidates = []models.Candidate{{Name: "이름만"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := ValidateRequest(ctx, req, resolver)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("nil request", func(t *testing.T) {
		if err := ValidateRequest(ctx, nil, resolver); err == nil {
			t.Error("nil request accepted")
		}
	})

	t.Run("too many medication codes", func(t *testing.T) {
		req := valid()
		for i := 0; i <= MaxMedicationCodes; i++ {
			req.MedicationCodes = append(req.MedicationCodes, "B01AA03")
		}
		if err := ValidateRequest(ctx, req, resolver); err == nil {
			t.Error("oversized medication list accepted")
		}
	})
}
