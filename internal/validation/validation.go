// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package validation checks recommendation requests before they reach
// the pipeline: structural validation via go-playground/validator tags,
// plus domain checks on medication codes and intents that tags cannot
// express.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cosmerec/cosmerec/internal/models"
)

var validate = validator.New()

// MaxMedicationCodes bounds the number of medication codes per request.
const MaxMedicationCodes = 32

// CodeValidator reports whether a medication code is well-formed. The
// alias resolver satisfies this.
type CodeValidator interface {
	IsValid(ctx context.Context, code models.MedicationCode) bool
}

// ValidateStruct runs tag-based validation and flattens the result into
// one readable error.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// ValidateRequest validates a recommendation request end to end.
//
// Malformed medication codes are rejected; unknown group aliases are
// not, since resolution falls back to the literal code and downstream
// matching simply never fires. Unknown intents are likewise accepted
// and skipped by the matcher.
func ValidateRequest(ctx context.Context, req *models.RecommendationRequest, codes CodeValidator) error {
	if req == nil {
		return fmt.Errorf("empty request")
	}
	if err := ValidateStruct(req); err != nil {
		return err
	}

	if len(req.MedicationCodes) > MaxMedicationCodes {
		return fmt.Errorf("too many medication codes: %d (max %d)", len(req.MedicationCodes), MaxMedicationCodes)
	}

	var bad []string
	for _, code := range req.MedicationCodes {
		if code.IsGroupAlias() {
			// Unknown aliases degrade to literal codes downstream.
			continue
		}
		if !codes.IsValid(ctx, code) {
			bad = append(bad, string(code))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("malformed medication codes: %s", strings.Join(bad, ", "))
	}

	for _, c := range req.Candidates {
		if strings.TrimSpace(c.ProductID) == "" {
			return fmt.Errorf("candidate %q has no product id", c.Name)
		}
	}

	return nil
}
