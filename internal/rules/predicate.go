// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package rules

import (
	"fmt"

	"github.com/cosmerec/cosmerec/internal/models"
)

// evalPredicate interprets a condition tree against a candidate and use
// context. It is a pure function: no side effects, no external lookups.
//
// Any malformed node (unknown operator, missing attribute, type mismatch,
// wrong child count) returns an error; the engine logs it and skips the
// owning rule rather than failing the request.
func evalPredicate(p *models.Predicate, cand *models.Candidate, uc *models.UseContext) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("nil predicate node")
	}

	switch p.Op {
	case models.PredAll:
		if len(p.Children) == 0 {
			return false, fmt.Errorf("all: no children")
		}
		for _, child := range p.Children {
			ok, err := evalPredicate(child, cand, uc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case models.PredAny:
		if len(p.Children) == 0 {
			return false, fmt.Errorf("any: no children")
		}
		for _, child := range p.Children {
			ok, err := evalPredicate(child, cand, uc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case models.PredNot:
		if len(p.Children) != 1 {
			return false, fmt.Errorf("not: want exactly 1 child, got %d", len(p.Children))
		}
		ok, err := evalPredicate(p.Children[0], cand, uc)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case models.PredHasTag:
		if p.Tag == "" {
			return false, fmt.Errorf("has_tag: empty tag")
		}
		return cand.HasTag(p.Tag), nil

	case models.PredEq, models.PredNe:
		return evalEquality(p, uc)

	case models.PredLt, models.PredLte, models.PredGt, models.PredGte:
		return evalComparison(p, uc)

	default:
		return false, fmt.Errorf("unknown predicate op %q", p.Op)
	}
}

// evalEquality handles eq/ne over bool, string, and numeric attributes.
func evalEquality(p *models.Predicate, uc *models.UseContext) (bool, error) {
	actual, ok := uc.Attr(p.Attr)
	if !ok {
		return false, fmt.Errorf("%s: unknown attribute %q", p.Op, p.Attr)
	}

	var equal bool
	switch want := p.Value.(type) {
	case bool:
		got, ok := actual.(bool)
		if !ok {
			return false, fmt.Errorf("%s: attribute %q is not boolean", p.Op, p.Attr)
		}
		equal = got == want
	case string:
		got, ok := actual.(string)
		if !ok {
			return false, fmt.Errorf("%s: attribute %q is not a string", p.Op, p.Attr)
		}
		equal = got == want
	default:
		want64, err := asFloat(p.Value)
		if err != nil {
			return false, fmt.Errorf("%s: unsupported value type %T", p.Op, p.Value)
		}
		got64, err := asFloat(actual)
		if err != nil {
			return false, fmt.Errorf("%s: attribute %q is not numeric", p.Op, p.Attr)
		}
		equal = got64 == want64
	}

	if p.Op == models.PredNe {
		return !equal, nil
	}
	return equal, nil
}

// evalComparison handles lt/lte/gt/gte over numeric attributes.
func evalComparison(p *models.Predicate, uc *models.UseContext) (bool, error) {
	actual, ok := uc.Attr(p.Attr)
	if !ok {
		return false, fmt.Errorf("%s: unknown attribute %q", p.Op, p.Attr)
	}
	got, err := asFloat(actual)
	if err != nil {
		return false, fmt.Errorf("%s: attribute %q is not numeric", p.Op, p.Attr)
	}
	want, err := asFloat(p.Value)
	if err != nil {
		return false, fmt.Errorf("%s: non-numeric comparison value %T", p.Op, p.Value)
	}

	switch p.Op {
	case models.PredLt:
		return got < want, nil
	case models.PredLte:
		return got <= want, nil
	case models.PredGt:
		return got > want, nil
	default:
		return got >= want, nil
	}
}

// asFloat converts the numeric representations produced by JSON decoding
// and Go literals to float64.
func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
}
