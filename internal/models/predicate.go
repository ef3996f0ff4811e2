// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package models

// PredicateOp enumerates the closed set of predicate node kinds. There is
// deliberately no scripting or user-extensible operator set; conditions
// are data, interpreted by a pure evaluator.
type PredicateOp string

// Predicate operators.
const (
	// Comparison against a named use-context attribute.
	PredEq  PredicateOp = "eq"
	PredNe  PredicateOp = "ne"
	PredLt  PredicateOp = "lt"
	PredLte PredicateOp = "lte"
	PredGt  PredicateOp = "gt"
	PredGte PredicateOp = "gte"

	// Tag membership on the candidate.
	PredHasTag PredicateOp = "has_tag"

	// Boolean composition.
	PredAll PredicateOp = "all"
	PredAny PredicateOp = "any"
	PredNot PredicateOp = "not"
)

// Predicate is one node of a condition tree. Leaf nodes compare a named
// attribute (Attr/Value) or test tag membership (Tag); composite nodes
// (all/any/not) combine Children.
type Predicate struct {
	Op       PredicateOp  `json:"op"`
	Attr     string       `json:"attr,omitempty"`
	Value    any          `json:"value,omitempty"`
	Tag      string       `json:"tag,omitempty"`
	Children []*Predicate `json:"children,omitempty"`
}

// Eq builds an equality leaf for the named attribute.
func Eq(attr string, value any) *Predicate {
	return &Predicate{Op: PredEq, Attr: attr, Value: value}
}

// Cmp builds a comparison leaf with the given operator.
func Cmp(op PredicateOp, attr string, value float64) *Predicate {
	return &Predicate{Op: op, Attr: attr, Value: value}
}

// HasTag builds a tag-membership leaf.
func HasTag(tag string) *Predicate {
	return &Predicate{Op: PredHasTag, Tag: tag}
}

// All builds a conjunction over the given children.
func All(children ...*Predicate) *Predicate {
	return &Predicate{Op: PredAll, Children: children}
}

// Any builds a disjunction over the given children.
func Any(children ...*Predicate) *Predicate {
	return &Predicate{Op: PredAny, Children: children}
}

// Not negates a single child.
func Not(child *Predicate) *Predicate {
	return &Predicate{Op: PredNot, Children: []*Predicate{child}}
}
