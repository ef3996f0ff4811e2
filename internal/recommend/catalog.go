// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package recommend

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/cosmerec/cosmerec/internal/models"
)

// CandidateSource supplies the product catalog when a request does not
// inline its own candidates. Upstream coarse filtering is assumed; the
// pipeline evaluates whatever the source returns.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]models.Candidate, error)
}

// StaticSource serves a fixed candidate slice. Used in tests and for
// small seeded catalogs.
type StaticSource []models.Candidate

// Candidates implements CandidateSource.
func (s StaticSource) Candidates(_ context.Context) ([]models.Candidate, error) {
	return s, nil
}

// FileSource loads candidates from a JSON array file on every call.
// The pipeline's callers are expected to wrap it in their own cache if
// call frequency warrants one.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed candidate source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Candidates implements CandidateSource.
func (f *FileSource) Candidates(_ context.Context) ([]models.Candidate, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", f.path, err)
	}
	var out []models.Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", f.path, err)
	}
	return out, nil
}
