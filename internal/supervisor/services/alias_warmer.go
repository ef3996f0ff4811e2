// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package services

import (
	"context"
	"time"
)

// Refresher matches the alias resolver's forced-refresh method.
type Refresher interface {
	Refresh(ctx context.Context)
}

// AliasWarmerService refreshes the alias table on a fixed interval so
// request-path reads stay on the cached snapshot. The resolver's own
// rate limiter still bounds the refresh frequency against a failing
// override source.
type AliasWarmerService struct {
	resolver Refresher
	interval time.Duration
	name     string
}

// NewAliasWarmerService creates the warmer. A non-positive interval
// defaults to 15 minutes.
func NewAliasWarmerService(resolver Refresher, interval time.Duration) *AliasWarmerService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &AliasWarmerService{
		resolver: resolver,
		interval: interval,
		name:     "alias-warmer",
	}
}

// Serve implements suture.Service. One refresh runs immediately at
// startup to warm the table before the first request.
func (s *AliasWarmerService) Serve(ctx context.Context) error {
	s.resolver.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.resolver.Refresh(ctx)
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *AliasWarmerService) String() string {
	return s.name
}
