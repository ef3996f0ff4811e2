// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Command server runs the recommendation API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosmerec/cosmerec/internal/alias"
	"github.com/cosmerec/cosmerec/internal/api"
	"github.com/cosmerec/cosmerec/internal/audit"
	"github.com/cosmerec/cosmerec/internal/config"
	"github.com/cosmerec/cosmerec/internal/intent"
	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/recommend"
	"github.com/cosmerec/cosmerec/internal/rules"
	"github.com/cosmerec/cosmerec/internal/rulestore"
	"github.com/cosmerec/cosmerec/internal/supervisor"
	"github.com/cosmerec/cosmerec/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting cosmerec")

	// Rule store: file-backed when rule files are configured, the
	// built-in defaults otherwise, wrapped with a circuit breaker and a
	// TTL cache.
	var backend rulestore.Store
	if len(cfg.Rules.FilePaths) > 0 {
		backend = rulestore.NewFileStore(cfg.Rules.FilePaths...)
	} else {
		backend = rulestore.NewDefaultStore()
	}
	store := rulestore.NewCachedStore(rulestore.NewBreakerStore(backend), cfg.Rules.CacheTTL)

	resolver := alias.NewResolver(store, cfg.Alias.TTL)
	ruleEngine := rules.NewEngine(cfg.Rules.EngineConfig())
	matcher := intent.NewMatcher(cfg.Intent, nil)

	sink, hits, closeSink, err := buildAuditSink(cfg.Audit)
	if err != nil {
		return fmt.Errorf("build audit sink: %w", err)
	}
	defer closeSink()

	engine := recommend.NewEngine(cfg.Recommend, store, resolver, ruleEngine, matcher, sink)
	if cfg.Recommend.CatalogPath != "" {
		engine.SetCandidateSource(recommend.NewFileSource(cfg.Recommend.CatalogPath))
	}
	handler := api.NewHandler(engine, resolver, store, hits)
	router := api.NewRouter(cfg.Security, handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.Timeout))
	if cfg.Alias.WarmInterval > 0 {
		tree.AddPipelineService(services.NewAliasWarmerService(resolver, cfg.Alias.WarmInterval))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Msg("shutdown complete")
	return nil
}

// buildAuditSink constructs the configured audit sink. The returned
// reader is nil when the sink is not queryable.
func buildAuditSink(cfg config.AuditConfig) (audit.Sink, audit.Reader, func(), error) {
	switch cfg.Sink {
	case "badger":
		sink, err := audit.NewBadgerSink(cfg.Path, cfg.Retention)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := sink.Close(); err != nil {
				logging.Error().Err(err).Msg("audit store close failed")
			}
		}
		return sink, sink, closeFn, nil

	case "none":
		return audit.NopSink{}, nil, func() {}, nil

	default:
		sink := audit.NewMemorySink(cfg.MaxHits)
		return sink, sink, func() {}, nil
	}
}
