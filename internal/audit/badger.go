// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package audit

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
	"github.com/cosmerec/cosmerec/internal/models"
)

// hitKeyPrefix namespaces hit entries in the key space.
const hitKeyPrefix = "hit:"

// BadgerSink persists rule hits in an embedded Badger store. Entries
// carry a TTL so the store self-prunes old audit data.
type BadgerSink struct {
	db        *badger.DB
	retention time.Duration
	logger    zerolog.Logger
}

// NewBadgerSink opens (or creates) a Badger store at path. Hits expire
// after retention; non-positive retention keeps them for 90 days.
func NewBadgerSink(path string, retention time.Duration) (*BadgerSink, error) {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty; we log state changes ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit store at %s: %w", path, err)
	}

	return &BadgerSink{
		db:        db,
		retention: retention,
		logger:    logging.WithComponent("audit"),
	}, nil
}

// Record implements Sink. Write failures are logged and counted, never
// propagated: a lost audit record must not fail a recommendation.
func (s *BadgerSink) Record(_ context.Context, hits []models.RuleHit) {
	if len(hits) == 0 {
		return
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range hits {
			data, err := json.Marshal(&hits[i])
			if err != nil {
				return fmt.Errorf("marshal hit %s: %w", hits[i].RuleID, err)
			}
			key := hitKey(&hits[i])
			entry := badger.NewEntry(key, data).WithTTL(s.retention)
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("write hit %s: %w", hits[i].RuleID, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.AuditWriteErrors.Inc()
		s.logger.Error().Err(err).Int("hits", len(hits)).Msg("audit write failed")
		return
	}

	metrics.AuditRecordsWritten.WithLabelValues("badger").Add(float64(len(hits)))
}

// Query scans stored hits matching the filter, newest keys first is not
// guaranteed; results are in key order (timestamp-prefixed, so oldest
// first) up to the filter's limit.
func (s *BadgerSink) Query(filter Filter) ([]models.RuleHit, error) {
	var out []models.RuleHit

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(hitKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var h models.RuleHit
				if err := json.Unmarshal(v, &h); err != nil {
					return err
				}
				if matchesFilter(&h, &filter) {
					out = append(out, h)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	return out, nil
}

// Close flushes and closes the underlying store.
func (s *BadgerSink) Close() error {
	return s.db.Close()
}

// hitKey builds a time-ordered unique key for a hit.
func hitKey(h *models.RuleHit) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", hitKeyPrefix, h.Timestamp.UnixNano(), uuid.New().String()[:8]))
}
