// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package dedup

import (
	"context"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/metrics"
	"github.com/echotrace/echotrace/internal/models"
)

// BadgerIndex is a BadgerDB-backed index that survives restarts.
// Entries never expire: an identity that engaged once stays recorded
// for the lifetime of the post's tracking data.
type BadgerIndex struct {
	db      *badger.DB
	ownedDB bool
	mu      sync.RWMutex
	closed  bool
}

// NewBadgerIndex opens a BadgerDB at path and wraps it in an index.
// The returned index owns the database and closes it on Close.
func NewBadgerIndex(path string) (*BadgerIndex, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	logging.Info().Str("path", path).Msg("Dedup index opened")
	return &BadgerIndex{db: db, ownedDB: true}, nil
}

// NewBadgerIndexWithDB wraps an existing BadgerDB instance. The caller
// retains ownership of the database.
func NewBadgerIndexWithDB(db *badger.DB) *BadgerIndex {
	return &BadgerIndex{db: db}
}

// Seen implements Index.
func (b *BadgerIndex) Seen(ctx context.Context, postID string, typ models.AmplifierType, identity string) (bool, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return false, ErrClosed
	}
	b.mu.RUnlock()

	key := []byte(indexKey(postID, typ, identity))
	var seen bool

	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		metrics.DedupOperationsTotal.WithLabelValues("seen", "failure").Inc()
		return false, err
	}
	return seen, nil
}

// Add implements Index.
func (b *BadgerIndex) Add(ctx context.Context, postID string, typ models.AmplifierType, identity string) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	b.mu.RUnlock()

	key := []byte(indexKey(postID, typ, identity))
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, nil)
	})
	if err != nil {
		metrics.DedupOperationsTotal.WithLabelValues("add", "failure").Inc()
		return err
	}
	metrics.DedupOperationsTotal.WithLabelValues("add", "success").Inc()
	return nil
}

// Filter implements Index. Read-only: identities are marked by Add
// once their events are durably stored. Two concurrent runs may both
// report an identity fresh; the store's unique constraint keeps the
// duplicate insert a no-op.
func (b *BadgerIndex) Filter(ctx context.Context, events []models.AmplifierEvent) ([]models.AmplifierEvent, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}
	b.mu.RUnlock()

	batch := make(map[string]struct{}, len(events))
	fresh := make([]models.AmplifierEvent, 0, len(events))

	err := b.db.View(func(txn *badger.Txn) error {
		for _, e := range events {
			key := indexKey(e.PostID, e.Type, e.Identity)
			if _, ok := batch[key]; ok {
				metrics.DedupOperationsTotal.WithLabelValues("filter", "duplicate").Inc()
				continue
			}
			_, err := txn.Get([]byte(key))
			if err == nil {
				metrics.DedupOperationsTotal.WithLabelValues("filter", "duplicate").Inc()
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			batch[key] = struct{}{}
			fresh = append(fresh, e)
			metrics.DedupOperationsTotal.WithLabelValues("filter", "fresh").Inc()
		}
		return nil
	})
	if err != nil {
		metrics.DedupOperationsTotal.WithLabelValues("filter", "failure").Inc()
		return nil, err
	}
	return fresh, nil
}

// Close implements Index. Closes the underlying database only if this
// index owns it.
func (b *BadgerIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.ownedDB {
		return b.db.Close()
	}
	return nil
}
