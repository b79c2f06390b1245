// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package dedup tracks which amplifier identities have already been
// recorded for each post and engagement type, so a monitoring run only
// persists identities it has not seen before.
//
// The index is the fast path; the store's unique constraint on
// (post_id, type, identity) is the durable backstop. Losing the index
// is therefore safe: re-inserting an already-stored identity is a
// no-op at the database layer. Warm rebuilds the index from the store
// at startup so the fast path is accurate from the first run.
package dedup

import (
	"context"
	"errors"
	"sync"

	"github.com/echotrace/echotrace/internal/metrics"
	"github.com/echotrace/echotrace/internal/models"
)

// ErrClosed indicates the index has been closed.
var ErrClosed = errors.New("dedup index is closed")

// Index records seen amplifier identities per post and type.
type Index interface {
	// Seen reports whether the identity was already recorded for the
	// post and type.
	Seen(ctx context.Context, postID string, typ models.AmplifierType, identity string) (bool, error)

	// Add marks an identity as recorded.
	Add(ctx context.Context, postID string, typ models.AmplifierType, identity string) error

	// Filter returns the subset of events whose identities have not
	// been seen, preserving input order and dropping duplicates within
	// the batch. It does not mark: callers Add each identity once the
	// event is durably stored, so a failed store append leaves the
	// identity unmarked and the next refetch retries it.
	Filter(ctx context.Context, events []models.AmplifierEvent) ([]models.AmplifierEvent, error)

	// Close releases resources held by the index.
	Close() error
}

// IdentitySource enumerates stored identities for warming. The store
// satisfies this.
type IdentitySource interface {
	AmplifierIdentities(ctx context.Context, fn func(postID string, typ models.AmplifierType, identity string) error) error
}

// Warm loads every stored identity from src into idx. Returns the
// number of identities loaded.
func Warm(ctx context.Context, idx Index, src IdentitySource) (int, error) {
	loaded := 0
	err := src.AmplifierIdentities(ctx, func(postID string, typ models.AmplifierType, identity string) error {
		if err := idx.Add(ctx, postID, typ, identity); err != nil {
			return err
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}
	return loaded, nil
}

// indexKey builds the storage key for one identity.
func indexKey(postID string, typ models.AmplifierType, identity string) string {
	return "amp:" + postID + ":" + string(typ) + ":" + identity
}

// MemoryIndex is an in-memory index. Entries are lost on restart, so
// production deployments warm it from the store or use BadgerIndex.
type MemoryIndex struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	closed bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{seen: make(map[string]struct{})}
}

// Seen implements Index.
func (m *MemoryIndex) Seen(ctx context.Context, postID string, typ models.AmplifierType, identity string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.seen[indexKey(postID, typ, identity)]
	return ok, nil
}

// Add implements Index.
func (m *MemoryIndex) Add(ctx context.Context, postID string, typ models.AmplifierType, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.seen[indexKey(postID, typ, identity)] = struct{}{}
	metrics.DedupIndexSize.Set(float64(len(m.seen)))
	return nil
}

// Filter implements Index.
func (m *MemoryIndex) Filter(ctx context.Context, events []models.AmplifierEvent) ([]models.AmplifierEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	batch := make(map[string]struct{}, len(events))
	fresh := make([]models.AmplifierEvent, 0, len(events))
	for _, e := range events {
		key := indexKey(e.PostID, e.Type, e.Identity)
		if _, ok := m.seen[key]; ok {
			metrics.DedupOperationsTotal.WithLabelValues("filter", "duplicate").Inc()
			continue
		}
		if _, ok := batch[key]; ok {
			metrics.DedupOperationsTotal.WithLabelValues("filter", "duplicate").Inc()
			continue
		}
		batch[key] = struct{}{}
		fresh = append(fresh, e)
		metrics.DedupOperationsTotal.WithLabelValues("filter", "fresh").Inc()
	}
	return fresh, nil
}

// Close implements Index.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.seen = nil
	return nil
}
