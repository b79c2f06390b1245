// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package analytics derives engagement series and insight bundles from
// stored post history. Everything here is a pure transformation of
// persisted state: no provider calls, no writes, safe to invoke at any
// time.
package analytics

import (
	"context"
	"fmt"

	"github.com/echotrace/echotrace/internal/models"
)

// HistoryStore is the read surface the analyzer needs. *store.Store
// satisfies it.
type HistoryStore interface {
	PostHistory(ctx context.Context, postID string) (*models.PostHistory, error)
	Feed(ctx context.Context) ([]models.FeedItem, error)
}

// Analyzer computes derived engagement views over stored history.
type Analyzer struct {
	store HistoryStore
}

// New creates an analyzer backed by the given store.
func New(store HistoryStore) *Analyzer {
	return &Analyzer{store: store}
}

// RawHistory returns the ordered, unprocessed capture history for a post.
func (a *Analyzer) RawHistory(ctx context.Context, postID string) (*models.PostHistory, error) {
	history, err := a.store.PostHistory(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for post %s: %w", postID, err)
	}
	return history, nil
}

// AnalyzedHistory returns the time-indexed view of a post's history:
// per-snapshot metrics, adjacent deltas, and bucketed amplifiers.
func (a *Analyzer) AnalyzedHistory(ctx context.Context, postID string) (*models.AnalyzedHistory, error) {
	history, err := a.RawHistory(ctx, postID)
	if err != nil {
		return nil, err
	}
	return Analyze(history), nil
}

// Insights returns the summary insight bundle for a post. A post with
// no stored history yields a zero-valued bundle, never an error.
func (a *Analyzer) Insights(ctx context.Context, postID string) (*models.InsightData, error) {
	analyzed, err := a.AnalyzedHistory(ctx, postID)
	if err != nil {
		return nil, err
	}
	return BuildInsights(analyzed), nil
}

// Feed returns the latest state of every tracked post.
func (a *Analyzer) Feed(ctx context.Context) ([]models.FeedItem, error) {
	items, err := a.store.Feed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return items, nil
}
