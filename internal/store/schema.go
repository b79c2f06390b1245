// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package store

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// createSchema creates the tables and indexes.
func (s *Store) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// tableCreationQueries returns the table and index creation statements.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS tracked_posts (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL DEFAULT '',
			screen_name TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			last_check_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tracked_accounts (
			id TEXT PRIMARY KEY,
			screen_name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			followers_count BIGINT NOT NULL DEFAULT 0,
			follower_cap BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			last_check_at TIMESTAMP
		)`,

		// One snapshot per post per capture instant. The raw provider
		// payload is kept alongside the extracted counters so later
		// analytics changes can re-derive fields without refetching.
		`CREATE TABLE IF NOT EXISTS snapshots (
			post_id TEXT NOT NULL,
			captured_at TIMESTAMP NOT NULL,
			favorite_count BIGINT NOT NULL DEFAULT 0,
			retweet_count BIGINT NOT NULL DEFAULT 0,
			reply_count BIGINT NOT NULL DEFAULT 0,
			quote_count BIGINT NOT NULL DEFAULT 0,
			views_count BIGINT NOT NULL DEFAULT 0,
			bookmark_count BIGINT NOT NULL DEFAULT 0,
			author_followers BIGINT NOT NULL DEFAULT 0,
			raw JSON,
			UNIQUE (post_id, captured_at)
		)`,

		// One row per engaging identity per post per engagement type.
		// The unique constraint is the durable layer of deduplication;
		// the in-process index in internal/dedup is the fast layer.
		`CREATE TABLE IF NOT EXISTS amplifier_events (
			post_id TEXT NOT NULL,
			type TEXT NOT NULL,
			identity TEXT NOT NULL,
			screen_name TEXT NOT NULL DEFAULT '',
			followers_count BIGINT NOT NULL DEFAULT 0,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			captured_at TIMESTAMP NOT NULL,
			UNIQUE (post_id, type, identity)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_snapshots_post_time ON snapshots (post_id, captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_amplifiers_post_type ON amplifier_events (post_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_amplifiers_captured ON amplifier_events (post_id, captured_at)`,
	}
}
