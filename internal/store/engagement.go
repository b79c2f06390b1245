// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/metrics"
	"github.com/echotrace/echotrace/internal/models"
)

// SaveSnapshot appends an engagement snapshot. A snapshot for the same
// post and capture instant is silently skipped, making retried runs
// idempotent.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	query := `
		INSERT INTO snapshots (post_id, captured_at,
			favorite_count, retweet_count, reply_count, quote_count, views_count, bookmark_count,
			author_followers, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id, captured_at) DO NOTHING`

	var raw any
	if len(snap.Raw) > 0 {
		raw = string(snap.Raw)
	}

	m := snap.Metrics
	if _, err := s.conn.ExecContext(ctx, query,
		snap.PostID, snap.CapturedAt,
		m.FavoriteCount, m.RetweetCount, m.ReplyCount, m.QuoteCount, m.ViewsCount, m.BookmarkCount,
		snap.AuthorFollowers, raw); err != nil {
		return fmt.Errorf("failed to save snapshot for post %s: %w", snap.PostID, err)
	}

	metrics.SnapshotsSavedTotal.Inc()
	return nil
}

// SaveAmplifierEvents appends amplifier events, skipping identities
// already recorded for the same post and type. Returns the number of
// rows actually inserted.
func (s *Store) SaveAmplifierEvents(ctx context.Context, events []models.AmplifierEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO amplifier_events (post_id, type, identity, screen_name, followers_count, verified, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id, type, identity) DO NOTHING`

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin amplifier insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i := range events {
		e := &events[i]
		res, err := tx.ExecContext(ctx, query,
			e.PostID, string(e.Type), e.Identity, e.ScreenName, e.FollowersCount, e.Verified, e.CapturedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to save amplifier event %s/%s/%s: %w", e.PostID, e.Type, e.Identity, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
			metrics.AmplifierEventsSavedTotal.WithLabelValues(string(e.Type)).Inc()
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit amplifier insert: %w", err)
	}
	return inserted, nil
}

// LatestSnapshot returns the most recent snapshot for a post, or
// ErrNotFound when the post has no history yet.
func (s *Store) LatestSnapshot(ctx context.Context, postID string) (*models.Snapshot, error) {
	query := `
		SELECT post_id, captured_at,
			favorite_count, retweet_count, reply_count, quote_count, views_count, bookmark_count,
			author_followers
		FROM snapshots WHERE post_id = ?
		ORDER BY captured_at DESC LIMIT 1`

	var snap models.Snapshot
	err := s.conn.QueryRowContext(ctx, query, postID).Scan(
		&snap.PostID, &snap.CapturedAt,
		&snap.Metrics.FavoriteCount, &snap.Metrics.RetweetCount, &snap.Metrics.ReplyCount,
		&snap.Metrics.QuoteCount, &snap.Metrics.ViewsCount, &snap.Metrics.BookmarkCount,
		&snap.AuthorFollowers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot for post %s: %w", postID, err)
	}
	return &snap, nil
}

// PostHistory reconstructs the full capture history for a post:
// snapshots in capture order plus amplifier events split by type.
// A post with no stored rows yields an empty history, not an error.
func (s *Store) PostHistory(ctx context.Context, postID string) (*models.PostHistory, error) {
	history := &models.PostHistory{PostID: postID}

	snaps, err := s.postSnapshots(ctx, postID)
	if err != nil {
		return nil, err
	}
	history.Snapshots = snaps

	events, err := s.postAmplifiers(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		switch e.Type {
		case models.AmplifierComment:
			history.Comments = append(history.Comments, e)
		case models.AmplifierRetweet:
			history.Retweets = append(history.Retweets, e)
		case models.AmplifierQuote:
			history.Quotes = append(history.Quotes, e)
		default:
			logging.Warn().Str("post_id", postID).Str("type", string(e.Type)).
				Msg("Skipping amplifier event with unknown type")
		}
	}

	return history, nil
}

func (s *Store) postSnapshots(ctx context.Context, postID string) ([]models.Snapshot, error) {
	query := `
		SELECT post_id, captured_at,
			favorite_count, retweet_count, reply_count, quote_count, views_count, bookmark_count,
			author_followers
		FROM snapshots WHERE post_id = ? ORDER BY captured_at`

	rows, err := s.conn.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for post %s: %w", postID, err)
	}
	defer closeRows(rows, "post_snapshots")

	var snaps []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(
			&snap.PostID, &snap.CapturedAt,
			&snap.Metrics.FavoriteCount, &snap.Metrics.RetweetCount, &snap.Metrics.ReplyCount,
			&snap.Metrics.QuoteCount, &snap.Metrics.ViewsCount, &snap.Metrics.BookmarkCount,
			&snap.AuthorFollowers); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *Store) postAmplifiers(ctx context.Context, postID string) ([]models.AmplifierEvent, error) {
	query := `
		SELECT post_id, type, identity, screen_name, followers_count, verified, captured_at
		FROM amplifier_events WHERE post_id = ? ORDER BY captured_at, identity`

	rows, err := s.conn.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query amplifier events for post %s: %w", postID, err)
	}
	defer closeRows(rows, "post_amplifiers")

	var events []models.AmplifierEvent
	for rows.Next() {
		var e models.AmplifierEvent
		var typ string
		if err := rows.Scan(&e.PostID, &typ, &e.Identity, &e.ScreenName, &e.FollowersCount, &e.Verified, &e.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan amplifier row: %w", err)
		}
		e.Type = models.AmplifierType(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AmplifierIdentities streams every stored (post, type, identity) triple
// to fn. Used to warm the deduplication index at startup.
func (s *Store) AmplifierIdentities(ctx context.Context, fn func(postID string, typ models.AmplifierType, identity string) error) error {
	query := `SELECT post_id, type, identity FROM amplifier_events`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query amplifier identities: %w", err)
	}
	defer closeRows(rows, "amplifier_identities")

	for rows.Next() {
		var postID, typ, identity string
		if err := rows.Scan(&postID, &typ, &identity); err != nil {
			return fmt.Errorf("failed to scan identity row: %w", err)
		}
		if err := fn(postID, models.AmplifierType(typ), identity); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Feed returns every tracked post with its latest metrics and amplifier
// totals, most recently updated first. Posts with no snapshots yet
// appear with zero metrics.
func (s *Store) Feed(ctx context.Context) ([]models.FeedItem, error) {
	query := `
		SELECT p.id, p.active, p.screen_name,
			COALESCE(s.author_followers, 0),
			COALESCE(s.favorite_count, 0), COALESCE(s.retweet_count, 0), COALESCE(s.reply_count, 0),
			COALESCE(s.quote_count, 0), COALESCE(s.views_count, 0), COALESCE(s.bookmark_count, 0),
			COALESCE(s.captured_at, p.created_at),
			(SELECT COUNT(*) FROM amplifier_events a WHERE a.post_id = p.id AND a.type = 'comment'),
			(SELECT COUNT(*) FROM amplifier_events a WHERE a.post_id = p.id AND a.type = 'retweet'),
			(SELECT COUNT(*) FROM amplifier_events a WHERE a.post_id = p.id AND a.type = 'quote')
		FROM tracked_posts p
		LEFT JOIN (
			SELECT post_id, MAX(captured_at) AS captured_at FROM snapshots GROUP BY post_id
		) latest ON latest.post_id = p.id
		LEFT JOIN snapshots s ON s.post_id = latest.post_id AND s.captured_at = latest.captured_at
		ORDER BY COALESCE(s.captured_at, p.created_at) DESC`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer closeRows(rows, "feed")

	var items []models.FeedItem
	for rows.Next() {
		var item models.FeedItem
		if err := rows.Scan(
			&item.PostID, &item.Active, &item.ScreenName,
			&item.AuthorFollowers,
			&item.Metrics.FavoriteCount, &item.Metrics.RetweetCount, &item.Metrics.ReplyCount,
			&item.Metrics.QuoteCount, &item.Metrics.ViewsCount, &item.Metrics.BookmarkCount,
			&item.LastUpdated,
			&item.TotalComments, &item.TotalRetweeters, &item.TotalQuotes); err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
