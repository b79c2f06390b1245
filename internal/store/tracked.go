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
	"time"

	"github.com/echotrace/echotrace/internal/models"
)

// AddPost registers a post for tracking. Re-adding an existing post
// reactivates it without touching its history.
func (s *Store) AddPost(ctx context.Context, post *models.TrackedPost) error {
	query := `
		INSERT INTO tracked_posts (id, account_id, screen_name, active, created_at, last_check_at)
		VALUES (?, ?, ?, TRUE, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET active = TRUE`

	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.conn.ExecContext(ctx, query, post.ID, post.AccountID, post.ScreenName, createdAt); err != nil {
		return fmt.Errorf("failed to add post %s: %w", post.ID, err)
	}
	return nil
}

// GetPost returns a tracked post by ID, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, postID string) (*models.TrackedPost, error) {
	query := `
		SELECT id, account_id, screen_name, active, created_at, last_check_at
		FROM tracked_posts WHERE id = ?`

	var p models.TrackedPost
	var lastCheck sql.NullTime
	err := s.conn.QueryRowContext(ctx, query, postID).Scan(
		&p.ID, &p.AccountID, &p.ScreenName, &p.Active, &p.CreatedAt, &lastCheck)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", postID, err)
	}
	if lastCheck.Valid {
		p.LastCheckAt = lastCheck.Time
	}
	return &p, nil
}

// ListActivePosts returns all posts currently marked for monitoring.
func (s *Store) ListActivePosts(ctx context.Context) ([]models.TrackedPost, error) {
	query := `
		SELECT id, account_id, screen_name, active, created_at, last_check_at
		FROM tracked_posts WHERE active ORDER BY created_at`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active posts: %w", err)
	}
	defer closeRows(rows, "list_active_posts")

	var posts []models.TrackedPost
	for rows.Next() {
		var p models.TrackedPost
		var lastCheck sql.NullTime
		if err := rows.Scan(&p.ID, &p.AccountID, &p.ScreenName, &p.Active, &p.CreatedAt, &lastCheck); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		if lastCheck.Valid {
			p.LastCheckAt = lastCheck.Time
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns every tracked post regardless of active state.
func (s *Store) ListPosts(ctx context.Context) ([]models.TrackedPost, error) {
	query := `
		SELECT id, account_id, screen_name, active, created_at, last_check_at
		FROM tracked_posts ORDER BY created_at`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer closeRows(rows, "list_posts")

	var posts []models.TrackedPost
	for rows.Next() {
		var p models.TrackedPost
		var lastCheck sql.NullTime
		if err := rows.Scan(&p.ID, &p.AccountID, &p.ScreenName, &p.Active, &p.CreatedAt, &lastCheck); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		if lastCheck.Valid {
			p.LastCheckAt = lastCheck.Time
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SetPostActive flips a post's monitoring state.
func (s *Store) SetPostActive(ctx context.Context, postID string, active bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_posts SET active = ? WHERE id = ?`, active, postID)
	if err != nil {
		return fmt.Errorf("failed to set post %s active=%v: %w", postID, active, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPostAuthor refreshes the denormalized author handle on a post.
func (s *Store) SetPostAuthor(ctx context.Context, postID, screenName string) error {
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_posts SET screen_name = ? WHERE id = ?`, screenName, postID); err != nil {
		return fmt.Errorf("failed to set author for post %s: %w", postID, err)
	}
	return nil
}

// TouchPost records that a post was just checked.
func (s *Store) TouchPost(ctx context.Context, postID string, checkedAt time.Time) error {
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_posts SET last_check_at = ? WHERE id = ?`, checkedAt, postID); err != nil {
		return fmt.Errorf("failed to touch post %s: %w", postID, err)
	}
	return nil
}

// StopAll deactivates every tracked post and account. Stored history
// is untouched.
func (s *Store) StopAll(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `UPDATE tracked_posts SET active = FALSE`); err != nil {
		return fmt.Errorf("failed to stop posts: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, `UPDATE tracked_accounts SET active = FALSE`); err != nil {
		return fmt.Errorf("failed to stop accounts: %w", err)
	}
	return nil
}

// StartAll reactivates every tracked post and account.
func (s *Store) StartAll(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `UPDATE tracked_posts SET active = TRUE`); err != nil {
		return fmt.Errorf("failed to start posts: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, `UPDATE tracked_accounts SET active = TRUE`); err != nil {
		return fmt.Errorf("failed to start accounts: %w", err)
	}
	return nil
}

// RemovePostData deletes a post and all its stored history. This is
// the only destructive operation in the store.
func (s *Store) RemovePostData(ctx context.Context, postID string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin removal: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{
		`DELETE FROM amplifier_events WHERE post_id = ?`,
		`DELETE FROM snapshots WHERE post_id = ?`,
		`DELETE FROM tracked_posts WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, postID); err != nil {
			return fmt.Errorf("failed to remove data for post %s: %w", postID, err)
		}
	}

	return tx.Commit()
}

// AddAccount registers an account for tracking. Re-adding reactivates.
func (s *Store) AddAccount(ctx context.Context, account *models.TrackedAccount) error {
	query := `
		INSERT INTO tracked_accounts (id, screen_name, active, followers_count, follower_cap, created_at, last_check_at)
		VALUES (?, ?, TRUE, ?, ?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET active = TRUE, follower_cap = EXCLUDED.follower_cap`

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.conn.ExecContext(ctx, query,
		account.ID, account.ScreenName, account.FollowersCount, account.FollowerCap, createdAt); err != nil {
		return fmt.Errorf("failed to add account %s: %w", account.ScreenName, err)
	}
	return nil
}

// ListActiveAccounts returns all accounts currently marked for monitoring.
func (s *Store) ListActiveAccounts(ctx context.Context) ([]models.TrackedAccount, error) {
	query := `
		SELECT id, screen_name, active, followers_count, follower_cap, created_at, last_check_at
		FROM tracked_accounts WHERE active ORDER BY created_at`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	defer closeRows(rows, "list_active_accounts")

	var accounts []models.TrackedAccount
	for rows.Next() {
		var a models.TrackedAccount
		var lastCheck sql.NullTime
		if err := rows.Scan(&a.ID, &a.ScreenName, &a.Active, &a.FollowersCount, &a.FollowerCap, &a.CreatedAt, &lastCheck); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		if lastCheck.Valid {
			a.LastCheckAt = lastCheck.Time
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetAccountActive flips an account's monitoring state.
func (s *Store) SetAccountActive(ctx context.Context, accountID string, active bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_accounts SET active = ? WHERE id = ?`, active, accountID)
	if err != nil {
		return fmt.Errorf("failed to set account %s active=%v: %w", accountID, active, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAccount records a fresh follower count and check time.
func (s *Store) TouchAccount(ctx context.Context, accountID string, followers int64, checkedAt time.Time) error {
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE tracked_accounts SET followers_count = ?, last_check_at = ? WHERE id = ?`,
		followers, checkedAt, accountID); err != nil {
		return fmt.Errorf("failed to touch account %s: %w", accountID, err)
	}
	return nil
}
