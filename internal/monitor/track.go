// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"context"
	"fmt"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/models"
)

// TrackPost registers a post for monitoring and runs its first check
// immediately so a baseline snapshot exists.
func (m *Monitor) TrackPost(ctx context.Context, postID string) (*RunResult, error) {
	post := &models.TrackedPost{
		ID:        postID,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.AddPost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to track post %s: %w", postID, err)
	}

	logging.Info().Str("post_id", postID).Msg("Tracking post")
	return m.monitorPost(ctx, post), nil
}

// TrackAccount resolves an account at the provider and registers it for
// monitoring. followerCap of zero means uncapped. An account already
// over the cap is stored inactive: tracked but not polled, a cost
// control rather than an error.
func (m *Monitor) TrackAccount(ctx context.Context, screenName string, followerCap int64) error {
	user, err := m.client.Account(ctx, screenName)
	if err != nil {
		return fmt.Errorf("failed to resolve account %s: %w", screenName, err)
	}

	account := &models.TrackedAccount{
		ID:             user.ID,
		ScreenName:     user.ScreenName,
		FollowersCount: user.FollowersCount,
		FollowerCap:    followerCap,
		CreatedAt:      m.now().UTC(),
	}
	if err := m.store.AddAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to track account %s: %w", screenName, err)
	}

	if followerCap > 0 && user.FollowersCount > followerCap {
		if err := m.store.SetAccountActive(ctx, account.ID, false); err != nil {
			return fmt.Errorf("failed to deactivate over-cap account %s: %w", screenName, err)
		}
		logging.Warn().
			Str("screen_name", user.ScreenName).
			Int64("followers", user.FollowersCount).
			Int64("cap", followerCap).
			Msg("Account exceeds follower cap, tracked inactive")
		return nil
	}

	logging.Info().
		Str("screen_name", user.ScreenName).
		Int64("followers", user.FollowersCount).
		Msg("Tracking account")
	return nil
}
