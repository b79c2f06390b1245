// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"context"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/metrics"
	"github.com/echotrace/echotrace/internal/models"
	"github.com/echotrace/echotrace/internal/provider"
)

// checkAccounts refreshes tracked accounts and pulls each one's posts
// published since its last check into tracking.
func (m *Monitor) checkAccounts(ctx context.Context) {
	accounts, err := m.store.ListActiveAccounts(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list active accounts")
		return
	}
	metrics.MonitorItemsDue.WithLabelValues("account").Set(float64(len(accounts)))

	for i := range accounts {
		if m.quotaPaused() || ctx.Err() != nil {
			return
		}
		m.checkAccount(ctx, &accounts[i])
	}
}

// checkAccount refreshes one account's profile and discovers new posts.
func (m *Monitor) checkAccount(ctx context.Context, account *models.TrackedAccount) {
	runTime := m.now().UTC()

	user, err := m.client.Account(ctx, account.ScreenName)
	switch {
	case provider.IsNotFound(err):
		if err := m.store.SetAccountActive(ctx, account.ID, false); err != nil {
			logging.Error().Err(err).Str("screen_name", account.ScreenName).Msg("Failed to deactivate vanished account")
			return
		}
		metrics.MonitorRunsTotal.WithLabelValues("account", "deactivated").Inc()
		logging.Info().Str("screen_name", account.ScreenName).Msg("Account no longer available, tracking deactivated")
		return
	case provider.IsQuotaExhausted(err):
		metrics.MonitorRunsTotal.WithLabelValues("account", "quota").Inc()
		m.pauseForQuota()
		return
	case err != nil:
		metrics.MonitorRunsTotal.WithLabelValues("account", "critical").Inc()
		logging.Error().Err(err).Str("screen_name", account.ScreenName).Msg("Failed to fetch account")
		return
	}

	// The follower cap bounds per-post amplifier volume. An account
	// that outgrows it stops producing new tracked posts until the cap
	// is raised.
	if account.FollowerCap > 0 && user.FollowersCount > account.FollowerCap {
		if err := m.store.SetAccountActive(ctx, account.ID, false); err != nil {
			logging.Error().Err(err).Str("screen_name", account.ScreenName).Msg("Failed to deactivate over-cap account")
			return
		}
		metrics.MonitorRunsTotal.WithLabelValues("account", "over_cap").Inc()
		logging.Warn().
			Str("screen_name", account.ScreenName).
			Int64("followers", user.FollowersCount).
			Int64("cap", account.FollowerCap).
			Msg("Account exceeds follower cap, tracking deactivated")
		return
	}

	since := account.LastCheckAt
	if since.IsZero() {
		since = account.CreatedAt
	}

	posts, err := m.client.AccountPosts(ctx, account.ScreenName, since)
	if err != nil {
		if provider.IsQuotaExhausted(err) {
			metrics.MonitorRunsTotal.WithLabelValues("account", "quota").Inc()
			m.pauseForQuota()
			return
		}
		metrics.MonitorRunsTotal.WithLabelValues("account", "critical").Inc()
		logging.Error().Err(err).Str("screen_name", account.ScreenName).Msg("Failed to fetch account posts")
		return
	}

	for i := range posts {
		p := &posts[i]
		tracked := &models.TrackedPost{
			ID:         p.ID,
			AccountID:  account.ID,
			ScreenName: account.ScreenName,
			CreatedAt:  runTime,
		}
		if err := m.store.AddPost(ctx, tracked); err != nil {
			logging.Error().Err(err).Str("post_id", p.ID).Msg("Failed to track discovered post")
			continue
		}

		// First run immediately so the baseline snapshot exists before
		// the next pass computes deltas.
		m.runPost(ctx, tracked)
		if m.quotaPaused() {
			return
		}
	}

	if len(posts) > 0 {
		logging.Info().Str("screen_name", account.ScreenName).Int("new_posts", len(posts)).Msg("Discovered new posts")
	}

	if err := m.store.TouchAccount(ctx, account.ID, user.FollowersCount, runTime); err != nil {
		logging.Error().Err(err).Str("screen_name", account.ScreenName).Msg("Failed to update account check time")
		return
	}

	metrics.MonitorRunsTotal.WithLabelValues("account", "success").Inc()
}
