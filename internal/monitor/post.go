// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/models"
	"github.com/echotrace/echotrace/internal/provider"
	"github.com/echotrace/echotrace/internal/store"
)

// monitorPost runs one full check of a post: fetch current state,
// snapshot it, and collect amplifiers for the engagement types whose
// counters moved since the previous snapshot.
//
// The detail fetch is the critical phase. Without it there is nothing
// to snapshot, so any failure there aborts the run. Sub-list phases
// fail independently: a dead retweeters endpoint must not cost us the
// comments we already can fetch.
func (m *Monitor) monitorPost(ctx context.Context, post *models.TrackedPost) *RunResult {
	runTime := m.now().UTC()
	result := &RunResult{PostID: post.ID, StartedAt: runTime}

	detail, err := m.client.PostDetail(ctx, post.ID)
	switch {
	case provider.IsNotFound(err):
		// The post is gone at the provider. Stop polling it but keep
		// its stored history.
		if err := m.store.SetPostActive(ctx, post.ID, false); err != nil {
			result.addError(StageDetail, err, true)
			return result
		}
		result.Deactivated = true
		logging.Info().Str("post_id", post.ID).Msg("Post no longer available, tracking deactivated")
		return result
	case provider.IsQuotaExhausted(err):
		result.QuotaExhausted = true
		return result
	case err != nil:
		result.addError(StageDetail, err, true)
		return result
	}

	if name := detail.User.ScreenName; name != "" && name != post.ScreenName {
		if err := m.store.SetPostAuthor(ctx, post.ID, name); err != nil {
			result.addError(StageDetail, err, false)
		}
	}

	prev, err := m.store.LatestSnapshot(ctx, post.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		result.addError(StageSnapshot, err, true)
		return result
	}

	snap := &models.Snapshot{
		PostID:     post.ID,
		CapturedAt: runTime,
		Metrics: models.EngagementMetrics{
			FavoriteCount: detail.FavoriteCount,
			RetweetCount:  detail.RetweetCount,
			ReplyCount:    detail.ReplyCount,
			QuoteCount:    detail.QuoteCount,
			ViewsCount:    detail.ViewsCount,
			BookmarkCount: detail.BookmarkCount,
		},
		AuthorFollowers: detail.User.FollowersCount,
		Raw:             detail.Raw,
	}

	// Amplifier events are keyed by the run timestamp; without the
	// snapshot row at that instant they would be invisible to the
	// analytics bucketing. A failed save therefore aborts the run, and
	// the unchanged last-check time makes the post due again next tick.
	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		result.addError(StageSnapshot, err, true)
		return result
	}
	result.SnapshotSaved = true

	// Sub-lists are refetched only when their counter moved. The first
	// run has no baseline and fetches everything.
	fetchComments := prev == nil || snap.Metrics.ReplyCount != prev.Metrics.ReplyCount
	fetchRetweeters := prev == nil || snap.Metrics.RetweetCount != prev.Metrics.RetweetCount
	fetchQuotes := prev == nil || snap.Metrics.QuoteCount != prev.Metrics.QuoteCount

	var since time.Time
	if prev != nil {
		since = prev.CapturedAt
	}

	if fetchComments {
		m.collectComments(ctx, post.ID, since, runTime, result)
		if result.QuotaExhausted {
			return result
		}
	}
	if fetchRetweeters {
		m.collectRetweeters(ctx, post.ID, runTime, result)
		if result.QuotaExhausted {
			return result
		}
	}
	if fetchQuotes {
		m.collectQuotes(ctx, post.ID, runTime, result)
		if result.QuotaExhausted {
			return result
		}
	}

	if err := m.store.TouchPost(ctx, post.ID, runTime); err != nil {
		result.addError(StageTouch, err, false)
	}

	return result
}

// collectComments fetches replies and persists the unseen ones.
func (m *Monitor) collectComments(ctx context.Context, postID string, since, runTime time.Time, result *RunResult) {
	comments, err := m.client.Comments(ctx, postID, since)
	if err != nil {
		m.subListError(StageComments, err, result)
		return
	}

	events := make([]models.AmplifierEvent, 0, len(comments))
	for _, c := range comments {
		events = append(events, models.AmplifierEvent{
			PostID:         postID,
			Type:           models.AmplifierComment,
			Identity:       c.ID,
			ScreenName:     c.User.ScreenName,
			FollowersCount: c.User.FollowersCount,
			Verified:       c.User.Verified,
			CapturedAt:     runTime,
		})
	}

	m.persistAmplifiers(ctx, StageComments, events, result)
}

// collectRetweeters fetches retweeting accounts and persists the unseen
// ones. Retweets carry no per-event ID, so the account handle is the
// identity.
func (m *Monitor) collectRetweeters(ctx context.Context, postID string, runTime time.Time, result *RunResult) {
	users, err := m.client.Retweeters(ctx, postID)
	if err != nil {
		m.subListError(StageRetweeters, err, result)
		return
	}

	events := make([]models.AmplifierEvent, 0, len(users))
	for _, u := range users {
		events = append(events, models.AmplifierEvent{
			PostID:         postID,
			Type:           models.AmplifierRetweet,
			Identity:       u.ScreenName,
			ScreenName:     u.ScreenName,
			FollowersCount: u.FollowersCount,
			Verified:       u.Verified,
			CapturedAt:     runTime,
		})
	}

	m.persistAmplifiers(ctx, StageRetweeters, events, result)
}

// collectQuotes fetches quote posts and persists the unseen ones.
func (m *Monitor) collectQuotes(ctx context.Context, postID string, runTime time.Time, result *RunResult) {
	quotes, err := m.client.Quotes(ctx, postID)
	if err != nil {
		m.subListError(StageQuotes, err, result)
		return
	}

	events := make([]models.AmplifierEvent, 0, len(quotes))
	for _, q := range quotes {
		events = append(events, models.AmplifierEvent{
			PostID:         postID,
			Type:           models.AmplifierQuote,
			Identity:       q.ID,
			ScreenName:     q.User.ScreenName,
			FollowersCount: q.User.FollowersCount,
			Verified:       q.User.Verified,
			CapturedAt:     runTime,
		})
	}

	m.persistAmplifiers(ctx, StageQuotes, events, result)
}

// persistAmplifiers filters already-seen identities and appends the
// rest. Identities are marked seen only after the store accepted the
// batch: a failed append leaves them unmarked, so the next refetch
// retries them instead of losing them to the index.
func (m *Monitor) persistAmplifiers(ctx context.Context, stage string, events []models.AmplifierEvent, result *RunResult) {
	if len(events) == 0 {
		return
	}

	fresh, err := m.index.Filter(ctx, events)
	if err != nil {
		result.addError(stage, err, false)
		return
	}
	if len(fresh) == 0 {
		return
	}

	inserted, err := m.store.SaveAmplifierEvents(ctx, fresh)
	if err != nil {
		result.addError(stage, err, false)
		return
	}
	result.NewAmplifiers += inserted

	for _, e := range fresh {
		if err := m.index.Add(ctx, e.PostID, e.Type, e.Identity); err != nil {
			// Unmarked identities are refetched next run; the store's
			// unique constraint absorbs the repeat insert.
			result.addError(stage, err, false)
			break
		}
	}

	logging.Debug().
		Str("post_id", result.PostID).
		Str("stage", stage).
		Int("fresh", len(fresh)).
		Int("inserted", inserted).
		Msg("Recorded new amplifiers")
}

// subListError classifies a sub-list fetch failure. Quota exhaustion
// halts the run; everything else is a non-critical stage error.
func (m *Monitor) subListError(stage string, err error, result *RunResult) {
	if provider.IsQuotaExhausted(err) {
		result.QuotaExhausted = true
		return
	}
	result.addError(stage, err, false)
}
