// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// AmplifierType classifies how an external identity amplified a post.
type AmplifierType string

const (
	// AmplifierComment is a reply in the post's conversation.
	// Identity key: the comment's post ID.
	AmplifierComment AmplifierType = "comment"

	// AmplifierRetweet is a plain re-share.
	// Identity key: the re-sharing account's handle.
	AmplifierRetweet AmplifierType = "retweet"

	// AmplifierQuote is a re-share with added commentary.
	// Identity key: the quoting post's ID.
	AmplifierQuote AmplifierType = "quote"
)

// AmplifierTypes lists all amplifier types in a stable order.
var AmplifierTypes = []AmplifierType{AmplifierComment, AmplifierRetweet, AmplifierQuote}

// Valid reports whether t is one of the known amplifier types.
func (t AmplifierType) Valid() bool {
	switch t {
	case AmplifierComment, AmplifierRetweet, AmplifierQuote:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (t AmplifierType) String() string { return string(t) }

// TrackedPost is a post under periodic observation.
//
// Posts are never deleted by the monitor; when the provider reports the
// post gone, or monitoring is explicitly stopped, Active flips to false
// and the accumulated history stays queryable.
type TrackedPost struct {
	// ID is the post's external identifier.
	ID string `json:"post_id"`

	// AccountID references the owning tracked account, if the post was
	// discovered through an account poll. Empty for directly tracked posts.
	AccountID string `json:"account_id,omitempty"`

	// ScreenName is the author handle denormalized from the last detail fetch.
	ScreenName string `json:"screen_name,omitempty"`

	// Active controls whether the poller considers the post at all.
	Active bool `json:"active"`

	// CreatedAt is when the post entered tracking, not when it was authored.
	// The cadence policy keys off this value.
	CreatedAt time.Time `json:"created_at"`

	// LastCheckAt is the timestamp of the last successful monitoring run.
	// Zero means the post has never been checked and is always due.
	LastCheckAt time.Time `json:"last_check_at"`
}

// TrackedAccount is an account under periodic observation for new posts.
type TrackedAccount struct {
	// ID is the account's external identifier.
	ID string `json:"account_id"`

	// ScreenName is the account handle used for provider lookups.
	ScreenName string `json:"screen_name"`

	// Active is false when monitoring was stopped or the account exceeded
	// its follower cap at registration time.
	Active bool `json:"active"`

	// FollowersCount is the follower count observed at the last resolve.
	FollowersCount int64 `json:"followers_count"`

	// FollowerCap is the policy input above which the account is kept
	// inactive. Cost control, not an error condition.
	FollowerCap int64 `json:"follower_cap"`

	// LastCheckAt is when the account was last polled for new posts.
	LastCheckAt time.Time `json:"last_check_at"`

	CreatedAt time.Time `json:"created_at"`
}

// EngagementMetrics is one post's full set of engagement counters.
type EngagementMetrics struct {
	FavoriteCount int64 `json:"favorite_count"`
	RetweetCount  int64 `json:"retweet_count"`
	ReplyCount    int64 `json:"reply_count"`
	QuoteCount    int64 `json:"quote_count"`
	ViewsCount    int64 `json:"views_count"`
	BookmarkCount int64 `json:"bookmark_count"`
}

// ActiveEngagement is the sum of the visible-interaction counters.
// Bookmarks and views are excluded: they are the "silent" side.
func (m EngagementMetrics) ActiveEngagement() int64 {
	return m.FavoriteCount + m.RetweetCount + m.ReplyCount + m.QuoteCount
}

// Sub returns the per-metric delta m - prev.
func (m EngagementMetrics) Sub(prev EngagementMetrics) EngagementMetrics {
	return EngagementMetrics{
		FavoriteCount: m.FavoriteCount - prev.FavoriteCount,
		RetweetCount:  m.RetweetCount - prev.RetweetCount,
		ReplyCount:    m.ReplyCount - prev.ReplyCount,
		QuoteCount:    m.QuoteCount - prev.QuoteCount,
		ViewsCount:    m.ViewsCount - prev.ViewsCount,
		BookmarkCount: m.BookmarkCount - prev.BookmarkCount,
	}
}

// Snapshot is a point-in-time capture of a post's engagement counters.
type Snapshot struct {
	PostID string `json:"post_id"`

	// CapturedAt is the run timestamp, taken once per monitoring run and
	// shared by every record that run persists.
	CapturedAt time.Time `json:"captured_at"`

	Metrics EngagementMetrics `json:"metrics"`

	// AuthorFollowers is the author's follower count at capture time, used
	// by the follower-growth analysis.
	AuthorFollowers int64 `json:"author_followers"`

	// Raw is the provider's full payload for forensic use.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// AmplifierEvent records the first observation of an external identity
// amplifying a post. Append-only: the same (post, type, identity) is never
// stored twice, no matter how many runs re-fetch it.
type AmplifierEvent struct {
	PostID string        `json:"post_id"`
	Type   AmplifierType `json:"type"`

	// Identity is the type-specific dedup key (comment ID, account handle,
	// or quote-post ID).
	Identity string `json:"identity"`

	ScreenName     string    `json:"screen_name"`
	FollowersCount int64     `json:"followers_count"`
	Verified       bool      `json:"verified"`
	CapturedAt     time.Time `json:"captured_at"`
}
