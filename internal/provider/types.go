// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package provider

import (
	"errors"

	"github.com/goccy/go-json"
)

// Provider outcome sentinels. The monitor branches on these; anything else
// is an ordinary transport or decode error.
var (
	// ErrNotFound means the requested entity no longer exists upstream.
	ErrNotFound = errors.New("provider: entity not found")

	// ErrQuotaExhausted means the provider refused the call for rate or
	// budget reasons, including a 429 that survived the retry budget.
	ErrQuotaExhausted = errors.New("provider: quota exhausted")
)

// IsNotFound reports whether err classifies as the not-found outcome.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsQuotaExhausted reports whether err classifies as quota exhaustion.
func IsQuotaExhausted(err error) bool { return errors.Is(err, ErrQuotaExhausted) }

// User is the provider's account payload.
type User struct {
	ID             string `json:"id_str"`
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	FollowersCount int64  `json:"followers_count"`
	Verified       bool   `json:"verified"`
}

// Post is the provider's post payload with its full engagement counters.
type Post struct {
	ID            string `json:"id_str"`
	FullText      string `json:"full_text"`
	User          User   `json:"user"`
	FavoriteCount int64  `json:"favorite_count"`
	RetweetCount  int64  `json:"retweet_count"`
	ReplyCount    int64  `json:"reply_count"`
	QuoteCount    int64  `json:"quote_count"`
	ViewsCount    int64  `json:"views_count"`
	BookmarkCount int64  `json:"bookmark_count"`
}

// PostDetail is a post payload plus the raw provider response, kept for
// forensic storage alongside the snapshot.
type PostDetail struct {
	Post
	Raw json.RawMessage
}

// searchPage is one page of a cursor-paginated post search.
type searchPage struct {
	Tweets     []Post `json:"tweets"`
	NextCursor string `json:"next_cursor"`
}

// retweetersPage is one page of a cursor-paginated retweeter listing.
type retweetersPage struct {
	Users      []User `json:"users"`
	NextCursor string `json:"next_cursor"`
}
