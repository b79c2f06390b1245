// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package models

import "time"

// PostHistory is the raw, ordered projection of everything stored for a
// post: snapshots and amplifier events, no derived computation.
type PostHistory struct {
	PostID    string           `json:"post_id"`
	Snapshots []Snapshot       `json:"snapshots"`
	Comments  []AmplifierEvent `json:"comments"`
	Retweets  []AmplifierEvent `json:"retweets"`
	Quotes    []AmplifierEvent `json:"quotes"`
}

// Amplifier is one distinct external identity inside an analyzed bucket or
// a top-amplifiers list.
type Amplifier struct {
	Identity       string    `json:"identity"`
	ScreenName     string    `json:"screen_name"`
	FollowersCount int64     `json:"followers_count"`
	Verified       bool      `json:"verified"`
	FirstSeen      time.Time `json:"first_seen"`
}

// AnalyzedHistory is the time-indexed view the aggregator builds before
// computing insights. Buckets are keyed by snapshot capture timestamps.
type AnalyzedHistory struct {
	PostID string `json:"post_id"`

	// Timestamps is the sorted list of snapshot capture times; all maps
	// below are keyed by these values.
	Timestamps []time.Time `json:"timestamps"`

	Metrics map[time.Time]EngagementMetrics `json:"metrics"`

	// Changes holds per-metric deltas between temporally adjacent
	// snapshots, keyed by the later timestamp. Empty for a single-snapshot
	// history.
	Changes map[time.Time]EngagementMetrics `json:"changes"`

	Comments map[time.Time][]Amplifier `json:"comments"`
	Retweets map[time.Time][]Amplifier `json:"retweets"`
	Quotes   map[time.Time][]Amplifier `json:"quotes"`

	VerifiedReplies  map[time.Time]int `json:"verified_replies"`
	VerifiedRetweets map[time.Time]int `json:"verified_retweets"`
	VerifiedQuotes   map[time.Time]int `json:"verified_quotes"`

	AuthorFollowers map[time.Time]int64 `json:"author_followers"`
}

// RatioPoint is one snapshot's value of a guarded ratio.
type RatioPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Ratio       float64   `json:"ratio"`
	Numerator   int64     `json:"numerator"`
	Denominator int64     `json:"denominator"`
}

// RatioSummary reports a ratio series as its mean plus the last five
// observations as a trend window.
type RatioSummary struct {
	Average float64      `json:"average"`
	Trend   []RatioPoint `json:"trend"`
}

// SilentEngagement summarizes bookmark-driven engagement that produces no
// visible interaction.
type SilentEngagement struct {
	AverageSilentRatio    float64 `json:"average_silent_ratio"`
	PeakSilentRatio       float64 `json:"peak_silent_ratio"`
	AverageSilentToActive float64 `json:"average_silent_to_active_ratio"`
	PeakSilentToActive    float64 `json:"peak_silent_to_active_ratio"`
}

// EngagementAnalysis groups the time-based derived metrics.
type EngagementAnalysis struct {
	// PeakEngagementTime is the snapshot timestamp with the highest active
	// engagement. Zero when there are no snapshots.
	PeakEngagementTime time.Time `json:"peak_engagement_time"`

	Silent SilentEngagement `json:"silent_engagement"`

	CommentRetweetRatio  RatioSummary `json:"comment_retweet_ratio"`
	QuoteRetweetRatio    RatioSummary `json:"quote_retweet_ratio"`
	CommentFavoriteRatio RatioSummary `json:"comment_favorite_ratio"`
}

// VerifiedImpact measures how engagement moved after snapshots that saw
// verified amplifier activity.
type VerifiedImpact struct {
	// AverageChangeAfterVerified averages the next snapshot's total
	// engagement delta over snapshots with verified activity > 0.
	AverageChangeAfterVerified float64 `json:"average_change_after_verified"`

	// TotalVerifiedEngagements sums verified replies and retweets across
	// all snapshots.
	TotalVerifiedEngagements int64 `json:"total_verified_engagements"`
}

// GrowthEntry is one non-zero step in the author's follower series.
type GrowthEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Growth         int64     `json:"growth"`
	TotalFollowers int64     `json:"total_followers"`
}

// GrowthMetrics summarizes author follower movement over the post's history.
type GrowthMetrics struct {
	TotalGrowth int64 `json:"total_growth"`

	// PeakGrowth is the single largest interval gain, nil when the series
	// never moved.
	PeakGrowth *GrowthEntry `json:"peak_growth,omitempty"`

	// GrowthDuringPeakEngagement is the growth entry whose timestamp
	// matches the peak engagement time, nil when absent.
	GrowthDuringPeakEngagement *GrowthEntry `json:"growth_during_peak_engagement,omitempty"`
}

// TopAmplifiers holds the top-10 lists per amplifier type, sorted by
// follower count descending with ties broken by discovery order.
type TopAmplifiers struct {
	Commenters []Amplifier `json:"commenters"`
	Retweeters []Amplifier `json:"retweeters"`
	Quoters    []Amplifier `json:"quoters"`
}

// InsightData is the final summary bundle for downstream consumers.
// A post with no amplifier activity yields a fully populated zero-valued
// bundle, never an error.
type InsightData struct {
	PostID        string             `json:"post_id"`
	TopAmplifiers TopAmplifiers      `json:"top_amplifiers"`
	Engagement    EngagementAnalysis `json:"engagement_analysis"`
	Verified      VerifiedImpact     `json:"verified_impact"`
	Growth        GrowthMetrics      `json:"growth_metrics"`
}

// FeedItem is one post's latest state in the tracked-posts feed.
type FeedItem struct {
	PostID          string            `json:"post_id"`
	Active          bool              `json:"active"`
	ScreenName      string            `json:"screen_name,omitempty"`
	AuthorFollowers int64             `json:"author_followers"`
	Metrics         EngagementMetrics `json:"metrics"`
	TotalComments   int               `json:"total_comments"`
	TotalRetweeters int               `json:"total_retweeters"`
	TotalQuotes     int               `json:"total_quotes"`
	LastUpdated     time.Time         `json:"last_updated"`
}
