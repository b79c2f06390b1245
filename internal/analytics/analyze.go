// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package analytics

import (
	"sort"
	"time"

	"github.com/echotrace/echotrace/internal/models"
)

// Analyze builds the time-indexed view of a post's raw history.
//
// Amplifier events are re-deduplicated by identity in memory even
// though the store guarantees uniqueness, so an inconsistent upstream
// cannot double-count an identity here.
func Analyze(history *models.PostHistory) *models.AnalyzedHistory {
	analyzed := &models.AnalyzedHistory{
		PostID:           history.PostID,
		Metrics:          make(map[time.Time]models.EngagementMetrics),
		Changes:          make(map[time.Time]models.EngagementMetrics),
		Comments:         make(map[time.Time][]models.Amplifier),
		Retweets:         make(map[time.Time][]models.Amplifier),
		Quotes:           make(map[time.Time][]models.Amplifier),
		VerifiedReplies:  make(map[time.Time]int),
		VerifiedRetweets: make(map[time.Time]int),
		VerifiedQuotes:   make(map[time.Time]int),
		AuthorFollowers:  make(map[time.Time]int64),
	}

	for _, snap := range history.Snapshots {
		analyzed.Metrics[snap.CapturedAt] = snap.Metrics
		analyzed.AuthorFollowers[snap.CapturedAt] = snap.AuthorFollowers
		analyzed.Timestamps = append(analyzed.Timestamps, snap.CapturedAt)
	}
	sort.Slice(analyzed.Timestamps, func(i, j int) bool {
		return analyzed.Timestamps[i].Before(analyzed.Timestamps[j])
	})

	for i := 1; i < len(analyzed.Timestamps); i++ {
		prev := analyzed.Timestamps[i-1]
		curr := analyzed.Timestamps[i]
		analyzed.Changes[curr] = analyzed.Metrics[curr].Sub(analyzed.Metrics[prev])
	}

	bucketAmplifiers(history.Comments, analyzed.Comments, analyzed.VerifiedReplies)
	bucketAmplifiers(history.Retweets, analyzed.Retweets, analyzed.VerifiedRetweets)
	bucketAmplifiers(history.Quotes, analyzed.Quotes, analyzed.VerifiedQuotes)

	return analyzed
}

// bucketAmplifiers groups events by capture time, skipping identities
// already seen in an earlier bucket, and counts verified identities per
// bucket.
func bucketAmplifiers(events []models.AmplifierEvent, buckets map[time.Time][]models.Amplifier, verified map[time.Time]int) {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, ok := seen[e.Identity]; ok {
			continue
		}
		seen[e.Identity] = struct{}{}

		buckets[e.CapturedAt] = append(buckets[e.CapturedAt], models.Amplifier{
			Identity:       e.Identity,
			ScreenName:     e.ScreenName,
			FollowersCount: e.FollowersCount,
			Verified:       e.Verified,
			FirstSeen:      e.CapturedAt,
		})
		if e.Verified {
			verified[e.CapturedAt]++
		}
	}
}
