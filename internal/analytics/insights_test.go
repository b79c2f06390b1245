// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/echotrace/echotrace/internal/models"
)

func TestBuildInsights_EmptyHistoryIsZeroBundle(t *testing.T) {
	insight := BuildInsights(Analyze(&models.PostHistory{PostID: "p1"}))

	if insight.PostID != "p1" {
		t.Errorf("expected post ID carried through, got %q", insight.PostID)
	}
	if !insight.Engagement.PeakEngagementTime.IsZero() {
		t.Error("expected zero peak time for empty history")
	}
	if len(insight.TopAmplifiers.Retweeters) != 0 {
		t.Error("expected no top amplifiers for empty history")
	}
	if insight.Growth.TotalGrowth != 0 || insight.Growth.PeakGrowth != nil {
		t.Error("expected zero growth for empty history")
	}
}

func TestBuildInsights_SingleSnapshotPeakIsThatTimestamp(t *testing.T) {
	history := &models.PostHistory{
		PostID:    "p1",
		Snapshots: []models.Snapshot{snap(0, models.EngagementMetrics{FavoriteCount: 5}, 100)},
	}

	insight := BuildInsights(Analyze(history))
	if !insight.Engagement.PeakEngagementTime.Equal(base) {
		t.Errorf("expected peak at the only snapshot, got %v", insight.Engagement.PeakEngagementTime)
	}
}

func TestTopAmplifiers_CapAndOrder(t *testing.T) {
	// 15 distinct retweeters spread over 3 runs must collapse to the 10
	// with the most followers, descending.
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{}, 100),
			snap(10*time.Minute, models.EngagementMetrics{}, 100),
			snap(20*time.Minute, models.EngagementMetrics{}, 100),
		},
	}
	for i := 0; i < 15; i++ {
		offset := time.Duration(i%3) * 10 * time.Minute
		history.Retweets = append(history.Retweets,
			amp(models.AmplifierRetweet, fmt.Sprintf("user%02d", i), int64(100+i*10), false, offset))
	}

	insight := BuildInsights(Analyze(history))
	top := insight.TopAmplifiers.Retweeters

	if len(top) != 10 {
		t.Fatalf("expected exactly 10 top retweeters, got %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].FollowersCount > top[i-1].FollowersCount {
			t.Fatalf("expected descending follower order, got %d before %d",
				top[i-1].FollowersCount, top[i].FollowersCount)
		}
	}
	if top[0].FollowersCount != 240 {
		t.Errorf("expected the largest account first, got %d followers", top[0].FollowersCount)
	}
}

func TestTopAmplifiers_TiesKeepDiscoveryOrder(t *testing.T) {
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{}, 100),
			snap(10*time.Minute, models.EngagementMetrics{}, 100),
		},
		Retweets: []models.AmplifierEvent{
			amp(models.AmplifierRetweet, "early", 50, false, 0),
			amp(models.AmplifierRetweet, "late", 50, false, 10*time.Minute),
		},
	}

	top := BuildInsights(Analyze(history)).TopAmplifiers.Retweeters
	if len(top) != 2 {
		t.Fatalf("expected 2 retweeters, got %d", len(top))
	}
	if top[0].Identity != "early" || top[1].Identity != "late" {
		t.Errorf("equal follower counts must keep discovery order, got %q then %q",
			top[0].Identity, top[1].Identity)
	}
}

func TestEngagementAnalysis_PeakPrefersEarliestTie(t *testing.T) {
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{FavoriteCount: 10}, 100),
			snap(10*time.Minute, models.EngagementMetrics{FavoriteCount: 10}, 100),
		},
	}

	insight := BuildInsights(Analyze(history))
	if !insight.Engagement.PeakEngagementTime.Equal(base) {
		t.Errorf("tie must keep the earlier snapshot, got %v", insight.Engagement.PeakEngagementTime)
	}
}

func TestEngagementAnalysis_RatiosGuardZeroDenominators(t *testing.T) {
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{ReplyCount: 4, BookmarkCount: 3}, 100),
		},
	}

	insight := BuildInsights(Analyze(history))
	a := insight.Engagement

	for name, v := range map[string]float64{
		"comment/retweet avg":  a.CommentRetweetRatio.Average,
		"quote/retweet avg":    a.QuoteRetweetRatio.Average,
		"comment/favorite avg": a.CommentFavoriteRatio.Average,
		"avg silent ratio":     a.Silent.AverageSilentRatio,
		"avg silent/active":    a.Silent.AverageSilentToActive,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s must stay finite with zero denominators, got %v", name, v)
		}
	}
	// Zero retweets divides by the guard value 1.
	if a.CommentRetweetRatio.Average != 4 {
		t.Errorf("expected reply/retweet ratio 4 with guarded denominator, got %v", a.CommentRetweetRatio.Average)
	}
	if a.Silent.AverageSilentRatio != 3 {
		t.Errorf("expected bookmark/views ratio 3 with guarded denominator, got %v", a.Silent.AverageSilentRatio)
	}
}

func TestEngagementAnalysis_TrendIsLastFivePoints(t *testing.T) {
	history := &models.PostHistory{PostID: "p1"}
	for i := 0; i < 8; i++ {
		history.Snapshots = append(history.Snapshots,
			snap(time.Duration(i)*10*time.Minute, models.EngagementMetrics{ReplyCount: int64(i), RetweetCount: 1}, 100))
	}

	insight := BuildInsights(Analyze(history))
	trend := insight.Engagement.CommentRetweetRatio.Trend

	if len(trend) != 5 {
		t.Fatalf("expected trend window of 5, got %d", len(trend))
	}
	if trend[0].Numerator != 3 || trend[4].Numerator != 7 {
		t.Errorf("expected the last five points, got numerators %d..%d",
			trend[0].Numerator, trend[4].Numerator)
	}
}

func TestVerifiedImpact_AveragesOverActiveSnapshots(t *testing.T) {
	// Verified reply at t0, nothing at t1. Engagement moves 10 -> 16 -> 17.
	// Only the t0 -> t1 delta counts toward the average.
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{FavoriteCount: 10}, 100),
			snap(10*time.Minute, models.EngagementMetrics{FavoriteCount: 16}, 100),
			snap(20*time.Minute, models.EngagementMetrics{FavoriteCount: 17}, 100),
		},
		Comments: []models.AmplifierEvent{
			amp(models.AmplifierComment, "c1", 10, true, 0),
		},
	}

	impact := BuildInsights(Analyze(history)).Verified
	if impact.TotalVerifiedEngagements != 1 {
		t.Errorf("expected 1 verified engagement, got %d", impact.TotalVerifiedEngagements)
	}
	if impact.AverageChangeAfterVerified != 6 {
		t.Errorf("expected average change 6, got %v", impact.AverageChangeAfterVerified)
	}
}

func TestVerifiedImpact_QuotesDoNotCount(t *testing.T) {
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{FavoriteCount: 10}, 100),
			snap(10*time.Minute, models.EngagementMetrics{FavoriteCount: 20}, 100),
		},
		Quotes: []models.AmplifierEvent{
			amp(models.AmplifierQuote, "q1", 10, true, 0),
		},
	}

	impact := BuildInsights(Analyze(history)).Verified
	if impact.TotalVerifiedEngagements != 0 {
		t.Errorf("verified quotes are not verified activity, got %d", impact.TotalVerifiedEngagements)
	}
	if impact.AverageChangeAfterVerified != 0 {
		t.Errorf("expected no averaged change, got %v", impact.AverageChangeAfterVerified)
	}
}

func TestGrowthMetrics_NonZeroStepsOnly(t *testing.T) {
	// Followers: 100 -> 100 -> 130 -> 125. Two non-zero steps.
	history := &models.PostHistory{
		PostID: "p1",
		Snapshots: []models.Snapshot{
			snap(0, models.EngagementMetrics{FavoriteCount: 1}, 100),
			snap(10*time.Minute, models.EngagementMetrics{FavoriteCount: 2}, 100),
			snap(20*time.Minute, models.EngagementMetrics{FavoriteCount: 9}, 130),
			snap(30*time.Minute, models.EngagementMetrics{FavoriteCount: 9}, 125),
		},
	}

	growth := BuildInsights(Analyze(history)).Growth
	if growth.TotalGrowth != 25 {
		t.Errorf("expected total growth 25, got %d", growth.TotalGrowth)
	}
	if growth.PeakGrowth == nil {
		t.Fatal("expected a peak growth entry")
	}
	if growth.PeakGrowth.Growth != 30 || !growth.PeakGrowth.Timestamp.Equal(base.Add(20*time.Minute)) {
		t.Errorf("unexpected peak growth: %+v", growth.PeakGrowth)
	}
	// Peak engagement is at t=20m (9 actives); the growth step there is 30.
	if growth.GrowthDuringPeakEngagement == nil {
		t.Fatal("expected a growth entry at peak engagement time")
	}
	if growth.GrowthDuringPeakEngagement.Growth != 30 {
		t.Errorf("expected growth 30 during peak engagement, got %d", growth.GrowthDuringPeakEngagement.Growth)
	}
}
