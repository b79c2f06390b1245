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

const topAmplifierLimit = 10

// BuildInsights computes the summary bundle from an analyzed history.
// An empty history yields a fully populated zero-valued bundle.
func BuildInsights(analyzed *models.AnalyzedHistory) *models.InsightData {
	insight := &models.InsightData{PostID: analyzed.PostID}

	if len(analyzed.Timestamps) == 0 {
		return insight
	}

	insight.TopAmplifiers = models.TopAmplifiers{
		Commenters: topAmplifiers(analyzed.Timestamps, analyzed.Comments),
		Retweeters: topAmplifiers(analyzed.Timestamps, analyzed.Retweets),
		Quoters:    topAmplifiers(analyzed.Timestamps, analyzed.Quotes),
	}

	insight.Engagement = buildEngagementAnalysis(analyzed)
	insight.Verified = buildVerifiedImpact(analyzed)
	insight.Growth = buildGrowthMetrics(analyzed, insight.Engagement.PeakEngagementTime)

	return insight
}

// topAmplifiers flattens the buckets in chronological order, sorts by
// follower count descending keeping discovery order for ties, and
// returns the first distinct identities up to the limit.
func topAmplifiers(timestamps []time.Time, buckets map[time.Time][]models.Amplifier) []models.Amplifier {
	var all []models.Amplifier
	for _, ts := range timestamps {
		all = append(all, buckets[ts]...)
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].FollowersCount > all[j].FollowersCount
	})

	seen := make(map[string]struct{}, len(all))
	top := make([]models.Amplifier, 0, topAmplifierLimit)
	for _, a := range all {
		if _, ok := seen[a.Identity]; ok {
			continue
		}
		seen[a.Identity] = struct{}{}
		top = append(top, a)
		if len(top) == topAmplifierLimit {
			break
		}
	}
	return top
}

// buildEngagementAnalysis derives peak engagement, silent engagement,
// and the per-snapshot ratio series.
func buildEngagementAnalysis(analyzed *models.AnalyzedHistory) models.EngagementAnalysis {
	var analysis models.EngagementAnalysis

	var peak int64 = -1
	var silentRatios, silentToActive []float64
	var commentRetweet, quoteRetweet, commentFavorite []models.RatioPoint

	for _, ts := range analyzed.Timestamps {
		m := analyzed.Metrics[ts]
		active := m.ActiveEngagement()

		if active > peak {
			peak = active
			analysis.PeakEngagementTime = ts
		}

		silentRatios = append(silentRatios, ratio(m.BookmarkCount, m.ViewsCount))
		silentToActive = append(silentToActive, ratio(m.BookmarkCount, active))

		commentRetweet = append(commentRetweet, ratioPoint(ts, m.ReplyCount, m.RetweetCount))
		quoteRetweet = append(quoteRetweet, ratioPoint(ts, m.QuoteCount, m.RetweetCount))
		commentFavorite = append(commentFavorite, ratioPoint(ts, m.ReplyCount, m.FavoriteCount))
	}

	analysis.Silent = models.SilentEngagement{
		AverageSilentRatio:    mean(silentRatios),
		PeakSilentRatio:       maxOf(silentRatios),
		AverageSilentToActive: mean(silentToActive),
		PeakSilentToActive:    maxOf(silentToActive),
	}

	analysis.CommentRetweetRatio = summarize(commentRetweet)
	analysis.QuoteRetweetRatio = summarize(quoteRetweet)
	analysis.CommentFavoriteRatio = summarize(commentFavorite)

	return analysis
}

// buildVerifiedImpact pairs each snapshot's verified activity with the
// next snapshot's total-engagement delta, averaging the delta over the
// snapshots that actually saw verified activity.
func buildVerifiedImpact(analyzed *models.AnalyzedHistory) models.VerifiedImpact {
	var impact models.VerifiedImpact

	var changeSum int64
	withActivity := 0

	for i, ts := range analyzed.Timestamps {
		activity := int64(analyzed.VerifiedReplies[ts] + analyzed.VerifiedRetweets[ts])

		if i == len(analyzed.Timestamps)-1 {
			impact.TotalVerifiedEngagements += activity
			break
		}

		impact.TotalVerifiedEngagements += activity
		if activity > 0 {
			next := analyzed.Timestamps[i+1]
			delta := analyzed.Metrics[next].ActiveEngagement() - analyzed.Metrics[ts].ActiveEngagement()
			changeSum += delta
			withActivity++
		}
	}

	if withActivity > 0 {
		impact.AverageChangeAfterVerified = float64(changeSum) / float64(withActivity)
	}
	return impact
}

// buildGrowthMetrics diffs the author follower series and keeps the
// non-zero steps.
func buildGrowthMetrics(analyzed *models.AnalyzedHistory, peakEngagement time.Time) models.GrowthMetrics {
	var growth models.GrowthMetrics

	var entries []models.GrowthEntry
	for i := 1; i < len(analyzed.Timestamps); i++ {
		prev := analyzed.AuthorFollowers[analyzed.Timestamps[i-1]]
		curr := analyzed.AuthorFollowers[analyzed.Timestamps[i]]
		delta := curr - prev
		if delta == 0 {
			continue
		}
		entries = append(entries, models.GrowthEntry{
			Timestamp:      analyzed.Timestamps[i],
			Growth:         delta,
			TotalFollowers: curr,
		})
	}

	for i := range entries {
		e := entries[i]
		growth.TotalGrowth += e.Growth
		if growth.PeakGrowth == nil || e.Growth > growth.PeakGrowth.Growth {
			growth.PeakGrowth = &entries[i]
		}
		if e.Timestamp.Equal(peakEngagement) {
			growth.GrowthDuringPeakEngagement = &entries[i]
		}
	}

	return growth
}

// ratio divides with the zero-denominator guard.
func ratio(numerator, denominator int64) float64 {
	if denominator < 1 {
		denominator = 1
	}
	return float64(numerator) / float64(denominator)
}

func ratioPoint(ts time.Time, numerator, denominator int64) models.RatioPoint {
	return models.RatioPoint{
		Timestamp:   ts,
		Ratio:       ratio(numerator, denominator),
		Numerator:   numerator,
		Denominator: denominator,
	}
}

// summarize reports a ratio series as its mean plus the last five
// points as the trend window.
func summarize(points []models.RatioPoint) models.RatioSummary {
	summary := models.RatioSummary{}
	if len(points) == 0 {
		return summary
	}

	sum := 0.0
	for _, p := range points {
		sum += p.Ratio
	}
	summary.Average = sum / float64(len(points))

	start := len(points) - 5
	if start < 0 {
		start = 0
	}
	summary.Trend = points[start:]
	return summary
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
