// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"time"

	"github.com/echotrace/echotrace/internal/config"
	"github.com/echotrace/echotrace/internal/models"
)

// checkInterval returns the polling interval a post has earned based on
// its age. Young posts change fast and are polled often; the cadence
// relaxes as the post ages.
func checkInterval(post *models.TrackedPost, now time.Time, cfg *config.MonitorConfig) time.Duration {
	age := now.Sub(post.CreatedAt)
	switch {
	case age <= cfg.FreshAge:
		return cfg.FreshInterval
	case age <= cfg.RecentAge:
		return cfg.RecentInterval
	default:
		return cfg.StaleInterval
	}
}

// needsUpdate reports whether a post is due for a monitoring run.
// A post that has never been checked is always due.
func needsUpdate(post *models.TrackedPost, now time.Time, cfg *config.MonitorConfig) bool {
	if post.LastCheckAt.IsZero() {
		return true
	}
	return now.Sub(post.LastCheckAt) >= checkInterval(post, now, cfg)
}
