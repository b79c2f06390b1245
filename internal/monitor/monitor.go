// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package monitor drives the adaptive polling loop: it decides which
// tracked posts and accounts are due, fetches their current state from
// the provider, and persists snapshots and newly seen amplifiers.
//
// Concurrency model: each pass walks the due set with a bounded number
// of in-flight runs. A provider quota exhaustion pauses all provider
// work for a cooldown instead of burning the remaining budget on
// requests that will also fail.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/echotrace/echotrace/internal/config"
	"github.com/echotrace/echotrace/internal/dedup"
	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/metrics"
	"github.com/echotrace/echotrace/internal/models"
	"github.com/echotrace/echotrace/internal/provider"
)

// Store is the persistence surface the monitor needs. *store.Store
// satisfies it; tests use a fake.
type Store interface {
	ListActivePosts(ctx context.Context) ([]models.TrackedPost, error)
	ListActiveAccounts(ctx context.Context) ([]models.TrackedAccount, error)
	AddPost(ctx context.Context, post *models.TrackedPost) error
	AddAccount(ctx context.Context, account *models.TrackedAccount) error
	SetPostActive(ctx context.Context, postID string, active bool) error
	SetPostAuthor(ctx context.Context, postID, screenName string) error
	SetAccountActive(ctx context.Context, accountID string, active bool) error
	TouchPost(ctx context.Context, postID string, checkedAt time.Time) error
	TouchAccount(ctx context.Context, accountID string, followers int64, checkedAt time.Time) error
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	SaveAmplifierEvents(ctx context.Context, events []models.AmplifierEvent) (int, error)
	LatestSnapshot(ctx context.Context, postID string) (*models.Snapshot, error)
}

// Monitor owns the polling loop.
type Monitor struct {
	store  Store
	client provider.Client
	index  dedup.Index
	cfg    *config.MonitorConfig

	// now is swappable for tests.
	now func() time.Time

	quotaMu     sync.Mutex
	pausedUntil time.Time
}

// New creates a monitor. cfg must already be validated.
func New(store Store, client provider.Client, index dedup.Index, cfg *config.MonitorConfig) *Monitor {
	return &Monitor{
		store:  store,
		client: client,
		index:  index,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run executes monitoring passes until ctx is canceled. It runs one
// pass immediately, then ticks at the configured interval.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Info().
		Dur("tick", m.cfg.TickInterval).
		Int("max_concurrent", m.cfg.MaxConcurrent).
		Msg("Starting engagement monitor")

	m.pass(ctx)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Engagement monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.pass(ctx)
		}
	}
}

// pass runs one monitoring sweep: accounts first, so newly discovered
// posts join the due set, then every due post.
func (m *Monitor) pass(ctx context.Context) {
	if m.quotaPaused() {
		logging.Debug().Time("paused_until", m.pauseDeadline()).Msg("Skipping pass, provider quota cooldown active")
		return
	}

	m.checkAccounts(ctx)

	if m.quotaPaused() {
		return
	}

	m.checkPosts(ctx)
}

// checkPosts finds due posts and monitors them with bounded concurrency.
func (m *Monitor) checkPosts(ctx context.Context) {
	posts, err := m.store.ListActivePosts(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list active posts")
		return
	}

	now := m.now()
	var due []models.TrackedPost
	for _, p := range posts {
		if needsUpdate(&p, now, m.cfg) {
			due = append(due, p)
		}
	}
	metrics.MonitorItemsDue.WithLabelValues("post").Set(float64(len(due)))

	if len(due) == 0 {
		logging.Debug().Msg("No posts due for monitoring")
		return
	}

	logging.Info().Int("due", len(due)).Int("tracked", len(posts)).Msg("Monitoring due posts")

	sem := make(chan struct{}, m.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range due {
		if m.quotaPaused() || ctx.Err() != nil {
			break
		}

		post := due[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			m.runPost(ctx, &post)
		}()
	}

	wg.Wait()
}

// runPost executes one post run and records its outcome.
func (m *Monitor) runPost(ctx context.Context, post *models.TrackedPost) {
	result := m.monitorPost(ctx, post)

	switch {
	case result.QuotaExhausted:
		metrics.MonitorRunsTotal.WithLabelValues("post", "quota").Inc()
		m.pauseForQuota()
	case result.Critical():
		metrics.MonitorRunsTotal.WithLabelValues("post", "critical").Inc()
	case !result.Successful():
		metrics.MonitorRunsTotal.WithLabelValues("post", "partial").Inc()
	default:
		metrics.MonitorRunsTotal.WithLabelValues("post", "success").Inc()
	}

	for _, e := range result.Errors {
		severity := "noncritical"
		if e.Critical {
			severity = "critical"
		}
		metrics.MonitorRunErrorsTotal.WithLabelValues(e.Stage, severity).Inc()
	}

	if !result.Successful() {
		logging.Warn().
			Str("post_id", result.PostID).
			Bool("quota_exhausted", result.QuotaExhausted).
			Str("errors", result.errorSummary()).
			Msg("Monitoring run had issues")
	}
}

// quotaPaused reports whether provider work is suspended.
func (m *Monitor) quotaPaused() bool {
	m.quotaMu.Lock()
	defer m.quotaMu.Unlock()
	return m.now().Before(m.pausedUntil)
}

func (m *Monitor) pauseDeadline() time.Time {
	m.quotaMu.Lock()
	defer m.quotaMu.Unlock()
	return m.pausedUntil
}

// pauseForQuota suspends provider work for the configured cooldown.
// Concurrent runs that all hit the quota extend from the latest call.
func (m *Monitor) pauseForQuota() {
	m.quotaMu.Lock()
	defer m.quotaMu.Unlock()

	until := m.now().Add(m.cfg.QuotaCooldown)
	if until.After(m.pausedUntil) {
		m.pausedUntil = until
		metrics.MonitorQuotaPauses.Inc()
		logging.Warn().Time("paused_until", until).Msg("Provider quota exhausted, pausing monitoring")
	}
}
