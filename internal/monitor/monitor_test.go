// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echotrace/echotrace/internal/config"
	"github.com/echotrace/echotrace/internal/dedup"
	"github.com/echotrace/echotrace/internal/models"
	"github.com/echotrace/echotrace/internal/provider"
	"github.com/echotrace/echotrace/internal/store"
)

func testMonitorConfig() *config.MonitorConfig {
	return &config.MonitorConfig{
		TickInterval:   time.Minute,
		MaxConcurrent:  4,
		FollowerCap:    100000,
		QuotaCooldown:  15 * time.Minute,
		FreshAge:       time.Hour,
		RecentAge:      3 * time.Hour,
		FreshInterval:  5 * time.Minute,
		RecentInterval: 15 * time.Minute,
		StaleInterval:  time.Hour,
	}
}

// fakeStore is an in-memory Store for monitor tests.
type fakeStore struct {
	mu        sync.Mutex
	posts     map[string]*models.TrackedPost
	accounts  map[string]*models.TrackedAccount
	snapshots map[string][]models.Snapshot
	events    map[string][]models.AmplifierEvent

	saveSnapshotErr error
	saveEventsErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:     make(map[string]*models.TrackedPost),
		accounts:  make(map[string]*models.TrackedAccount),
		snapshots: make(map[string][]models.Snapshot),
		events:    make(map[string][]models.AmplifierEvent),
	}
}

func (f *fakeStore) ListActivePosts(ctx context.Context) ([]models.TrackedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TrackedPost
	for _, p := range f.posts {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveAccounts(ctx context.Context) ([]models.TrackedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TrackedAccount
	for _, a := range f.accounts {
		if a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) AddPost(ctx context.Context, post *models.TrackedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.posts[post.ID]; ok {
		existing.Active = true
		return nil
	}
	cp := *post
	cp.Active = true
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakeStore) AddAccount(ctx context.Context, account *models.TrackedAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	cp.Active = true
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeStore) SetPostActive(ctx context.Context, postID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	p.Active = active
	return nil
}

func (f *fakeStore) SetAccountActive(ctx context.Context, accountID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.Active = active
	return nil
}

func (f *fakeStore) SetPostAuthor(ctx context.Context, postID, screenName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[postID]; ok {
		p.ScreenName = screenName
	}
	return nil
}

func (f *fakeStore) TouchPost(ctx context.Context, postID string, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[postID]; ok {
		p.LastCheckAt = checkedAt
	}
	return nil
}

func (f *fakeStore) TouchAccount(ctx context.Context, accountID string, followers int64, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[accountID]; ok {
		a.FollowersCount = followers
		a.LastCheckAt = checkedAt
	}
	return nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveSnapshotErr != nil {
		return f.saveSnapshotErr
	}
	f.snapshots[snap.PostID] = append(f.snapshots[snap.PostID], *snap)
	return nil
}

func (f *fakeStore) SaveAmplifierEvents(ctx context.Context, events []models.AmplifierEvent) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveEventsErr != nil {
		return 0, f.saveEventsErr
	}
	for _, e := range events {
		f.events[e.PostID] = append(f.events[e.PostID], e)
	}
	return len(events), nil
}

func (f *fakeStore) LatestSnapshot(ctx context.Context, postID string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snaps := f.snapshots[postID]
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}

// fakeClient is a scriptable provider client.
type fakeClient struct {
	mu sync.Mutex

	detail    *provider.PostDetail
	detailErr error

	comments   []provider.Post
	retweeters []provider.User
	quotes     []provider.Post

	account      *provider.User
	accountErr   error
	accountPosts []provider.Post

	commentCalls   int
	retweeterCalls int
	quoteCalls     int
	postsCalls     int
}

func (f *fakeClient) PostDetail(ctx context.Context, postID string) (*provider.PostDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detail, f.detailErr
}

func (f *fakeClient) Comments(ctx context.Context, postID string, since time.Time) ([]provider.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentCalls++
	return f.comments, nil
}

func (f *fakeClient) Retweeters(ctx context.Context, postID string) ([]provider.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retweeterCalls++
	return f.retweeters, nil
}

func (f *fakeClient) Quotes(ctx context.Context, postID string) ([]provider.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	return f.quotes, nil
}

func (f *fakeClient) Account(ctx context.Context, screenName string) (*provider.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.accountErr
}

func (f *fakeClient) AccountPosts(ctx context.Context, screenName string, since time.Time) ([]provider.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postsCalls++
	return f.accountPosts, nil
}

func detailWith(m models.EngagementMetrics) *provider.PostDetail {
	return &provider.PostDetail{
		Post: provider.Post{
			ID:            "p1",
			FavoriteCount: m.FavoriteCount,
			RetweetCount:  m.RetweetCount,
			ReplyCount:    m.ReplyCount,
			QuoteCount:    m.QuoteCount,
			ViewsCount:    m.ViewsCount,
			BookmarkCount: m.BookmarkCount,
			User:          provider.User{ID: "u1", ScreenName: "author", FollowersCount: 500},
		},
	}
}

func newTestMonitor(st Store, client provider.Client) *Monitor {
	return New(st, client, dedup.NewMemoryIndex(), testMonitorConfig())
}

func TestNeedsUpdate_CadenceTiers(t *testing.T) {
	cfg := testMonitorConfig()
	now := time.Now()

	tests := []struct {
		name      string
		age       time.Duration
		lastCheck time.Duration // how long ago; 0 means never checked
		want      bool
	}{
		{"never checked", 30 * time.Minute, 0, true},
		{"fresh post checked 4m ago", 30 * time.Minute, 4 * time.Minute, false},
		{"fresh post checked 6m ago", 30 * time.Minute, 6 * time.Minute, true},
		{"recent post checked 10m ago", 2 * time.Hour, 10 * time.Minute, false},
		{"recent post checked 20m ago", 2 * time.Hour, 20 * time.Minute, true},
		{"stale post checked 30m ago", 5 * time.Hour, 30 * time.Minute, false},
		{"stale post checked 61m ago", 5 * time.Hour, 61 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &models.TrackedPost{ID: "p1", CreatedAt: now.Add(-tt.age)}
			if tt.lastCheck > 0 {
				post.LastCheckAt = now.Add(-tt.lastCheck)
			}
			if got := needsUpdate(post, now, cfg); got != tt.want {
				t.Errorf("needsUpdate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonitorPost_FirstRunFetchesEverything(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		detail: detailWith(models.EngagementMetrics{FavoriteCount: 1, ReplyCount: 2, RetweetCount: 3, QuoteCount: 1}),
		comments: []provider.Post{
			{ID: "c1", User: provider.User{ScreenName: "carol", FollowersCount: 10}},
		},
		retweeters: []provider.User{{ScreenName: "bob", FollowersCount: 20}},
		quotes:     []provider.Post{{ID: "q1", User: provider.User{ScreenName: "quinn"}}},
	}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	result := m.monitorPost(context.Background(), post)
	if !result.Successful() {
		t.Fatalf("run failed: %s", result.errorSummary())
	}
	if !result.SnapshotSaved {
		t.Error("expected snapshot saved")
	}
	if result.NewAmplifiers != 3 {
		t.Errorf("expected 3 new amplifiers, got %d", result.NewAmplifiers)
	}
	if client.commentCalls != 1 || client.retweeterCalls != 1 || client.quoteCalls != 1 {
		t.Errorf("expected every sub-list fetched on first run, got c=%d r=%d q=%d",
			client.commentCalls, client.retweeterCalls, client.quoteCalls)
	}
	if st.posts["p1"].LastCheckAt.IsZero() {
		t.Error("expected last check time recorded")
	}
	if st.posts["p1"].ScreenName != "author" {
		t.Errorf("expected author handle denormalized, got %q", st.posts["p1"].ScreenName)
	}
}

func TestMonitorPost_ConditionalRefetch(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		detail: detailWith(models.EngagementMetrics{ReplyCount: 0, RetweetCount: 3}),
	}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	// Baseline run.
	if result := m.monitorPost(context.Background(), post); !result.Successful() {
		t.Fatalf("baseline run failed: %s", result.errorSummary())
	}
	client.mu.Lock()
	client.commentCalls, client.retweeterCalls, client.quoteCalls = 0, 0, 0
	// Replies moved, retweets did not.
	client.detail = detailWith(models.EngagementMetrics{ReplyCount: 5, RetweetCount: 3})
	client.mu.Unlock()

	if result := m.monitorPost(context.Background(), post); !result.Successful() {
		t.Fatalf("second run failed: %s", result.errorSummary())
	}

	if client.commentCalls != 1 {
		t.Errorf("expected comments refetched after reply count change, got %d calls", client.commentCalls)
	}
	if client.retweeterCalls != 0 {
		t.Errorf("expected retweeters skipped with unchanged count, got %d calls", client.retweeterCalls)
	}
	if client.quoteCalls != 0 {
		t.Errorf("expected quotes skipped with unchanged count, got %d calls", client.quoteCalls)
	}
}

func TestMonitorPost_NotFoundDeactivates(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{detailErr: provider.ErrNotFound}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	result := m.monitorPost(context.Background(), post)
	if !result.Deactivated {
		t.Error("expected deactivation for vanished post")
	}
	if !result.Successful() {
		t.Errorf("deactivation is not a failure: %s", result.errorSummary())
	}
	if st.posts["p1"].Active {
		t.Error("expected post stored inactive")
	}
	if len(st.snapshots["p1"]) != 0 {
		t.Error("no snapshot may be saved for a vanished post")
	}
}

func TestMonitorPost_CriticalDetailFailureAborts(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{detailErr: errors.New("connection reset")}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	result := m.monitorPost(context.Background(), post)
	if result.Successful() {
		t.Fatal("expected failed run")
	}
	if !result.Critical() {
		t.Error("detail failure must be critical")
	}
	if len(st.snapshots["p1"]) != 0 {
		t.Error("no snapshot may be saved after critical detail failure")
	}
	if !st.posts["p1"].LastCheckAt.IsZero() {
		t.Error("last check must stay unchanged so the post is due next tick")
	}
}

func TestMonitorPost_QuotaPausesMonitor(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{detailErr: provider.ErrQuotaExhausted}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	m.runPost(context.Background(), post)

	if !m.quotaPaused() {
		t.Error("expected monitor paused after quota exhaustion")
	}
}

func TestMonitorPost_DedupAcrossRuns(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		detail:     detailWith(models.EngagementMetrics{RetweetCount: 1}),
		retweeters: []provider.User{{ScreenName: "bob", FollowersCount: 20}},
	}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	if result := m.monitorPost(context.Background(), post); result.NewAmplifiers != 1 {
		t.Fatalf("expected 1 new amplifier on first run, got %d", result.NewAmplifiers)
	}

	// Retweet count moves so the list is refetched, but bob is already
	// recorded.
	client.mu.Lock()
	client.detail = detailWith(models.EngagementMetrics{RetweetCount: 2})
	client.mu.Unlock()

	if result := m.monitorPost(context.Background(), post); result.NewAmplifiers != 0 {
		t.Errorf("expected 0 new amplifiers for repeated identity, got %d", result.NewAmplifiers)
	}
	if got := len(st.events["p1"]); got != 1 {
		t.Errorf("expected exactly 1 stored event, got %d", got)
	}
}

func TestMonitorPost_SnapshotFailureAbortsRun(t *testing.T) {
	st := newFakeStore()
	st.saveSnapshotErr = errors.New("out of memory")
	client := &fakeClient{
		detail:     detailWith(models.EngagementMetrics{RetweetCount: 1, ReplyCount: 1}),
		comments:   []provider.Post{{ID: "c1", User: provider.User{ScreenName: "carol"}}},
		retweeters: []provider.User{{ScreenName: "bob"}},
	}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	result := m.monitorPost(context.Background(), post)
	if result.Successful() {
		t.Fatal("expected failed run")
	}
	if !result.Critical() {
		t.Error("snapshot save failure must be critical")
	}
	if result.SnapshotSaved {
		t.Error("snapshot must not be reported saved")
	}
	// Amplifier events are keyed by the snapshot timestamp; without the
	// snapshot row none of the sub-lists may be fetched or persisted.
	if client.commentCalls != 0 || client.retweeterCalls != 0 || client.quoteCalls != 0 {
		t.Errorf("expected no sub-list fetches, got c=%d r=%d q=%d",
			client.commentCalls, client.retweeterCalls, client.quoteCalls)
	}
	if len(st.events["p1"]) != 0 {
		t.Errorf("expected no stored events, got %d", len(st.events["p1"]))
	}
	if !st.posts["p1"].LastCheckAt.IsZero() {
		t.Error("last check must stay unchanged so the post is due next tick")
	}
}

func TestMonitorPost_FailedEventPersistRetriesNextRun(t *testing.T) {
	st := newFakeStore()
	st.saveEventsErr = errors.New("io error")
	client := &fakeClient{
		detail:     detailWith(models.EngagementMetrics{RetweetCount: 1}),
		retweeters: []provider.User{{ScreenName: "bob", FollowersCount: 20}},
	}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	result := m.monitorPost(context.Background(), post)
	if result.NewAmplifiers != 0 {
		t.Fatalf("expected 0 amplifiers after failed persist, got %d", result.NewAmplifiers)
	}
	if result.Critical() {
		t.Error("a failed event batch must not abort the run")
	}
	if len(st.events["p1"]) != 0 {
		t.Fatalf("expected no stored events, got %d", len(st.events["p1"]))
	}

	// The store recovers and the retweet count moves, forcing a refetch.
	// Bob was never marked seen, so the identity is stored this time
	// instead of being lost.
	st.mu.Lock()
	st.saveEventsErr = nil
	st.mu.Unlock()
	client.mu.Lock()
	client.detail = detailWith(models.EngagementMetrics{RetweetCount: 2})
	client.mu.Unlock()

	result = m.monitorPost(context.Background(), post)
	if result.NewAmplifiers != 1 {
		t.Errorf("expected 1 amplifier on retry, got %d", result.NewAmplifiers)
	}
	if got := len(st.events["p1"]); got != 1 {
		t.Errorf("expected 1 stored event after retry, got %d", got)
	}
}

func TestCheckAccount_OverCapDeactivatesWithoutDiscovery(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		account: &provider.User{ID: "a1", ScreenName: "whale", FollowersCount: 2_000_000},
	}
	m := newTestMonitor(st, client)

	account := &models.TrackedAccount{
		ID: "a1", ScreenName: "whale", Active: true,
		FollowerCap: 100000, CreatedAt: time.Now(),
	}
	st.accounts["a1"] = account

	m.checkAccount(context.Background(), account)

	if st.accounts["a1"].Active {
		t.Error("expected over-cap account stored inactive")
	}
	if client.postsCalls != 0 {
		t.Error("over-cap account must not trigger post discovery")
	}
}

func TestCheckAccount_DiscoversAndBaselinesNewPosts(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		account: &provider.User{ID: "a1", ScreenName: "author", FollowersCount: 500},
		accountPosts: []provider.Post{
			{ID: "p9", User: provider.User{ScreenName: "author"}},
		},
		detail: detailWith(models.EngagementMetrics{FavoriteCount: 1}),
	}
	m := newTestMonitor(st, client)

	account := &models.TrackedAccount{
		ID: "a1", ScreenName: "author", Active: true,
		FollowerCap: 100000, CreatedAt: time.Now().Add(-time.Hour),
	}
	st.accounts["a1"] = account

	m.checkAccount(context.Background(), account)

	p, ok := st.posts["p9"]
	if !ok {
		t.Fatal("expected discovered post tracked")
	}
	if !p.Active {
		t.Error("discovered post must be active")
	}
	if len(st.snapshots["p9"]) != 1 {
		t.Errorf("expected baseline snapshot for discovered post, got %d", len(st.snapshots["p9"]))
	}
	if st.accounts["a1"].LastCheckAt.IsZero() {
		t.Error("expected account check time recorded")
	}
}

func TestTrackAccount_OverCapStoredInactive(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		account: &provider.User{ID: "a1", ScreenName: "whale", FollowersCount: 500000},
	}
	m := newTestMonitor(st, client)

	if err := m.TrackAccount(context.Background(), "whale", 100000); err != nil {
		t.Fatalf("TrackAccount failed: %v", err)
	}

	a, ok := st.accounts["a1"]
	if !ok {
		t.Fatal("expected over-cap account stored")
	}
	if a.Active {
		t.Error("over-cap account must be stored inactive")
	}
	if a.FollowerCap != 100000 {
		t.Errorf("expected follower cap persisted, got %d", a.FollowerCap)
	}

	// Inactive accounts are tracked but never polled.
	active, err := st.ListActiveAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListActiveAccounts failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active accounts, got %d", len(active))
	}
}

func TestTrackAccount_UnderCapStoredActive(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{
		account: &provider.User{ID: "a1", ScreenName: "author", FollowersCount: 500},
	}
	m := newTestMonitor(st, client)

	if err := m.TrackAccount(context.Background(), "author", 100000); err != nil {
		t.Fatalf("TrackAccount failed: %v", err)
	}
	a, ok := st.accounts["a1"]
	if !ok {
		t.Fatal("expected account stored")
	}
	if !a.Active {
		t.Error("under-cap account must be active")
	}
}

func TestPass_SkippedWhileQuotaPaused(t *testing.T) {
	st := newFakeStore()
	client := &fakeClient{detail: detailWith(models.EngagementMetrics{})}
	m := newTestMonitor(st, client)

	post := &models.TrackedPost{ID: "p1", CreatedAt: time.Now(), Active: true}
	st.posts["p1"] = post

	m.pauseForQuota()
	m.pass(context.Background())

	if len(st.snapshots["p1"]) != 0 {
		t.Error("paused monitor must not run posts")
	}
}
