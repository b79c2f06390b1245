// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package provider

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/echotrace/echotrace/internal/logging"
	"github.com/echotrace/echotrace/internal/metrics"
)

// BreakerClient wraps a Client with a circuit breaker so a dead or
// misbehaving provider cannot soak every monitoring pass in timeouts.
//
// Breaker policy:
//   - Opens at >= 60% failure rate over at least 10 requests
//   - Counts reset after 1 minute in the closed state
//   - 2 minutes open before probing with up to 3 half-open requests
//   - ErrNotFound and ErrQuotaExhausted are valid provider answers, not
//     transport failures, and never trip the breaker
//
// The breaker uses real time; tests exercise the wrapped client directly.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps inner with a circuit breaker.
func NewBreakerClient(inner Client) *BreakerClient {
	name := "provider-api"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening provider circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			// Outcome sentinels are answers, not failures.
			return err == nil || IsNotFound(err) || IsQuotaExhausted(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerClient{inner: inner, cb: cb, name: name}
}

// execute funnels a call through the breaker and records metrics.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil, IsNotFound(err), IsQuotaExhausted(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// PostDetail implements Client.
func (b *BreakerClient) PostDetail(ctx context.Context, postID string) (*PostDetail, error) {
	result, err := b.execute(func() (any, error) { return b.inner.PostDetail(ctx, postID) })
	if err != nil {
		return nil, err
	}
	return result.(*PostDetail), nil
}

// Comments implements Client.
func (b *BreakerClient) Comments(ctx context.Context, postID string, since time.Time) ([]Post, error) {
	result, err := b.execute(func() (any, error) { return b.inner.Comments(ctx, postID, since) })
	if err != nil {
		return nil, err
	}
	return result.([]Post), nil
}

// Retweeters implements Client.
func (b *BreakerClient) Retweeters(ctx context.Context, postID string) ([]User, error) {
	result, err := b.execute(func() (any, error) { return b.inner.Retweeters(ctx, postID) })
	if err != nil {
		return nil, err
	}
	return result.([]User), nil
}

// Quotes implements Client.
func (b *BreakerClient) Quotes(ctx context.Context, postID string) ([]Post, error) {
	result, err := b.execute(func() (any, error) { return b.inner.Quotes(ctx, postID) })
	if err != nil {
		return nil, err
	}
	return result.([]Post), nil
}

// Account implements Client.
func (b *BreakerClient) Account(ctx context.Context, screenName string) (*User, error) {
	result, err := b.execute(func() (any, error) { return b.inner.Account(ctx, screenName) })
	if err != nil {
		return nil, err
	}
	return result.(*User), nil
}

// AccountPosts implements Client.
func (b *BreakerClient) AccountPosts(ctx context.Context, screenName string, since time.Time) ([]Post, error) {
	result, err := b.execute(func() (any, error) { return b.inner.AccountPosts(ctx, screenName, since) })
	if err != nil {
		return nil, err
	}
	return result.([]Post), nil
}

// stateToFloat maps breaker states to the gauge encoding.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
