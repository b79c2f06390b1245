// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package provider implements the client for the external social-data API.
//
// Every call resolves to one of three outcomes the monitor treats
// differently:
//
//   - success: a typed payload
//   - ErrNotFound: the entity no longer exists upstream (deactivate, do
//     not retry)
//   - ErrQuotaExhausted: the provider's rate or spend budget is exhausted
//     (suspend polling for a cooldown instead of retrying immediately)
//
// Resilience mechanisms, outermost first:
//
//   - BreakerClient: sony/gobreaker circuit breaker; opens after a 60%
//     failure rate over at least 10 requests, 2 minute recovery timeout.
//     Not-found outcomes do not count as failures.
//   - Client-side rate limiting via golang.org/x/time/rate, sized to the
//     provider plan.
//   - HTTP 429 handling with exponential backoff (1s, 2s, 4s, 8s, 16s),
//     honoring Retry-After; an exhausted retry budget surfaces as
//     ErrQuotaExhausted.
//
// List endpoints (comments, retweeters, quotes, account posts) follow the
// provider's cursor pagination until the cursor runs out.
package provider
