// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package models defines the core domain types shared across Echotrace.
//
// The model layer is deliberately free of behavior: types here are plain
// records exchanged between the monitor, the store, the dedup index, and
// the analytics aggregator. The ownership rules are:
//
//   - The monitor is the only writer of TrackedPost, TrackedAccount,
//     Snapshot, and AmplifierEvent.
//   - The analytics aggregator only reads them and produces the derived
//     types (PostHistory, AnalyzedHistory, InsightData).
//
// Two invariants are encoded structurally rather than by convention:
//
//   - Snapshot identity is (PostID, CapturedAt); the store enforces at
//     most one snapshot per pair, and CapturedAt values for a post are
//     non-decreasing across monitoring runs.
//   - AmplifierEvent identity is (PostID, Type, Identity); the store and
//     the dedup index both enforce global uniqueness across all time.
package models
