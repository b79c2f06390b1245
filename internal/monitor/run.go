// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package monitor

import (
	"fmt"
	"strings"
	"time"
)

// Stage names for run error reporting.
const (
	StageDetail     = "detail"
	StageSnapshot   = "snapshot"
	StageComments   = "comments"
	StageRetweeters = "retweeters"
	StageQuotes     = "quotes"
	StageTouch      = "touch"
)

// StageError is one failure inside a monitoring run.
type StageError struct {
	Stage    string
	Err      error
	Critical bool
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// RunResult summarizes one monitoring run for a post. Failures in the
// detail phase are critical and abort the run; failures in sub-list
// phases are recorded and the run continues.
type RunResult struct {
	PostID    string
	StartedAt time.Time

	// Deactivated is set when the post was gone at the provider and
	// tracking was switched off.
	Deactivated bool

	// QuotaExhausted is set when the provider reported an exhausted
	// request budget. The run stops at that point.
	QuotaExhausted bool

	SnapshotSaved bool
	NewAmplifiers int

	Errors []StageError
}

// Successful reports whether the run completed with no errors at all.
// A run that deactivated a vanished post counts as successful.
func (r *RunResult) Successful() bool {
	return len(r.Errors) == 0 && !r.QuotaExhausted
}

// Critical reports whether any recorded error was critical.
func (r *RunResult) Critical() bool {
	for _, e := range r.Errors {
		if e.Critical {
			return true
		}
	}
	return false
}

// addError records a stage failure.
func (r *RunResult) addError(stage string, err error, critical bool) {
	r.Errors = append(r.Errors, StageError{Stage: stage, Err: err, Critical: critical})
}

// errorSummary joins stage errors for log output.
func (r *RunResult) errorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
