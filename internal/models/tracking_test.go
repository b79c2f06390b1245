// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestAmplifierTypeValid(t *testing.T) {
	for _, typ := range AmplifierTypes {
		if !typ.Valid() {
			t.Errorf("type %q not valid", typ)
		}
	}
	if AmplifierType("like").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestTrackedPostMarshalZeroLastCheck(t *testing.T) {
	post := TrackedPost{
		ID:        "p1",
		Active:    true,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// A never-checked post serializes the zero timestamp explicitly so
	// API consumers see the field instead of guessing at its absence.
	if !strings.Contains(string(data), `"last_check_at":"0001-01-01T00:00:00Z"`) {
		t.Errorf("zero last_check_at missing from %s", data)
	}
	if strings.Contains(string(data), `"account_id"`) {
		t.Errorf("empty account_id should be omitted, got %s", data)
	}
}

func TestEngagementAnalysisMarshalZeroPeak(t *testing.T) {
	data, err := json.Marshal(EngagementAnalysis{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"peak_engagement_time":"0001-01-01T00:00:00Z"`) {
		t.Errorf("zero peak_engagement_time missing from %s", data)
	}
}
