// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package services wraps long-running components as suture services.
package services

import (
	"context"
)

// MonitorRunner matches the monitor's blocking Run method. Satisfied by
// *monitor.Monitor; the interface keeps this package free of a direct
// dependency so tests can substitute a stub.
type MonitorRunner interface {
	Run(ctx context.Context) error
}

// MonitorService wraps the engagement monitor as a supervised service.
// The supervisor restarts it if the loop ever returns before shutdown.
type MonitorService struct {
	runner MonitorRunner
	name   string
}

// NewMonitorService creates the monitor service wrapper.
func NewMonitorService(runner MonitorRunner) *MonitorService {
	return &MonitorService{runner: runner, name: "engagement-monitor"}
}

// Serve implements suture.Service.
func (s *MonitorService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer for supervisor log messages.
func (s *MonitorService) String() string {
	return s.name
}
