// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// fakeServer blocks in ListenAndServe until Shutdown is called.
type fakeServer struct {
	listenErr   error
	shutdownErr error

	shutdownCalled chan struct{}
	release        chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		shutdownCalled: make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.release
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	close(f.shutdownCalled)
	close(f.release)
	return f.shutdownErr
}

func TestHTTPServerService_GracefulShutdownOnCancel(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPServerService("test-server", server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case <-server.shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("expected Shutdown called after context cancel")
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

func TestHTTPServerService_ListenFailureSurfaces(t *testing.T) {
	server := newFakeServer()
	server.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService("test-server", server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Errorf("expected listen error surfaced, got %v", err)
	}
}

func TestHTTPServerService_ServerClosedIsClean(t *testing.T) {
	server := newFakeServer()
	server.listenErr = http.ErrServerClosed
	svc := NewHTTPServerService("test-server", server, time.Second)

	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("expected clean exit on ErrServerClosed, got %v", err)
	}
}

type stubRunner struct {
	err error
}

func (s *stubRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func TestMonitorService_ForwardsRun(t *testing.T) {
	svc := NewMonitorService(&stubRunner{})
	if svc.String() != "engagement-monitor" {
		t.Errorf("unexpected service name %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
