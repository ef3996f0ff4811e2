// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockServer implements HTTPServer with controllable behavior.
type mockServer struct {
	serveErr  error
	closed    chan struct{}
	shutdowns atomic.Int32
}

func newMockServer(serveErr error) *mockServer {
	return &mockServer{serveErr: serveErr, closed: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.closed
	return errors.New("http: Server closed")
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdowns.Add(1)
	close(m.closed)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newMockServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the server goroutine start, then request shutdown.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", srv.shutdowns.Load())
	}
}

func TestHTTPServerService_StartupFailure(t *testing.T) {
	srv := newMockServer(errors.New("bind: address already in use"))
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve returned nil for a failing server")
	}
}

func TestAliasWarmerService_RefreshesOnInterval(t *testing.T) {
	var refreshes atomic.Int32
	warmer := NewAliasWarmerService(refresherFunc(func(context.Context) {
		refreshes.Add(1)
	}), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := warmer.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve returned %v, want context.DeadlineExceeded", err)
	}

	// One startup refresh plus at least a few ticks.
	if n := refreshes.Load(); n < 3 {
		t.Errorf("refreshed %d times in 100ms at 10ms interval, want >= 3", n)
	}
}

// refresherFunc adapts a func to the Refresher interface.
type refresherFunc func(context.Context)

func (f refresherFunc) Refresh(ctx context.Context) { f(ctx) }
