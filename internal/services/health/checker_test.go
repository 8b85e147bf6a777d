package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type mockPinger struct {
	err   error
	block bool
	calls int
}

func (m *mockPinger) Ping(ctx context.Context) error {
	m.calls++
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecker_IsReady(t *testing.T) {
	tests := []struct {
		name string
		deps []Dependency
		want bool
	}{
		{
			name: "no dependencies",
			want: true,
		},
		{
			name: "required dependency up",
			deps: []Dependency{{Name: "postgres", Pinger: &mockPinger{}, Required: true}},
			want: true,
		},
		{
			name: "required dependency down",
			deps: []Dependency{{Name: "postgres", Pinger: &mockPinger{err: errors.New("refused")}, Required: true}},
			want: false,
		},
		{
			name: "optional dependency down",
			deps: []Dependency{
				{Name: "postgres", Pinger: &mockPinger{}, Required: true},
				{Name: "redis", Pinger: &mockPinger{err: errors.New("refused")}},
			},
			want: true,
		},
		{
			name: "required dependency hangs",
			deps: []Dependency{{Name: "postgres", Pinger: &mockPinger{block: true}, Required: true}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(Config{PingTimeout: 20 * time.Millisecond, Logger: discardLogger()}, tt.deps...)
			if got := c.IsReady(); got != tt.want {
				t.Errorf("expected IsReady=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestChecker_PingsEveryDependency(t *testing.T) {
	pg, rd := &mockPinger{err: errors.New("down")}, &mockPinger{}
	c := NewChecker(Config{Logger: discardLogger()},
		Dependency{Name: "postgres", Pinger: pg, Required: true},
		Dependency{Name: "redis", Pinger: rd},
	)
	c.IsReady()
	if pg.calls != 1 || rd.calls != 1 {
		t.Errorf("expected one ping each, got postgres=%d redis=%d", pg.calls, rd.calls)
	}
}

func TestChecker_IsHealthy(t *testing.T) {
	c := NewChecker(Config{})
	if !c.IsHealthy() {
		t.Fatal("expected healthy by default")
	}
	if c.timeout != DefaultPingTimeout {
		t.Errorf("expected default timeout, got %v", c.timeout)
	}
	c.MarkUnhealthy()
	if c.IsHealthy() {
		t.Error("expected unhealthy after MarkUnhealthy")
	}
}
