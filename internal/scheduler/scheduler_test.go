package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/i474232898/safety-companion/internal/alert"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingRefresher struct {
	calls    atomic.Int32
	returned atomic.Bool
	ran      chan struct{}
	block    bool
}

func (c *countingRefresher) Refresh(ctx context.Context) []alert.Decision {
	if c.calls.Add(1) == 1 {
		close(c.ran)
	}
	if c.block {
		<-ctx.Done()
	}
	c.returned.Store(true)
	return []alert.Decision{
		{Weather: alert.WeatherAvailable, Alert: alert.AlertRaise},
		{Weather: alert.WeatherUnavailable, Alert: alert.AlertNone},
	}
}

func TestScheduler_RunsImmediately(t *testing.T) {
	r := &countingRefresher{ran: make(chan struct{})}
	s := New(r, time.Hour, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run on start")
	}
}

func TestScheduler_StopCancelsInFlightRefresh(t *testing.T) {
	r := &countingRefresher{ran: make(chan struct{}), block: true}
	s := New(r, time.Hour, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run on start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running refresh")
	}
}

func TestScheduler_RunAfterStopIsNoop(t *testing.T) {
	r := &countingRefresher{ran: make(chan struct{})}
	s := New(r, time.Minute, nil)
	s.Stop()

	s.run()
	if r.calls.Load() != 0 {
		t.Errorf("expected no refresh after stop, got %d", r.calls.Load())
	}
}

type deadlineRefresher struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineRefresher) Refresh(ctx context.Context) []alert.Decision {
	d.deadline, d.ok = ctx.Deadline()
	return nil
}

func TestScheduler_RefreshBudgetFollowsInterval(t *testing.T) {
	tests := []time.Duration{time.Minute, 45 * time.Minute}

	for _, interval := range tests {
		t.Run(interval.String(), func(t *testing.T) {
			r := &deadlineRefresher{}
			s := New(r, interval, nil)
			defer s.Stop()

			start := time.Now()
			s.run()

			if !r.ok {
				t.Fatal("refresh context should carry a deadline")
			}
			budget := r.deadline.Sub(start)
			if budget < interval-time.Second || budget > interval+time.Second {
				t.Errorf("budget = %v, want about %v", budget, interval)
			}
		})
	}
}

func TestScheduler_StopWaitsForDirectRun(t *testing.T) {
	r := &countingRefresher{ran: make(chan struct{}), block: true}
	s := New(r, time.Hour, nil)

	go s.run()
	<-r.ran

	s.Stop()
	if !r.returned.Load() {
		t.Error("Stop returned before the running refresh finished")
	}
}
