package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"pool-server/internal/service"
)

type fakeSpin struct {
	mu    sync.Mutex
	fired []service.SpinInput
	ch    chan string
}

func newFakeSpin() *fakeSpin { return &fakeSpin{ch: make(chan string, 8)} }

func (f *fakeSpin) Trigger(_ context.Context, in service.SpinInput) (*service.SpinOutput, error) {
	f.mu.Lock()
	f.fired = append(f.fired, in)
	f.mu.Unlock()
	f.ch <- in.RoomID
	return &service.SpinOutput{RoomID: in.RoomID, Noop: true}, nil
}

func TestSchedulerFiresAtDeadline(t *testing.T) {
	spin := newFakeSpin()
	s := NewCountdownScheduler(spin)
	defer s.Stop()

	s.Schedule("room-a", time.Now().Add(20*time.Millisecond).UnixMilli())

	select {
	case id := <-spin.ch:
		if id != "room-a" {
			t.Fatalf("fired for %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	spin.mu.Lock()
	defer spin.mu.Unlock()
	if spin.fired[0].Source != "timer" {
		t.Fatalf("source = %s", spin.fired[0].Source)
	}
}

func TestSchedulerCancelPreventsFire(t *testing.T) {
	spin := newFakeSpin()
	s := NewCountdownScheduler(spin)
	defer s.Stop()

	s.Schedule("room-b", time.Now().Add(30*time.Millisecond).UnixMilli())
	s.Cancel("room-b")

	select {
	case id := <-spin.ch:
		t.Fatalf("cancelled timer fired for %s", id)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSchedulerRescheduleReplacesTimer(t *testing.T) {
	spin := newFakeSpin()
	s := NewCountdownScheduler(spin)
	defer s.Stop()

	// 第二次注册替换第一次，最终只触发一次
	s.Schedule("room-c", time.Now().Add(20*time.Millisecond).UnixMilli())
	s.Schedule("room-c", time.Now().Add(40*time.Millisecond).UnixMilli())

	select {
	case <-spin.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	select {
	case <-spin.ch:
		t.Fatal("replaced timer fired twice")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSchedulerPastDeadlineFiresImmediately(t *testing.T) {
	spin := newFakeSpin()
	s := NewCountdownScheduler(spin)
	defer s.Stop()

	s.Schedule("room-d", time.Now().Add(-1*time.Second).UnixMilli())

	select {
	case <-spin.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("past-deadline timer did not fire")
	}
}
