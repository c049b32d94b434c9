package service

import (
	"testing"

	"pool-server/internal/state"
)

func TestNextStateForTransitions(t *testing.T) {
	cases := []struct {
		event, prev, want string
	}{
		{EventCountdownStarted, state.StateWaiting, state.StateCountdown},
		{EventCountdownReverted, state.StateCountdown, state.StateWaiting},
		{EventSpinStarting, state.StateCountdown, state.StateSpinning},
		{EventSpinResult, state.StateSpinning, state.StateCompleted},
		// 非状态变更事件：状态原样保留
		{EventPlayerJoined, state.StateWaiting, state.StateWaiting},
		{EventPlayerJoined, state.StateCountdown, state.StateCountdown},
		{EventPlayerLeft, state.StateWaiting, state.StateWaiting},
		{EventGameCompleted, state.StateCompleted, state.StateCompleted},
	}
	for _, c := range cases {
		got, err := nextStateFor(c.event, c.prev)
		if err != nil {
			t.Fatalf("%s from %s: unexpected error: %v", c.event, c.prev, err)
		}
		if got != c.want {
			t.Fatalf("%s from %s = %s, want %s", c.event, c.prev, got, c.want)
		}
	}
}

func TestNextStateForRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		event, prev string
	}{
		{EventSpinStarting, state.StateWaiting},    // waiting 不能直接开转
		{EventSpinResult, state.StateCountdown},    // countdown 不能直接完成
		{EventCountdownStarted, state.StateSpinning},
		{EventCountdownReverted, state.StateWaiting},
		{EventSpinStarting, state.StateCompleted}, // 终态不可再转
	}
	for _, c := range cases {
		if _, err := nextStateFor(c.event, c.prev); err == nil {
			t.Fatalf("%s from %s should be rejected", c.event, c.prev)
		}
	}
}

func TestMachineEventCoversAllTransitionEvents(t *testing.T) {
	for event := range machineEvent {
		if _, ok := auditEventCode[event]; !ok {
			t.Fatalf("transition event %s missing from audit enum", event)
		}
	}
}
