package state

import "testing"

func TestNextStateValidTransitions(t *testing.T) {
	cases := []struct {
		cur, evt, want string
	}{
		{StateWaiting, EvtThresholdReached, StateCountdown},
		{StateCountdown, EvtDeadlineFired, StateSpinning},
		{StateCountdown, EvtBelowThreshold, StateWaiting},
		{StateSpinning, EvtSpinDone, StateCompleted},
	}
	for _, c := range cases {
		got, err := NextState(c.cur, c.evt)
		if err != nil {
			t.Fatalf("%s --%s-->: unexpected error: %v", c.cur, c.evt, err)
		}
		if got != c.want {
			t.Fatalf("%s --%s--> %s, want %s", c.cur, c.evt, got, c.want)
		}
	}
}

func TestNextStateInvalidTransitions(t *testing.T) {
	cases := []struct {
		cur, evt string
	}{
		{StateWaiting, EvtDeadlineFired},  // waiting 不能直接开奖
		{StateWaiting, EvtSpinDone},       // waiting 不能直接完成
		{StateCountdown, EvtSpinDone},     // countdown 不能直接完成
		{StateSpinning, EvtBelowThreshold},
		{StateCompleted, EvtThresholdReached}, // completed 是终态
		{StateCompleted, EvtDeadlineFired},
		{"bogus", EvtDeadlineFired},
	}
	for _, c := range cases {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("%s --%s--> should be rejected", c.cur, c.evt)
		}
	}
}

func TestFromCode(t *testing.T) {
	cases := map[int8]string{
		CodeWaiting:   StateWaiting,
		CodeCountdown: StateCountdown,
		CodeSpinning:  StateSpinning,
		CodeCompleted: StateCompleted,
	}
	for code, want := range cases {
		if got := FromCode(code); got != want {
			t.Fatalf("FromCode(%d) = %s, want %s", code, got, want)
		}
	}
	if FromCode(0) != "" {
		t.Fatalf("code 0 should map to empty string")
	}
}

func TestIsOpen(t *testing.T) {
	if !IsOpen(CodeWaiting) || !IsOpen(CodeCountdown) {
		t.Fatalf("waiting/countdown must be open")
	}
	if IsOpen(CodeSpinning) || IsOpen(CodeCompleted) {
		t.Fatalf("spinning/completed must not be open")
	}
}
