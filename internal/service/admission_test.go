package service

import (
	"testing"

	"pool-server/internal/config"
	"pool-server/internal/state"
)

// 倒计时回退判定：退局与扣款补偿走同一条规则
func TestNeedsRevert(t *testing.T) {
	threshold := config.GetStartThreshold()

	if !needsRevert(state.CodeCountdown, threshold-1) {
		t.Fatal("countdown below threshold must revert")
	}
	if needsRevert(state.CodeCountdown, threshold) {
		t.Fatal("countdown at threshold must not revert")
	}
	if needsRevert(state.CodeWaiting, 0) {
		t.Fatal("waiting has no countdown to revert")
	}
	if needsRevert(state.CodeSpinning, threshold-1) {
		t.Fatal("spinning is past the point of no return")
	}
	if needsRevert(state.CodeCompleted, 0) {
		t.Fatal("completed is terminal")
	}
}
