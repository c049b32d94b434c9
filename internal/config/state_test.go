package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGameDefaultsWithoutConfig(t *testing.T) {
	// 未加载配置时一律回退到内置默认值
	current.Store((*Config)(nil))

	if got := GetStartThreshold(); got != 2 {
		t.Fatalf("GetStartThreshold() = %d, want 2", got)
	}
	if got := GetMaxParticipants(); got != 10 {
		t.Fatalf("GetMaxParticipants() = %d, want 10", got)
	}
	if got := GetCountdownDuration().Seconds(); got != 30 {
		t.Fatalf("GetCountdownDuration() = %vs, want 30s", got)
	}
	if got := GetBaseRotations(); got != 5 {
		t.Fatalf("GetBaseRotations() = %d, want 5", got)
	}
	want, _ := decimal.NewFromString("0.8")
	if !GetPayoutShare().Equal(want) {
		t.Fatalf("GetPayoutShare() = %s, want 0.8", GetPayoutShare())
	}
	tiers := GetEntryTiers()
	if len(tiers) != 6 || tiers[0] != 1000 || tiers[5] != 40000 {
		t.Fatalf("GetEntryTiers() = %v", tiers)
	}
}

func TestGameConfigOverrides(t *testing.T) {
	cfg := &Config{}
	cfg.Game.EntryTiers = []int64{500, 1500}
	cfg.Game.StartThreshold = 3
	cfg.Game.MaxParticipants = 6
	cfg.Game.CountdownSeconds = 15
	cfg.Game.PayoutShare = "0.75"
	cfg.Game.BaseRotations = 8
	SetCurrent(cfg)
	defer current.Store((*Config)(nil))

	if !IsValidTier(500) || IsValidTier(1000) {
		t.Fatal("IsValidTier should follow configured tiers")
	}
	if got := GetStartThreshold(); got != 3 {
		t.Fatalf("GetStartThreshold() = %d, want 3", got)
	}
	if got := GetMaxParticipants(); got != 6 {
		t.Fatalf("GetMaxParticipants() = %d, want 6", got)
	}
	if got := GetCountdownDuration().Seconds(); got != 15 {
		t.Fatalf("GetCountdownDuration() = %vs, want 15s", got)
	}
	want, _ := decimal.NewFromString("0.75")
	if !GetPayoutShare().Equal(want) {
		t.Fatalf("GetPayoutShare() = %s, want 0.75", GetPayoutShare())
	}
}

func TestFeatureFlagsAndThresholds(t *testing.T) {
	// 未加载配置：开关默认关，阈值返回调用方默认值
	current.Store((*Config)(nil))
	if GetFeatureFlag("snapshot_cache_bypass") {
		t.Fatal("flags must default to false without config")
	}
	if got := GetThreshold("outbox_batch_size", 100); got != 100 {
		t.Fatalf("GetThreshold default = %d, want 100", got)
	}

	cfg := &Config{
		FeatureFlags: map[string]bool{"snapshot_cache_bypass": true},
		Thresholds:   map[string]int64{"outbox_batch_size": 25},
	}
	SetCurrent(cfg)
	defer current.Store((*Config)(nil))

	if !GetFeatureFlag("snapshot_cache_bypass") {
		t.Fatal("configured flag should be on")
	}
	if GetFeatureFlag("nonexistent") {
		t.Fatal("unknown flag should be off")
	}
	if got := GetThreshold("outbox_batch_size", 100); got != 25 {
		t.Fatalf("GetThreshold = %d, want configured 25", got)
	}
	if got := GetThreshold("sweeper_batch_size", 50); got != 50 {
		t.Fatalf("GetThreshold = %d, want default 50", got)
	}
}

func TestPayoutShareInvalidFallsBack(t *testing.T) {
	cfg := &Config{}
	cfg.Game.PayoutShare = "1.5" // 超过 1 视为非法
	SetCurrent(cfg)
	defer current.Store((*Config)(nil))

	want, _ := decimal.NewFromString("0.8")
	if !GetPayoutShare().Equal(want) {
		t.Fatalf("GetPayoutShare() = %s, want fallback 0.8", GetPayoutShare())
	}
}
