package config

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"pool-server/common/constant"
)

// 原子存储当前生效的配置，供各业务读取
var current atomic.Value // *Config

func SetCurrent(c *Config) {
	current.Store(c)
}

func GetCurrent() *Config {
	v := current.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}

// GetFeatureFlag 返回功能开关（默认 false）
func GetFeatureFlag(name string) bool {
	cfg := GetCurrent()
	if cfg == nil || cfg.FeatureFlags == nil {
		return false
	}
	return cfg.FeatureFlags[name]
}

// GetThreshold 返回业务阈值（支持默认值）
func GetThreshold(name string, def int64) int64 {
	cfg := GetCurrent()
	if cfg == nil || cfg.Thresholds == nil {
		return def
	}
	if v, ok := cfg.Thresholds[name]; ok {
		return v
	}
	return def
}

// 以下为游戏规则读取入口，未配置时回退到代码内置默认值

// GetEntryTiers 返回档位入场费列表
func GetEntryTiers() []int64 {
	cfg := GetCurrent()
	if cfg == nil || len(cfg.Game.EntryTiers) == 0 {
		return constant.EntryTiers
	}
	return cfg.Game.EntryTiers
}

// IsValidTier 验证入场费是否为合法档位
func IsValidTier(fee int64) bool {
	for _, t := range GetEntryTiers() {
		if t == fee {
			return true
		}
	}
	return false
}

// GetStartThreshold 返回启动倒计时的人数阈值
func GetStartThreshold() int {
	cfg := GetCurrent()
	if cfg == nil || cfg.Game.StartThreshold <= 0 {
		return constant.StartThreshold
	}
	return cfg.Game.StartThreshold
}

// GetMaxParticipants 返回单房间人数上限
func GetMaxParticipants() int {
	cfg := GetCurrent()
	if cfg == nil || cfg.Game.MaxParticipants <= 0 {
		return constant.MaxParticipants
	}
	return cfg.Game.MaxParticipants
}

// GetCountdownDuration 返回开局倒计时时长
func GetCountdownDuration() time.Duration {
	cfg := GetCurrent()
	if cfg == nil || cfg.Game.CountdownSeconds <= 0 {
		return constant.CountdownDuration
	}
	return time.Duration(cfg.Game.CountdownSeconds) * time.Second
}

// GetPayoutShare 返回派彩比例，配置非法时回退到默认值
func GetPayoutShare() decimal.Decimal {
	cfg := GetCurrent()
	if cfg != nil && cfg.Game.PayoutShare != "" {
		if d, err := decimal.NewFromString(cfg.Game.PayoutShare); err == nil && d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(1)) {
			return d
		}
	}
	d, _ := decimal.NewFromString(constant.PayoutShare)
	return d
}

// GetBaseRotations 返回转盘表现层基础整圈数
func GetBaseRotations() int {
	cfg := GetCurrent()
	if cfg == nil || cfg.Game.BaseRotations <= 0 {
		return constant.BaseRotations
	}
	return cfg.Game.BaseRotations
}
