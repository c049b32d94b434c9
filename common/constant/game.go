package constant

import "time"

// 游戏核心规则常量
const (
	// StartThreshold 达到该人数后启动开局倒计时
	StartThreshold = 2
	// MaxParticipants 单房间人数上限，满员后新加入请求改投其他房间
	MaxParticipants = 10
	// CountdownDuration 开局倒计时时长
	CountdownDuration = 30 * time.Second
	// PayoutShare 奖池派彩比例，剩余部分为平台抽水
	PayoutShare = "0.8"
	// BaseRotations 转盘表现层基础整圈数
	BaseRotations = 5
)

// EntryTiers 档位入场费（分）。房间按档位隔离，金额不在档位内的请求一律拒绝。
// 档位校验入口在 internal/config（支持配置覆盖），这里只承载内置默认值。
var EntryTiers = []int64{1000, 2000, 4000, 10000, 20000, 40000}
