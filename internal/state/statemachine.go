package state

import "fmt"

// State 房间状态
const (
	StateWaiting   = "waiting"   // 等待玩家加入
	StateCountdown = "countdown" // 倒计时中(人数达到开局门槛)
	StateSpinning  = "spinning"  // 开奖中(转盘进行)
	StateCompleted = "completed" // 已完成(终态)
)

// Event 房间事件
const (
	EvtThresholdReached = "threshold_reached" // 人数达到开局门槛
	EvtBelowThreshold   = "below_threshold"   // 有人退出导致人数不足
	EvtDeadlineFired    = "deadline_fired"    // 倒计时到期触发开奖
	EvtSpinDone         = "spin_done"         // 开奖完成
)

// 状态数值码（数据库存储用）
// 1=waiting 2=countdown 3=spinning 4=completed
const (
	CodeWaiting   int8 = 1
	CodeCountdown int8 = 2
	CodeSpinning  int8 = 3
	CodeCompleted int8 = 4
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
// 注意：waiting/countdown 不可直接到 completed；completed 是终态
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateWaiting:
		if evt == EvtThresholdReached {
			return StateCountdown, nil
		}
	case StateCountdown:
		if evt == EvtDeadlineFired {
			return StateSpinning, nil
		}
		if evt == EvtBelowThreshold {
			return StateWaiting, nil
		}
	case StateSpinning:
		if evt == EvtSpinDone {
			return StateCompleted, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// FromCode 数值码转状态字符串，未知返回空串
func FromCode(c int8) string {
	switch c {
	case CodeWaiting:
		return StateWaiting
	case CodeCountdown:
		return StateCountdown
	case CodeSpinning:
		return StateSpinning
	case CodeCompleted:
		return StateCompleted
	}
	return ""
}

// IsOpen 房间是否仍可加入（waiting 或 countdown）
func IsOpen(c int8) bool {
	return c == CodeWaiting || c == CodeCountdown
}
