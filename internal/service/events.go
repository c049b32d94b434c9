package service

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"pool-server/internal/model"
	"pool-server/internal/state"
)

// 房间事件：写入 outbox 后由 dispatcher 投递到 MQ，供网关广播给房间内客户端
// 事件名即 MQ topic（点号在 RocketMQ 中由下划线替代，这里直接用下划线命名）
const (
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventCountdownStarted  = "countdown_started"
	EventCountdownReverted = "countdown_reverted"
	EventSpinStarting      = "spin_starting"
	EventSpinResult        = "spin_result"
	EventGameCompleted     = "game_completed"
)

// 审计表 event_type 数值枚举，与 room_event_audit 表注释保持一致
var auditEventCode = map[string]int8{
	EventPlayerJoined:      1,
	EventPlayerLeft:        2,
	EventCountdownStarted:  3,
	EventCountdownReverted: 4,
	EventSpinStarting:      5,
	EventSpinResult:        6,
	EventGameCompleted:     7,
}

// 状态变更事件与状态机事件的对应关系；未列出的事件不改变状态
var machineEvent = map[string]string{
	EventCountdownStarted:  state.EvtThresholdReached,
	EventCountdownReverted: state.EvtBelowThreshold,
	EventSpinStarting:      state.EvtDeadlineFired,
	EventSpinResult:        state.EvtSpinDone,
}

// nextStateFor 由状态机推导事件后的状态；非状态变更事件原样返回 prev
func nextStateFor(event, prev string) (string, error) {
	evt, ok := machineEvent[event]
	if !ok {
		return prev, nil
	}
	return state.NextState(prev, evt)
}

// notifyRoomEvent 在业务事务内写 outbox，保证事件与状态变化原子提交
// payload 额外注入 event 与 room_id 字段，网关侧按 room_id 路由广播
func notifyRoomEvent(ctx context.Context, tx sqlx.ExtContext, roomID, event string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event"] = event
	payload["room_id"] = roomID
	return model.CreateOutbox(ctx, tx, event, roomID, payload)
}

// auditTransition 在业务事务内落一条状态机审计
// next 由状态机从 prev 推导，非法转换直接报错，杜绝写出不可能的状态对
func auditTransition(ctx context.Context, tx sqlx.ExtContext, roomID, event, prev, operator, source string, payload any, traceID string) error {
	next, err := nextStateFor(event, prev)
	if err != nil {
		return err
	}
	body := ""
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			body = string(b)
		}
	}
	e := &model.RoomEventAudit{
		RoomID:    roomID,
		EventType: auditEventCode[event],
		PrevState: prev,
		NextState: next,
		Operator:  operator,
		Source:    source,
		Payload:   body,
		TraceID:   traceID,
	}
	return e.Insert(ctx, tx)
}
