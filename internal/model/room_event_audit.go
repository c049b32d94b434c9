package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RoomEventAudit 对应 room_event_audit 表（状态机审计）
// event_type 采用数值枚举（1=player_joined 2=player_left 3=countdown_started
// 4=countdown_reverted 5=spin_starting 6=spin_result 7=game_completed）
// prev_state/next_state 使用字符串快照，便于直观查询
type RoomEventAudit struct {
	ID int64 `db:"id"`
	// 房间ID
	RoomID string `db:"room_id"`
	// 事件类型（数值枚举）
	EventType int8   `db:"event_type"`
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
func (e *RoomEventAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO room_event_audit (room_id, event_type, prev_state, next_state, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.RoomID, e.EventType, e.PrevState, e.NextState, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
