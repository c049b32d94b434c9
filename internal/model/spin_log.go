package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SpinLog 开转日志表（防止重复开奖）
// room_id 上有唯一索引：同一房间只允许一条开转记录
type SpinLog struct {
	ID               int64   `db:"id"`                // 自增ID
	RoomID           string  `db:"room_id"`           // 房间ID（唯一）
	WinnerUserID     int64   `db:"winner_user_id"`    // 中奖用户ID
	WinnerCode       string  `db:"winner_code"`       // 中奖席位码
	WinnerSeat       int     `db:"winner_seat"`       // 中奖席位下标
	ParticipantCount int     `db:"participant_count"` // 开转时参与人数
	TotalPool        int64   `db:"total_pool"`        // 奖池（分）
	PayoutAmount     int64   `db:"payout_amount"`     // 派彩金额（分）
	FeeAmount        int64   `db:"fee_amount"`        // 平台抽水（分）
	Presentation     float64 `db:"presentation"`      // 转盘表现角度
	Operator         string  `db:"operator"`          // 触发来源: timer|sweeper|api
	TraceID          string  `db:"trace_id"`          // 链路追踪ID
	CreatedAt        int64   `db:"created_at"`        // 创建时间
}

// CreateSpinLog 创建开转日志（利用唯一索引防止重复开奖）
// 返回唯一键冲突错误说明该房间已经开转过
func CreateSpinLog(ctx context.Context, exec sqlx.ExtContext, log *SpinLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO spin_log (room_id, winner_user_id, winner_code, winner_seat, participant_count, total_pool, payout_amount, fee_amount, presentation, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.RoomID, log.WinnerUserID, log.WinnerCode, log.WinnerSeat, log.ParticipantCount,
		log.TotalPool, log.PayoutAmount, log.FeeAmount, log.Presentation, log.Operator, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}
