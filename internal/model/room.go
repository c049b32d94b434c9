package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"pool-server/common"
)

// Room 对应 rooms 表
// 说明：金额统一为分（int64），时间为毫秒时间戳
// status: 1=waiting 等待中 2=countdown 倒计时 3=spinning 开转中 4=completed 已结算
// 倒计时字段在状态回退到 waiting 时清零（0 表示未设置）
// winner 字段仅在 status>=3 后写入
type Room struct {
	ID                int64   `db:"id"`                  // 自增ID（内部使用）
	RoomID            string  `db:"room_id"`             // 房间ID（UUID，对外标识）
	Tier              int64   `db:"tier"`                // 档位入场费（分）
	Status            int8    `db:"status"`              // 房间状态
	ParticipantCount  int     `db:"participant_count"`   // 当前参与人数
	TotalPool         int64   `db:"total_pool"`          // 奖池 = tier * participant_count
	CountdownStartAt  int64   `db:"countdown_start_at"`  // 倒计时开始时间（毫秒，0=未设置）
	CountdownEndsAt   int64   `db:"countdown_ends_at"`   // 倒计时截止时间（毫秒，0=未设置）
	WinnerUserID      int64   `db:"winner_user_id"`      // 中奖用户ID（0=未开奖）
	WinnerCode        string  `db:"winner_code"`         // 中奖席位码
	WinnerSeat        int     `db:"winner_seat"`         // 中奖席位下标（按入局顺序）
	PayoutAmount      int64   `db:"payout_amount"`       // 派彩金额（分）
	FeeAmount         int64   `db:"fee_amount"`          // 平台抽水（分）
	SpinPresentation  float64 `db:"spin_presentation"`   // 转盘表现角度（度）
	TraceID           string  `db:"trace_id"`            // 链路追踪ID
	CreatedAt         int64   `db:"created_at"`          // 创建时间
	UpdatedAt         int64   `db:"updated_at"`          // 更新时间
}

const roomFields = `id, room_id, tier, status, participant_count, total_pool,
	countdown_start_at, countdown_ends_at, winner_user_id, winner_code, winner_seat,
	payout_amount, fee_amount, spin_presentation, trace_id, created_at, updated_at`

// Insert 创建一个空的 waiting 房间
func (r *Room) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	r.CreatedAt = now
	r.UpdatedAt = now

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO rooms (room_id, tier, status, participant_count, total_pool, trace_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{r.RoomID, r.Tier, 1, 0, 0, r.TraceID, now, now}

	res, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return nil
}

// FindOpenRoom 按档位查找一个可入局的房间（waiting/countdown 且未满员）
// 乐观查询：不加锁，最终能否入局由条件更新决定
func FindOpenRoom(ctx context.Context, db *sqlx.DB, tier int64, cap int) (*Room, error) {
	sqlStr := "SELECT " + roomFields + " FROM rooms WHERE tier = ? AND status IN (1, 2) AND participant_count < ? ORDER BY id ASC LIMIT 1"
	var r Room
	if err := db.GetContext(ctx, &r, sqlStr, tier, cap); err != nil {
		return nil, err
	}
	return &r, nil
}

// TryAppendSeat 条件更新：仅当房间仍可入局（waiting/countdown 且未满员）时占据一个席位
// 同一原子步骤内累加奖池。返回 true 表示占座成功。
func TryAppendSeat(ctx context.Context, exec sqlx.ExtContext, roomID string, tier int64, cap int) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET participant_count = participant_count + 1, total_pool = total_pool + ?, updated_at = ? WHERE room_id = ? AND status IN (1, 2) AND participant_count < ?"
	res, err := exec.ExecContext(ctx, sqlStr, tier, now, roomID, cap)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseSeat 条件更新：退局释放席位并回减奖池
// 仅允许在 waiting/countdown 且人数大于 0 时执行
func ReleaseSeat(ctx context.Context, exec sqlx.ExtContext, roomID string, tier int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET participant_count = participant_count - 1, total_pool = total_pool - ?, updated_at = ? WHERE room_id = ? AND status IN (1, 2) AND participant_count > 0"
	res, err := exec.ExecContext(ctx, sqlStr, tier, now, roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PromoteToCountdown 条件更新：waiting -> countdown，人数达到阈值时启动倒计时
// 并发的多次 join 只有一次能推进状态（RowsAffected 判定）
func PromoteToCountdown(ctx context.Context, exec sqlx.ExtContext, roomID string, threshold int, startMs, endsMs int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET status = 2, countdown_start_at = ?, countdown_ends_at = ?, updated_at = ? WHERE room_id = ? AND status = 1 AND participant_count >= ?"
	res, err := exec.ExecContext(ctx, sqlStr, startMs, endsMs, now, roomID, threshold)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevertToWaiting 条件更新：countdown -> waiting，人数跌破阈值时回退并清空倒计时
func RevertToWaiting(ctx context.Context, exec sqlx.ExtContext, roomID string, threshold int) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET status = 1, countdown_start_at = 0, countdown_ends_at = 0, updated_at = ? WHERE room_id = ? AND status = 2 AND participant_count < ?"
	res, err := exec.ExecContext(ctx, sqlStr, now, roomID, threshold)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkSpinning 条件更新：countdown -> spinning
// 这是 trigger 幂等性的唯一有效闸门：重复触发只有第一次能通过
func MarkSpinning(ctx context.Context, exec sqlx.ExtContext, roomID string, threshold int) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET status = 3, updated_at = ? WHERE room_id = ? AND status = 2 AND participant_count >= ?"
	res, err := exec.ExecContext(ctx, sqlStr, now, roomID, threshold)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteSpin 条件更新：spinning -> completed，写入中奖信息
func CompleteSpin(ctx context.Context, exec sqlx.ExtContext, roomID string, winnerUserID int64, winnerCode string, winnerSeat int, payout, fee int64, presentation float64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE rooms SET status = 4, winner_user_id = ?, winner_code = ?, winner_seat = ?, payout_amount = ?, fee_amount = ?, spin_presentation = ?, updated_at = ? WHERE room_id = ? AND status = 3"
	res, err := exec.ExecContext(ctx, sqlStr, winnerUserID, winnerCode, winnerSeat, payout, fee, presentation, now, roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetRoom 获取房间信息（不加锁）
func GetRoom(ctx context.Context, exec sqlx.ExtContext, roomID string) (*Room, error) {
	sqlStr := "SELECT " + roomFields + " FROM rooms WHERE room_id = ? LIMIT 1"
	var r Room
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, roomID); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRoomForUpdate 在事务中按房间ID加锁查询
// 退局等需要“读出档位再条件更新”的流程必须走这里
func GetRoomForUpdate(ctx context.Context, exec sqlx.ExtContext, roomID string) (*Room, error) {
	sqlStr := "SELECT " + roomFields + " FROM rooms WHERE room_id = ? FOR UPDATE"
	var r Room
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, roomID); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListExpiredCountdowns 扫描倒计时已过期但仍未开转的房间（兜底扫描用）
func ListExpiredCountdowns(ctx context.Context, db *sqlx.DB, nowMs int64, limit int) ([]string, error) {
	sqlStr := "SELECT room_id FROM rooms WHERE status = 2 AND countdown_ends_at > 0 AND countdown_ends_at <= ? ORDER BY countdown_ends_at ASC LIMIT ?"
	var ids []string
	if err := db.SelectContext(ctx, &ids, sqlStr, nowMs, limit); err != nil {
		return nil, err
	}
	return ids, nil
}

// RoomOverview 大厅列表用的轻量投影
type RoomOverview struct {
	RoomID           string `db:"room_id"`
	Tier             int64  `db:"tier"`
	Status           int8   `db:"status"`
	ParticipantCount int    `db:"participant_count"`
	TotalPool        int64  `db:"total_pool"`
	CountdownEndsAt  int64  `db:"countdown_ends_at"`
}

// ListOpenRooms 大厅总览：列出开放中的房间（可按档位过滤），goqu 构建查询
func ListOpenRooms(ctx context.Context, db *sqlx.DB, tier int64, limit uint) ([]RoomOverview, error) {
	ex := []g.Expression{g.C("status").In(1, 2)}
	if tier > 0 {
		ex = append(ex, g.C("tier").Eq(tier))
	}

	var list []RoomOverview
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:    db,
		Table: "rooms",
		Fields: []interface{}{
			"room_id", "tier", "status", "participant_count", "total_pool", "countdown_ends_at",
		},
		Ex:    ex,
		Order: []exp.OrderedExpression{g.C("tier").Asc(), g.C("id").Asc()},
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
