package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RoomParticipant 对应 room_participants 表
// 入局顺序 = 自增ID顺序，转盘席位按此排列
// status: 1=active 在局 2=left 已退局
// 唯一键 (room_id, user_id) 防止同一用户在同一房间重复占座；
// 退局后重入走 ReactivateIfLeft 复用同一行
type RoomParticipant struct {
	ID          int64  `db:"id"`           // 自增ID（席位顺序依据）
	RoomID      string `db:"room_id"`      // 房间ID
	UserID      int64  `db:"user_id"`      // 用户ID
	DisplayCode string `db:"display_code"` // 席位码（房间内唯一，展示用）
	EntryFee    int64  `db:"entry_fee"`    // 入场费（分，等于房间档位）
	Status      int8   `db:"status"`       // 1=active 2=left
	JoinedAt    int64  `db:"joined_at"`    // 入局时间（毫秒）
	UpdatedAt   int64  `db:"updated_at"`   // 更新时间
}

// Insert 插入一条参与记录（唯一键冲突表示该用户已在此房间有记录）
func (p *RoomParticipant) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	p.JoinedAt = now
	p.UpdatedAt = now

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO room_participants (room_id, user_id, display_code, entry_fee, status, joined_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{p.RoomID, p.UserID, p.DisplayCode, p.EntryFee, 1, now, now}

	res, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	p.ID = id
	return nil
}

// ReactivateIfLeft 条件更新：退局后重入，复用原行并刷新席位码与入局时间
// 返回 true 表示复用成功（原行存在且处于 left 状态）
func ReactivateIfLeft(ctx context.Context, exec sqlx.ExtContext, roomID string, userID int64, displayCode string) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE room_participants SET status = 1, display_code = ?, joined_at = ?, updated_at = ? WHERE room_id = ? AND user_id = ? AND status = 2"
	res, err := exec.ExecContext(ctx, sqlStr, displayCode, now, now, roomID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkLeft 条件更新：active -> left，并发重复退局只有一次生效
func MarkLeft(ctx context.Context, exec sqlx.ExtContext, roomID string, userID int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE room_participants SET status = 2, updated_at = ? WHERE room_id = ? AND user_id = ? AND status = 1"
	res, err := exec.ExecContext(ctx, sqlStr, now, roomID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetActiveParticipant 查询用户在房间内的在局记录
func GetActiveParticipant(ctx context.Context, exec sqlx.ExtContext, roomID string, userID int64) (*RoomParticipant, error) {
	sqlStr := "SELECT id, room_id, user_id, display_code, entry_fee, status, joined_at, updated_at FROM room_participants WHERE room_id = ? AND user_id = ? AND status = 1 LIMIT 1"
	var p RoomParticipant
	if err := sqlx.GetContext(ctx, exec, &p, sqlStr, roomID, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveByRoom 按入局顺序列出在局参与者（转盘席位序）
func ListActiveByRoom(ctx context.Context, exec sqlx.ExtContext, roomID string) ([]RoomParticipant, error) {
	sqlStr := "SELECT id, room_id, user_id, display_code, entry_fee, status, joined_at, updated_at FROM room_participants WHERE room_id = ? AND status = 1 ORDER BY id ASC"
	var list []RoomParticipant
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, roomID); err != nil {
		return nil, err
	}
	return list, nil
}

// CountActiveMembership 统计用户在该档位下的活跃参与数
// 活跃 = 参与记录 active 且房间状态在 waiting/countdown/spinning
func CountActiveMembership(ctx context.Context, db *sqlx.DB, userID, tier int64) (int, error) {
	sqlStr := `SELECT COUNT(1) FROM room_participants p
		INNER JOIN rooms r ON p.room_id = r.room_id
		WHERE p.user_id = ? AND p.status = 1 AND r.tier = ? AND r.status IN (1, 2, 3)`
	var cnt int
	if err := db.GetContext(ctx, &cnt, sqlStr, userID, tier); err != nil {
		return 0, err
	}
	return cnt, nil
}

// ExistsDisplayCode 校验席位码在房间内是否已被占用（碰撞时重新生成）
func ExistsDisplayCode(ctx context.Context, exec sqlx.ExtContext, roomID, code string) (bool, error) {
	sqlStr := "SELECT COUNT(1) FROM room_participants WHERE room_id = ? AND display_code = ?"
	var cnt int
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlStr, roomID, code); err != nil {
		return false, err
	}
	return cnt > 0, nil
}
