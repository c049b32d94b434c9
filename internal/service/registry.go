package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	"pool-server/internal/model"
	"pool-server/internal/state"
)

// findOrCreateOpenRoom 按档位查找一个可入局房间；没有则新建一个空的 waiting 房间
// 查找是乐观的：并发下多个请求可能拿到同一个房间，最终由条件更新的占座结果裁决。
// forceNew 为 true 时跳过查找直接新建（占座失败重试用，避免反复撞同一个刚满员的房间）
func findOrCreateOpenRoom(ctx context.Context, tier int64, forceNew bool, traceID string) (*model.Room, error) {
	db := infmysql.SQLX()

	if !forceNew {
		r, err := model.FindOpenRoom(ctx, db, tier, config.GetMaxParticipants())
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to find open room: %w", err)
		}
	}

	room := &model.Room{
		RoomID:  uuid.New().String(),
		Tier:    tier,
		Status:  state.CodeWaiting,
		TraceID: traceID,
	}
	if err := room.Insert(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	fmt.Printf("[Room] 新建房间: room_id=%s, tier=%d, trace_id=%s\n", room.RoomID, tier, traceID)
	return room, nil
}
