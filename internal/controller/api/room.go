package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	helper "pool-server/internal/common/helper"
	"pool-server/internal/common/response"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	infrds "pool-server/internal/infra/redis"
	"pool-server/internal/model"
	"pool-server/internal/state"

	beego "github.com/beego/beego/v2/server/web"
)

// RoomController 房间快照查询：GET /api/room/:room_id
// 无推送通道的客户端靠轮询这个接口跟进房间进度。
// 读路径：Redis 快照缓存 → DB 回源并回填；倒计时是动态数据，缓存 TTL 取短。

const snapshotCacheTTL = 3 * time.Second

type RoomController struct{ beego.Controller }

type participantView struct {
	Code     string `json:"code"`
	JoinedAt int64  `json:"joined_at"`
}

type roomSnapshot struct {
	RoomID           string            `json:"room_id"`
	Tier             int64             `json:"tier"`
	Status           string            `json:"status"`
	ParticipantCount int               `json:"participant_count"`
	Participants     []participantView `json:"participants"`
	TotalPool        int64             `json:"total_pool"`
	CountdownStartAt int64             `json:"countdown_start_at"`
	CountdownEndsAt  int64             `json:"countdown_ends_at"`
	WinnerCode       string            `json:"winner_code,omitempty"`
	WinnerPayout     int64             `json:"winner_payout,omitempty"`
	SpinPresentation float64           `json:"spin_presentation,omitempty"`
}

func (c *RoomController) GetRoom() {
	roomID := c.Ctx.Input.Param(":room_id")
	traceID := helper.GetTraceID(c.Ctx)
	if roomID == "" {
		response.BadRequest(&c.Controller, "room_id is required", traceID)
		return
	}

	ctx := c.Ctx.Request.Context()

	// 功能开关可在线绕过快照缓存（排查缓存脏数据时的应急手段）
	cacheBypass := config.GetFeatureFlag("snapshot_cache_bypass")

	// Redis 快照缓存命中直接返回；未命中或 Redis 故障时降级直读 DB
	if r := infrds.Client(); r != nil && !cacheBypass {
		if bs, err := r.Get(ctx, infrds.RoomSnapshotKey(roomID)).Bytes(); err == nil && len(bs) > 0 {
			var snap roomSnapshot
			if json.Unmarshal(bs, &snap) == nil {
				response.Success(&c.Controller, &snap, traceID)
				return
			}
		}
	}

	db := infmysql.SQLX()
	room, err := model.GetRoom(ctx, db, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(&c.Controller, "room not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	parts, err := model.ListActiveByRoom(ctx, db, roomID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	snap := &roomSnapshot{
		RoomID:           room.RoomID,
		Tier:             room.Tier,
		Status:           state.FromCode(room.Status),
		ParticipantCount: room.ParticipantCount,
		Participants:     make([]participantView, 0, len(parts)),
		TotalPool:        room.TotalPool,
		CountdownStartAt: room.CountdownStartAt,
		CountdownEndsAt:  room.CountdownEndsAt,
	}
	for _, p := range parts {
		snap.Participants = append(snap.Participants, participantView{Code: p.DisplayCode, JoinedAt: p.JoinedAt})
	}
	if room.Status == state.CodeCompleted {
		snap.WinnerCode = room.WinnerCode
		snap.WinnerPayout = room.PayoutAmount
		snap.SpinPresentation = room.SpinPresentation
	}

	// 回填 Redis
	if r := infrds.Client(); r != nil && !cacheBypass {
		if b, e := json.Marshal(snap); e == nil {
			_ = r.Set(ctx, infrds.RoomSnapshotKey(roomID), b, snapshotCacheTTL).Err()
		}
	}

	response.Success(&c.Controller, snap, traceID)
}
