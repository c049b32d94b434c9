package api

import (
	"strconv"
	"strings"

	helper "pool-server/internal/common/helper"
	"pool-server/internal/common/response"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	"pool-server/internal/model"
	"pool-server/internal/state"

	beego "github.com/beego/beego/v2/server/web"
)

// LobbyController 大厅总览：GET /api/lobbies[?tier=]
// 列出各档位开放中（waiting/countdown）的房间与档位配置
type LobbyController struct{ beego.Controller }

func (c *LobbyController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	var tier int64
	if ts := strings.TrimSpace(c.Ctx.Input.Query("tier")); ts != "" {
		t, err := strconv.ParseInt(ts, 10, 64)
		if err != nil || !config.IsValidTier(t) {
			response.Error(&c.Controller, 400, response.CodeInvalidTier, traceID)
			return
		}
		tier = t
	}

	rooms, err := model.ListOpenRooms(c.Ctx.Request.Context(), infmysql.SQLX(), tier, 100)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	list := make([]map[string]interface{}, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, map[string]interface{}{
			"room_id":           r.RoomID,
			"tier":              r.Tier,
			"status":            state.FromCode(r.Status),
			"participant_count": r.ParticipantCount,
			"total_pool":        r.TotalPool,
			"countdown_ends_at": r.CountdownEndsAt,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"tiers": config.GetEntryTiers(),
		"rooms": list,
	}, traceID)
}
