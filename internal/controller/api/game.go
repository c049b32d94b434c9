package api

import (
	"errors"

	helper "pool-server/internal/common/helper"
	"pool-server/internal/common/response"
	"pool-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var newAdmissionService = service.NewAdmissionService

type GameController struct{ beego.Controller }

// Join 处理入局接口：POST /api/join
// 请求体 {tier, idempotency_key?}，认证中间件注入用户ID
// 幂等约定：同一次入局的所有重试传相同 idempotency_key；
// 并发重复请求返回 202，历史重复返回首次结果。
func (c *GameController) Join() {
	// 这里对业务参数严格校验，后续 service 不再重复校验
	jp, ok, msg := helper.ParseAndValidateJoin(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	userID := helper.GetAuthUserID(c.Ctx)
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newAdmissionService()
	out, err := svc.Join(c.Ctx.Request.Context(), service.JoinInput{
		UserID:         userID,
		Tier:           jp.Tier,
		IdempotencyKey: jp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		// MySQL 唯一键冲突
		var me *mysqlerr.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		// 非法档位
		if errors.Is(err, service.ErrInvalidTier) {
			response.Error(&c.Controller, 400, response.CodeInvalidTier, traceID)
			return
		}
		// 同档位已在局
		if errors.Is(err, service.ErrAlreadyInRoom) {
			response.Conflict(&c.Controller, response.CodeAlreadyInRoom, traceID)
			return
		}
		// 换房重试后仍占不到座
		if errors.Is(err, service.ErrRoomFull) {
			response.Conflict(&c.Controller, response.CodeRoomFull, traceID)
			return
		}
		// 余额不足
		if errors.Is(err, service.ErrInsufficientBalance) {
			response.Error(&c.Controller, 400, response.CodeInsufficientBalance, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"room_id":           out.RoomID,
		"code":              out.DisplayCode,
		"status":            out.Status,
		"participant_count": out.ParticipantCount,
		"total_pool":        out.TotalPool,
		"countdown_ends_at": out.CountdownEndsAt,
	}, traceID)
}

// Leave 处理退局接口：POST /api/leave
// 请求体 {room_id}；开转后（spinning/completed）不允许退局
func (c *GameController) Leave() {
	lp, ok, msg := helper.ParseAndValidateLeave(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	userID := helper.GetAuthUserID(c.Ctx)
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newAdmissionService()
	out, err := svc.Leave(c.Ctx.Request.Context(), service.LeaveInput{
		UserID:  userID,
		RoomID:  lp.RoomID,
		TraceID: traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrNotInRoom) {
			response.NotFound(&c.Controller, "room or membership not found", traceID)
			return
		}
		if errors.Is(err, service.ErrLeaveNotAllowed) {
			response.Conflict(&c.Controller, response.CodeLeaveNotAllowed, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"room_id":           out.RoomID,
		"refunded_amount":   out.Refunded,
		"status":            out.Status,
		"participant_count": out.ParticipantCount,
	}, traceID)
}
