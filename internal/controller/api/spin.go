package api

import (
	"errors"

	helper "pool-server/internal/common/helper"
	"pool-server/internal/common/response"
	"pool-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newSpinService = service.NewSpinService

// SpinController 内部开转触发接口：POST /internal/spin
// 路由层已挂内部凭证过滤器，普通玩家请求不可达。
// 对已处理过的房间返回 noop=true 与当前/终局状态，不算错误。
type SpinController struct{ beego.Controller }

func (c *SpinController) Trigger() {
	sp, ok, msg := helper.ParseAndValidateSpin(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	svc := newSpinService()
	out, err := svc.Trigger(c.Ctx.Request.Context(), service.SpinInput{
		RoomID:  sp.RoomID,
		Source:  sp.Source,
		TraceID: traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			response.NotFound(&c.Controller, "room not found", traceID)
			return
		}
		if errors.Is(err, service.ErrSpinNotReady) {
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, out, traceID)
}
