package middleware

import (
	"time"

	"pool-server/common/logger"
	"pool-server/internal/auth"
	"pool-server/internal/common/helper"
	"pool-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// InternalAuthFilter 内部凭据过滤器
// 保护不允许普通玩家触达的内部接口（开转触发）
// 凭据未配置时一律拒绝，不提供默认值
func InternalAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)

	if err := auth.VerifyInternalCredential(ctx); err != nil {
		logger.Warn("internal credential check failed",
			zap.String("trace_id", traceID),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err))

		ctx.Output.SetStatus(401)
		ctx.Output.JSON(response.APIResponse{
			Code:      response.CodeInvalidCredential,
			Message:   "内部凭据无效",
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
		return
	}

	// 标记为内部请求
	ctx.Input.SetData("is_internal", true)
}
