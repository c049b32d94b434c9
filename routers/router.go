package routers

import (
	"pool-server/internal/controller/api"
	"pool-server/internal/metrics"
	"pool-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
// 路由注册发生在配置加载之前，开关类过滤器自身在请求期读取配置判断是否生效
func init() {
	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（未启用时过滤器内部直接放行）
	beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 玩家 API（JWT 认证） ==========

	beego.InsertFilter("/api/join", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/leave", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/wallet/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/join", beego.BeforeExec, middleware.RateLimitFilter)
	beego.InsertFilter("/api/leave", beego.BeforeExec, middleware.RateLimitFilter)

	beego.Router("/api/join", &api.GameController{}, "post:Join")
	beego.Router("/api/leave", &api.GameController{}, "post:Leave")
	beego.Router("/api/wallet/balance", &api.WalletController{}, "get:Balance")
	beego.Router("/api/wallet/transactions", &api.WalletController{}, "get:Transactions")

	// 房间快照与大厅总览：只读轮询接口，无需认证
	beego.Router("/api/room/:room_id", &api.RoomController{}, "get:GetRoom")
	beego.Router("/api/lobbies", &api.LobbyController{}, "get:List")

	// ========== 内部 API（内部凭证认证） ==========

	// 开转触发：仅供内部定时器兜底/运维调用，普通玩家不可达
	beego.InsertFilter("/internal/spin", beego.BeforeExec, middleware.InternalAuthFilter)
	beego.Router("/internal/spin", &api.SpinController{}, "post:Trigger")
}
