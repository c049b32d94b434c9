package api

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"pool-server/common/constant"
	helper "pool-server/internal/common/helper"
	"pool-server/internal/common/response"
	infmysql "pool-server/internal/infra/mysql"
	"pool-server/internal/model"

	beego "github.com/beego/beego/v2/server/web"
)

// WalletController 钱包查询接口（用户只能查自己的数据）
// GET /api/wallet/balance
// GET /api/wallet/transactions?page=&page_size=
type WalletController struct{ beego.Controller }

func (c *WalletController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := helper.GetAuthUserID(c.Ctx)
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	w, err := model.GetWallet(c.Ctx.Request.Context(), infmysql.SQLX(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 从未入局过的用户视为零余额
			response.Success(&c.Controller, map[string]interface{}{"balance": int64(0)}, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"balance": w.Balance}, traceID)
}

func (c *WalletController) Transactions() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := helper.GetAuthUserID(c.Ctx)
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	page := parsePositiveInt(c.Ctx.Input.Query("page"), 1)
	pageSize := parsePositiveInt(c.Ctx.Input.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	offset := uint(page-1) * uint(pageSize)

	ctx := c.Ctx.Request.Context()
	db := infmysql.SQLX()
	rows, err := model.ListLedgerByUser(ctx, db, userID, offset, uint(pageSize))
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	total, err := model.CountLedgerByUser(ctx, db, userID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	list := make([]map[string]interface{}, 0, len(rows))
	for _, l := range rows {
		list = append(list, map[string]interface{}{
			"biz_type":      l.BizTypeStr,
			"direction":     constant.GetLedgerDirection(l.BizType),
			"amount":        l.Amount,
			"before_amount": l.BeforeAmount,
			"after_amount":  l.AfterAmount,
			"reference":     l.Reference,
			"room_id":       l.RoomID,
			"remark":        l.Remark,
			"created_at":    l.CreatedAt,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"list":      list,
	}, traceID)
}

func parsePositiveInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
