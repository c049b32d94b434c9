package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"pool-server/common"
	"pool-server/common/constant"
)

// WalletLedger 对应 wallet_ledger 表（追加式账本）
// 说明：金额为非负分；方向由 before_amount/after_amount 与 biz_type 推导
// biz_type: 1=entry 入局扣费 2=refund 退局退款 3=payout 中奖派彩 4=adjust 后台调整
// reference 全局唯一，是记账幂等的依据（重复引用触发唯一键冲突）
type WalletLedger struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	BizType      int    `db:"biz_type"`
	BizTypeStr   string `db:"biz_type_str"`
	Amount       int64  `db:"amount"`
	BeforeAmount int64  `db:"before_amount"`
	AfterAmount  int64  `db:"after_amount"`
	Reference    string `db:"reference"`
	RoomID       string `db:"room_id"`
	Remark       string `db:"remark"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// Insert 新增一条账本记录（biz_type 数值码与字符串双写）
// reference 唯一键冲突即表示该笔账已记过
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	l.CreatedAt = now
	if l.BizTypeStr == "" {
		l.BizTypeStr = constant.GetLedgerTypeDesc(l.BizType)
	}

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO wallet_ledger (user_id, biz_type, biz_type_str, amount, before_amount, after_amount, reference, room_id, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.UserID, l.BizType, l.BizTypeStr, l.Amount, l.BeforeAmount, l.AfterAmount, l.Reference, l.RoomID, l.Remark, l.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

var walletLedgerFields = []interface{}{
	"id", "user_id", "biz_type", "biz_type_str", "amount",
	"before_amount", "after_amount", "reference", "room_id",
	"remark", "trace_id", "created_at",
}

// GetByReference 按引用查询账本记录（幂等冲突后的回补读取）
func GetByReference(ctx context.Context, exec sqlx.ExtContext, reference string) (*WalletLedger, error) {
	var l WalletLedger
	if err := common.SelectOneExtCtx(ctx, exec, &l, "wallet_ledger",
		walletLedgerFields, g.C("reference").Eq(reference)); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLedgerByUser 分页查询用户账本（倒序），goqu 构建查询
func ListLedgerByUser(ctx context.Context, db *sqlx.DB, userID int64, offset, limit uint) ([]WalletLedger, error) {
	var list []WalletLedger
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "wallet_ledger",
		Fields: walletLedgerFields,
		Ex:     []g.Expression{g.C("user_id").Eq(userID)},
		Order:  []exp.OrderedExpression{g.C("id").Desc()},
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CountLedgerByUser 统计用户账本总数（分页用）
func CountLedgerByUser(ctx context.Context, db *sqlx.DB, userID int64) (int64, error) {
	return common.CountCtx(ctx, db, "wallet_ledger", g.C("user_id").Eq(userID))
}
