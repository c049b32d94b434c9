package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"

	"pool-server/common/constant"
	infmysql "pool-server/internal/infra/mysql"
	"pool-server/internal/model"
)

// 钱包记账：房间事务与钱包事务分离（saga），记账以 reference 唯一键保证幂等
// reference 约定：
// - 入局扣费  GAME_<room_id>_<display_code>
// - 退局退款  REFUND_<room_id>_<display_code>
// - 中奖派彩  WIN_<room_id>
// 同一笔业务重试时构造出的 reference 相同，重复记账会触发唯一键冲突并被吸收。

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

func entryReference(roomID, code string) string  { return "GAME_" + roomID + "_" + code }
func refundReference(roomID, code string) string { return "REFUND_" + roomID + "_" + code }
func payoutReference(roomID string) string       { return "WIN_" + roomID }

// isMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突（错误码 1062）
func isMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var me *mysqlerr.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	// 驱动包装后的兜底判断
	return strings.Contains(err.Error(), "Duplicate entry")
}

// applyDebit 在独立事务中从用户钱包扣款并落账
// 余额不足返回 ErrInsufficientBalance；reference 已存在视为已扣过，幂等返回既有账目。
func applyDebit(ctx context.Context, userID, amount int64, bizType int, reference, roomID, remark, traceID string) (*model.WalletLedger, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive: %d", amount)
	}
	if !constant.IsValidLedgerType(bizType) {
		return nil, fmt.Errorf("unknown ledger biz type: %d", bizType)
	}

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 行锁取余额，作为账本 before_amount 的快照依据
	w, err := model.GetWalletForUpdate(txCtx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	// 条件更新双保险：WHERE balance >= amount
	ok, err := model.DebitBalance(txCtx, tx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	if !ok {
		fmt.Printf("[Ledger] 余额不足: user_id=%d, balance=%d, amount=%d, ref=%s, trace_id=%s\n",
			userID, w.Balance, amount, reference, traceID)
		return nil, ErrInsufficientBalance
	}

	entry := &model.WalletLedger{
		UserID:       userID,
		BizType:      bizType,
		BizTypeStr:   constant.GetLedgerTypeDesc(bizType),
		Amount:       amount,
		BeforeAmount: w.Balance,
		AfterAmount:  w.Balance - amount,
		Reference:    reference,
		RoomID:       roomID,
		Remark:       remark,
		TraceID:      traceID,
	}
	if err := entry.Insert(txCtx, tx); err != nil {
		if isMySQLDuplicateKeyError(err) {
			// 该笔账已记过，回滚本次扣款并返回既有账目
			_ = tx.Rollback()
			fmt.Printf("[Ledger] 记账引用已存在，幂等返回: ref=%s, trace_id=%s\n", reference, traceID)
			return model.GetByReference(ctx, infmysql.SQLX(), reference)
		}
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// applyCredit 在独立事务中向用户钱包入账并落账，幂等语义同 applyDebit
// 钱包行不存在时自动补建（派彩/退款的对象一定是真实用户，但防御脏数据）
func applyCredit(ctx context.Context, userID, amount int64, bizType int, reference, roomID, remark, traceID string) (*model.WalletLedger, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive: %d", amount)
	}
	if !constant.IsValidLedgerType(bizType) {
		return nil, fmt.Errorf("unknown ledger biz type: %d", bizType)
	}

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := model.EnsureWallet(txCtx, tx, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	w, err := model.GetWalletForUpdate(txCtx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	if err := model.CreditBalance(txCtx, tx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	entry := &model.WalletLedger{
		UserID:       userID,
		BizType:      bizType,
		BizTypeStr:   constant.GetLedgerTypeDesc(bizType),
		Amount:       amount,
		BeforeAmount: w.Balance,
		AfterAmount:  w.Balance + amount,
		Reference:    reference,
		RoomID:       roomID,
		Remark:       remark,
		TraceID:      traceID,
	}
	if err := entry.Insert(txCtx, tx); err != nil {
		if isMySQLDuplicateKeyError(err) {
			_ = tx.Rollback()
			fmt.Printf("[Ledger] 记账引用已存在，幂等返回: ref=%s, trace_id=%s\n", reference, traceID)
			return model.GetByReference(ctx, infmysql.SQLX(), reference)
		}
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}
