package model

import (
	"context"
	"database/sql"
	"time"

	"pool-server/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Wallet 对应 wallets 表
// 说明：余额为非负整数分，数据库层有 UNSIGNED 约束兜底
// 钱包在首次引用时创建，只增不删
type Wallet struct {
	UserID    int64 `db:"user_id"`    // 用户ID(主键)
	Balance   int64 `db:"balance"`    // 余额（分，非负）
	CreatedAt int64 `db:"created_at"` // 创建时间
	UpdatedAt int64 `db:"updated_at"` // 更新时间
}

// EnsureWallet 确保用户钱包存在（零余额创建），幂等
func EnsureWallet(ctx context.Context, exec sqlx.ExtContext, userID int64) error {
	now := time.Now().UnixMilli()

	// INSERT IGNORE：已存在则无效果
	sqlStr := "INSERT IGNORE INTO wallets (user_id, balance, created_at, updated_at) VALUES (?, 0, ?, ?)"
	_, err := exec.ExecContext(ctx, sqlStr, userID, now, now)
	return err
}

// GetWallet 查询钱包（不加锁）
func GetWallet(ctx context.Context, db *sqlx.DB, userID int64) (*Wallet, error) {
	sqlStr := "SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ? LIMIT 1"
	var w Wallet
	if err := db.GetContext(ctx, &w, sqlStr, userID); err != nil {
		if err != sql.ErrNoRows {
			logger.Error("get wallet failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate 在事务中加锁查询钱包（记账前读取 before_amount）
func GetWalletForUpdate(ctx context.Context, exec sqlx.ExtContext, userID int64) (*Wallet, error) {
	sqlStr := "SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ? FOR UPDATE"
	var w Wallet
	if err := sqlx.GetContext(ctx, exec, &w, sqlStr, userID); err != nil {
		return nil, err
	}
	return &w, nil
}

// DebitBalance 条件扣款：仅当余额足够时生效，返回 true 表示扣款成功
// 余额谓词写进 WHERE，和并发扣款互斥依赖行锁而不是应用层检查
func DebitBalance(ctx context.Context, exec sqlx.ExtContext, userID, amount int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE wallets SET balance = balance - ?, updated_at = ? WHERE user_id = ? AND balance >= ?"
	res, err := exec.ExecContext(ctx, sqlStr, amount, now, userID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CreditBalance 入账：余额累加
func CreditBalance(ctx context.Context, exec sqlx.ExtContext, userID, amount int64) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE user_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, amount, now, userID)
	return err
}
