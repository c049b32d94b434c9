package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pool-server/common/constant"
	chelper "pool-server/common/helper"
	"pool-server/common/logger"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	infrds "pool-server/internal/infra/redis"
	"pool-server/internal/metrics"
	"pool-server/internal/model"
	"pool-server/internal/state"

	"go.uber.org/zap"
)

// 开转结算主流程
// 幂等三重防护：
// 1) countdown→spinning 条件更新（唯一真正的闸门）
// 2) spin_log 表 room_id 唯一索引（双保险）
// 3) 派彩账本 WIN_<room_id> 唯一引用（重复投递不会二次派彩）

// 结果缓存 TTL
const spinResultTTL = 2 * time.Minute

type SpinInput struct {
	RoomID  string
	Source  string // timer|sweeper|api
	TraceID string
}

type SpinOutput struct {
	RoomID           string  `json:"room_id"`
	Status           string  `json:"status"`
	Noop             bool    `json:"noop"` // true 表示本次触发未执行开转（重复触发或条件不满足）
	WinnerUserID     int64   `json:"winner_user_id,omitempty"`
	WinnerCode       string  `json:"winner_code,omitempty"`
	WinnerSeat       int     `json:"winner_seat"`
	ParticipantCount int     `json:"participant_count"`
	TotalPool        int64   `json:"total_pool"`
	Payout           int64   `json:"payout"`
	Fee              int64   `json:"fee"`
	Presentation     float64 `json:"presentation"`
}

type SpinService interface {
	Trigger(ctx context.Context, in SpinInput) (*SpinOutput, error)
}

type spinService struct{}

func NewSpinService() SpinService { return &spinService{} }

// computePayout 派彩与抽水：payout = round(pool * share)，fee 取余额补齐
// 金额为分，用 decimal 计算避免浮点误差
func computePayout(totalPool int64, share decimal.Decimal) (payout, fee int64) {
	payout = chelper.ShareOf(totalPool, share)
	fee = totalPool - payout
	return payout, fee
}

// computePresentation 计算转盘表现角度
// 任意渲染端按该角度落盘都会停在中奖席位的扇区中心
func computePresentation(winnerIndex, n, baseRotations int) float64 {
	seg := 360.0 / float64(n)
	return float64(baseRotations)*360.0 + (360.0 - (float64(winnerIndex)*seg + seg/2.0))
}

// Trigger 触发开转。来自定时器、兜底扫描或内部接口的重复触发都会被闸门吸收，
// 对已处理过的房间返回 Noop 结果而不是报错。
func (s *spinService) Trigger(ctx context.Context, in SpinInput) (*SpinOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, in.Source, start) }()

	fmt.Printf("[Spin] 收到开转触发: room_id=%s, source=%s, trace_id=%s\n", in.RoomID, in.Source, in.TraceID)

	// 阶段一：抢闸门（countdown→spinning 条件更新）并冻结参与名单
	participants, room, seized, err := s.seizeSpin(ctx, in)
	if err != nil {
		return nil, err
	}
	if !seized {
		result = "noop"
		fmt.Printf("[Spin] 房间已处理或条件不满足，幂等返回: room_id=%s, status=%s, trace_id=%s\n",
			in.RoomID, state.FromCode(room.Status), in.TraceID)
		return noopOutput(room), nil
	}

	// 阶段二：抽取中奖席位（强随机）并计算派彩与表现角度
	n := len(participants)
	winnerIdx, err := chelper.CryptoIntn(n)
	if err != nil {
		return nil, fmt.Errorf("failed to draw winner: %w", err)
	}
	winner := participants[winnerIdx]
	payout, fee := computePayout(room.TotalPool, config.GetPayoutShare())
	presentation := computePresentation(winnerIdx, n, config.GetBaseRotations())

	fmt.Printf("[Spin] 抽取结果: room_id=%s, winner_user_id=%d, winner_code=%s, seat=%d/%d, pool=%d, payout=%d, fee=%d, trace_id=%s\n",
		in.RoomID, winner.UserID, winner.DisplayCode, winnerIdx, n, room.TotalPool, payout, fee, in.TraceID)

	// 阶段三：落库终态（spin_log 唯一索引双保险）
	out := &SpinOutput{
		RoomID:           in.RoomID,
		Status:           state.StateCompleted,
		WinnerUserID:     winner.UserID,
		WinnerCode:       winner.DisplayCode,
		WinnerSeat:       winnerIdx,
		ParticipantCount: n,
		TotalPool:        room.TotalPool,
		Payout:           payout,
		Fee:              fee,
		Presentation:     presentation,
	}
	finalized, err := s.finalizeSpin(ctx, in, out)
	if err != nil {
		return nil, err
	}
	if !finalized {
		// 另一个触发者抢先完成了终态落库
		cur, gerr := model.GetRoom(ctx, infmysql.SQLX(), in.RoomID)
		if gerr != nil {
			return nil, gerr
		}
		result = "noop"
		return noopOutput(cur), nil
	}

	// 阶段四：派彩（唯一引用，重复投递不二次入账）
	if _, err := applyCredit(ctx, winner.UserID, payout, constant.LedgerTypePayout,
		payoutReference(in.RoomID), in.RoomID, "winner payout", in.TraceID); err != nil {
		logger.ErrorCtx(logger.WithTraceID(ctx, in.TraceID), "ledger-room inconsistency",
			zap.String("op", "spin_payout"),
			zap.String("room_id", in.RoomID),
			zap.Int64("user_id", winner.UserID),
			zap.Int64("payout", payout),
			zap.Error(err))
		metrics.RecordInconsistency("spin_payout")
		// 终态已提交，派彩可凭唯一引用事后补账，这里不回滚开奖结果
	}

	// 结果写入 Redis，供快照查询直接命中
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.RoomResultKey(in.RoomID), b, spinResultTTL).Err()
		}
	}

	fmt.Printf("[Spin] 开转完成: room_id=%s, winner_code=%s, payout=%d, trace_id=%s\n",
		in.RoomID, winner.DisplayCode, payout, in.TraceID)
	result = "success"
	return out, nil
}

// seizeSpin 抢开转闸门：条件更新成功后在同一事务内冻结参与名单并广播 spin_starting
// 返回 (名单, 房间, 是否抢到, 错误)
func (s *spinService) seizeSpin(ctx context.Context, in SpinInput) ([]model.RoomParticipant, *model.Room, bool, error) {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := model.MarkSpinning(txCtx, tx, in.RoomID, config.GetStartThreshold())
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to mark spinning: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		cur, gerr := model.GetRoom(ctx, infmysql.SQLX(), in.RoomID)
		if gerr != nil {
			if errors.Is(gerr, sql.ErrNoRows) {
				return nil, nil, false, ErrRoomNotFound
			}
			return nil, nil, false, gerr
		}
		return nil, cur, false, nil
	}

	room, err := model.GetRoom(txCtx, tx, in.RoomID)
	if err != nil {
		return nil, nil, false, err
	}
	// spinning 后退局被禁止，这份名单即最终转盘席位
	participants, err := model.ListActiveByRoom(txCtx, tx, in.RoomID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) < config.GetStartThreshold() {
		// 行状态与参与记录不一致，属脏数据，拒绝开转
		return nil, nil, false, ErrSpinNotReady
	}

	if err := auditTransition(txCtx, tx, in.RoomID, EventSpinStarting,
		state.StateCountdown, "system", in.Source, nil, in.TraceID); err != nil {
		return nil, nil, false, err
	}
	if err := notifyRoomEvent(txCtx, tx, in.RoomID, EventSpinStarting,
		map[string]any{"participant_count": len(participants)}); err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	return participants, room, true, nil
}

// finalizeSpin 落库终态：spin_log + 房间完成字段 + 审计 + outbox 原子提交
// spin_log 唯一索引冲突返回 (false, nil)，表示结果已由他处落库
func (s *spinService) finalizeSpin(ctx context.Context, in SpinInput, out *SpinOutput) (bool, error) {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	sl := &model.SpinLog{
		RoomID:           in.RoomID,
		WinnerUserID:     out.WinnerUserID,
		WinnerCode:       out.WinnerCode,
		WinnerSeat:       out.WinnerSeat,
		ParticipantCount: out.ParticipantCount,
		TotalPool:        out.TotalPool,
		PayoutAmount:     out.Payout,
		FeeAmount:        out.Fee,
		Presentation:     out.Presentation,
		Operator:         in.Source,
		TraceID:          in.TraceID,
	}
	if err := model.CreateSpinLog(txCtx, tx, sl); err != nil {
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Spin] spin_log 已存在，结果已由他处落库: room_id=%s, trace_id=%s\n", in.RoomID, in.TraceID)
			return false, nil
		}
		return false, fmt.Errorf("failed to create spin log: %w", err)
	}

	ok, err := model.CompleteSpin(txCtx, tx, in.RoomID, out.WinnerUserID, out.WinnerCode,
		out.WinnerSeat, out.Payout, out.Fee, out.Presentation)
	if err != nil {
		return false, fmt.Errorf("failed to complete spin: %w", err)
	}
	if !ok {
		return false, nil
	}

	resultPayload := map[string]any{
		"winner_code":       out.WinnerCode,
		"winner_seat":       out.WinnerSeat,
		"participant_count": out.ParticipantCount,
		"total_pool":        out.TotalPool,
		"payout":            out.Payout,
		"fee":               out.Fee,
		"presentation":      out.Presentation,
	}
	if err := auditTransition(txCtx, tx, in.RoomID, EventSpinResult,
		state.StateSpinning, "system", in.Source, resultPayload, in.TraceID); err != nil {
		return false, err
	}
	if err := notifyRoomEvent(txCtx, tx, in.RoomID, EventSpinResult, resultPayload); err != nil {
		return false, err
	}
	if err := notifyRoomEvent(txCtx, tx, in.RoomID, EventGameCompleted,
		map[string]any{"winner_code": out.WinnerCode, "payout": out.Payout}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// noopOutput 依据房间当前行构造幂等返回；已完结房间带上中奖信息
func noopOutput(room *model.Room) *SpinOutput {
	out := &SpinOutput{
		RoomID:           room.RoomID,
		Status:           state.FromCode(room.Status),
		Noop:             true,
		ParticipantCount: room.ParticipantCount,
		TotalPool:        room.TotalPool,
	}
	if room.Status == state.CodeCompleted {
		out.WinnerUserID = room.WinnerUserID
		out.WinnerCode = room.WinnerCode
		out.WinnerSeat = room.WinnerSeat
		out.Payout = room.PayoutAmount
		out.Fee = room.FeeAmount
		out.Presentation = room.SpinPresentation
	}
	return out
}
