package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-server/common/constant"
	chelper "pool-server/common/helper"
	"pool-server/common/logger"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	infrds "pool-server/internal/infra/redis"
	"pool-server/internal/metrics"
	"pool-server/internal/model"
	"pool-server/internal/state"
)

// 入局/退局主流程
const (
	// Redis 进行中锁 TTL：吸收瞬时重复请求，不宜过长以免卡死真实重试
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：覆盖大多数短时重试窗口
	idemResultTTL = 1 * time.Minute

	// 占座失败（撞上刚满员/刚开转的房间）后的换房重试次数
	seatRetryAttempts = 3
	// 房间内席位码碰撞重试次数（32^6 空间，碰撞概率极低）
	codeRetryAttempts = 5
)

// CountdownScheduler 由 worker 实现：注册/取消房间的到点开转任务
// 调度只是提速手段，丢任务由 sweeper 兜底，因此这里的调用都不关心失败
type CountdownScheduler interface {
	Schedule(roomID string, endsAtMs int64)
	Cancel(roomID string)
}

var scheduler CountdownScheduler

// SetScheduler 启动时注入倒计时调度器（未注入时仅依赖 sweeper 兜底）
func SetScheduler(s CountdownScheduler) { scheduler = s }

type JoinInput struct {
	UserID         int64
	Tier           int64  // 入场费档位（分）
	IdempotencyKey string // 可选：客户端幂等键，重试时传相同值
	TraceID        string
}

type JoinOutput struct {
	RoomID           string `json:"room_id"`
	DisplayCode      string `json:"display_code"`
	Status           string `json:"status"`
	ParticipantCount int    `json:"participant_count"`
	TotalPool        int64  `json:"total_pool"`
	CountdownEndsAt  int64  `json:"countdown_ends_at"` // 毫秒，0=未进入倒计时
}

type LeaveInput struct {
	UserID  int64
	RoomID  string
	TraceID string
}

type LeaveOutput struct {
	RoomID           string `json:"room_id"`
	Refunded         int64  `json:"refunded"`
	Status           string `json:"status"`
	ParticipantCount int    `json:"participant_count"`
}

type AdmissionService interface {
	Join(ctx context.Context, in JoinInput) (*JoinOutput, error)
	Leave(ctx context.Context, in LeaveInput) (*LeaveOutput, error)
}

type admissionService struct{}

func NewAdmissionService() AdmissionService { return &admissionService{} }

// Join 入局主流程：
// 1) 档位校验、同档位重复入局校验、余额预检；
// 2) Step A 房间事务：条件占座 + 参与记录 + 审计 + outbox（原子提交）；
// 3) Step B 钱包事务：按唯一引用扣入场费；失败则补偿释放席位；
// 4) 达到开局门槛时推进 countdown 并注册到点开转任务。
func (s *admissionService) Join(ctx context.Context, in JoinInput) (*JoinOutput, error) {
	start := time.Now()
	result := "fail"
	tierStr := strconv.FormatInt(in.Tier, 10)
	defer func() { metrics.RecordJoin(result, tierStr, start) }()

	// 档位必须在枚举集合内
	if !config.IsValidTier(in.Tier) {
		fmt.Printf("[Join] 非法档位: tier=%d, user_id=%d, trace_id=%s\n", in.Tier, in.UserID, in.TraceID)
		return nil, ErrInvalidTier
	}

	fmt.Printf("[Join] 收到入局请求: user_id=%d, tier=%d, idem_key=%s, trace_id=%s\n",
		in.UserID, in.Tier, in.IdempotencyKey, in.TraceID)

	// Redis 快路径与进行中锁（仅当客户端传了幂等键）
	if r := infrds.Client(); r != nil && in.IdempotencyKey != "" {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out JoinOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Join] Redis 缓存命中: idem_key=%s, room_id=%s, trace_id=%s\n",
					in.IdempotencyKey, out.RoomID, in.TraceID)
				result = "replay"
				return &out, nil
			}
		}

		// 生成唯一锁值，防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out JoinOutput
				if json.Unmarshal(bs, &out) == nil {
					result = "replay"
					return &out, nil
				}
			}
			fmt.Printf("[Join] 重复请求进行中: idem_key=%s, trace_id=%s\n", in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}
		// Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			if _, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result(); err != nil {
				fmt.Printf("[Join] 释放分布式锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			}
		}()
	}

	db := infmysql.SQLX()

	// 同档位只能在一个未完结房间里
	cnt, err := model.CountActiveMembership(ctx, db, in.UserID, in.Tier)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if cnt > 0 {
		fmt.Printf("[Join] 同档位重复入局: user_id=%d, tier=%d, trace_id=%s\n", in.UserID, in.Tier, in.TraceID)
		return nil, ErrAlreadyInRoom
	}

	// 钱包预检（权威校验在 Step B 的条件扣款里）
	if err := model.EnsureWallet(ctx, db, in.UserID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	w, err := model.GetWallet(ctx, db, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if w.Balance < in.Tier {
		fmt.Printf("[Join] 余额不足: user_id=%d, balance=%d, tier=%d, trace_id=%s\n",
			in.UserID, w.Balance, in.Tier, in.TraceID)
		return nil, ErrInsufficientBalance
	}

	// Step A：占座。占座失败换一个房间重试，最后一次强制新建
	var (
		room *model.Room
		code string
	)
	seated := false
	for attempt := 0; attempt < seatRetryAttempts && !seated; attempt++ {
		forceNew := attempt == seatRetryAttempts-1
		room, err = findOrCreateOpenRoom(ctx, in.Tier, forceNew, in.TraceID)
		if err != nil {
			return nil, err
		}
		var replay *JoinOutput
		code, seated, replay, err = s.joinRoomTx(ctx, room, in)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			// 幂等键命中历史请求，直接返回首次结果（扣款同样以唯一引用保证过幂等）
			result = "replay"
			return replay, nil
		}
		if !seated {
			fmt.Printf("[Join] 占座失败，换房重试: room_id=%s, attempt=%d, trace_id=%s\n",
				room.RoomID, attempt+1, in.TraceID)
		}
	}
	if !seated {
		return nil, ErrRoomFull
	}

	// Step B：扣入场费（唯一引用，重试不重复扣）
	if _, err := applyDebit(ctx, in.UserID, in.Tier, constant.LedgerTypeEntry,
		entryReference(room.RoomID, code), room.RoomID, "entry fee", in.TraceID); err != nil {
		s.compensateSeat(ctx, room, in, code)
		if errors.Is(err, ErrInsufficientBalance) {
			result = "insufficient"
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to debit entry fee: %w", err)
	}

	// 达到开局门槛则推进倒计时
	cur, err := model.GetRoom(ctx, db, room.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload room: %w", err)
	}
	if cur.Status == state.CodeWaiting && cur.ParticipantCount >= config.GetStartThreshold() {
		s.promoteCountdown(ctx, cur, in.TraceID)
		cur, _ = model.GetRoom(ctx, db, room.RoomID)
	}

	out := &JoinOutput{
		RoomID:           room.RoomID,
		DisplayCode:      code,
		Status:           state.FromCode(cur.Status),
		ParticipantCount: cur.ParticipantCount,
		TotalPool:        cur.TotalPool,
		CountdownEndsAt:  cur.CountdownEndsAt,
	}

	// 成功结果写入 Redis，供重复请求直接返回
	if r := infrds.Client(); r != nil && in.IdempotencyKey != "" {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
	}

	fmt.Printf("[Join] 入局成功: user_id=%d, room_id=%s, code=%s, count=%d, status=%s, trace_id=%s\n",
		in.UserID, out.RoomID, code, out.ParticipantCount, out.Status, in.TraceID)
	result = "success"
	return out, nil
}

// joinRoomTx 单次占座事务：条件占座 + 参与记录 + 幂等键 + 审计 + outbox
// 返回 (席位码, 是否占到座, 幂等重放结果, 错误)；占不到座不是错误，由上层换房重试
func (s *admissionService) joinRoomTx(ctx context.Context, room *model.Room, in JoinInput) (string, bool, *JoinOutput, error) {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return "", false, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	capacity := config.GetMaxParticipants()
	ok, err := model.TryAppendSeat(txCtx, tx, room.RoomID, room.Tier, capacity)
	if err != nil {
		return "", false, nil, fmt.Errorf("failed to append seat: %w", err)
	}
	if !ok {
		return "", false, nil, nil
	}

	// 生成房间内唯一席位码，碰撞时重试
	var code string
	for i := 0; i < codeRetryAttempts; i++ {
		c, err := chelper.GenerateDisplayCode()
		if err != nil {
			return "", false, nil, fmt.Errorf("failed to generate display code: %w", err)
		}
		exists, err := model.ExistsDisplayCode(txCtx, tx, room.RoomID, c)
		if err != nil {
			return "", false, nil, err
		}
		if !exists {
			code = c
			break
		}
	}
	if code == "" {
		return "", false, nil, errors.New("display code collision retries exhausted")
	}

	p := &model.RoomParticipant{
		RoomID:      room.RoomID,
		UserID:      in.UserID,
		DisplayCode: code,
		EntryFee:    room.Tier,
		Status:      1,
	}
	if err := p.Insert(txCtx, tx); err != nil {
		if isMySQLDuplicateKeyError(err) {
			// 同房间有历史记录：已退局则复用该行重入，仍在局则拒绝
			reok, rerr := model.ReactivateIfLeft(txCtx, tx, room.RoomID, in.UserID, code)
			if rerr != nil {
				return "", false, nil, rerr
			}
			if !reok {
				return "", false, nil, ErrAlreadyInRoom
			}
		} else {
			return "", false, nil, fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	// 幂等键落库：ref 记录 room_id|code，供重放时回源
	if in.IdempotencyKey != "" {
		k := &model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "join", Ref: room.RoomID + "|" + code}
		if err := k.Insert(txCtx, tx); err != nil {
			if isMySQLDuplicateKeyError(err) {
				_ = tx.Rollback()
				out, rerr := s.replayJoin(ctx, in)
				if rerr == nil && out != nil {
					return "", false, out, nil
				}
				return "", false, nil, fmt.Errorf("idempotency conflict: %w", err)
			}
			return "", false, nil, fmt.Errorf("failed to insert idempotency key: %w", err)
		}
	}

	if err := auditTransition(txCtx, tx, room.RoomID, EventPlayerJoined, state.FromCode(room.Status),
		strconv.FormatInt(in.UserID, 10), "api",
		map[string]any{"user_id": in.UserID, "display_code": code}, in.TraceID); err != nil {
		return "", false, nil, err
	}
	if err := notifyRoomEvent(txCtx, tx, room.RoomID, EventPlayerJoined,
		map[string]any{"display_code": code}); err != nil {
		return "", false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, nil, err
	}
	return code, true, nil, nil
}

// replayJoin 幂等键已存在时回源拼装首次结果（Redis 未命中时走 DB）
func (s *admissionService) replayJoin(ctx context.Context, in JoinInput) (*JoinOutput, error) {
	db := infmysql.SQLX()
	ref, err := model.SelectRefByIdemKey(ctx, db, in.IdempotencyKey)
	if err != nil || ref == "" {
		return nil, err
	}
	parts := strings.SplitN(ref, "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed idempotency ref: %s", ref)
	}
	room, err := model.GetRoom(ctx, db, parts[0])
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Join] 幂等键命中，从数据库返回上次结果: idem_key=%s, room_id=%s, trace_id=%s\n",
		in.IdempotencyKey, room.RoomID, in.TraceID)
	return &JoinOutput{
		RoomID:           room.RoomID,
		DisplayCode:      parts[1],
		Status:           state.FromCode(room.Status),
		ParticipantCount: room.ParticipantCount,
		TotalPool:        room.TotalPool,
		CountdownEndsAt:  room.CountdownEndsAt,
	}, nil
}

// needsRevert 人数跌破开局门槛时倒计时必须回退 waiting
func needsRevert(status int8, remaining int) bool {
	return status == state.CodeCountdown && remaining < config.GetStartThreshold()
}

// compensateSeat 扣款失败后的补偿：释放席位并标记参与记录离场。
// 占座与扣款之间房间可能已被推进 countdown，回滚后人数跌破门槛时
// 与退局同样回退 waiting 并注销定时任务，避免房间卡在倒计时里被反复空触发。
// 补偿失败即"账房不一致"，只告警不自愈，留给对账处理
func (s *admissionService) compensateSeat(ctx context.Context, room *model.Room, in JoinInput, code string) {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	reverted := false
	err := func() error {
		tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		cur, err := model.GetRoomForUpdate(txCtx, tx, room.RoomID)
		if err != nil {
			return err
		}
		if _, err := model.MarkLeft(txCtx, tx, room.RoomID, in.UserID); err != nil {
			return err
		}
		if _, err := model.ReleaseSeat(txCtx, tx, room.RoomID, room.Tier); err != nil {
			return err
		}

		if needsRevert(cur.Status, cur.ParticipantCount-1) {
			rok, err := model.RevertToWaiting(txCtx, tx, room.RoomID, config.GetStartThreshold())
			if err != nil {
				return err
			}
			if rok {
				reverted = true
				if err := auditTransition(txCtx, tx, room.RoomID, EventCountdownReverted,
					state.StateCountdown, "system", "compensation", nil, in.TraceID); err != nil {
					return err
				}
				if err := notifyRoomEvent(txCtx, tx, room.RoomID, EventCountdownReverted, nil); err != nil {
					return err
				}
			}
		}

		st := state.FromCode(cur.Status)
		if reverted {
			st = state.StateWaiting
		}
		if err := auditTransition(txCtx, tx, room.RoomID, EventPlayerLeft, st,
			strconv.FormatInt(in.UserID, 10), "compensation",
			map[string]any{"user_id": in.UserID, "display_code": code}, in.TraceID); err != nil {
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		logger.ErrorCtx(logger.WithTraceID(ctx, in.TraceID), "ledger-room inconsistency",
			zap.String("op", "join_compensation"),
			zap.String("room_id", room.RoomID),
			zap.Int64("user_id", in.UserID),
			zap.Error(err))
		metrics.RecordInconsistency("join_compensation")
		return
	}
	if reverted && scheduler != nil {
		scheduler.Cancel(room.RoomID)
	}
}

// promoteCountdown 推进 waiting → countdown 并注册到点开转任务
// 条件更新保证只有一个并发请求能完成推进；失败直接忽略
func (s *admissionService) promoteCountdown(ctx context.Context, room *model.Room, traceID string) {
	now := time.Now()
	endsAt := now.Add(config.GetCountdownDuration()).UnixMilli()

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := model.PromoteToCountdown(txCtx, tx, room.RoomID, config.GetStartThreshold(), now.UnixMilli(), endsAt)
	if err != nil || !ok {
		return
	}
	if err := auditTransition(txCtx, tx, room.RoomID, EventCountdownStarted,
		state.StateWaiting, "system", "api",
		map[string]any{"countdown_ends_at": endsAt}, traceID); err != nil {
		return
	}
	if err := notifyRoomEvent(txCtx, tx, room.RoomID, EventCountdownStarted,
		map[string]any{"countdown_ends_at": endsAt}); err != nil {
		return
	}
	if err := tx.Commit(); err != nil {
		return
	}

	fmt.Printf("[Join] 开局倒计时启动: room_id=%s, ends_at=%d, trace_id=%s\n", room.RoomID, endsAt, traceID)
	if scheduler != nil {
		scheduler.Schedule(room.RoomID, endsAt)
	}
}

// Leave 退局主流程：状态校验 + 释放席位（必要时回退倒计时）+ 退款
func (s *admissionService) Leave(ctx context.Context, in LeaveInput) (*LeaveOutput, error) {
	result := "fail"
	defer func() { metrics.RecordLeave(result) }()

	fmt.Printf("[Leave] 收到退局请求: user_id=%d, room_id=%s, trace_id=%s\n", in.UserID, in.RoomID, in.TraceID)

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

	room, err := model.GetRoomForUpdate(txCtx, tx, in.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}

	// 开转后禁止退局
	if !state.IsOpen(room.Status) {
		fmt.Printf("[Leave] 当前状态不允许退局: room_id=%s, status=%s, trace_id=%s\n",
			in.RoomID, state.FromCode(room.Status), in.TraceID)
		return nil, ErrLeaveNotAllowed
	}

	p, err := model.GetActiveParticipant(txCtx, tx, in.RoomID, in.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotInRoom
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	if _, err := model.MarkLeft(txCtx, tx, in.RoomID, in.UserID); err != nil {
		return nil, fmt.Errorf("failed to mark participant left: %w", err)
	}
	ok, err := model.ReleaseSeat(txCtx, tx, in.RoomID, room.Tier)
	if err != nil {
		return nil, fmt.Errorf("failed to release seat: %w", err)
	}
	if !ok {
		// 行锁在手里时席位释放不应失败，除非状态被并发改掉
		return nil, ErrLeaveNotAllowed
	}

	remaining := room.ParticipantCount - 1
	reverted := false
	if needsRevert(room.Status, remaining) {
		rok, err := model.RevertToWaiting(txCtx, tx, in.RoomID, config.GetStartThreshold())
		if err != nil {
			return nil, fmt.Errorf("failed to revert countdown: %w", err)
		}
		if rok {
			reverted = true
			if err := auditTransition(txCtx, tx, in.RoomID, EventCountdownReverted,
				state.StateCountdown, "system", "api", nil, in.TraceID); err != nil {
				return nil, err
			}
			if err := notifyRoomEvent(txCtx, tx, in.RoomID, EventCountdownReverted, nil); err != nil {
				return nil, err
			}
		}
	}

	next := state.FromCode(room.Status)
	if reverted {
		next = state.StateWaiting
	}
	if err := auditTransition(txCtx, tx, in.RoomID, EventPlayerLeft, next,
		strconv.FormatInt(in.UserID, 10), "api",
		map[string]any{"user_id": in.UserID, "display_code": p.DisplayCode}, in.TraceID); err != nil {
		return nil, err
	}
	if err := notifyRoomEvent(txCtx, tx, in.RoomID, EventPlayerLeft,
		map[string]any{"display_code": p.DisplayCode}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if reverted && scheduler != nil {
		scheduler.Cancel(in.RoomID)
	}

	// 退款：唯一引用保证重试不重复退
	if _, err := applyCredit(ctx, in.UserID, room.Tier, constant.LedgerTypeRefund,
		refundReference(in.RoomID, p.DisplayCode), in.RoomID, "leave refund", in.TraceID); err != nil {
		logger.ErrorCtx(logger.WithTraceID(ctx, in.TraceID), "ledger-room inconsistency",
			zap.String("op", "leave_refund"),
			zap.String("room_id", in.RoomID),
			zap.Int64("user_id", in.UserID),
			zap.Error(err))
		metrics.RecordInconsistency("leave_refund")
		return nil, fmt.Errorf("failed to refund entry fee: %w", err)
	}

	fmt.Printf("[Leave] 退局成功: user_id=%d, room_id=%s, refunded=%d, reverted=%v, trace_id=%s\n",
		in.UserID, in.RoomID, room.Tier, reverted, in.TraceID)
	result = "success"
	return &LeaveOutput{
		RoomID:           in.RoomID,
		Refunded:         room.Tier,
		Status:           next,
		ParticipantCount: remaining,
	}, nil
}
