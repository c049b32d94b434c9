package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-server/common/logger"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	"pool-server/internal/model"
	"pool-server/internal/service"
)

// CountdownScheduler 进程内倒计时调度器
// 每个房间最多挂一个定时任务；任务到点只负责触发 SpinEngine，
// 状态校验完全由触发方的条件更新闸门承担，因此过期/误触发是无害的。
// 进程重启会丢定时器，由 deadline sweeper 扫表兜底。
type CountdownScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	spin   service.SpinService
}

func NewCountdownScheduler(spin service.SpinService) *CountdownScheduler {
	return &CountdownScheduler{
		timers: make(map[string]*time.Timer),
		spin:   spin,
	}
}

// Schedule 注册（或重置）房间的到点开转任务
func (s *CountdownScheduler) Schedule(roomID string, endsAtMs int64) {
	delay := time.Until(time.UnixMilli(endsAtMs))
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
	}
	s.timers[roomID] = time.AfterFunc(delay, func() { s.fire(roomID) })
}

// Cancel 取消房间的待触发任务（倒计时回退 waiting 时调用）
func (s *CountdownScheduler) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
		delete(s.timers, roomID)
	}
}

// Stop 停掉所有待触发任务（进程退出时调用）
func (s *CountdownScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *CountdownScheduler) fire(roomID string) {
	s.mu.Lock()
	delete(s.timers, roomID)
	s.mu.Unlock()

	traceID := uuid.New().String()
	ctx := logger.WithTraceID(context.Background(), traceID)
	if _, err := s.spin.Trigger(ctx, service.SpinInput{
		RoomID:  roomID,
		Source:  "timer",
		TraceID: traceID,
	}); err != nil {
		logger.WarnCtx(ctx, "countdown timer: spin trigger failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}

// StartDeadlineSweeper 启动兜底扫描：周期性扫出倒计时已过期的房间并触发开转
// 覆盖进程重启丢定时器的场景；触发是幂等的，与在途定时器重复无妨
func StartDeadlineSweeper(ctx context.Context, wg *sync.WaitGroup, spin service.SpinService, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				batch := config.GetThreshold("sweeper_batch_size", 50)
				c, cancel := context.WithTimeout(ctx, 2*time.Second)
				ids, err := model.ListExpiredCountdowns(c, infmysql.SQLX(), time.Now().UnixMilli(), int(batch))
				cancel()
				if err != nil {
					logger.Warn("sweeper: list expired countdowns failed", zap.Error(err))
					continue
				}
				if len(ids) > 0 {
					logger.Info("sweeper: found expired countdowns", zap.Int("count", len(ids)))
				}
				for _, id := range ids {
					traceID := uuid.New().String()
					tc := logger.WithTraceID(ctx, traceID)
					if _, err := spin.Trigger(tc, service.SpinInput{
						RoomID:  id,
						Source:  "sweeper",
						TraceID: traceID,
					}); err != nil {
						logger.WarnCtx(tc, "sweeper: spin trigger failed",
							zap.String("room_id", id), zap.Error(err))
					} else {
						logger.InfoCtx(tc, "sweeper: spin triggered", zap.String("room_id", id))
					}
				}
			}
		}
	}()
}
