package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pool-server/common"
	"pool-server/common/logger"
	"pool-server/internal/config"
	infmysql "pool-server/internal/infra/mysql"
	infrds "pool-server/internal/infra/redis"
	infmq "pool-server/internal/infra/rocketmq"
	"pool-server/internal/service"
	"pool-server/internal/worker"

	_ "pool-server/routers"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置：Nacos 优先，本地文件兜底；支持热更新
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		logger.Info("config reloaded")
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)

	// Redis（可选，未配置时幂等锁与快照缓存自动退化）
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// 后台任务：倒计时调度 + 到期兜底扫描 + outbox 分发
	var wg sync.WaitGroup
	spinSvc := service.NewSpinService()
	sched := worker.NewCountdownScheduler(spinSvc)
	service.SetScheduler(sched)
	worker.StartDeadlineSweeper(ctx, &wg, spinSvc, 5*time.Second)
	worker.StartOutboxDispatcher(ctx, &wg)

	// Prometheus 指标端点
	if cfg.Observability.EnableProm {
		addr := cfg.Observability.PromAddr
		if addr == "" {
			addr = ":9190"
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Warn("prometheus endpoint stopped", zap.Error(err))
			}
		}()
		logger.Info("prometheus endpoint started", zap.String("addr", addr))
	}

	// 优雅退出：收到信号后停工作协程与 MQ，再退出进程
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Info("shutting down", zap.String("signal", sig.String()))

		cancel()
		sched.Stop()

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			logger.Warn("workers did not stop in time")
		}
		infmq.Shutdown()
		logger.Sync()
		os.Exit(0)
	}()

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	fmt.Printf("[Boot] pool-server 启动: port=%d\n", port)
	beego.Run(fmt.Sprintf(":%d", port))
}
