package common

import (
	"time"

	"pool-server/common/logger"

	"go.uber.org/zap"

	"github.com/jmoiron/sqlx"
)

// InitDB 初始化 MySQL 连接池
// dsn 需包含库名与基础参数，这里统一追加 parseTime/loc
func InitDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {
	db, err := sqlx.Connect("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf("InitDB sqlx.Connect", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 会话级锁等待超时，降低行锁争用时的阻塞时长
	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	if err := db.Ping(); err != nil {
		logger.Fatalf("InitDB ping failed:", zap.Error(err))
	}

	return db
}
