package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"card_recommend/config"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL 使用配置打开数据库连接池并检查连通性
func OpenMySQL(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DB.DSN == "" {
		return nil, errors.New("database dsn is empty: set database.host or DB_DSN")
	}

	conn, err := sql.Open("mysql", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	// 从配置读取连接池参数，提供默认值保护
	maxOpenConns := cfg.DB.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 20 // 默认最大连接数
	}

	maxIdleConns := cfg.DB.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 5 // 默认最大空闲连接数
	}

	connMaxLifetime := cfg.DB.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 60 // 默认连接最大生命周期（分钟）
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return conn, nil
}
