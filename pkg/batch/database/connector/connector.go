package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/database"
	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続文字列を組み立てるためのインターフェースです。
type DBConnector interface {
	// DriverName は database/sql に登録されたドライバ名です。
	DriverName() string
	// DSN は設定から接続文字列を生成します。
	DSN(cfg config.DatabaseConfig) (string, error)
}

var (
	mu         sync.RWMutex
	connectors = make(map[string]DBConnector)
)

// RegisterConnector は指定されたタイプ名で DBConnector を登録します。
func RegisterConnector(dbType string, connector DBConnector) {
	mu.Lock()
	defer mu.Unlock()
	connectors[strings.ToLower(dbType)] = connector
}

// Lookup は登録された DBConnector を返します。
func Lookup(dbType string) (DBConnector, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := connectors[strings.ToLower(dbType)]
	if !ok {
		return nil, exception.NewSetupError("database", fmt.Sprintf("未対応のデータベースタイプ: %s", dbType), nil)
	}
	return c, nil
}

// Open は設定に基づいて *sql.DB を開き、接続プール設定を適用して Ping で確認します。
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, string, error) {
	c, err := Lookup(cfg.Type)
	if err != nil {
		return nil, "", err
	}
	dsn, err := c.DSN(cfg)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(c.DriverName(), dsn)
	if err != nil {
		return nil, "", exception.NewSetupError("database", fmt.Sprintf("%s への接続に失敗しました", cfg.Type), err)
	}

	pool := cfg.ConnectionPool
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", exception.NewSetupError("database", fmt.Sprintf("%s への Ping に失敗しました", cfg.Type), err)
	}

	logger.Debugf("%s に正常に接続しました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒", cfg.Type, pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
	return db, dsn, nil
}

// NewDBConnectionFromConfig は設定に基づいてデータベース接続を確立します。
// cfg.Migrate が true の場合は実行履歴スキーマのマイグレーションも適用します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	db, dsn, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := database.RunMigrations(cfg.Type, dsn); err != nil {
			db.Close()
			return nil, err
		}
	}
	return database.NewSQLDBAdapter(db, database.DialectFor(cfg.Type)), nil
}
