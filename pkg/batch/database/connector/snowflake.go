package connector

import (
	"github.com/snowflakedb/gosnowflake" // Snowflake ドライバ

	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/util/exception"
)

// snowflakeConnector は Snowflake 用の DBConnector 実装です。
type snowflakeConnector struct{}

func (c *snowflakeConnector) DriverName() string {
	return "snowflake"
}

// DSN は gosnowflake.DSN で接続文字列を生成します。
func (c *snowflakeConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Account == "" {
		return "", exception.NewSetupError("database", "snowflake の account は必須です", nil)
	}
	sc := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	}
	if cfg.Host != "" {
		sc.Host = cfg.Host
	}
	if cfg.Port != 0 {
		sc.Port = cfg.Port
	}
	dsn, err := gosnowflake.DSN(sc)
	if err != nil {
		return "", exception.NewSetupError("database", "snowflake の接続文字列の生成に失敗しました", err)
	}
	return dsn, nil
}

// init 関数で snowflakeConnector を登録します。
func init() {
	RegisterConnector("snowflake", &snowflakeConnector{})
}
