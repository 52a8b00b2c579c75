package connector

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql" // MySQL ドライバ

	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/util/exception"
)

// mysqlConnector は MySQL 用の DBConnector 実装です。
type mysqlConnector struct{}

func (c *mysqlConnector) DriverName() string {
	return "mysql"
}

// DSN は go-sql-driver/mysql の形式 (user:password@tcp(host:port)/database?parseTime=true) の接続文字列を返します。
func (c *mysqlConnector) DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return "", exception.NewSetupError("database", fmt.Sprintf("%s の host と database は必須です", cfg.Type), nil)
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// init 関数で mysqlConnector を登録します。
func init() {
	RegisterConnector("mysql", &mysqlConnector{})
}
