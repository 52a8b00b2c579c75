package config

import (
	"fmt"
	"strings"

	"hbcibatch/pkg/batch/util/exception"
)

// GroupErrorPolicy はダイアログ全体が失敗したときの後続グループの扱いを表します。
type GroupErrorPolicy string

const (
	// GroupErrorContinue は失敗したグループのジョブをエラーストリームに記録し、次のグループを続行します。
	GroupErrorContinue GroupErrorPolicy = "continue"
	// GroupErrorAbort は失敗したグループ以降のグループを実行せずに中断します。
	GroupErrorAbort GroupErrorPolicy = "abort"
)

// ConnectionPoolConfig はデータベースコネクションプールの設定を保持します。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// DatabaseConfig は実行履歴 (任意機能) の保存先データベースの設定です。
// Type が空または "none" の場合、実行履歴は保存されません。
type DatabaseConfig struct {
	Type      string `yaml:"type"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Sslmode   string `yaml:"sslmode"`
	Account   string `yaml:"account"`   // snowflake
	Warehouse string `yaml:"warehouse"` // snowflake
	Schema    string `yaml:"schema"`    // snowflake
	Role      string `yaml:"role"`      // snowflake
	// Migrate が true の場合、接続時に実行履歴テーブルのマイグレーションを適用します。
	Migrate        bool                 `yaml:"migrate"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

// Enabled は実行履歴の保存が有効かどうかを返します。
func (c DatabaseConfig) Enabled() bool {
	t := strings.ToLower(strings.TrimSpace(c.Type))
	return t != "" && t != "none"
}

// SessionConfig はプロトコルセッションの設定です。
type SessionConfig struct {
	// Driver は使用するセッションドライバ名です (例: "script")。
	Driver string `yaml:"driver"`
	// Script は scripted ドライバが読み込むシナリオファイルのパスです。
	Script string `yaml:"script"`
	// DefaultHBCIVersion はパスポートがバージョンを返さない場合に使用するバージョンです。
	DefaultHBCIVersion string `yaml:"default_hbci_version"`
	// Kernel はプロトコルエンジンに渡すカーネルパラメータです。
	Kernel map[string]string `yaml:"kernel"`
}

// BatchConfig はバッチ実行全体の設定です。
type BatchConfig struct {
	GroupErrorPolicy GroupErrorPolicy `yaml:"group_error_policy"`
	ErrorSuffix      string           `yaml:"error_suffix"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

type Config struct {
	System   SystemConfig   `yaml:"system"`
	Session  SessionConfig  `yaml:"session"`
	Batch    BatchConfig    `yaml:"batch"`
	Database DatabaseConfig `yaml:"database"`
}

// DefaultKernelParams はプロトコルエンジンのカーネルパラメータの既定値を返します。
func DefaultKernelParams() map[string]string {
	return map[string]string{
		"log.loglevel.default":                "2",
		"client.passport.default":             "PinTan",
		"client.passport.PinTan.filename":     "pintan_hbci4java",
		"client.passport.PinTan.checkcert":    "1",
		"client.passport.PinTan.init":         "1",
		"client.passport.hbciversion.default": "plus",
	}
}

// NewConfig は Config の新しいインスタンスを既定値付きで返します。
func NewConfig() *Config {
	return &Config{
		System: SystemConfig{
			Logging: LoggingConfig{Level: "INFO"},
		},
		Session: SessionConfig{
			Driver:             "script",
			DefaultHBCIVersion: "plus",
			Kernel:             DefaultKernelParams(),
		},
		Batch: BatchConfig{
			GroupErrorPolicy: GroupErrorContinue,
			ErrorSuffix:      ".err",
		},
	}
}

// applyDefaults は YAML で空にされた項目へ既定値を補完します。
func (c *Config) applyDefaults() {
	defaults := NewConfig()
	if c.System.Logging.Level == "" {
		c.System.Logging.Level = defaults.System.Logging.Level
	}
	if c.Session.Driver == "" {
		c.Session.Driver = defaults.Session.Driver
	}
	if c.Session.DefaultHBCIVersion == "" {
		c.Session.DefaultHBCIVersion = defaults.Session.DefaultHBCIVersion
	}
	if c.Session.Kernel == nil {
		c.Session.Kernel = map[string]string{}
	}
	for k, v := range defaults.Session.Kernel {
		if _, ok := c.Session.Kernel[k]; !ok {
			c.Session.Kernel[k] = v
		}
	}
	if c.Batch.GroupErrorPolicy == "" {
		c.Batch.GroupErrorPolicy = defaults.Batch.GroupErrorPolicy
	}
	c.Batch.GroupErrorPolicy = GroupErrorPolicy(strings.ToLower(string(c.Batch.GroupErrorPolicy)))
	if c.Batch.ErrorSuffix == "" {
		c.Batch.ErrorSuffix = defaults.Batch.ErrorSuffix
	}
}

// Validate は設定値の整合性を検証します。
func (c *Config) Validate() error {
	switch c.Batch.GroupErrorPolicy {
	case GroupErrorContinue, GroupErrorAbort:
	default:
		return exception.NewSetupError("config", fmt.Sprintf("不明な group_error_policy です: %q", c.Batch.GroupErrorPolicy), nil)
	}
	if c.Database.Enabled() {
		switch strings.ToLower(c.Database.Type) {
		case "postgres", "redshift", "mysql", "snowflake":
		default:
			return exception.NewSetupError("config", fmt.Sprintf("未対応のデータベースタイプです: %s", c.Database.Type), nil)
		}
	}
	return nil
}
