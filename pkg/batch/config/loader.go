package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// DefaultEnvFile は --env-file が指定されなかったときに探す .env ファイルです。
const DefaultEnvFile = ".env"

// BytesConfigLoader はバイトスライスから設定をロードする ConfigLoader の実装です。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load は YAML を既定値の上に重ね、環境変数で個別の値を上書きします。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(l.data, cfg); err != nil {
		return nil, exception.NewSetupError("config", "YAML設定のパースに失敗しました", err)
	}
	cfg.applyDefaults()

	loadEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig はセッション設定ファイルを読み込みます。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewSetupError("config", fmt.Sprintf("設定ファイル '%s' の読み込みに失敗しました", path), err)
	}
	return NewBytesConfigLoader(data).Load()
}

// LoadEnvFile は .env ファイルを環境変数にロードします。
// path が空の場合は DefaultEnvFile が存在するときだけロードします。
// 既に設定されている環境変数は上書きしません。
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			logger.Debugf(".env ファイルが見つからないため、ロードをスキップします。")
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return exception.NewSetupError("config", fmt.Sprintf(".env ファイル '%s' のロードに失敗しました", path), err)
	}
	logger.Infof(".env ファイル '%s' をロードしました。", path)
	return nil
}

// 環境変数で個別の設定値を上書きする関数
func loadEnvVars(cfg *Config) {
	if logLevel := os.Getenv("SYSTEM_LOGGING_LEVEL"); logLevel != "" {
		cfg.System.Logging.Level = logLevel
	}

	if driver := os.Getenv("SESSION_DRIVER"); driver != "" {
		cfg.Session.Driver = driver
	}
	if script := os.Getenv("SESSION_SCRIPT"); script != "" {
		cfg.Session.Script = script
	}

	if policy := os.Getenv("BATCH_GROUP_ERROR_POLICY"); policy != "" {
		cfg.Batch.GroupErrorPolicy = GroupErrorPolicy(policy)
		cfg.applyDefaults()
	}

	if dbType := os.Getenv("DATABASE_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPortStr := os.Getenv("DATABASE_PORT"); dbPortStr != "" {
		if dbPort, err := strconv.Atoi(dbPortStr); err == nil {
			cfg.Database.Port = dbPort
		} else {
			logger.Warnf("DATABASE_PORT の値 '%s' が無効です。設定ファイルの値を使用します。", dbPortStr)
		}
	}
	if dbName := os.Getenv("DATABASE_DATABASE"); dbName != "" {
		cfg.Database.Database = dbName
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DATABASE_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbSSLMode := os.Getenv("DATABASE_SSLMODE"); dbSSLMode != "" {
		cfg.Database.Sslmode = dbSSLMode
	}
	if account := os.Getenv("DATABASE_ACCOUNT"); account != "" {
		cfg.Database.Account = account
	}
	if warehouse := os.Getenv("DATABASE_WAREHOUSE"); warehouse != "" {
		cfg.Database.Warehouse = warehouse
	}
}
