package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"    // MySQL ドライバを登録
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL および Redshift ドライバを登録
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// MigrationsTable は実行履歴スキーマのマイグレーション履歴を記録するテーブルです。
const MigrationsTable = "hbcibatch_schema_migrations"

//go:embed migrations
var migrationFiles embed.FS

// MigrationSourcePath はデータベースタイプに対応する埋め込みマイグレーションのディレクトリを返します。
func MigrationSourcePath(dbType string) (string, bool) {
	switch strings.ToLower(dbType) {
	case "postgres", "redshift":
		return "migrations/postgres", true
	case "mysql":
		return "migrations/mysql", true
	default:
		return "", false
	}
}

// MigrationURL は接続文字列に golang-migrate 用のオプションを付与します。
func MigrationURL(dbType, dsn string) (string, error) {
	u := dsn
	switch strings.ToLower(dbType) {
	case "postgres", "redshift":
	case "mysql":
		u = "mysql://" + dsn
		u = appendQuery(u, "multiStatements=true")
	default:
		return "", exception.NewBatchErrorf("migration", exception.KindSetup, "サポートされていないデータベースタイプ: %s", dbType)
	}
	return appendQuery(u, "x-migrations-table="+MigrationsTable), nil
}

func appendQuery(u, kv string) string {
	if strings.Contains(u, "?") {
		return u + "&" + kv
	}
	return u + "?" + kv
}

// RunMigrations は埋め込まれた実行履歴スキーマをデータベースに適用します。
//
// dbType: データベースの種類 (例: "postgres", "mysql", "redshift")
// dsn: コネクタが生成した接続文字列
func RunMigrations(dbType, dsn string) error {
	sourcePath, ok := MigrationSourcePath(dbType)
	if !ok {
		logger.Warnf("DBタイプ '%s' のマイグレーションはサポートされていません。実行履歴テーブルは事前に作成してください。", dbType)
		return nil
	}
	databaseURL, err := MigrationURL(dbType, dsn)
	if err != nil {
		return err
	}

	logger.Infof("データベースマイグレーションを開始します。DBタイプ: %s, マイグレーション: %s", dbType, sourcePath)
	src, err := iofs.New(migrationFiles, sourcePath)
	if err != nil {
		return exception.NewSetupError("migration", fmt.Sprintf("マイグレーションソース '%s' の読み込みに失敗しました", sourcePath), err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return exception.NewSetupError("migration", "マイグレーションインスタンスの作成に失敗しました", err)
	}
	defer m.Close()

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewSetupError("migration", "マイグレーションの実行に失敗しました", err)
	}

	logger.Infof("データベースマイグレーションが正常に完了しました。")
	return nil
}
