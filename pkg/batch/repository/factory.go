package repository

import (
	"context"
	"fmt"

	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/database/connector"
	"hbcibatch/pkg/batch/util/exception"
	logger "hbcibatch/pkg/batch/util/logger"
)

// NewJobRepository は設定に応じた JobRepository を作成します。
// database.type が未設定の場合は NoopJobRepository を返します。
func NewJobRepository(ctx context.Context, cfg config.DatabaseConfig) (JobRepository, error) {
	if !cfg.Enabled() {
		logger.Debugf("実行履歴のデータベースが設定されていません。実行履歴は保存されません。")
		return NoopJobRepository{}, nil
	}
	logger.Debugf("JobRepository の生成を開始します (Type: %s).", cfg.Type)

	dbConn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	if err != nil {
		logger.Errorf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s): %v", cfg.Type, err)
		if exception.IsKind(err, exception.KindSetup) {
			return nil, err
		}
		return nil, exception.NewSetupError("repository_factory", fmt.Sprintf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s)", cfg.Type), err)
	}

	logger.Infof("実行履歴を %s に保存します。", cfg.Type)
	return NewSQLJobRepository(dbConn), nil
}
