package initializer

import (
	"context"
	"errors"
	"fmt"

	"hbcibatch/pkg/batch/answer"
	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/repository"
	"hbcibatch/pkg/batch/session"
	"hbcibatch/pkg/batch/util/logger"
)

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
// 設定、回答テーブル、実行履歴リポジトリ、セッションを順に用意し、Close でまとめて解放します。
type BatchInitializer struct {
	ConfigPath  string
	AnswersPath string
	EnvFilePath string
	// LogLevel が空でない場合、設定ファイルのログレベルより優先されます。
	LogLevel string

	Config        *config.Config
	Answers       *answer.Table
	JobRepository repository.JobRepository
	Session       session.Session
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
func NewBatchInitializer(configPath, answersPath string) *BatchInitializer {
	return &BatchInitializer{
		ConfigPath:  configPath,
		AnswersPath: answersPath,
	}
}

// LoadConfiguration は .env と設定ファイルをロードし、ログレベルを反映します。
// セッションには接続しないため、バッチファイルのパース前に呼び出せます。
func (bi *BatchInitializer) LoadConfiguration() (*config.Config, error) {
	if err := config.LoadEnvFile(bi.EnvFilePath); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(bi.ConfigPath)
	if err != nil {
		return nil, err
	}
	if bi.LogLevel != "" {
		cfg.System.Logging.Level = bi.LogLevel
	}
	bi.Config = cfg

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Infof("ロギングレベルを '%s' に設定しました。", logger.Level())
	return cfg, nil
}

// Initialize は回答テーブル、実行履歴リポジトリ、セッションを生成します。
// 設定が未ロードの場合は LoadConfiguration を先に実行します。
// 途中で失敗した場合、それまでに生成したリソースは解放されます。
func (bi *BatchInitializer) Initialize(ctx context.Context) (err error) {
	logger.Debugf("BatchInitializer.Initialize が呼び出されました。")

	if bi.Config == nil {
		if _, err := bi.LoadConfiguration(); err != nil {
			return err
		}
	}
	defer func() {
		if err != nil {
			if closeErr := bi.Close(); closeErr != nil {
				logger.Warnf("初期化失敗後のリソース解放でエラーが発生しました: %v", closeErr)
			}
		}
	}()

	// Step 1: 回答テーブルのロード
	answers, err := answer.LoadTable(bi.AnswersPath)
	if err != nil {
		return err
	}
	bi.Answers = answers
	logger.Infof("回答テーブルをロードしました。キー数: %d", len(answers.Keys()))

	// Step 2: 実行履歴リポジトリの生成
	jobRepository, err := repository.NewJobRepository(ctx, bi.Config.Database)
	if err != nil {
		return err
	}
	bi.JobRepository = jobRepository
	logger.Debugf("Job Repository を生成しました。")

	// Step 3: セッションの確立
	s, err := session.Open(ctx, bi.Config.Session, bi.Answers)
	if err != nil {
		return err
	}
	bi.Session = s
	logger.Infof("セッションを確立しました。ドライバ: %s", bi.Config.Session.Driver)

	return nil
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	var errs []error
	if bi.Session != nil {
		if closeErr := bi.Session.Close(); closeErr != nil {
			logger.Errorf("セッションのクローズに失敗しました: %v", closeErr)
			errs = append(errs, fmt.Errorf("セッションクローズエラー: %w", closeErr))
		}
		bi.Session = nil
	}
	if bi.JobRepository != nil {
		if closeErr := bi.JobRepository.Close(); closeErr != nil {
			logger.Errorf("Job Repository のクローズに失敗しました: %v", closeErr)
			errs = append(errs, fmt.Errorf("Job Repository クローズエラー: %w", closeErr))
		} else {
			logger.Debugf("Job Repository を正常にクローズしました。")
		}
		bi.JobRepository = nil
	}
	return errors.Join(errs...)
}
