package app

import (
	"context"
	"errors"
	"io"
	"os"

	"hbcibatch/pkg/batch/initializer"
	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/job/joblauncher"
	"hbcibatch/pkg/batch/job/jsl"
	"hbcibatch/pkg/batch/job/listener"
	"hbcibatch/pkg/batch/step/writer"
	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// 終了コード
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitParseError = 2
	ExitSetupError = 3
	ExitGroupAbort = 4
	ExitUsage      = 64
)

// Options はコマンドラインから渡される実行オプションです。
type Options struct {
	ConfigPath  string
	AnswersPath string
	BatchFile   string
	OutputPath  string
	// ErrorOutputPath が空の場合は OutputPath に batch.error_suffix を付けたパスを使用します。
	ErrorOutputPath string
	LogFile         string
	EnvFile         string
	LogLevel        string

	Summary    bool
	SummaryOut io.Writer
}

// RunApplication はバッチ実行全体を行い、終了コードを返します。
// バッチファイルはセッション確立前にパースされるため、構文エラーでは接続が行われません。
func RunApplication(ctx context.Context, opts Options) int {
	if opts.LogFile != "" {
		if err := logger.SetOutput(opts.LogFile); err != nil {
			logger.Errorf("ログファイル '%s' を開けませんでした: %v", opts.LogFile, err)
			return ExitSetupError
		}
		defer logger.SetWriter(nil)
	}
	defer logger.Sync()

	bi := initializer.NewBatchInitializer(opts.ConfigPath, opts.AnswersPath)
	bi.EnvFilePath = opts.EnvFile
	bi.LogLevel = opts.LogLevel

	cfg, err := bi.LoadConfiguration()
	if err != nil {
		return handleApplicationError(err, nil)
	}

	groups, err := jsl.ParseFile(opts.BatchFile, jsl.Options{})
	if err != nil {
		return handleApplicationError(err, nil)
	}

	if err := bi.Initialize(ctx); err != nil {
		return handleApplicationError(err, nil)
	}
	defer func() {
		if closeErr := bi.Close(); closeErr != nil {
			logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", closeErr)
		}
	}()

	launcher := joblauncher.NewSimpleJobLauncher(bi.Session, bi.JobRepository, cfg.Batch.GroupErrorPolicy, listener.NewLoggingGroupListener())
	run, launchErr := launcher.Launch(ctx, opts.BatchFile, groups)

	exitCode := ExitOK
	if launchErr != nil {
		exitCode = handleApplicationError(launchErr, run)
	}

	// セットアップエラーではレポートを書き込みません。
	if exitCode != ExitSetupError && run != nil {
		errorPath := opts.ErrorOutputPath
		if errorPath == "" {
			errorPath = opts.OutputPath + cfg.Batch.ErrorSuffix
		}
		if _, err := writer.NewReportWriter().WriteFiles(opts.OutputPath, errorPath, run.Jobs); err != nil {
			logger.Errorf("レポートの書き込みに失敗しました: %v", err)
			if exitCode == ExitOK {
				exitCode = ExitFailure
			}
		}
	}

	if run != nil {
		run.ExitCode = exitCode
		if err := bi.JobRepository.UpdateRunExecution(context.WithoutCancel(ctx), run); err != nil {
			logger.Errorf("実行履歴の更新に失敗しました (Run ID: %s): %v", run.ID, err)
		}
		if opts.Summary {
			out := opts.SummaryOut
			if out == nil {
				out = os.Stdout
			}
			PrintSummary(out, run)
		}
		logger.Infof("バッチ実行が終了しました (Run ID: %s, Status: %s, 終了コード: %d)", run.ID, run.Status, exitCode)
	}
	return exitCode
}

// ExitCodeFor はエラーの分類を終了コードに対応付けます。
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	switch exception.KindOf(err) {
	case exception.KindParse:
		return ExitParseError
	case exception.KindSetup:
		return ExitSetupError
	case exception.KindGroup:
		return ExitGroupAbort
	default:
		return ExitFailure
	}
}

// handleApplicationError はエラーの詳細をログに出力し、終了コードを返します。
func handleApplicationError(err error, run *core.RunExecution) int {
	if run != nil {
		logger.Errorf("バッチ実行 (Run ID: %s) でエラーが発生しました: %v", run.ID, err)
		for i, f := range run.Failures {
			logger.Errorf("  - 失敗 %d: %v", i+1, f)
		}
	} else {
		logger.Errorf("バッチ実行を開始できませんでした: %v", err)
	}

	var be *exception.BatchError
	if errors.As(err, &be) {
		logger.Debugf("BatchError 詳細: Kind=%s, Module=%s, Message=%s, OriginalErr=%v", be.Kind, be.Module, be.Message, be.OriginalErr)
		if be.StackTrace != "" {
			logger.Debugf("BatchError StackTrace:\n%s", be.StackTrace)
		}
	}
	return ExitCodeFor(err)
}
