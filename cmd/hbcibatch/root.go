package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"hbcibatch/pkg/batch/app"
	_ "hbcibatch/pkg/batch/session/scripted" // scripted セッションドライバを登録
)

const longDescription = `hbcibatch はバッチファイルに記述されたジョブを HBCI セッションで実行し、
成功したジョブを OUTPUT に、失敗したジョブを ERROR_OUTPUT に書き込みます。

ERROR_OUTPUT を省略した場合は OUTPUT に batch.error_suffix (既定値 ".err") を付けたパスを使用します。
LOG_FILE を省略した場合、ログは標準エラー出力に書き込まれます。

終了コード:
  0  成功
  1  その他のエラー
  2  バッチファイルの構文エラー
  3  セットアップエラー (レポートは書き込まれません)
  4  ダイアログ失敗による中断 (group_error_policy: abort)
  64 コマンドラインの誤り`

// newRootCommand はルートコマンドを作成します。実行結果の終了コードは exitCode に格納されます。
func newRootCommand(ctx context.Context, exitCode *int) *cobra.Command {
	opts := app.Options{}

	cmd := &cobra.Command{
		Use:   "hbcibatch SESSION_CONFIG ANSWERS BATCH_FILE OUTPUT [ERROR_OUTPUT] [LOG_FILE]",
		Short: "HBCI ジョブをバッチ実行します",
		Long:  longDescription,
		Args:  cobra.RangeArgs(4, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]
			opts.AnswersPath = args[1]
			opts.BatchFile = args[2]
			opts.OutputPath = args[3]
			if len(args) > 4 {
				opts.ErrorOutputPath = args[4]
			}
			if len(args) > 5 {
				opts.LogFile = args[5]
			}
			opts.SummaryOut = cmd.OutOrStdout()

			*exitCode = app.RunApplication(ctx, opts)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "環境変数を読み込む .env ファイル (省略時はカレントディレクトリの .env があれば使用)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "ログレベル (DEBUG, INFO, WARN, ERROR)。設定ファイルより優先されます")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "実行後にグループごとの結果を表形式で標準出力に表示します")

	return cmd
}

// execute はコマンドラインを解釈して実行し、終了コードを返します。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exitCode := app.ExitOK
	cmd := newRootCommand(ctx, &exitCode)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return app.ExitUsage
	}
	return exitCode
}
