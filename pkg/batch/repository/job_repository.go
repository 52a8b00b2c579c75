package repository

import (
	"context"

	core "hbcibatch/pkg/batch/job/core"
)

// JobRepository はバッチ実行の履歴を永続化するためのインターフェースです。
// 書き込み専用の監査記録であり、実行の再開には使用されません。
type JobRepository interface {
	// SaveRunExecution は開始したラン全体を保存します。
	SaveRunExecution(ctx context.Context, run *core.RunExecution) error
	// SaveGroupExecution は完了したグループとそのジョブ結果を 1 トランザクションで保存します。
	SaveGroupExecution(ctx context.Context, run *core.RunExecution, ge *core.GroupExecution) error
	// UpdateRunExecution はランの最終状態を保存します。
	UpdateRunExecution(ctx context.Context, run *core.RunExecution) error
	// Close はリポジトリが使用するリソース (データベース接続など) を解放します。
	Close() error
}

// NoopJobRepository は実行履歴を保存しない JobRepository の実装です。
type NoopJobRepository struct{}

func (NoopJobRepository) SaveRunExecution(ctx context.Context, run *core.RunExecution) error {
	return nil
}

func (NoopJobRepository) SaveGroupExecution(ctx context.Context, run *core.RunExecution, ge *core.GroupExecution) error {
	return nil
}

func (NoopJobRepository) UpdateRunExecution(ctx context.Context, run *core.RunExecution) error {
	return nil
}

func (NoopJobRepository) Close() error {
	return nil
}

var _ JobRepository = NoopJobRepository{}
