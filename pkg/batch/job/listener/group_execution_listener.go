package listener

import (
	"context"

	core "hbcibatch/pkg/batch/job/core"
)

// GroupExecutionListener はバッチグループの実行ライフサイクルイベントを処理するためのインターフェースです。
type GroupExecutionListener interface {
	// BeforeGroup はグループのジョブ生成が開始される直前に呼び出されます。
	BeforeGroup(ctx context.Context, ge *core.GroupExecution)
	// AfterGroup はグループの実行が完了した後に呼び出されます。成功・失敗に関わらず呼び出されます。
	AfterGroup(ctx context.Context, ge *core.GroupExecution, err error)
}
