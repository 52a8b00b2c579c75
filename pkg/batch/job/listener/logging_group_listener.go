package listener

import (
	"context"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/util/logger"
)

// LoggingGroupListener はグループの開始と終了をログに出力します。
type LoggingGroupListener struct{}

func NewLoggingGroupListener() *LoggingGroupListener {
	return &LoggingGroupListener{}
}

func (l *LoggingGroupListener) BeforeGroup(ctx context.Context, ge *core.GroupExecution) {
	logger.Infof("グループ %d (顧客 ID: '%s') の実行を開始します。", ge.Index, ge.CustomerID)
}

func (l *LoggingGroupListener) AfterGroup(ctx context.Context, ge *core.GroupExecution, err error) {
	ok, failed := ge.Counts()
	if err != nil {
		logger.Errorf("グループ %d がエラーで完了しました (状態: %s): %v", ge.Index, ge.Status, err)
		return
	}
	logger.Infof("グループ %d の実行が完了しました。状態: %s, 成功: %d, 失敗: %d", ge.Index, ge.Status, ok, failed)
}

var _ GroupExecutionListener = (*LoggingGroupListener)(nil)
