package joblauncher

import (
	"context"
	"errors"
	"fmt"

	"hbcibatch/pkg/batch/config"
	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/job/jsl"
	"hbcibatch/pkg/batch/job/listener"
	"hbcibatch/pkg/batch/repository"
	"hbcibatch/pkg/batch/session"
	exception "hbcibatch/pkg/batch/util/exception"
	logger "hbcibatch/pkg/batch/util/logger"
)

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// グループを 1 つずつ同期的に実行し、グループ N+1 はグループ N の Execute が戻るまで開始しません。
type SimpleJobLauncher struct {
	session       session.Session
	jobRepository repository.JobRepository
	policy        config.GroupErrorPolicy
	listeners     []listener.GroupExecutionListener
}

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
// jobRepository が nil の場合、実行履歴は保存されません。
func NewSimpleJobLauncher(s session.Session, jobRepository repository.JobRepository, policy config.GroupErrorPolicy, listeners ...listener.GroupExecutionListener) *SimpleJobLauncher {
	if jobRepository == nil {
		jobRepository = repository.NoopJobRepository{}
	}
	if policy == "" {
		policy = config.GroupErrorContinue
	}
	return &SimpleJobLauncher{
		session:       s,
		jobRepository: jobRepository,
		policy:        policy,
		listeners:     listeners,
	}
}

// Launch は JobLauncher インターフェースの実装です。
//
// ジョブ生成・パラメータ設定の失敗 (SetupError) はラン全体を即座に中断します。
// セッションが SetupError を返した場合 (認証失敗など) も同様に即座に中断します。
// ダイアログ全体の失敗 (GroupError) は、そのグループのジョブを失敗として記録したうえで
// ポリシーが continue なら次のグループへ進み、abort なら残りのグループを実行せずに中断します。
// ctx がキャンセルされた場合は残りのグループを実行せず、GroupError を返します。
func (l *SimpleJobLauncher) Launch(ctx context.Context, batchFile string, groups []*jsl.BatchGroup) (*core.RunExecution, error) {
	run := core.NewRunExecution(batchFile)
	run.MarkAsStarted()
	logger.Infof("バッチ '%s' (Execution ID: %s) の実行を開始します。グループ数: %d, ジョブ数: %d", batchFile, run.ID, len(groups), jsl.CountJobs(groups))

	// 中断後も実行履歴は最後まで書き込みます。
	historyCtx := context.WithoutCancel(ctx)
	if err := l.jobRepository.SaveRunExecution(historyCtx, run); err != nil {
		logger.Errorf("RunExecution (ID: %s) の保存に失敗しました: %v", run.ID, err)
	}

	var abortErr error
	for _, g := range groups {
		ge := core.NewGroupExecution(g.Index, g.CustomerID)
		run.AddGroup(ge)

		if abortErr == nil && ctx.Err() != nil {
			abortErr = interruptedError(ctx)
			logger.Warnf("実行が中断されました。グループ %d 以降は実行されません: %v", g.Index, ctx.Err())
			run.AddFailureException(abortErr)
		}
		if abortErr != nil {
			l.abandonGroup(historyCtx, run, ge, g, abortErr)
			continue
		}

		err := l.runGroup(ctx, run, ge, g)
		if err == nil {
			continue
		}
		if exception.IsKind(err, exception.KindSetup) {
			logger.Errorf("グループ %d のジョブ準備中に致命的なエラーが発生しました。ランを中断します: %v", g.Index, err)
			run.MarkAsFailed(err)
			l.updateRun(historyCtx, run)
			return run, err
		}

		run.AddFailureException(err)
		if l.policy == config.GroupErrorAbort {
			logger.Errorf("グループ %d のダイアログが失敗しました。残りのグループは実行されません: %v", g.Index, err)
			abortErr = err
		} else {
			logger.Warnf("グループ %d のダイアログが失敗しました。次のグループへ進みます: %v", g.Index, err)
		}
	}

	if abortErr == nil && ctx.Err() != nil {
		abortErr = interruptedError(ctx)
		logger.Warnf("最後のグループの実行中に中断されました: %v", ctx.Err())
		run.AddFailureException(abortErr)
	}
	if abortErr != nil {
		run.MarkAsFailed(nil)
		l.updateRun(historyCtx, run)
		return run, abortErr
	}

	run.MarkAsCompleted()
	l.updateRun(historyCtx, run)
	logger.Infof("バッチ '%s' (Execution ID: %s) の実行が完了しました。", batchFile, run.ID)
	return run, nil
}

// runGroup は 1 グループ分のジョブを準備し、1 ダイアログで実行します。
func (l *SimpleJobLauncher) runGroup(ctx context.Context, run *core.RunExecution, ge *core.GroupExecution, g *jsl.BatchGroup) (err error) {
	for _, gl := range l.listeners {
		gl.BeforeGroup(ctx, ge)
	}
	ge.MarkAsStarted()
	defer func() {
		for _, gl := range l.listeners {
			gl.AfterGroup(ctx, ge, err)
		}
		if saveErr := l.jobRepository.SaveGroupExecution(context.WithoutCancel(ctx), run, ge); saveErr != nil {
			logger.Errorf("GroupExecution (Index: %d) の保存に失敗しました: %v", ge.Index, saveErr)
		}
	}()

	if g.IsEmpty() {
		logger.Debugf("グループ %d にはジョブがありません。スキップします。", g.Index)
		ge.MarkAsCompleted()
		return nil
	}

	for _, jd := range g.Jobs {
		if err = l.prepareJob(ctx, jd); err != nil {
			ge.MarkAsFailed(err)
			return err
		}
	}

	gr, err := l.session.Execute(ctx)
	if err != nil {
		if exception.IsKind(err, exception.KindSetup) {
			ge.MarkAsFailed(err)
			return err
		}
		if !exception.IsKind(err, exception.KindGroup) {
			err = exception.NewGroupError("job_launcher", "dialog failed", err)
		}
		ge.GlobalStatus = StatusMessage(err)
		for _, jd := range g.Jobs {
			je := jd.NewJobExecution(g.Index)
			je.Result = core.NewFailedResult(jd.JobID, ge.GlobalStatus, core.StatusNotExecutedDialogFailed)
			run.Record(ge, je)
		}
		ge.MarkAsFailed(err)
		return err
	}
	if gr == nil {
		gr = &core.GroupResult{}
	}

	ge.GlobalStatus = gr.GlobalStatus
	for _, jd := range g.Jobs {
		je := jd.NewJobExecution(g.Index)
		res, ok := gr.Results[jd.JobID]
		if !ok || res == nil {
			logger.Warnf("ジョブ '%s' の結果がセッションから返されませんでした。", jd.JobID)
			res = core.NewFailedResult(jd.JobID, gr.GlobalStatus, core.StatusNoResult)
		}
		je.Result = res
		run.Record(ge, je)
		if !res.Succeeded {
			logger.Debugf("ジョブ '%s' は失敗しました: %s", jd.JobID, res.JobStatusMessage)
		}
	}
	for id := range gr.Results {
		if _, ok := run.Job(id); !ok {
			logger.Warnf("バッチファイルに存在しないジョブ '%s' の結果を無視します。", id)
		}
	}

	ge.MarkAsCompleted()
	return nil
}

// prepareJob はジョブを生成し、パラメータを定義順に設定してキューに投入します。
// ファイル参照のパラメータは設定の直前に読み込みます。
func (l *SimpleJobLauncher) prepareJob(ctx context.Context, jd *jsl.JobDefinition) error {
	h, err := l.session.CreateJob(ctx, jd.JobID, jd.JobType, jd.Kind)
	if err != nil {
		return setupError(jd, fmt.Sprintf("ジョブ '%s' を作成できませんでした", jd.JobType), err)
	}
	for _, p := range jd.Params {
		value, err := p.Value.Resolve()
		if err != nil {
			return setupError(jd, fmt.Sprintf("パラメータ '%s' の値を取得できませんでした", p.Name), err)
		}
		if err := h.SetParam(p.Name, value); err != nil {
			return setupError(jd, fmt.Sprintf("パラメータ '%s' を設定できませんでした", p.Name), err)
		}
	}
	if err := h.Enqueue(jd.CustomerID); err != nil {
		return setupError(jd, fmt.Sprintf("顧客 ID '%s' のキューに投入できませんでした", jd.CustomerID), err)
	}
	logger.Debugf("ジョブ '%s' (%s, %d パラメータ) を顧客 ID '%s' のキューに投入しました。", jd.JobID, jd.JobType, len(jd.Params), jd.CustomerID)
	return nil
}

func setupError(jd *jsl.JobDefinition, msg string, err error) error {
	be := exception.NewSetupError("job_launcher", fmt.Sprintf("ジョブ '%s': %s", jd.JobID, msg), err)
	be.Line = jd.Line
	return be
}

// abandonGroup は中断後のグループのジョブを未実行として記録します。
func (l *SimpleJobLauncher) abandonGroup(ctx context.Context, run *core.RunExecution, ge *core.GroupExecution, g *jsl.BatchGroup, cause error) {
	ge.GlobalStatus = StatusMessage(cause)
	for _, jd := range g.Jobs {
		je := jd.NewJobExecution(g.Index)
		je.Result = core.NewFailedResult(jd.JobID, ge.GlobalStatus, core.StatusNotExecutedRunAborted)
		run.Record(ge, je)
	}
	ge.MarkAsAbandoned()
	if err := l.jobRepository.SaveGroupExecution(ctx, run, ge); err != nil {
		logger.Errorf("GroupExecution (Index: %d) の保存に失敗しました: %v", ge.Index, err)
	}
}

func interruptedError(ctx context.Context) error {
	return exception.NewGroupError("job_launcher", "run interrupted", ctx.Err())
}

func (l *SimpleJobLauncher) updateRun(ctx context.Context, run *core.RunExecution) {
	if err := l.jobRepository.UpdateRunExecution(ctx, run); err != nil {
		logger.Errorf("RunExecution (ID: %s) の更新に失敗しました: %v", run.ID, err)
	}
}

// StatusMessage はダイアログ失敗をレポートの global status に記載する文字列に変換します。
func StatusMessage(err error) string {
	var be *exception.BatchError
	if errors.As(err, &be) {
		if be.OriginalErr != nil {
			return fmt.Sprintf("%s: %v", be.Message, be.OriginalErr)
		}
		return be.Message
	}
	return err.Error()
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
