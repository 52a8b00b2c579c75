package scripted

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"hbcibatch/pkg/batch/answer"
	"hbcibatch/pkg/batch/config"
	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/session"
	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// DriverName は session.driver に指定する名前です。
const DriverName = "script"

func init() {
	session.Register(DriverName, session.DriverFunc(Open))
}

// Param は記録されたパラメータです。
type Param struct {
	Name  string
	Value string
}

// QueuedJob はダイアログで実行されたジョブの記録です。
type QueuedJob struct {
	JobID      string
	JobType    string
	Kind       core.JobKind
	CustomerID string
	Params     []Param
}

// Dialog は Execute 1 回分の記録です。
type Dialog struct {
	CustomerIDs []string
	Jobs        []QueuedJob
	Failed      bool
}

// Session はシナリオに従って応答する session.Session の実装です。
type Session struct {
	script   *Script
	resolver answer.Resolver

	// 接続時に解決された値
	Version    string
	Country    string
	BLZ        string
	Host       string
	Port       string
	UserID     string
	CustomerID string

	queue   []*jobHandle
	Dialogs []Dialog
	closed  bool
}

// Open は cfg.Script のシナリオを読み込み、接続情報を resolver から解決します。
func Open(ctx context.Context, cfg config.SessionConfig, resolver answer.Resolver) (session.Session, error) {
	script, err := LoadScript(cfg.Script)
	if err != nil {
		return nil, err
	}
	return New(ctx, script, cfg, resolver)
}

// New はシナリオから Session を作成します。
func New(ctx context.Context, script *Script, cfg config.SessionConfig, resolver answer.Resolver) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, exception.NewSetupError("scripted_session", "セッションの確立がキャンセルされました", err)
	}
	s := &Session{
		script:     script,
		resolver:   resolver,
		Version:    session.PassportVersion(script.PassportVersion, cfg),
		Country:    resolver.Resolve(answer.NeedCountry),
		BLZ:        resolver.Resolve(answer.NeedBLZ),
		Host:       resolver.Resolve(answer.NeedHost),
		Port:       resolver.Resolve(answer.NeedPort),
		UserID:     resolver.Resolve(answer.NeedUserID),
		CustomerID: resolver.Resolve(answer.NeedCustomerID),
	}
	resolver.Resolve(answer.NeedNewInstKeysAck)

	missing := make([]string, 0)
	for _, kv := range []struct{ key, value string }{
		{answer.NeedHost.Key(), s.Host},
		{answer.NeedPort.Key(), s.Port},
		{answer.NeedUserID.Key(), s.UserID},
	} {
		if kv.value == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return nil, exception.NewSetupError("scripted_session", fmt.Sprintf("接続情報が不足しています: %s", strings.Join(missing, ", ")), nil)
	}

	resolver.Status(1, "passport initialized", s.Version)
	logger.Debugf("scripted セッションを確立しました。host: %s, port: %s, HBCI バージョン: %s", s.Host, s.Port, s.Version)
	return s, nil
}

type jobHandle struct {
	session  *Session
	job      QueuedJob
	enqueued bool
}

// SetParam は session.JobHandle の実装です。
func (h *jobHandle) SetParam(name, value string) error {
	if h.enqueued {
		return exception.NewSetupError("scripted_session", fmt.Sprintf("ジョブ '%s' はキュー投入済みのためパラメータ '%s' を設定できません", h.job.JobID, name), nil)
	}
	h.job.Params = append(h.job.Params, Param{Name: name, Value: value})
	return nil
}

// Enqueue は session.JobHandle の実装です。
func (h *jobHandle) Enqueue(customerID string) error {
	if h.enqueued {
		return exception.NewSetupError("scripted_session", fmt.Sprintf("ジョブ '%s' は既にキューに投入されています", h.job.JobID), nil)
	}
	if customerID == "" {
		customerID = h.session.CustomerID
	}
	h.job.CustomerID = customerID
	h.enqueued = true
	h.session.queue = append(h.session.queue, h)
	return nil
}

// CreateJob は session.Session の実装です。
func (s *Session) CreateJob(ctx context.Context, jobID, jobType string, kind core.JobKind) (session.JobHandle, error) {
	if s.closed {
		return nil, exception.NewSetupError("scripted_session", "セッションは既にクローズされています", nil)
	}
	if len(s.script.KnownJobs) > 0 && !slices.Contains(s.script.KnownJobs, jobType) {
		return nil, exception.NewSetupError("scripted_session", fmt.Sprintf("ジョブ '%s' を作成できません: 未知のジョブ名 '%s'", jobID, jobType), nil)
	}
	return &jobHandle{
		session: s,
		job:     QueuedJob{JobID: jobID, JobType: jobType, Kind: kind, Params: make([]Param, 0)},
	}, nil
}

// Execute はキューのジョブを 1 ダイアログとして実行し、キューを空にします。
func (s *Session) Execute(ctx context.Context) (*core.GroupResult, error) {
	queue := s.queue
	s.queue = nil
	if len(queue) == 0 {
		return &core.GroupResult{Results: map[string]*core.ExecutionResult{}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, exception.NewGroupError("scripted_session", "ダイアログがキャンセルされました", err)
	}

	dialog := Dialog{Jobs: make([]QueuedJob, 0, len(queue))}
	for _, h := range queue {
		dialog.Jobs = append(dialog.Jobs, h.job)
		if !slices.Contains(dialog.CustomerIDs, h.job.CustomerID) {
			dialog.CustomerIDs = append(dialog.CustomerIDs, h.job.CustomerID)
		}
	}

	if s.script.InstMessage != "" && len(s.Dialogs) == 0 {
		s.resolver.Notify(answer.HaveInstMsg, s.script.InstMessage)
	}
	s.resolver.Resolve(answer.NeedConnection)
	defer s.resolver.Resolve(answer.CloseConnection)

	if s.resolver.Resolve(answer.NeedPin) == "" {
		dialog.Failed = true
		s.Dialogs = append(s.Dialogs, dialog)
		return nil, exception.NewGroupError("scripted_session", "9931 PIN fehlt.", nil)
	}
	for _, id := range dialog.CustomerIDs {
		if slices.Contains(s.script.FailDialogFor, id) {
			dialog.Failed = true
			s.Dialogs = append(s.Dialogs, dialog)
			return nil, exception.NewGroupError("scripted_session", s.script.dialogError(), nil)
		}
	}

	global := s.script.globalStatus()
	results := make(map[string]*core.ExecutionResult, len(queue))
	for _, qj := range dialog.Jobs {
		results[qj.JobID] = s.outcome(qj, global)
		s.resolver.Status(2, "job executed", qj.JobID)
	}
	s.Dialogs = append(s.Dialogs, dialog)

	logger.Debugf("scripted ダイアログを実行しました。ジョブ数: %d, 顧客: %v", len(dialog.Jobs), dialog.CustomerIDs)
	return &core.GroupResult{GlobalStatus: global, Results: results}, nil
}

func (s *Session) outcome(qj QueuedJob, global string) *core.ExecutionResult {
	o, ok := s.script.Jobs[qj.JobID]
	if !ok {
		o = JobOutcome{}
	}

	res := &core.ExecutionResult{
		JobID:               qj.JobID,
		Succeeded:           o.Succeeded(),
		GlobalStatusMessage: global,
		JobStatusMessage:    o.JobStatus,
	}
	if o.GlobalStatus != "" {
		res.GlobalStatusMessage = o.GlobalStatus
	}

	if res.Succeeded && slices.Contains(s.script.TanRequired, qj.JobType) && s.resolver.Resolve(answer.NeedTan) == "" {
		res.Succeeded = false
		res.JobStatusMessage = "9941 TAN fehlt."
	}

	if res.Succeeded {
		if res.JobStatusMessage == "" {
			res.JobStatusMessage = defaultJobStatus
		}
		res.ResultProperties = make(map[string]string, len(o.Data))
		for k, v := range o.Data {
			res.ResultProperties[k] = v
		}
		res.ResultText = o.Text
	} else if res.JobStatusMessage == "" {
		res.JobStatusMessage = defaultJobError
	}
	return res
}

// Close は session.Session の実装です。
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.queue = nil
	logger.Debugf("scripted セッションをクローズしました。ダイアログ数: %d", len(s.Dialogs))
	return nil
}

var _ session.Session = (*Session)(nil)
