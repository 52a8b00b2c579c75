package core

import (
	"time"

	"github.com/google/uuid"
)

// JobKind はジョブ定義の種類です。
type JobKind int

const (
	// JobKindHighLevel は結果を props または toString で出力するジョブです。
	JobKindHighLevel JobKind = iota
	// JobKindLowLevel は先頭アンダースコアで定義され、ステータスのみを出力するジョブです。
	JobKindLowLevel
)

func (k JobKind) String() string {
	if k == JobKindLowLevel {
		return "LowLevel"
	}
	return "HighLevel"
}

// ResultMode は HighLevel ジョブの結果の出力形式です。
type ResultMode string

const (
	ResultModeNone       ResultMode = ""
	ResultModeProperties ResultMode = "props"
	ResultModeToString   ResultMode = "toString"
)

// ParseResultMode はバッチファイル上の表記を ResultMode に変換します。
func ParseResultMode(s string) (ResultMode, bool) {
	switch ResultMode(s) {
	case ResultModeProperties, ResultModeToString:
		return ResultMode(s), true
	default:
		return ResultModeNone, false
	}
}

// JobStatus は実行 (ラン全体またはグループ) の状態を表します。
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
)

// IsFinished は JobStatus が終了状態かどうかを判定するヘルパーメソッドです。
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// 実行されなかったジョブに記録するジョブステータスです。
const (
	StatusNotExecutedDialogFailed = "job not executed: dialog failed"
	StatusNotExecutedRunAborted   = "job not executed: run aborted"
	StatusNoResult                = "job not executed: no result returned by session"
)

// ExecutionResult はグループ実行後にセッションが返す単一ジョブの結果です。
type ExecutionResult struct {
	JobID               string
	Succeeded           bool
	GlobalStatusMessage string
	JobStatusMessage    string
	// ResultProperties は成功時の結果データです (props モードで使用)。
	ResultProperties map[string]string
	// ResultText は成功時の結果の文字列表現です (toString モードで使用)。
	ResultText string
}

// NewFailedResult はセッションから結果が得られなかったジョブの失敗結果を作成します。
func NewFailedResult(jobID, globalStatus, jobStatus string) *ExecutionResult {
	return &ExecutionResult{
		JobID:               jobID,
		Succeeded:           false,
		GlobalStatusMessage: globalStatus,
		JobStatusMessage:    jobStatus,
	}
}

// GroupResult はセッションの execute 操作の戻り値です。
type GroupResult struct {
	GlobalStatus string
	Results      map[string]*ExecutionResult
}

// JobExecution は結果表の 1 エントリです。ジョブ定義の識別情報と結果を保持します。
type JobExecution struct {
	JobID      string
	JobType    string
	Kind       JobKind
	ResultMode ResultMode
	CustomerID string
	GroupIndex int
	Result     *ExecutionResult
}

// Succeeded はジョブが成功したかどうかを返します。
func (je *JobExecution) Succeeded() bool {
	return je.Result != nil && je.Result.Succeeded
}

// GroupExecution はバッチグループ 1 つ分の実行 (1 ダイアログ) を表します。
type GroupExecution struct {
	ID           string
	Index        int
	CustomerID   string
	Status       JobStatus
	GlobalStatus string
	StartTime    time.Time
	EndTime      time.Time
	Failures     []error
	Jobs         []*JobExecution
}

// NewGroupExecution は新しい GroupExecution のインスタンスを作成します。
func NewGroupExecution(index int, customerID string) *GroupExecution {
	return &GroupExecution{
		ID:         uuid.New().String(),
		Index:      index,
		CustomerID: customerID,
		Status:     BatchStatusStarting,
		Failures:   make([]error, 0),
		Jobs:       make([]*JobExecution, 0),
	}
}

// MarkAsStarted は GroupExecution の状態を実行中に更新します。
func (ge *GroupExecution) MarkAsStarted() {
	ge.Status = BatchStatusStarted
	ge.StartTime = time.Now()
}

// MarkAsCompleted は GroupExecution の状態を完了に更新します。
func (ge *GroupExecution) MarkAsCompleted() {
	ge.Status = BatchStatusCompleted
	ge.EndTime = time.Now()
}

// MarkAsFailed は GroupExecution の状態を失敗に更新し、エラー情報を追加します。
func (ge *GroupExecution) MarkAsFailed(err error) {
	ge.Status = BatchStatusFailed
	ge.EndTime = time.Now()
	if err != nil {
		ge.Failures = append(ge.Failures, err)
	}
}

// MarkAsAbandoned は実行されなかったグループに設定します。
func (ge *GroupExecution) MarkAsAbandoned() {
	ge.Status = BatchStatusAbandoned
	ge.EndTime = time.Now()
}

// Counts は成功・失敗したジョブ数を返します。
func (ge *GroupExecution) Counts() (ok, failed int) {
	for _, je := range ge.Jobs {
		if je.Succeeded() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// RunExecution はバッチファイル 1 回分の実行全体を表します。
// Jobs はジョブ定義順 (ファイル順) の結果表です。
type RunExecution struct {
	ID          string
	BatchFile   string
	Status      JobStatus
	ExitCode    int
	StartTime   time.Time
	EndTime     time.Time
	CreateTime  time.Time
	LastUpdated time.Time
	Failures    []error
	Groups      []*GroupExecution
	Jobs        []*JobExecution

	index map[string]*JobExecution
}

// NewRunExecution は新しい RunExecution のインスタンスを作成します。
func NewRunExecution(batchFile string) *RunExecution {
	now := time.Now()
	return &RunExecution{
		ID:          uuid.New().String(),
		BatchFile:   batchFile,
		Status:      BatchStatusStarting,
		CreateTime:  now,
		LastUpdated: now,
		Failures:    make([]error, 0),
		Groups:      make([]*GroupExecution, 0),
		Jobs:        make([]*JobExecution, 0),
		index:       make(map[string]*JobExecution),
	}
}

// AddGroup はグループ実行を追加します。
func (re *RunExecution) AddGroup(ge *GroupExecution) {
	re.Groups = append(re.Groups, ge)
}

// Record はジョブの結果を結果表に追加します。
// 挿入順はジョブ定義順であり、グループ単位ではありません。
func (re *RunExecution) Record(ge *GroupExecution, je *JobExecution) {
	if re.index == nil {
		re.index = make(map[string]*JobExecution)
	}
	re.index[je.JobID] = je
	re.Jobs = append(re.Jobs, je)
	if ge != nil {
		ge.Jobs = append(ge.Jobs, je)
	}
	re.LastUpdated = time.Now()
}

// Job はジョブ ID で結果表を引きます。
func (re *RunExecution) Job(jobID string) (*JobExecution, bool) {
	je, ok := re.index[jobID]
	return je, ok
}

// MarkAsStarted は RunExecution の状態を実行中に更新します。
func (re *RunExecution) MarkAsStarted() {
	re.Status = BatchStatusStarted
	re.StartTime = time.Now()
	re.LastUpdated = re.StartTime
}

// MarkAsCompleted は RunExecution の状態を完了に更新します。
func (re *RunExecution) MarkAsCompleted() {
	re.Status = BatchStatusCompleted
	re.EndTime = time.Now()
	re.LastUpdated = re.EndTime
}

// MarkAsFailed は RunExecution の状態を失敗に更新し、エラー情報を追加します。
func (re *RunExecution) MarkAsFailed(err error) {
	re.Status = BatchStatusFailed
	re.EndTime = time.Now()
	re.LastUpdated = re.EndTime
	re.AddFailureException(err)
}

// AddFailureException は RunExecution にエラー情報を追加します。
func (re *RunExecution) AddFailureException(err error) {
	if err != nil {
		re.Failures = append(re.Failures, err)
		re.LastUpdated = time.Now()
	}
}
