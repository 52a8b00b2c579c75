package scripted

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hbcibatch/pkg/batch/util/exception"
)

const (
	defaultGlobalStatus = "0010 Nachricht entgegengenommen."
	defaultJobStatus    = "0020 Auftrag ausgeführt."
	defaultDialogError  = "9800 Dialog abgebrochen."
	defaultJobError     = "9010 Auftrag abgelehnt."
)

// JobOutcome はスクリプトに記述された単一ジョブの実行結果です。
type JobOutcome struct {
	OK           *bool             `yaml:"ok"`
	GlobalStatus string            `yaml:"global_status"`
	JobStatus    string            `yaml:"job_status"`
	Data         map[string]string `yaml:"data"`
	Text         string            `yaml:"text"`
}

// Succeeded は ok が省略された場合に成功として扱います。
func (o JobOutcome) Succeeded() bool {
	return o.OK == nil || *o.OK
}

// Script は scripted ドライバのシナリオです。
type Script struct {
	// PassportVersion が空の場合は設定の既定バージョンが使用されます。
	PassportVersion string `yaml:"passport_version"`
	// GlobalStatus は成功したダイアログのグローバルステータスです。
	GlobalStatus string `yaml:"global_status"`
	// DialogError は失敗したダイアログのエラーメッセージです。
	DialogError string `yaml:"dialog_error"`
	// FailDialogFor に含まれる顧客 ID のジョブを含むダイアログは失敗します。
	FailDialogFor []string `yaml:"fail_dialog_for"`
	// KnownJobs が空でない場合、それ以外のジョブ名での CreateJob は失敗します。
	KnownJobs []string `yaml:"known_jobs"`
	// TanRequired に含まれるジョブ名は実行時に TAN を要求します。
	TanRequired []string `yaml:"tan_required"`
	// InstMessage が設定されている場合、最初のダイアログで金融機関メッセージとして通知されます。
	InstMessage string `yaml:"inst_message"`
	// Jobs はジョブ ID ごとの結果です。記述のないジョブは成功します。
	Jobs map[string]JobOutcome `yaml:"jobs"`
}

// LoadScript は YAML のシナリオファイルを読み込みます。path が空の場合は空のシナリオを返します。
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return &Script{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewSetupError("scripted_session", fmt.Sprintf("シナリオファイル '%s' の読み込みに失敗しました", path), err)
	}
	return ParseScript(data)
}

// ParseScript は YAML のシナリオを解析します。
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, exception.NewSetupError("scripted_session", "シナリオのパースに失敗しました", err)
	}
	return &s, nil
}

func (s *Script) globalStatus() string {
	if s.GlobalStatus != "" {
		return s.GlobalStatus
	}
	return defaultGlobalStatus
}

func (s *Script) dialogError() string {
	if s.DialogError != "" {
		return s.DialogError
	}
	return defaultDialogError
}
