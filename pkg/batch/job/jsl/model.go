package jsl

import (
	"fmt"
	"os"
	"path/filepath"

	core "hbcibatch/pkg/batch/job/core"
	exception "hbcibatch/pkg/batch/util/exception"
)

// ParamValue はジョブパラメータの値です。
// リテラル値、またはファイル参照 (`key=<path`) のいずれかを保持します。
type ParamValue struct {
	Literal    string
	SourceFile string // 空でなければファイル参照
}

// LiteralValue はリテラル値の ParamValue を作成します。
func LiteralValue(v string) ParamValue {
	return ParamValue{Literal: v}
}

// FileValue はファイル参照の ParamValue を作成します。
func FileValue(path string) ParamValue {
	return ParamValue{SourceFile: path}
}

// IsIndirect はファイル参照かどうかを返します。
func (p ParamValue) IsIndirect() bool {
	return p.SourceFile != ""
}

// Resolve はパラメータの実際の値を返します。
// ファイル参照の場合はファイルの内容をそのまま (末尾の改行も含めて) 返します。
func (p ParamValue) Resolve() (string, error) {
	if !p.IsIndirect() {
		return p.Literal, nil
	}
	data, err := os.ReadFile(p.SourceFile)
	if err != nil {
		return "", exception.NewSetupError("jsl", fmt.Sprintf("パラメータファイル '%s' の読み込みに失敗しました", p.SourceFile), err)
	}
	return string(data), nil
}

func (p ParamValue) String() string {
	if p.IsIndirect() {
		return "<" + p.SourceFile
	}
	return p.Literal
}

// Param は挿入順を保持するためのパラメータ名と値の組です。
type Param struct {
	Name  string
	Value ParamValue
}

// JobDefinition はバッチファイルに記述された単一のジョブです。
// パース後に変更されることはありません。
type JobDefinition struct {
	JobID      string
	JobType    string
	Kind       core.JobKind
	ResultMode core.ResultMode // LowLevel の場合は ResultModeNone
	CustomerID string          // 省略時はグループの顧客 ID
	Params     []Param
	Line       int // ヘッダ行の行番号
}

// Param は指定した名前のパラメータ値を返します。
func (jd *JobDefinition) Param(name string) (ParamValue, bool) {
	for _, p := range jd.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return ParamValue{}, false
}

// NewJobExecution は結果表のエントリを作成します。
func (jd *JobDefinition) NewJobExecution(groupIndex int) *core.JobExecution {
	return &core.JobExecution{
		JobID:      jd.JobID,
		JobType:    jd.JobType,
		Kind:       jd.Kind,
		ResultMode: jd.ResultMode,
		CustomerID: jd.CustomerID,
		GroupIndex: groupIndex,
	}
}

// BatchGroup は 1 つのダイアログでまとめて実行されるジョブの集まりです。
type BatchGroup struct {
	Index      int
	CustomerID string
	Jobs       []*JobDefinition
	Line       int // グループを開いた区切り行の行番号 (ファイル先頭のグループは 0)
}

// IsEmpty はグループにジョブが含まれないかどうかを返します。
func (g *BatchGroup) IsEmpty() bool {
	return len(g.Jobs) == 0
}

// Options はパーサーの動作を調整します。
type Options struct {
	// BaseDir が設定されている場合、相対パスのファイル参照はこのディレクトリを基準に解決されます。
	BaseDir string
}

func (o Options) sourcePath(path string) string {
	if o.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.BaseDir, path)
}

// CountJobs はグループ全体のジョブ数を返します。
func CountJobs(groups []*BatchGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Jobs)
	}
	return n
}
