package writer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

const (
	labelJobID        = "jobid:"
	labelGlobalStatus = "global status:"
	labelJobStatus    = "job status:"
	labelJobResult    = "job result:"
)

// ReportStats は各ストリームに書き込まれたジョブ数です。
type ReportStats struct {
	Succeeded int
	Failed    int
}

// ReportWriter は結果表をジョブ定義順に 2 つのストリームへ振り分けます。
// 各ジョブはどちらか一方のストリームにだけ書き込まれます。
type ReportWriter struct{}

func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write は jobs を順に primary (成功) と secondary (失敗) に書き込みます。
func (w *ReportWriter) Write(primary, secondary io.Writer, jobs []*core.JobExecution) (ReportStats, error) {
	var stats ReportStats
	pw := bufio.NewWriter(primary)
	sw := bufio.NewWriter(secondary)

	for _, je := range jobs {
		if je.Succeeded() {
			writeSuccess(pw, je)
			stats.Succeeded++
		} else {
			writeFailure(sw, je)
			stats.Failed++
		}
	}

	if err := pw.Flush(); err != nil {
		return stats, exception.NewBatchError("report_writer", "出力ストリームへの書き込みに失敗しました", err, exception.KindUnknown)
	}
	if err := sw.Flush(); err != nil {
		return stats, exception.NewBatchError("report_writer", "エラー出力ストリームへの書き込みに失敗しました", err, exception.KindUnknown)
	}
	return stats, nil
}

// WriteFiles はレポートを 2 つのファイルに書き込みます。
// どちらかが空でも両方のファイルが作成されます。
func (w *ReportWriter) WriteFiles(primaryPath, errorPath string, jobs []*core.JobExecution) (ReportStats, error) {
	var primary, secondary bytes.Buffer
	stats, err := w.Write(&primary, &secondary, jobs)
	if err != nil {
		return stats, err
	}
	if err := os.WriteFile(primaryPath, primary.Bytes(), 0o644); err != nil {
		return stats, exception.NewBatchError("report_writer", fmt.Sprintf("出力ファイル '%s' の書き込みに失敗しました", primaryPath), err, exception.KindUnknown)
	}
	if err := os.WriteFile(errorPath, secondary.Bytes(), 0o644); err != nil {
		return stats, exception.NewBatchError("report_writer", fmt.Sprintf("エラー出力ファイル '%s' の書き込みに失敗しました", errorPath), err, exception.KindUnknown)
	}
	logger.Infof("レポートを書き込みました。成功: %d 件 (%s), 失敗: %d 件 (%s)", stats.Succeeded, primaryPath, stats.Failed, errorPath)
	return stats, nil
}

func writeSuccess(w *bufio.Writer, je *core.JobExecution) {
	writeLine(w, labelJobID+je.JobID)
	writeLine(w, labelJobStatus)
	writeText(w, je.Result.JobStatusMessage)

	if je.Kind == core.JobKindHighLevel {
		writeLine(w, labelJobResult)
		RenderResult(w, je.ResultMode, je.Result)
	}
	writeLine(w, "")
}

func writeFailure(w *bufio.Writer, je *core.JobExecution) {
	var global, job string
	if je.Result != nil {
		global = je.Result.GlobalStatusMessage
		job = je.Result.JobStatusMessage
	}
	writeLine(w, labelJobID+je.JobID)
	writeLine(w, labelGlobalStatus)
	writeText(w, global)
	writeLine(w, labelJobStatus)
	writeText(w, job)
	writeLine(w, "")
}

// RenderResult は HighLevel ジョブの結果本体を書き込みます。
// props はキーの昇順で name=value を 1 行ずつ、toString は文字列をそのまま書き込みます。
func RenderResult(w io.Writer, mode core.ResultMode, res *core.ExecutionResult) {
	switch mode {
	case core.ResultModeToString:
		if res.ResultText != "" {
			io.WriteString(w, res.ResultText)
			if !strings.HasSuffix(res.ResultText, "\n") {
				io.WriteString(w, "\n")
			}
		}
	default:
		keys := make([]string, 0, len(res.ResultProperties))
		for k := range res.ResultProperties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s=%s\n", k, res.ResultProperties[k])
		}
	}
}

func writeLine(w *bufio.Writer, s string) {
	w.WriteString(s)
	w.WriteByte('\n')
}

// writeText はステータスメッセージを 1 行以上として書き込みます。
func writeText(w *bufio.Writer, s string) {
	if strings.HasSuffix(s, "\n") {
		w.WriteString(s)
		return
	}
	writeLine(w, s)
}
