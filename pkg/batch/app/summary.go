package app

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	core "hbcibatch/pkg/batch/job/core"
)

// PrintSummary はグループごとの実行結果を表形式で w に出力します。
func PrintSummary(w io.Writer, run *core.RunExecution) {
	t := table.NewWriter()
	t.SetStyle(table.StyleDefault)
	t.SetOutputMirror(w)

	t.AppendHeader(table.Row{"group", "customer", "jobs", "ok", "failed", "status"})
	totalOK, totalFailed := 0, 0
	for _, ge := range run.Groups {
		ok, failed := ge.Counts()
		totalOK += ok
		totalFailed += failed
		t.AppendRow(table.Row{ge.Index, ge.CustomerID, len(ge.Jobs), ok, failed, string(ge.Status)})
	}
	t.AppendFooter(table.Row{"", "total", len(run.Jobs), totalOK, totalFailed, string(run.Status)})
	t.Render()
}
