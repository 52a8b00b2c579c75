package writer_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/step/writer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func highLevel(id string, mode core.ResultMode, res *core.ExecutionResult) *core.JobExecution {
	res.JobID = id
	return &core.JobExecution{JobID: id, JobType: "SaldoReq", Kind: core.JobKindHighLevel, ResultMode: mode, Result: res}
}

func render(t *testing.T, jobs ...*core.JobExecution) (string, string) {
	t.Helper()
	var primary, secondary bytes.Buffer
	_, err := writer.NewReportWriter().Write(&primary, &secondary, jobs)
	require.NoError(t, err)
	return primary.String(), secondary.String()
}

func TestWrite_PropertiesSuccess(t *testing.T) {
	je := highLevel("j1", core.ResultModeProperties, &core.ExecutionResult{
		Succeeded:        true,
		JobStatusMessage: "0020 Saldo ermittelt.",
		ResultProperties: map[string]string{"currency": "EUR", "balance": "10.00"},
	})

	primary, secondary := render(t, je)
	assert.Equal(t, "jobid:j1\njob status:\n0020 Saldo ermittelt.\njob result:\nbalance=10.00\ncurrency=EUR\n\n", primary)
	assert.Empty(t, secondary)
}

func TestWrite_Failure(t *testing.T) {
	je := highLevel("j1", core.ResultModeProperties, &core.ExecutionResult{
		GlobalStatusMessage: "X",
		JobStatusMessage:    "Y",
		ResultProperties:    map[string]string{"ignored": "1"},
	})

	primary, secondary := render(t, je)
	assert.Empty(t, primary)
	assert.Equal(t, "jobid:j1\nglobal status:\nX\njob status:\nY\n\n", secondary)
}

func TestWrite_ToString(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "Adds trailing newline", text: "Saldo: 10,00 EUR", expected: "jobid:t\njob status:\nok\njob result:\nSaldo: 10,00 EUR\n\n"},
		{name: "Keeps existing newline", text: "line1\nline2\n", expected: "jobid:t\njob status:\nok\njob result:\nline1\nline2\n\n"},
		{name: "Empty text", text: "", expected: "jobid:t\njob status:\nok\njob result:\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			je := highLevel("t", core.ResultModeToString, &core.ExecutionResult{Succeeded: true, JobStatusMessage: "ok", ResultText: tt.text})
			primary, _ := render(t, je)
			assert.Equal(t, tt.expected, primary)
		})
	}
}

func TestWrite_LowLevelSuccessHasNoResultSection(t *testing.T) {
	je := &core.JobExecution{
		JobID: "low1",
		Kind:  core.JobKindLowLevel,
		Result: &core.ExecutionResult{
			Succeeded:        true,
			JobStatusMessage: "0020 Auftrag ausgeführt.",
			ResultProperties: map[string]string{"raw": "1"},
		},
	}
	primary, _ := render(t, je)
	assert.Equal(t, "jobid:low1\njob status:\n0020 Auftrag ausgeführt.\n\n", primary)
}

func TestWrite_PreservesOrderAndPartitions(t *testing.T) {
	jobs := make([]*core.JobExecution, 0)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("job%02d", 9-i)
		jobs = append(jobs, highLevel(id, core.ResultModeProperties, &core.ExecutionResult{Succeeded: i%3 != 0, JobStatusMessage: "s", GlobalStatusMessage: "g"}))
	}
	jobs = append(jobs, &core.JobExecution{JobID: "noresult"})

	var primary, secondary bytes.Buffer
	stats, err := writer.NewReportWriter().Write(&primary, &secondary, jobs)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Succeeded)
	assert.Equal(t, 5, stats.Failed)

	idsIn := func(s string) []string {
		ids := make([]string, 0)
		for _, line := range strings.Split(s, "\n") {
			if strings.HasPrefix(line, "jobid:") {
				ids = append(ids, strings.TrimPrefix(line, "jobid:"))
			}
		}
		return ids
	}
	ok := idsIn(primary.String())
	failed := idsIn(secondary.String())

	assert.Equal(t, []string{"job08", "job07", "job05", "job04", "job02", "job01"}, ok)
	assert.Equal(t, []string{"job09", "job06", "job03", "job00", "noresult"}, failed)
	for _, id := range ok {
		assert.NotContains(t, failed, id)
	}
}

func TestWrite_PropertiesAreDeterministic(t *testing.T) {
	props := map[string]string{}
	for i := 0; i < 50; i++ {
		props[fmt.Sprintf("key.%d", i)] = fmt.Sprintf("v%d", i)
	}
	je := highLevel("d", core.ResultModeProperties, &core.ExecutionResult{Succeeded: true, ResultProperties: props})

	first, _ := render(t, je)
	for i := 0; i < 5; i++ {
		again, _ := render(t, je)
		assert.Equal(t, first, again)
	}
	assert.True(t, strings.Index(first, "key.10=") < strings.Index(first, "key.2="))
}

func TestWriteFiles_AlwaysCreatesBothFiles(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "out.txt")
	errPath := primary + ".err"
	je := highLevel("j1", core.ResultModeProperties, &core.ExecutionResult{Succeeded: true, JobStatusMessage: "ok"})

	stats, err := writer.NewReportWriter().WriteFiles(primary, errPath, []*core.JobExecution{je})
	require.NoError(t, err)
	assert.Equal(t, writer.ReportStats{Succeeded: 1}, stats)

	data, err := os.ReadFile(primary)
	require.NoError(t, err)
	assert.Equal(t, "jobid:j1\njob status:\nok\njob result:\n\n", string(data))

	data, err = os.ReadFile(errPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesWriterErrors(t *testing.T) {
	je := highLevel("j1", core.ResultModeProperties, &core.ExecutionResult{Succeeded: true})
	_, err := writer.NewReportWriter().Write(failingWriter{}, &bytes.Buffer{}, []*core.JobExecution{je})
	assert.ErrorContains(t, err, "disk full")
}
