package core_test

import (
	"errors"
	"testing"

	core "hbcibatch/pkg/batch/job/core"

	"github.com/stretchr/testify/assert"
)

func TestParseResultMode(t *testing.T) {
	mode, ok := core.ParseResultMode("props")
	assert.True(t, ok)
	assert.Equal(t, core.ResultModeProperties, mode)

	mode, ok = core.ParseResultMode("toString")
	assert.True(t, ok)
	assert.Equal(t, core.ResultModeToString, mode)

	_, ok = core.ParseResultMode("tostring")
	assert.False(t, ok)
	_, ok = core.ParseResultMode("")
	assert.False(t, ok)
}

func TestRunExecution_RecordKeepsDefinitionOrder(t *testing.T) {
	run := core.NewRunExecution("jobs.batch")
	g0 := core.NewGroupExecution(0, "C1")
	g1 := core.NewGroupExecution(1, "C2")
	run.AddGroup(g0)
	run.AddGroup(g1)

	run.Record(g0, &core.JobExecution{JobID: "b", Result: &core.ExecutionResult{JobID: "b", Succeeded: true}})
	run.Record(g0, &core.JobExecution{JobID: "a", Result: &core.ExecutionResult{JobID: "a"}})
	run.Record(g1, &core.JobExecution{JobID: "c", Result: &core.ExecutionResult{JobID: "c", Succeeded: true}})

	ids := make([]string, 0, len(run.Jobs))
	for _, je := range run.Jobs {
		ids = append(ids, je.JobID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	je, ok := run.Job("a")
	assert.True(t, ok)
	assert.False(t, je.Succeeded())

	ok0, failed0 := g0.Counts()
	assert.Equal(t, 1, ok0)
	assert.Equal(t, 1, failed0)
	assert.Len(t, g1.Jobs, 1)
	assert.NotEqual(t, g0.ID, g1.ID)
}

func TestRunExecution_Lifecycle(t *testing.T) {
	run := core.NewRunExecution("jobs.batch")
	assert.Equal(t, core.BatchStatusStarting, run.Status)
	assert.NotEmpty(t, run.ID)

	run.MarkAsStarted()
	assert.Equal(t, core.BatchStatusStarted, run.Status)
	assert.False(t, run.Status.IsFinished())

	run.MarkAsFailed(errors.New("dialog failed"))
	assert.Equal(t, core.BatchStatusFailed, run.Status)
	assert.True(t, run.Status.IsFinished())
	assert.Len(t, run.Failures, 1)
	assert.False(t, run.EndTime.IsZero())
}

func TestJobExecution_SucceededWithoutResult(t *testing.T) {
	je := &core.JobExecution{JobID: "x"}
	assert.False(t, je.Succeeded())
}

func TestJobKind_String(t *testing.T) {
	assert.Equal(t, "HighLevel", core.JobKindHighLevel.String())
	assert.Equal(t, "LowLevel", core.JobKindLowLevel.String())
}
