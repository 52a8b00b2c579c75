package listener_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/job/listener"
	"hbcibatch/pkg/batch/util/logger"

	"github.com/stretchr/testify/assert"
)

func TestLoggingGroupListener(t *testing.T) {
	var buf bytes.Buffer
	logger.SetWriter(&buf)
	defer logger.SetWriter(nil)
	logger.SetLogLevel("INFO")

	l := listener.NewLoggingGroupListener()
	ge := core.NewGroupExecution(2, "C7")
	ge.Jobs = append(ge.Jobs,
		&core.JobExecution{JobID: "a", Result: &core.ExecutionResult{Succeeded: true}},
		&core.JobExecution{JobID: "b", Result: &core.ExecutionResult{}},
	)

	l.BeforeGroup(context.Background(), ge)
	ge.MarkAsCompleted()
	l.AfterGroup(context.Background(), ge, nil)
	assert.Contains(t, buf.String(), "'C7'")
	assert.Contains(t, buf.String(), "成功: 1, 失敗: 1")

	buf.Reset()
	ge.MarkAsFailed(errors.New("boom"))
	l.AfterGroup(context.Background(), ge, errors.New("boom"))
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "boom")
}
