package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"hbcibatch/pkg/batch/app"
	"hbcibatch/pkg/batch/util/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "Too few arguments", args: []string{"a", "b", "c"}},
		{name: "Too many arguments", args: []string{"a", "b", "c", "d", "e", "f", "g"}},
		{name: "Unknown flag", args: []string{"--bogus", "a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := execute(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, app.ExitUsage, code)
			assert.Contains(t, stderr.String()+stdout.String(), "Usage:")
		})
	}
}

func TestExecute_RunsBatch(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	t.Cleanup(func() { logger.SetLogLevel("INFO") })

	cfg := write("session.yaml", "session:\n  driver: script\n")
	answers := write("answers.txt", "country=DE\nblz=83053030\nhost=localhost\nport=3000\nuserid=u\ncustomerid=c\npin=p\n")
	batch := write("batch.txt", "SaldoReq:j1:props\n")
	out := filepath.Join(dir, "out.txt")
	errOut := filepath.Join(dir, "failed.txt")
	logFile := filepath.Join(dir, "run.log")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{
		"--summary", "--log-level", "DEBUG", "--env-file", write("test.env", ""),
		cfg, answers, batch, out, errOut, logFile,
	}, &stdout, &stderr)
	require.Equal(t, app.ExitOK, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "jobid:j1\njob status:\n0020 Auftrag ausgeführt.\njob result:\n\n", string(data))

	data, err = os.ReadFile(errOut)
	require.NoError(t, err)
	assert.Empty(t, data)

	logData, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "DEBUG")
	assert.Contains(t, stdout.String(), "CUSTOMER")
}
