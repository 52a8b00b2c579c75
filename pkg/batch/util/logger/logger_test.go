package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() {
		SetWriter(os.Stderr)
		SetLogLevel("INFO")
	})

	SetLogLevel("WARN")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Errorf("shown %d", 3)
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "shown 3")
	assert.Contains(t, out, "WARN")
	assert.Equal(t, "WARN", Level())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(os.Stderr) })

	SetLogLevel("verbose")
	Debugf("debug line")
	Sync()

	assert.Equal(t, "INFO", Level())
	assert.Contains(t, buf.String(), "verbose")
	assert.NotContains(t, buf.String(), "debug line")
}

func TestSetOutput_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.log")
	require.NoError(t, SetOutput(path))
	t.Cleanup(func() { SetWriter(os.Stderr) })

	SetLogLevel("DEBUG")
	Debugf("written to %s", "file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	SetLogLevel("INFO")
}
