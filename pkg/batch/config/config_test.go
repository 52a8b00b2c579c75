package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"hbcibatch/pkg/batch/config"
	"hbcibatch/pkg/batch/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "INFO", cfg.System.Logging.Level)
	assert.Equal(t, "script", cfg.Session.Driver)
	assert.Equal(t, "plus", cfg.Session.DefaultHBCIVersion)
	assert.Equal(t, "PinTan", cfg.Session.Kernel["client.passport.default"])
	assert.Equal(t, config.GroupErrorContinue, cfg.Batch.GroupErrorPolicy)
	assert.Equal(t, ".err", cfg.Batch.ErrorSuffix)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadConfig_OverlaysYAMLOnDefaults(t *testing.T) {
	path := writeFile(t, "session.yaml", `
system:
  logging:
    level: DEBUG
session:
  script: ./dialog.yaml
  kernel:
    client.passport.PinTan.checkcert: "0"
    client.connection.timeout: "30"
batch:
  group_error_policy: ABORT
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.System.Logging.Level)
	assert.Equal(t, "script", cfg.Session.Driver)
	assert.Equal(t, "./dialog.yaml", cfg.Session.Script)
	assert.Equal(t, "0", cfg.Session.Kernel["client.passport.PinTan.checkcert"])
	assert.Equal(t, "30", cfg.Session.Kernel["client.connection.timeout"])
	assert.Equal(t, "PinTan", cfg.Session.Kernel["client.passport.default"], "missing kernel keys keep their defaults")
	assert.Equal(t, config.GroupErrorAbort, cfg.Batch.GroupErrorPolicy)
	assert.Equal(t, ".err", cfg.Batch.ErrorSuffix)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "session.yaml", "database:\n  type: postgres\n  port: 5432\n")
	t.Setenv("SYSTEM_LOGGING_LEVEL", "WARN")
	t.Setenv("SESSION_SCRIPT", "/tmp/other.yaml")
	t.Setenv("BATCH_GROUP_ERROR_POLICY", "abort")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("DATABASE_USER", "batch")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.System.Logging.Level)
	assert.Equal(t, "/tmp/other.yaml", cfg.Session.Script)
	assert.Equal(t, config.GroupErrorAbort, cfg.Batch.GroupErrorPolicy)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "batch", cfg.Database.User)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Invalid YAML", content: "system: [unterminated"},
		{name: "Unknown group policy", content: "batch:\n  group_error_policy: retry\n"},
		{name: "Unsupported database", content: "database:\n  type: oracle\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeFile(t, "session.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, exception.IsKind(err, exception.KindSetup))
		})
	}

	t.Run("Missing file", func(t *testing.T) {
		_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.KindSetup))
	})
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, "batch.env", "SESSION_DRIVER_TEST_MARKER=loaded\n")
	t.Setenv("SESSION_DRIVER_TEST_MARKER", "")
	require.NoError(t, os.Unsetenv("SESSION_DRIVER_TEST_MARKER"))

	require.NoError(t, config.LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("SESSION_DRIVER_TEST_MARKER"))

	err := config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, exception.IsKind(err, exception.KindSetup))
}
