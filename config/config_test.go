package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "taskdesk.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.FinishNotifyDelay)
	assert.Equal(t, 5*time.Minute, cfg.UnseenCacheTTL)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.InDelta(t, 10.0, cfg.WSMessagesPerSecond, 0.001)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFile_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "8080"
db_path: /var/lib/taskdesk.db
finish_notify_delay: 5s
redis_addr: localhost:6379
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "1h")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/var/lib/taskdesk.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.FinishNotifyDelay)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	_, err := LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_password")

	t.Setenv("ADMIN_PASSWORD", "rootpass")
	t.Setenv("FINISH_NOTIFY_DELAY", "-1s")
	_, err = LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish_notify_delay")

	t.Setenv("FINISH_NOTIFY_DELAY", "3s")
	t.Setenv("BCRYPT_COST", "2")
	_, err = LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt_cost")
}
