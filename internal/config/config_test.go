package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.EnableStorageOptimizer)
	assert.False(t, cfg.UseTestDC)
	assert.Equal(t, time.Second, cfg.PollTimeout)
	assert.Equal(t, "en", cfg.SystemLanguage)
	assert.Equal(t, "tdlib", cfg.DatabaseDirectory)
	assert.EqualValues(t, DefaultChatListLimit, cfg.ChatListLimit)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("API_ID", "12345")
	t.Setenv("API_HASH", "abcdef")
	t.Setenv("TD_USE_TEST_DC", "true")
	t.Setenv("TD_ENABLE_STORAGE_OPTIMIZER", "false")
	t.Setenv("TD_WAIT_TIMEOUT", "0.25")
	t.Setenv("TD_CHAT_LIMIT", "50")
	t.Setenv("RELAY_CHAT_ID", "-1001234567890")

	cfg := Default()
	cfg.applyEnv()

	assert.EqualValues(t, 12345, cfg.APIID)
	assert.Equal(t, "abcdef", cfg.APIHash)
	assert.True(t, cfg.UseTestDC)
	assert.False(t, cfg.EnableStorageOptimizer)
	assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
	assert.EqualValues(t, 50, cfg.ChatListLimit)
	assert.Equal(t, int64(-1001234567890), cfg.Relay.ChatID)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_MalformedFallsBack(t *testing.T) {
	t.Setenv("API_ID", "not-a-number")
	t.Setenv("TD_USE_SECRET_CHATS", "maybe")
	t.Setenv("TD_WAIT_TIMEOUT", "-3")

	cfg := Default()
	cfg.applyEnv()

	assert.EqualValues(t, 0, cfg.APIID)
	assert.False(t, cfg.UseSecretChats)
	assert.Equal(t, time.Second, cfg.PollTimeout)
}

func TestApplyEnv_Int32Overflow(t *testing.T) {
	t.Setenv("API_ID", "4294967296")
	t.Setenv("TD_CHAT_LIMIT", "-2147483649")

	cfg := Default()
	cfg.APIID = 94575
	cfg.applyEnv()

	assert.EqualValues(t, 94575, cfg.APIID)
	assert.EqualValues(t, DefaultChatListLimit, cfg.ChatListLimit)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("API_HASH", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "tdclient.yaml")
	body := `
api_id: 42
api_hash: deadbeef
use_message_database: true
poll_timeout: 1500ms
database_directory: /var/lib/tdclient
relay:
  bot_token: "123:abc"
  chat_id: 99
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.EqualValues(t, 42, cfg.APIID)
	assert.Equal(t, "deadbeef", cfg.APIHash)
	assert.True(t, cfg.UseMessageDatabase)
	assert.True(t, cfg.EnableStorageOptimizer, "defaults survive partial files")
	assert.Equal(t, 1500*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, "/var/lib/tdclient", cfg.DatabaseDirectory)
	assert.Equal(t, "123:abc", cfg.Relay.BotToken)
	assert.Equal(t, int64(99), cfg.Relay.ChatID)
}

func TestLoadFile_EnvWins(t *testing.T) {
	t.Setenv("API_HASH", "from-env")
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_id: 1\napi_hash: from-file\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIHash)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.APIID = 1
	cfg.APIHash = "x"
	require.NoError(t, cfg.Validate())

	cfg.PollTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg.PollTimeout = time.Second
	cfg.ChatListLimit = 0
	assert.Error(t, cfg.Validate())
}
