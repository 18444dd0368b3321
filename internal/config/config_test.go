package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, 10, cfg.RateLimit.Attempts)
	assert.Empty(t, cfg.Redis.Addr)

	ice := cfg.WebRTCICEServers()
	require.Len(t, ice, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, ice[0].URLs)
}

func TestLoadFileEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	writeFile(t, filepath.Join(dir, "config", "config.test.yaml"), `
mode: debug
port: 9000
ping_period: 20s
pong_wait: 30s
redis:
  addr: localhost:6379
ice_servers:
  - urls: ["turn:turn.example.edu:3478"]
    username: relay
    credential: s3cret
`)
	writeFile(t, filepath.Join(dir, "config", ".env.test"), "SIGNAL_JWT_SECRET=from-dotenv\n")
	t.Setenv("SIGNAL_PORT", "9100")
	t.Setenv("SIGNAL_REDIS_PREFIX", "test:relay")
	t.Setenv("SIGNAL_ALLOWED_ORIGINS", "https://a.example.edu,https://b.example.edu")
	t.Cleanup(func() { _ = os.Unsetenv("SIGNAL_JWT_SECRET") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.PingPeriod)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "test:relay", cfg.Redis.Prefix)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example.edu", "https://b.example.edu"}, cfg.AllowedOrigins)

	ice := cfg.WebRTCICEServers()
	require.Len(t, ice, 1)
	assert.Equal(t, "relay", ice[0].Username)
	assert.Equal(t, "s3cret", ice[0].Credential)
}

func TestLoadRejectsPingAfterPong(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "bad")
	writeFile(t, filepath.Join(dir, "config", "config.bad.yaml"), "ping_period: 90s\npong_wait: 60s\n")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsEmptySecretInRelease(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "prod")
	writeFile(t, filepath.Join(dir, "config", "config.prod.yaml"), "mode: release\nsecret: \"\"\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNAL_SECRET")

	t.Setenv("SIGNAL_SECRET", "from-env")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secret)
}

func TestLoadAllowsEmptySecretInDebug(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "dev")
	writeFile(t, filepath.Join(dir, "config", "config.dev.yaml"), "mode: debug\nsecret: \"\"\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Secret)
}
