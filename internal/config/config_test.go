package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 5000
  mode: debug

redis:
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  total_rounds: 3
  mandatory_trumping: false
  bot_think_ms: 100
  room_timeout: 15
  offline_grace: 30

session:
  secret: "0123456789abcdef0123"
  token_ttl: 60

history:
  driver: postgres
  dsn: "host=db user=cb dbname=cb"

codec:
  format: protobuf

security:
  allowed_origins:
    - "http://localhost:3000"
    - "https://example.com"
  rate_limit:
    max_per_second: 20
    max_per_minute: 120
    ban_duration: 120
  message_limit:
    max_per_second: 50
  chat_limit:
    max_per_second: 2
    max_per_minute: 60
    cooldown: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, 5000, cfg.Server.MaxConnections)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 3, cfg.Game.TotalRounds)
	assert.False(t, cfg.Game.MandatoryTrumpingEnabled())
	assert.True(t, cfg.Game.AutoNextRoundEnabled())
	assert.Equal(t, 100*time.Millisecond, cfg.Game.BotThinkDuration())
	assert.Equal(t, 30*time.Second, cfg.Game.OfflineGraceDuration())
	assert.Equal(t, time.Hour, cfg.Session.TokenTTLDuration())
	assert.Equal(t, "postgres", cfg.History.Driver)
	assert.Equal(t, "protobuf", cfg.Codec.Format)
	assert.Len(t, cfg.Security.AllowedOrigins, 2)
	assert.Equal(t, 120*time.Second, cfg.Security.RateLimit.BanDurationTime())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "invalid: yaml: :::"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxConnections, cfg.Server.MaxConnections)
	assert.Equal(t, defaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, defaultTotalRounds, cfg.Game.TotalRounds)
	assert.True(t, cfg.Game.MandatoryTrumpingEnabled())
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "json", cfg.Codec.Format)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, 800*time.Millisecond, cfg.Game.BotThinkDuration())
	assert.Equal(t, 1200*time.Millisecond, cfg.Game.TrickCollectDuration())
	assert.Equal(t, 5*time.Second, cfg.Game.RoundEndDuration())
	assert.Equal(t, 2*time.Minute, cfg.Session.ReconnectWindowDuration())
}

func TestGameConfig_DurationMethods(t *testing.T) {
	t.Parallel()

	cfg := &GameConfig{
		RoomTimeout:           10,
		AbandonAfter:          3,
		MatchWait:             12,
		ShutdownTimeout:       60,
		ShutdownCheckInterval: 5,
	}

	assert.Equal(t, 10*time.Minute, cfg.RoomTimeoutDuration())
	assert.Equal(t, 3*time.Minute, cfg.AbandonAfterDuration())
	assert.Equal(t, 12*time.Second, cfg.MatchWaitDuration())
	assert.Equal(t, 60*time.Minute, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, 5*time.Second, cfg.ShutdownCheckIntervalDuration())
}

func TestChatLimitConfig_CooldownDuration(t *testing.T) {
	t.Parallel()

	cfg := &ChatLimitConfig{Cooldown: 10}
	assert.Equal(t, 10*time.Second, cfg.CooldownDuration())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }, wantErr: "session.secret"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "bad driver", mutate: func(c *Config) { c.History.Driver = "oracle" }, wantErr: "history.driver"},
		{name: "bad codec", mutate: func(c *Config) { c.Codec.Format = "xml" }, wantErr: "codec.format"},
		{name: "no rounds", mutate: func(c *Config) { c.Game.TotalRounds = -1 }, wantErr: "game.total_rounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Session.Secret = "0123456789abcdef"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Not parallel because it modifies environment variables
	t.Setenv("SERVER_HOST", "env-host")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("GAME_TOTAL_ROUNDS", "7")
	t.Setenv("SESSION_SECRET", "env-secret-env-secret")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.com, http://b.com")

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.Game.TotalRounds)
	assert.Equal(t, "env-secret-env-secret", cfg.Session.Secret)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Security.AllowedOrigins)
}

func TestLoadFromEnv_InvalidInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load("")
	assert.Error(t, err)
}
