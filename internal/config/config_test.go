package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Bind:          "0.0.0.0",
		Port:          8080,
		RoomTTL:       24 * time.Hour,
		SweepInterval: time.Hour,
		ClientBuffer:  16,
		Heartbeat:     30 * time.Second,
		PackStore:     PackStoreMemory,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }, wantErr: "invalid port"},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "invalid port"},
		{name: "zero ttl", mutate: func(c *Config) { c.RoomTTL = 0 }, wantErr: "room-ttl"},
		{name: "zero sweep", mutate: func(c *Config) { c.SweepInterval = 0 }, wantErr: "sweep-interval"},
		{name: "zero buffer", mutate: func(c *Config) { c.ClientBuffer = 0 }, wantErr: "client buffer"},
		{name: "unknown store", mutate: func(c *Config) { c.PackStore = "mongo" }, wantErr: "unknown pack store"},
		{name: "redis without addr", mutate: func(c *Config) { c.PackStore = PackStoreRedis }, wantErr: "--redis-addr"},
		{name: "redis with addr", mutate: func(c *Config) { c.PackStore = PackStoreRedis; c.RedisAddr = "localhost:6379" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.PackStore = PackStorePostgres }, wantErr: "--database-url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func runCommand(t *testing.T, args ...string) *Config {
	t.Helper()
	cfg := &Config{}
	var got *Config
	cmd := NewCommand(cfg, "test", func(_ context.Context, c *Config) error {
		got = c
		return nil
	})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	require.NotNil(t, got)
	return got
}

func TestNewCommand_Defaults(t *testing.T) {
	cfg := runCommand(t)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.RoomTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 16, cfg.ClientBuffer)
	assert.Equal(t, PackStoreMemory, cfg.PackStore)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.StrictFinal)
}

func TestNewCommand_EnvAndFlags(t *testing.T) {
	t.Setenv("BUZZER_PORT", "9090")
	t.Setenv("BUZZER_ROOM_TTL", "2h")
	t.Setenv("BUZZER_STRICT_FINAL", "true")
	t.Setenv("BUZZER_LOG_LEVEL", "debug")

	cfg := runCommand(t, "--log-level", "warn")
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.RoomTTL)
	assert.True(t, cfg.StrictFinal)
	assert.Equal(t, "warn", cfg.LogLevel, "flags win over env")
}

func TestNewCommand_RejectsInvalid(t *testing.T) {
	cmd := NewCommand(&Config{}, "test", func(context.Context, *Config) error {
		t.Fatalf("run must not be called with invalid config")
		return nil
	})
	cmd.SetArgs([]string{"--pack-store", "postgres"})
	require.Error(t, cmd.Execute())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUZZER_GEMINI_MODEL=gemini-test\nBUZZER_PORT=1234\n"), 0o600))

	t.Setenv("BUZZER_PORT", "4321")
	t.Setenv("BUZZER_GEMINI_MODEL", "")
	require.NoError(t, os.Unsetenv("BUZZER_GEMINI_MODEL"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "gemini-test", os.Getenv("BUZZER_GEMINI_MODEL"))
	assert.Equal(t, "4321", os.Getenv("BUZZER_PORT"), "existing env wins over .env")
}
