package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	originalDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 100, cfg.Server.RateLimitRPS)

	assert.Equal(t, 4, cfg.Scheduler.InitialWorkers)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.DefaultTaskTimeout)
	assert.Equal(t, 1*time.Second, cfg.Scheduler.QueuePopTimeout)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ShutdownTimeout)

	assert.Equal(t, "memory", cfg.Events.Backend)
	assert.Equal(t, "localhost:6379", cfg.Events.RedisAddr)
	assert.Equal(t, 0, cfg.Events.RedisDB)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.False(t, cfg.Auth.Enabled)

	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := tmpDir + "/config.yaml"

	configContent := `
server:
  host: "127.0.0.1"
  port: 9090

scheduler:
  initialworkers: 8

events:
  backend: "redis"
  redisaddr: "custom-redis:6380"

loglevel: "warn"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	originalDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scheduler.InitialWorkers)
	assert.Equal(t, "redis", cfg.Events.Backend)
	assert.Equal(t, "custom-redis:6380", cfg.Events.RedisAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestServerConfig_Fields(t *testing.T) {
	cfg := ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestSchedulerConfig_Fields(t *testing.T) {
	cfg := SchedulerConfig{
		InitialWorkers:     8,
		DefaultTaskTimeout: 10 * time.Second,
		QueuePopTimeout:    2 * time.Second,
		ShutdownTimeout:    15 * time.Second,
	}

	assert.Equal(t, 8, cfg.InitialWorkers)
	assert.Equal(t, 10*time.Second, cfg.DefaultTaskTimeout)
}

func TestEventsConfig_Fields(t *testing.T) {
	cfg := EventsConfig{
		Backend:       "redis",
		RedisAddr:     "redis:6379",
		RedisPassword: "pass",
		RedisDB:       1,
	}

	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 1, cfg.RedisDB)
}
