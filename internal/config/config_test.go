package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()

	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, "grpc.stability.ai:443", cfg.Generation.Addr)
	assert.Equal(t, "transform-server-v1", cfg.Generation.EngineID)
	assert.Equal(t, 200, cfg.Generation.MaxFilenameLength)
	assert.False(t, cfg.Generation.Insecure)
	assert.Equal(t, "default", cfg.Queue.Name)
	assert.Equal(t, 0, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.GreaterOrEqual(t, cfg.Worker.Concurrency, 2)
	assert.Equal(t, "object", cfg.Worker.Sink)
	assert.Equal(t, 0, cfg.API.RateLimit)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GENERATION_ADDR", "localhost:50051")
	t.Setenv("GENERATION_INSECURE", "true")
	t.Setenv("TRANSFORM_ENGINE_ID", "transform-dev")
	t.Setenv("MAX_FILENAME_SZ", "64")
	t.Setenv("GENERATE_RATE_LIMIT", "10")
	t.Setenv("GENERATE_RATE_WINDOW", "30s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_DEVELOPMENT", "1")
	t.Setenv("WORKER_SINK", "Local")

	cfg := Load()

	assert.Equal(t, "localhost:50051", cfg.Generation.Addr)
	assert.True(t, cfg.Generation.Insecure)
	assert.Equal(t, "transform-dev", cfg.Generation.EngineID)
	assert.Equal(t, 64, cfg.Generation.MaxFilenameLength)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 3, cfg.Queue.RedisClientOpt().DB)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "local", cfg.Worker.Sink)
}
