package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "WORK_DIR", "EXEC_TIMEOUT_MS",
		"MAX_OUTPUT_BYTES", "MAX_WORKERS", "JOB_QUEUE_SIZE", "MAX_CODE_LENGTH",
		"SANITIZE_CODE", "LANGUAGES_FILE", "CORS_ORIGINS", "RATE_LIMIT_MS",
		"NATS_URL", "NATS_SUBJECT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig()
	assert.Equal(t, "3010", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, filepath.Join(os.TempDir(), "codeexec"), cfg.WorkDir)
	assert.Equal(t, 5*time.Second, cfg.ExecTimeout)
	assert.Equal(t, 1024, cfg.MaxOutputBytes)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 16, cfg.JobQueueSize)
	assert.Equal(t, 65536, cfg.MaxCodeLength)
	assert.False(t, cfg.SanitizeCode)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimit)
	assert.Empty(t, cfg.NatsURL)
	assert.Equal(t, DefaultNatsSubject, cfg.NatsSubject)
}

func TestLoadConfigFromEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MAX_WORKERS", "")
	os.Unsetenv("MAX_WORKERS")
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_WORKERS=9\n"), 0o644))

	t.Setenv("PORT", "8080")
	t.Setenv("EXEC_TIMEOUT_MS", "250")
	t.Setenv("MAX_OUTPUT_BYTES", "not-a-number")
	t.Setenv("SANITIZE_CODE", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_MS", "100")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 9, cfg.MaxWorkers)
	assert.Equal(t, 250*time.Millisecond, cfg.ExecTimeout)
	assert.Equal(t, 1024, cfg.MaxOutputBytes)
	assert.True(t, cfg.SanitizeCode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 100*time.Millisecond, cfg.RateLimit)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}
