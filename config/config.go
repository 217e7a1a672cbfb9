package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultNatsSubject = "compiler.execute.request"

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	WorkDir        string
	ExecTimeout    time.Duration
	MaxOutputBytes int
	MaxWorkers     int
	JobQueueSize   int
	MaxCodeLength  int
	SanitizeCode   bool
	LanguagesFile  string

	CORSOrigins []string
	RateLimit   time.Duration

	NatsURL     string
	NatsSubject string

	ExecutorLogFile string
	AppLogFile      string

	BetterStackUploadURL   string
	BetterStackSourceToken string
}

func LoadConfig() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	return Config{
		Port:        getEnv("PORT", "3010"),
		Environment: getEnv("ENVIRONMENT", "production"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		WorkDir:        getEnv("WORK_DIR", filepath.Join(os.TempDir(), "codeexec")),
		ExecTimeout:    time.Duration(getEnvInt("EXEC_TIMEOUT_MS", 5000)) * time.Millisecond,
		MaxOutputBytes: getEnvInt("MAX_OUTPUT_BYTES", 1024),
		MaxWorkers:     getEnvInt("MAX_WORKERS", 4),
		JobQueueSize:   getEnvInt("JOB_QUEUE_SIZE", 16),
		MaxCodeLength:  getEnvInt("MAX_CODE_LENGTH", 64*1024),
		SanitizeCode:   getEnvBool("SANITIZE_CODE", false),
		LanguagesFile:  getEnv("LANGUAGES_FILE", ""),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimit:   time.Duration(getEnvInt("RATE_LIMIT_MS", 0)) * time.Millisecond,

		NatsURL:     getEnv("NATS_URL", ""),
		NatsSubject: getEnv("NATS_SUBJECT", DefaultNatsSubject),

		ExecutorLogFile: getEnv("EXECUTOR_LOG_FILE", ""),
		AppLogFile:      getEnv("APP_LOG_FILE", ""),

		BetterStackUploadURL:   getEnv("BETTERSTACK_UPLOAD_URL", ""),
		BetterStackSourceToken: getEnv("BETTERSTACK_SOURCE_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: %s=%q is not an integer, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: %s=%q is not a boolean, using %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvList reads a comma separated list, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
