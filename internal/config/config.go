package config

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr     string
	DatabasePath string
	LogLevel     string

	// Claude CLI invocation
	ClaudeBin         string
	ClaudeTimeout     time.Duration // wall-clock budget per blocking invocation
	ClaudeLegacyInput bool          // flatten the conversation to a text prompt instead of stream-json stdin

	// Session lifecycle
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

func MustLoad() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8000"),
		DatabasePath:      getenv("DATABASE_PATH", "sessions.db"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		ClaudeBin:         getenv("CLAUDE_BIN", "claude"),
		ClaudeTimeout:     getdur("CLAUDE_TIMEOUT", 30*time.Second),
		ClaudeLegacyInput: getenv("CLAUDE_LEGACY_PROMPT", "") == "true",
		SessionTTL:        getdur("SESSION_TTL", 24*time.Hour),
		SweepInterval:     getdur("SESSION_SWEEP_INTERVAL", time.Hour),
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
