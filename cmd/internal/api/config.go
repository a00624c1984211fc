package api

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls API behavior and security defaults.
type Config struct {
	MaxBodyBytes int64

	// Login throttling: after LoginFailMax failed attempts for one
	// identifier within LoginFailWindow, further attempts are rejected
	// until the window drains.
	LoginFailMax    int
	LoginFailWindow time.Duration

	WSWriteTimeout time.Duration
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:    envInt64("LEDGERD_API_MAX_BODY_BYTES", 1<<20), // 1 MiB
		LoginFailMax:    envInt("LEDGERD_API_LOGIN_FAIL_MAX", 10),
		LoginFailWindow: envDuration("LEDGERD_API_LOGIN_FAIL_WINDOW", 5*time.Minute),
		WSWriteTimeout:  envDuration("LEDGERD_API_WS_WRITE_TIMEOUT", 5*time.Second),
	}
	return cfg
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
