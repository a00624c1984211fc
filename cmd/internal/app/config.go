package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	KafkaBrokers []string
	KafkaTopic   string

	// If true:
	// - /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, LEDGERD_TOKEN_SECRET MUST be set (>= 32 bytes); the ephemeral
	// startup-generated secret is refused.
	RequireTokenSecret bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("LEDGERD_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("LEDGERD_LOG_LEVEL", "info"),
		LogFormat: EnvString("LEDGERD_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("LEDGERD_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("LEDGERD_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("LEDGERD_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("LEDGERD_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("LEDGERD_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("LEDGERD_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("LEDGERD_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("LEDGERD_DB_MIN_CONNS", 0),

		KafkaBrokers: EnvCSV("LEDGERD_KAFKA_BROKERS"),
		KafkaTopic:   EnvString("LEDGERD_KAFKA_TOPIC", "ledgerd.transfers"),

		ReadinessRequireDB: EnvBool("LEDGERD_READINESS_REQUIRE_DB", false),

		RequireTokenSecret: EnvBool("LEDGERD_REQUIRE_TOKEN_SECRET", false),
	}
}
