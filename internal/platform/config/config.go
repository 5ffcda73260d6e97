package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	Storage       string
	TxTimeout     time.Duration
	Mongo         MongoConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Tasks         TaskConfig

	// OperatorSecretHash is the bcrypt hash memoctl checks before minting a
	// token. Empty leaves token minting open, as in development.
	OperatorSecretHash string
}

// MongoConfig locates the document store. The deployment must be a replica set
// for multi-document transactions.
type MongoConfig struct {
	URI      string
	Database string
}

// PostgresConfig locates the user directory. An empty DSN selects the in-memory directory.
type PostgresConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

// RedisConfig locates the notification and calendar-sync store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig locates the backup export topic. No brokers disables export.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// TaskConfig sizes the post-commit worker pool.
type TaskConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries uint64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envOr("MEMOFLOW_ADDR", ":8080"),
		LogLevel:      envOr("MEMOFLOW_LOG_LEVEL", "info"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("JWT_ISSUER", "memoflow"),
		JWTAudience:   envOr("JWT_AUDIENCE", "memoflow-api"),
		Storage:       envOr("MEMOFLOW_STORAGE", StorageMemory),
		TxTimeout:     envDuration("MEMOFLOW_TX_TIMEOUT", 5*time.Second),
		Mongo: MongoConfig{
			URI:      envOr("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: envOr("MONGO_DATABASE", "memoflow"),
		},
		Postgres: PostgresConfig{
			DSN:      os.Getenv("POSTGRES_DSN"),
			MaxConns: envInt("POSTGRES_MAX_CONNS", 10),
			MinConns: envInt("POSTGRES_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_BACKUP_TOPIC", "memo.backup"),
		},
		Tasks: TaskConfig{
			Workers:    envInt("MEMOFLOW_TASK_WORKERS", 4),
			QueueSize:  envInt("MEMOFLOW_TASK_QUEUE", 256),
			MaxRetries: uint64(envInt("MEMOFLOW_TASK_RETRIES", 3)),
		},
		OperatorSecretHash: os.Getenv("MEMOCTL_OPERATOR_SECRET_HASH"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
