package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// EncryptionSecret is the long-lived secret the field cipher key is
	// derived from. Read once at startup and injected explicitly; nothing
	// re-reads the environment per request.
	EncryptionSecret string

	JWTSigningKey string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
}

// RedisConfig holds connection settings for the shared role cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the optional audit mirror sink.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// RoleCacheTTL bounds how long a resolved role-set may be served from cache.
var RoleCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ONBOARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "onboard.field-access"
	}

	return Server{
		Addr:             addr,
		EncryptionSecret: os.Getenv("FIELD_ENCRYPTION_SECRET"),
		JWTSigningKey:    jwtSigningKey,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
	}
}
