package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// TenantDSN is the PostgreSQL database holding the per-household
	// schemas; DirectoryDSN is the centralized tenancy directory.
	TenantDSN    string
	DirectoryDSN string

	// MasterKeyPath is the fixed, access-restricted location of the
	// 256-bit field encryption key.
	MasterKeyPath string

	Redis RedisConfig

	// KafkaBrokers enables the audit export publisher when non-empty.
	KafkaBrokers []string
	AuditTopic   string
}

// RedisConfig holds connection settings for the directory lookup cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DirectoryCacheTTL bounds how long a role lookup may be served from cache.
// Short on purpose: revoking a member's access must take effect quickly.
var DirectoryCacheTTL = 2 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("HEARTH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("HEARTH_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	keyPath := os.Getenv("HEARTH_MASTER_KEY_PATH")
	if keyPath == "" {
		keyPath = "/var/lib/hearth/master.key"
	}

	auditTopic := os.Getenv("HEARTH_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "hearth.audit.v1"
	}

	var brokers []string
	if raw := os.Getenv("HEARTH_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		TenantDSN:     os.Getenv("HEARTH_TENANT_DSN"),
		DirectoryDSN:  os.Getenv("HEARTH_DIRECTORY_DSN"),
		MasterKeyPath: keyPath,
		Redis: RedisConfig{
			URL:          os.Getenv("HEARTH_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaBrokers: brokers,
		AuditTopic:   auditTopic,
	}
}
