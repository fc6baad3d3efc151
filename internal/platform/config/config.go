package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server captures process-level configuration, loaded from the environment.
type Server struct {
	Addr            string        `envconfig:"DONORHUB_ADDR" default:":8080"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	OperatorToken   string        `envconfig:"OPERATOR_TOKEN"`

	Auth     AuthConfig
	Admin    AdminConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
}

// AuthConfig configures token issuance and password hashing.
type AuthConfig struct {
	JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"donorhub"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`
}

// AdminConfig seeds the first administrator account.
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	Password string `envconfig:"ADMIN_PASSWORD" default:"Admin123!"`
}

// DatabaseConfig selects PostgreSQL. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"30m"`
}

// RedisConfig selects the Redis token revocation list. An empty URL keeps it in memory.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// AuditConfig selects the Kafka audit sink. Without brokers audit events are only logged.
type AuditConfig struct {
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	Topic        string   `envconfig:"AUDIT_TOPIC" default:"donorhub.audit"`
	Partitions   int32    `envconfig:"AUDIT_TOPIC_PARTITIONS" default:"1"`
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return Server{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.JWTSigningKey == "" {
		if cfg.IsProduction() {
			return Server{}, fmt.Errorf("load config: JWT_SIGNING_KEY is required in production")
		}
		cfg.Auth.JWTSigningKey = devSigningKey
	}
	return cfg, nil
}

func (s Server) IsProduction() bool {
	return s.Environment == "production"
}
