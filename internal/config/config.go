package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"filetree-service/internal/MinIO"
	"filetree-service/internal/storage/s3Store"
	"filetree-service/pkg/database/postgres"
	"filetree-service/pkg/database/redis"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/crypto/bcrypt"
)

const defaultConfigPath = "./config/local.env"

const (
	StorageMinIO = "minio"
	StorageS3    = "s3"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" env-default:"8080"`
	GRPCPort string `env:"GRPC_PORT" env-default:"50051"`

	JWTSecret      string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	DemoSessionTTL time.Duration `env:"DEMO_SESSION_TTL" env-default:"24h"`
	BcryptCost     int           `env:"BCRYPT_COST" env-default:"10"`

	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" env-default:"52428800"`
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"minio"`

	// requests per second and burst per client IP on the auth endpoints
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" env-default:"5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" env-default:"10"`

	DemoPurgeInterval time.Duration `env:"DEMO_PURGE_INTERVAL" env-default:"1h"`
	DemoPurgeGrace    time.Duration `env:"DEMO_PURGE_GRACE" env-default:"24h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`

	Postgres postgres.Config
	Redis    redis.RedisConfig
	MinIO    MinIO.Config
	S3       s3Store.Config
}

// New reads the file named by CONFIG_PATH (./config/local.env by default) when
// it exists, otherwise only the environment. Values from the file are exported
// into the process environment and win over variables already set.
func New() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StorageBackend != StorageMinIO && c.StorageBackend != StorageS3 {
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.DemoPurgeInterval <= 0 {
		return errors.New("DEMO_PURGE_INTERVAL must be positive")
	}
	return nil
}
