package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".collabspace/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"collabspace/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// Redis settings (used when Type == "redis")
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"collabspace"`
}

type AuthEnv struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"collabspace"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

type ClientEnv struct {
	// GatewayURL selects a remote gateway; empty runs an embedded one over StorageEnv.
	GatewayURL string `envconfig:"GATEWAY_URL"`
	StateDir   string `envconfig:"STATE_DIR"`
}

type Env struct {
	BaseEnv
	StorageEnv
	AuthEnv
	ClientEnv
}

const namespace = "COLLABSPACE"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// ValidateServer checks settings required by the gateway service.
func (e *Env) ValidateServer() error {
	if e.JWTSecret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", namespace)
	}
	if e.StorageEnv.Type == "s3" && e.S3Bucket == "" {
		return fmt.Errorf("%s_S3_BUCKET is required for s3 storage", namespace)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// ResolvedStateDir returns the client state directory, defaulting to
// ~/.collabspace.
func (e *ClientEnv) ResolvedStateDir() (string, error) {
	if e.StateDir != "" {
		return e.StateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".collabspace"), nil
}
