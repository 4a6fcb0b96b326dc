// Package config reads SYNCARE_* settings from the environment and an
// optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/syncare/internal/database"
	"github.com/dukerupert/syncare/internal/sos"
	"github.com/dukerupert/syncare/internal/store"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageS3     = "s3"
)

type Config struct {
	Port           string
	DBPath         string
	LogLevel       string
	Storage        string
	Redis          store.RedisConfig
	S3             store.S3Config
	SOSInterval    time.Duration
	AllowedOrigins []string
}

// Load reads envFile (if it exists) and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:     getEnv("SYNCARE_PORT", "8080"),
		DBPath:   getEnv("SYNCARE_DB_PATH", "syncare.db"),
		LogLevel: getEnv("SYNCARE_LOG_LEVEL", "info"),
		Storage:  strings.ToLower(getEnv("SYNCARE_STORAGE", StorageSQLite)),
		Redis: store.RedisConfig{
			Addr:     getEnv("SYNCARE_REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("SYNCARE_REDIS_PASSWORD"),
			Prefix:   getEnv("SYNCARE_REDIS_PREFIX", "syncare"),
		},
		S3: store.S3Config{
			Endpoint:  os.Getenv("SYNCARE_S3_ENDPOINT"),
			Bucket:    os.Getenv("SYNCARE_S3_BUCKET"),
			Region:    getEnv("SYNCARE_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("SYNCARE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SYNCARE_S3_SECRET_KEY"),
			Prefix:    getEnv("SYNCARE_S3_PREFIX", "syncare"),
		},
		SOSInterval:    sos.DefaultInterval,
		AllowedOrigins: splitList(os.Getenv("SYNCARE_ALLOWED_ORIGINS")),
	}

	if v := os.Getenv("SYNCARE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("SYNCARE_REDIS_DB: invalid database number %q", v)
		}
		cfg.Redis.DB = db
	}

	if v := os.Getenv("SYNCARE_SOS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SYNCARE_SOS_POLL_INTERVAL: invalid duration %q", v)
		}
		cfg.SOSInterval = d
	}

	switch cfg.Storage {
	case StorageSQLite, StorageRedis:
	case StorageS3:
		if !cfg.S3.Configured() {
			return nil, errors.New("SYNCARE_STORAGE=s3 requires SYNCARE_S3_BUCKET, SYNCARE_S3_ACCESS_KEY and SYNCARE_S3_SECRET_KEY")
		}
	default:
		return nil, fmt.Errorf("SYNCARE_STORAGE: unknown backend %q", cfg.Storage)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// OpenKV connects the configured backend. The returned close func releases it.
func (c *Config) OpenKV(ctx context.Context) (store.KV, func() error, error) {
	switch c.Storage {
	case StorageRedis:
		rdb, err := store.NewRedisClient(ctx, c.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisKV(rdb, c.Redis.Prefix), rdb.Close, nil
	case StorageS3:
		kv, err := store.NewS3KV(c.S3)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() error { return nil }, nil
	default:
		db, err := database.Open(c.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store.NewSQLiteKV(db), db.Close, nil
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
