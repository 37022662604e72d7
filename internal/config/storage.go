package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kazz187/collabspace/pkg/storage"
)

// OpenStorage builds the storage backend selected by STORAGE_TYPE. The
// returned close function releases backend connections.
func (e *StorageEnv) OpenStorage(ctx context.Context) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	switch e.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, e.S3Bucket, e.S3Prefix, e.S3Region)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     e.RedisAddr,
			Password: e.RedisPassword,
			DB:       e.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", e.RedisAddr, err)
		}
		return storage.NewRedisStorage(client, e.RedisPrefix), client.Close, nil
	case "", "local":
		s, err := storage.NewLocalStorage(e.BaseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", e.Type)
	}
}
