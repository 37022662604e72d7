package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 256

// RedisStorage implements Storage with one Redis string key per path.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage returns a storage that namespaces every key with prefix.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	p := strings.Trim(prefix, "/")
	if p != "" {
		p += "/"
	}
	return &RedisStorage{client: client, prefix: p}
}

func (s *RedisStorage) key(path string) string {
	return s.prefix + strings.TrimPrefix(path, "/")
}

func (s *RedisStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read redis key %s: %w", s.key(path), err)
	}
	return data, nil
}

func (s *RedisStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := validatePath(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := s.client.Set(ctx, s.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write redis key %s: %w", s.key(path), err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, path string) error {
	n, err := s.client.Del(ctx, s.key(path)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete redis key %s: %w", s.key(path), err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

func (s *RedisStorage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := s.key(prefix)
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	var (
		paths  []string
		cursor uint64
		seen   = map[string]struct{}{}
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, dir+"*", redisScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list redis prefix %s: %w", dir, err)
		}
		for _, k := range keys {
			rest := strings.TrimPrefix(k, dir)
			// Glob "*" also matches "/", so skip nested keys.
			if rest == "" || strings.Contains(rest, "/") {
				continue
			}
			// SCAN may return a key more than once.
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			paths = append(paths, strings.TrimPrefix(k, s.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *RedisStorage) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check redis key %s: %w", s.key(path), err)
	}
	return n > 0, nil
}
