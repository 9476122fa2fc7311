package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

var _ store.MarkerStore = (*RedisMarkerStore)(nil)

const markerPrefix = "marker:"

// RedisMarkerStore keeps dedup markers in Redis under marker:<chainId>:<key>
type RedisMarkerStore struct {
	pool *redis.Pool
}

func timeoutDialOptions(timeout time.Duration) []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(timeout),
		redis.DialReadTimeout(timeout),
		redis.DialWriteTimeout(timeout),
	}
}

func NewRedisMarkerStore(cfg models.RedisConfig) *RedisMarkerStore {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	zap.L().Info("Using Redis marker store", zap.String("addr", addr))
	return &RedisMarkerStore{
		pool: &redis.Pool{
			MaxIdle:     cfg.MaxIdle,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr, timeoutDialOptions(dialTimeout)...)
			},
		},
	}
}

func (s *RedisMarkerStore) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return "", false, err
	}
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", markerPrefix+key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisMarkerStore) Put(ctx context.Context, key, value string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("SET", markerPrefix+key, value)
	return err
}

func (s *RedisMarkerStore) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("DEL", markerPrefix+key)
	return err
}

func (s *RedisMarkerStore) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("PING")
	return err
}

func (s *RedisMarkerStore) Close() {
	if err := s.pool.Close(); err != nil {
		zap.L().Warn("Failed to close redis pool", zap.Error(err))
	}
}
