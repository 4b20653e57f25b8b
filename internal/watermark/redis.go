package watermark

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gmailscraper/backend/internal/config"
)

// keyPrefix 水位线在 Redis 中的键前缀
const keyPrefix = "scraper:watermark:"

// RedisStore 基于 Redis 的水位线存储，跨进程/跨实例共享。
type RedisStore struct {
	rdb *goredis.Client
	log *zap.Logger
}

// NewRedisStore 创建 Redis 水位线存储并验证连接。
func NewRedisStore(cfg config.RedisConfig, log *zap.Logger) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info("watermark store connected to redis",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)

	return &RedisStore{rdb: rdb, log: log}, nil
}

// Get 返回用户的水位线，键不存在时返回 0。
func (s *RedisStore) Get(ctx context.Context, userEmail string) (int64, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+userEmail).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get watermark for %s: %w", userEmail, err)
	}

	mark, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// 键被写坏时按无水位线处理，退化为全量抓取
		s.log.Warn("corrupt watermark value, ignoring",
			zap.String("user", userEmail),
			zap.String("value", val),
		)
		return 0, nil
	}
	return mark, nil
}

// Set 推进用户的水位线。水位线永久保留，不设 TTL。
func (s *RedisStore) Set(ctx context.Context, userEmail string, internalDate int64) error {
	err := s.rdb.Set(ctx, keyPrefix+userEmail, strconv.FormatInt(internalDate, 10), 0).Err()
	if err != nil {
		return fmt.Errorf("set watermark for %s: %w", userEmail, err)
	}
	return nil
}

// Ping 检查 Redis 连接，用于就绪探针。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
