package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	lowimpl "github.com/redis/go-redis/v9"
)

// RedisConf 是 Redis 连接参数。
type RedisConf struct {
	Host string
	Port int
	PW   string
	DB   int
}

// Redis 是基于 go-redis 的 KV 实现。
type Redis struct {
	Conf *RedisConf

	internal *lowimpl.Client
}

var _ KV = (*Redis)(nil)

// NewRedis 创建客户端。连接是惰性的，首次命令时才会建立。
func NewRedis(conf *RedisConf) *Redis {
	r := &Redis{Conf: conf}
	r.internal = lowimpl.NewClient(&lowimpl.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Password: conf.PW,
		DB:       conf.DB,
	})
	log.Println("[INFO] redis internal initialized")
	return r
}

// Ping 检查连通性。
func (r *Redis) Ping(ctx context.Context) error {
	return r.internal.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.internal == nil {
		return nil
	}
	return r.internal.Close()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.internal.Get(ctx, key).Result()
	if errors.Is(err, lowimpl.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return r.internal.Set(ctx, key, value, expiration).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) (int64, error) {
	return r.internal.Del(ctx, keys...).Result()
}
