package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estoque-service/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrRedisDesabilitado Redis não configurado; o cache de produtos roda só em memória
var ErrRedisDesabilitado = errors.New("redis disabled")

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// senha separada tem prioridade sobre a da URL
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	opt.DB = cfg.DB
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	// leituras do cache são no caminho da bipagem: melhor errar rápido e ir ao banco
	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", opt.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", opt.PoolSize),
	)

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

func (r *RedisDB) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisDesabilitado
	}
	return r.Client.Ping(ctx).Err()
}

// ContarChaves conta as chaves que casam com o padrão usando SCAN (não bloqueia o servidor)
func (r *RedisDB) ContarChaves(ctx context.Context, padrao string) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, ErrRedisDesabilitado
	}
	var (
		total  int64
		cursor uint64
	)
	for {
		chaves, proximo, err := r.Client.Scan(ctx, cursor, padrao, 500).Result()
		if err != nil {
			return 0, err
		}
		total += int64(len(chaves))
		if proximo == 0 {
			return total, nil
		}
		cursor = proximo
	}
}
