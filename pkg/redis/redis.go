package redis

import (
	"BlinkRise/internal/entity"
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrSnapshotMissing = errors.New("snapshot key missing")

type IRedis interface {
	SetSnapshot(ctx context.Context, key string, st entity.DrowsinessState, ttl time.Duration) error
	RefreshSnapshot(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(log *logrus.Logger, addr, password string, db int) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", addr))

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

func (r *redisClient) SetSnapshot(ctx context.Context, key string, st entity.DrowsinessState, ttl time.Duration) error {
	payload, err := jsoniter.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		r.log.Debug(fmt.Sprintf("Error setting snapshot for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) RefreshSnapshot(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSnapshotMissing
	}
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
