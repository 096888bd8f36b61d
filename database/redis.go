package database

import (
	"TicketMarket/configs"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(ctx context.Context) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     configs.GetRedisAddr(),
		Password: configs.GetRedisPassword(),
		DB:       configs.GetRedisDB(),
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	logrus.WithField("addr", configs.GetRedisAddr()).Info("connected to redis")
	return &RedisClient{Client: client}, nil
}
