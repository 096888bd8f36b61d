package jobs

import (
	"TicketMarket/consts"
	"TicketMarket/utils"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type NotificationJob struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Data       map[string]string `json:"data"`
	RetryCount int               `json:"retry_count"`
}

// RedisNotifier enqueues notification jobs for the worker.
type RedisNotifier struct {
	rdb   *redis.Client
	queue string
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, queue: consts.QueueNameNotification}
}

func (n *RedisNotifier) Notify(ctx context.Context, kind string, payload map[string]string) error {
	return enqueue(ctx, n.rdb, n.queue, NotificationJob{
		ID:   utils.GenerateUUIDTransaction("JOB"),
		Type: kind,
		Data: payload,
	})
}

func enqueue(ctx context.Context, rdb *redis.Client, queue string, job NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding %s job: %w", job.Type, err)
	}
	if err := rdb.RPush(ctx, queue, string(payload)).Err(); err != nil {
		return fmt.Errorf("pushing %s job: %w", job.Type, err)
	}
	return nil
}
