package notifier

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"golang-trade-clearinghouse/internal/ingestion/dto"
)

type redisStreamNotifier struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamNotifier appends every alert to a Redis stream, capped at maxLen entries.
func NewRedisStreamNotifier(client redis.UniversalClient, stream string, maxLen int64) Notifier {
	return &redisStreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (n *redisStreamNotifier) Name() string {
	return "redis_stream"
}

func (n *redisStreamNotifier) NotifyAlert(ctx context.Context, alert dto.CreatedAlert) error {
	payload, err := json.Marshal(dto.NewAlertEvent(alert))
	if err != nil {
		return err
	}
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: n.maxLen,
		Approx: true,
	}).Err()
}

// NotifyCritical is a no-op: the stream only carries alert events.
func (n *redisStreamNotifier) NotifyCritical(context.Context, string, string, string) error {
	return nil
}

func (n *redisStreamNotifier) Close() error {
	return nil
}
