package notifier

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/telegram"
)

// NewFromConfig builds the fan-out notifier: the log sink always, the others when enabled.
// rdb may be nil when Redis is disabled.
func NewFromConfig(cfg *config.Config, rdb redis.UniversalClient, log *logger.Logger) (Notifier, error) {
	sinks := []Notifier{NewLogNotifier(log.Named("alerts"))}

	if tg := cfg.Notifier.Telegram; tg.Enabled {
		client, err := telegram.NewClient(tg.BotToken, tg.ChatID, tg.MaxMessagesPerSec)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sinks = append(sinks, NewTelegramNotifier(client))
	}

	if rs := cfg.Notifier.RedisStream; rs.Enabled {
		if rdb == nil {
			return nil, errors.New("redis_stream notifier requires redis.enabled")
		}
		sinks = append(sinks, NewRedisStreamNotifier(rdb, rs.Stream, cfg.Redis.StreamMaxLen))
	}

	if k := cfg.Notifier.Kafka; k.Enabled {
		kn, err := NewKafkaNotifier(k.Brokers, k.Topic, log.Named("kafka"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, kn)
	}

	return NewMulti(log, sinks...), nil
}
