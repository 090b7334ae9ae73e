package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

const kafkaFlushTimeoutMs = 5000

type kafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	logger   *logger.Logger
}

// NewKafkaNotifier publishes every alert to topic, keyed by account.
func NewKafkaNotifier(brokers, topic string, log *logger.Logger) (Notifier, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	n := &kafkaNotifier{producer: producer, topic: topic, logger: log}
	go n.deliveryReports()
	return n, nil
}

// deliveryReports drains the producer's event channel until Close.
func (n *kafkaNotifier) deliveryReports() {
	for e := range n.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				n.logger.Error("Alert delivery failed", logger.ErrorField(ev.TopicPartition.Error))
			}
		case kafka.Error:
			n.logger.Warn("Kafka producer error", logger.ErrorField(ev))
		}
	}
}

func (n *kafkaNotifier) Name() string {
	return "kafka"
}

func (n *kafkaNotifier) NotifyAlert(_ context.Context, alert dto.CreatedAlert) error {
	payload, err := json.Marshal(dto.NewAlertEvent(alert))
	if err != nil {
		return err
	}
	return n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(alert.Trade.Account),
		Value:          payload,
		Headers:        []kafka.Header{{Key: "alert_id", Value: []byte(strconv.FormatUint(alert.Alert.ID, 10))}},
	}, nil)
}

// NotifyCritical is a no-op: the topic only carries alert events.
func (n *kafkaNotifier) NotifyCritical(context.Context, string, string, string) error {
	return nil
}

func (n *kafkaNotifier) Close() error {
	if remaining := n.producer.Flush(kafkaFlushTimeoutMs); remaining > 0 {
		n.logger.Warn("Kafka producer closed with undelivered alerts", logger.IntField("pending", remaining))
	}
	n.producer.Close()
	return nil
}
