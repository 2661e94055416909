package repository

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"PriceCast/internal/domain/models"
	pkgkafka "PriceCast/pkg/kafka"
)

// KafkaPublisher sends domain events to one Kafka topic, keyed by ticker.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishModelTrained(ctx context.Context, ev models.ModelTrainedEvent) error {
	if ev.Event == "" {
		ev.Event = models.EventModelTrained
	}
	err := p.producer.Publish(ctx, p.topic, []byte(ev.Run.Ticker), ev,
		kafka.Header{Key: "event", Value: []byte(ev.Event)},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Event, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops events when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishModelTrained(context.Context, models.ModelTrainedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
