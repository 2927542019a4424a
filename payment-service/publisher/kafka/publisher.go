package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/segmentio/kafka-go"
)

// Pool for JSON encoding buffers
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaEventPublisher struct {
	writer MessageWriter
}

func NewKafkaEventPublisher(cfg *config.Kafka) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.PaymentTopic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// NewKafkaEventPublisherWithWriter wraps an existing writer. Used by tests.
func NewKafkaEventPublisherWithWriter(w MessageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: w}
}

// Publish writes the event keyed by payment id so every event for one
// payment lands on the same partition.
func (p *KafkaEventPublisher) Publish(ctx context.Context, event model.PaymentEvent) error {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		jsonBufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(event); err != nil {
		return fmt.Errorf("failed to encode payment event: %w", err)
	}

	// The writer may retain the slice until the batch is flushed.
	value := make([]byte, buf.Len())
	copy(value, buf.Bytes())

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
