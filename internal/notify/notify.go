// Package notify is the fire-and-forget notification collaborator. Delivery
// failures are logged by callers and never fail the parent operation.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type Notifier interface {
	Send(ctx context.Context, kind, orderID string) error
}

type message struct {
	Kind    string    `json:"kind"`
	OrderID string    `json:"order_id"`
	SentAt  time.Time `json:"sent_at"`
}

type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (n *KafkaNotifier) Send(ctx context.Context, kind, orderID string) error {
	value, err := json.Marshal(message{Kind: kind, OrderID: orderID, SentAt: time.Now()})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// Noop is used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Send(context.Context, string, string) error { return nil }
