package queue

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// Handler processes one dispatch event payload.
type Handler interface {
	HandleMessage(message []byte) error
}

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

func NewConsumer(broker, topic, groupID, username, password string, handler Handler) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  []string{broker},
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	}

	if username != "" {
		cfg.Dialer = &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           &tls.Config{},
			SASLMechanism: plain.Mechanism{Username: username, Password: password},
		}
	}

	return &Consumer{
		reader:  kafka.NewReader(cfg),
		handler: handler,
	}
}

// Listen consumes dispatch events until ctx is cancelled. Handler
// failures are logged, not retried: the notification log row already
// records the failed attempt.
func (c *Consumer) Listen(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("dispatch queue read error", "error", err)
			continue
		}

		if err := c.handler.HandleMessage(msg.Value); err != nil {
			slog.Error("dispatch handler error", "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
