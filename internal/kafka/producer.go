package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Producer mirrors message fan-outs onto a topic for the persistence
// and notification consumers. Delivery to connected clients never
// waits on it.
type Producer struct {
	writer *kafkago.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		// Best-effort mirror: never block the hub on broker I/O.
		Async: true,
	}
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, payload []byte) error {
	msg := kafkago.Message{
		Key:   []byte(time.Now().Format(time.RFC3339Nano)),
		Value: payload,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
