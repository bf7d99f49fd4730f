package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher writes asynchronously so publishing never stalls a
// dispatch. Close flushes anything still buffered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, logger logrus.FieldLogger) *KafkaPublisher {
	logger = logger.WithField("component", "ActivityPublisher")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WithError(err).WithField("messages", len(messages)).Warn("failed to deliver activity")
			}
		},
	}
	return &KafkaPublisher{writer: writer}
}

// Publish writes event keyed by its subject, so one product's or order's
// events stay on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Subject),
		Value: data,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type HandlerFunc func(ctx context.Context, event Event) error

type Consumer struct {
	reader *kafka.Reader
	logger logrus.FieldLogger
}

// NewConsumer reads topic as part of groupID. An empty groupID reads the
// partition from the newest offset without committing.
func NewConsumer(brokers []string, topic, groupID string, logger logrus.FieldLogger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	return &Consumer{
		reader: kafka.NewReader(cfg),
		logger: logger.WithField("component", "ActivityConsumer"),
	}
}

// Consume calls handler for every event until ctx is done. Malformed
// messages and handler errors are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.WithError(err).Warn("error reading message")
				continue
			}

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.WithError(err).WithField("offset", msg.Offset).Warn("skipping malformed event")
				continue
			}
			if err := handler(ctx, event); err != nil {
				c.logger.WithError(err).WithField("event_type", event.Type).Warn("error handling event")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
