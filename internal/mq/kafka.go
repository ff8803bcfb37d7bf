package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 250 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})
}

func PublishJSON(ctx context.Context, writer *kafka.Writer, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
	})
}

func ParseMessageJSON[T any](msg kafka.Message) (T, error) {
	var payload T
	err := json.Unmarshal(msg.Value, &payload)
	return payload, err
}

// Publisher wraps a writer for bulk replay of generated records. Publish
// failures are logged and counted rather than aborting the batch.
type Publisher struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

func NewPublisher(brokers []string, topic string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{writer: NewWriter(brokers, topic), log: log}
}

func (p *Publisher) Close() error { return p.writer.Close() }

// PublishAll sends every record keyed by keyFn, returning the number
// actually published.
func PublishAll[T any](ctx context.Context, p *Publisher, records []T, keyFn func(T) string) int {
	published := 0
	for _, r := range records {
		if err := PublishJSON(ctx, p.writer, keyFn(r), r); err != nil {
			p.log.WithField("topic", p.writer.Topic).Warnf("publish failed: %v", err)
			continue
		}
		published++
	}
	return published
}
