package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes changes to a topic keyed by collection/docID, so
// changes to one document stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ch Change) error {
	msg, err := EncodeMessage(ch)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", ch, err)
	}
	return nil
}

// PublishBatch writes chs in one request.
func (p *KafkaPublisher) PublishBatch(ctx context.Context, chs []Change) error {
	msgs := make([]kafka.Message, 0, len(chs))
	for _, ch := range chs {
		msg, err := EncodeMessage(ch)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish %d changes: %w", len(chs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// EncodeMessage turns a change into the wire message.
func EncodeMessage(ch Change) (kafka.Message, error) {
	value, err := json.Marshal(ch)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode change: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ch.Collection + "/" + ch.DocID),
		Value: value,
	}, nil
}

// DecodeMessage is the inverse of EncodeMessage.
func DecodeMessage(m kafka.Message) (Change, error) {
	var ch Change
	if err := json.Unmarshal(m.Value, &ch); err != nil {
		return Change{}, fmt.Errorf("decode change at offset %d: %w", m.Offset, err)
	}
	return ch, nil
}

// KafkaConsumer feeds a consumer group's messages into a Dispatcher. The
// offset is committed once handling finished, successfully or not; failed
// handling is retried first.
type KafkaConsumer struct {
	reader      *kafka.Reader
	dispatcher  *Dispatcher
	maxAttempts int
	backoff     time.Duration
}

func NewKafkaConsumer(brokers, groupID, topic string, d *Dispatcher, maxAttempts int) *KafkaConsumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        strings.Split(brokers, ","),
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		dispatcher:  d,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
	}
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()

	cfg := c.reader.Config()
	log.Printf("[kafka] consumer started | group=%s | topic=%s | brokers=%v", cfg.GroupID, cfg.Topic, cfg.Brokers)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[kafka] consumer shutting down...")
				return nil
			}
			log.Printf("[kafka] fetch error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		c.handle(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("[kafka] commit error: %v", err)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message) {
	ch, err := DecodeMessage(m)
	if err != nil {
		log.Printf("[kafka] skipping message: %v", err)
		return
	}
	for attempt := 1; ; attempt++ {
		err := c.dispatcher.Dispatch(ctx, ch)
		if err == nil {
			return
		}
		if attempt >= c.maxAttempts || ctx.Err() != nil {
			log.Printf("[kafka] giving up on %s after %d attempts: %v", ch, attempt, err)
			return
		}
		select {
		case <-time.After(c.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return
		}
	}
}
