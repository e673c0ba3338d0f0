// Package indexing queues catalog changes for the search indexer.
package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Indexer is told about every product or deal the pipeline writes.
type Indexer interface {
	QueueProduct(ctx context.Context, id string) error
	QueueDeal(ctx context.Context, id string) error
}

const (
	TypeProduct = "product"
	TypeDeal    = "deal"
)

// Message is the payload published to the index topic.
type Message struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	QueuedAt time.Time `json:"queuedAt"`
}

// DefaultEnqueueTimeout bounds how long a send waits for room on the
// producer's input channel.
const DefaultEnqueueTimeout = 2 * time.Second

// ErrEnqueueTimeout is returned when the producer does not accept a message
// in time, typically because every broker is down and its buffers are full.
var ErrEnqueueTimeout = errors.New("kafka producer did not accept the message in time")

// Kafka publishes index messages keyed by document id, so updates to one
// document stay ordered within a partition. Sends only hand the message to
// the producer; delivery results are logged by a background reader.
type Kafka struct {
	producer       sarama.AsyncProducer
	topic          string
	log            logrus.FieldLogger
	now            func() time.Time
	enqueueTimeout time.Duration
	done           chan struct{}
}

func NewKafka(producer sarama.AsyncProducer, topic string, log logrus.FieldLogger) *Kafka {
	k := &Kafka{
		producer:       producer,
		topic:          topic,
		log:            log,
		now:            time.Now,
		enqueueTimeout: DefaultEnqueueTimeout,
		done:           make(chan struct{}),
	}
	go k.readResults()
	return k
}

// NewKafkaProducer creates an AsyncProducer that waits for all replicas.
func NewKafkaProducer(brokers []string) (sarama.AsyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

func (k *Kafka) QueueProduct(ctx context.Context, id string) error {
	return k.send(ctx, TypeProduct, id)
}

func (k *Kafka) QueueDeal(ctx context.Context, id string) error {
	return k.send(ctx, TypeDeal, id)
}

func (k *Kafka) send(ctx context.Context, kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := Message{Type: kind, ID: id, QueuedAt: k.now()}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal index message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:    k.topic,
		Key:      sarama.StringEncoder(id),
		Value:    sarama.ByteEncoder(data),
		Metadata: m,
	}

	timer := time.NewTimer(k.enqueueTimeout)
	defer timer.Stop()
	select {
	case k.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("failed to queue %s %s: %w", kind, id, ErrEnqueueTimeout)
	}
}

// readResults drains the producer until both result channels are closed.
func (k *Kafka) readResults() {
	defer close(k.done)

	successes, errs := k.producer.Successes(), k.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			k.messageLog(msg).WithFields(logrus.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Debug("queued for indexing")

		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			k.messageLog(perr.Msg).WithError(perr.Err).Warn("index message not delivered")
		}
	}
}

func (k *Kafka) messageLog(msg *sarama.ProducerMessage) logrus.FieldLogger {
	if msg == nil {
		return k.log
	}
	m, _ := msg.Metadata.(Message)
	return k.log.WithFields(logrus.Fields{"type": m.Type, "id": m.ID})
}

// Close flushes buffered messages and waits until their results are logged.
func (k *Kafka) Close() error {
	k.producer.AsyncClose()
	<-k.done
	return nil
}

// Noop drops every message. It is used when no brokers are configured.
type Noop struct{}

func (Noop) QueueProduct(context.Context, string) error { return nil }
func (Noop) QueueDeal(context.Context, string) error    { return nil }
