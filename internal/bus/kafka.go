package bus

import (
	"context"
	"errors"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker bridges bus traffic through a Kafka topic. Every instance reads
// with its own consumer group so each one sees every event.
type KafkaBroker struct {
	w       *kafka.Writer
	brokers []string
	topic   string
	groupID string
}

func NewKafkaBroker(brokers []string, topic, groupID string) *KafkaBroker {
	return &KafkaBroker{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
	}
}

func (k *KafkaBroker) Publish(ctx context.Context, payload []byte) error {
	return k.w.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (k *KafkaBroker) Subscribe(ctx context.Context, handler func([]byte)) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       k.topic,
		GroupID:     k.groupID,
		StartOffset: kafka.LastOffset,
	})

	go func() {
		observability.GetLogger(ctx).Info("bus: kafka consumer started", zap.String("topic", k.topic), zap.String("group_id", k.groupID))
		defer r.Close()
		consume(ctx, r, handler, kafkaRetryMin, kafkaRetryMax)
	}()
}

const (
	kafkaRetryMin = 100 * time.Millisecond
	kafkaRetryMax = 5 * time.Second
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume reads until ctx ends. Read failures are retried with exponential
// backoff between minWait and maxWait; a successful read resets the wait.
func consume(ctx context.Context, r messageReader, handler func([]byte), minWait, maxWait time.Duration) {
	log := observability.GetLogger(ctx)
	wait := minWait

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			observability.BrokerReceiveFailuresTotal.WithLabelValues("kafka").Inc()
			log.Warn("bus: kafka read failed, retrying", zap.Error(err), zap.Duration("backoff", wait))

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			wait = min(wait*2, maxWait)
			continue
		}
		wait = minWait
		handler(m.Value)
	}
}

func (k *KafkaBroker) Close() error { return k.w.Close() }
