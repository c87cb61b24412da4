package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

// Broker carries bus traffic between processes.
type Broker interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe starts delivering remote payloads to handler until ctx is done.
	Subscribe(ctx context.Context, handler func([]byte))
	Close() error
}

type wireMessage struct {
	Origin string       `json:"origin"`
	Topic  string       `json:"topic"`
	Event  domain.Event `json:"event"`
}

const (
	outboundQueueSize = 1024
	brokerTimeout     = 5 * time.Second
)

type bridge struct {
	broker     Broker
	instanceID string
	outbound   chan envelope
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// AttachBroker mirrors local publishes to the broker and re-publishes remote
// events locally. Events carry the origin instance id so a process never
// delivers its own events twice. Must be called before the first Publish.
func (b *Bus) AttachBroker(ctx context.Context, broker Broker, instanceID string) {
	ctx, cancel := context.WithCancel(ctx)
	br := &bridge{
		broker:     broker,
		instanceID: instanceID,
		outbound:   make(chan envelope, outboundQueueSize),
		cancel:     cancel,
	}
	b.bridge = br

	br.wg.Add(1)
	go br.run(ctx)

	broker.Subscribe(ctx, func(payload []byte) {
		var msg wireMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			observability.GetLogger(ctx).Warn("bus: bad broker payload", zap.Error(err))
			return
		}
		if msg.Origin == instanceID {
			return
		}
		if err := b.enqueue(envelope{topic: msg.Topic, event: msg.Event, remote: true}); err != nil {
			observability.GetLogger(ctx).Warn("bus: dropping remote event", zap.Error(err))
		}
	})
}

func (br *bridge) forward(env envelope) {
	select {
	case br.outbound <- env:
	default:
		observability.EventsDroppedTotal.WithLabelValues(env.topic, "broker_queue_full").Inc()
	}
}

func (br *bridge) run(ctx context.Context) {
	defer br.wg.Done()
	log := observability.GetLogger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-br.outbound:
			payload, err := json.Marshal(wireMessage{Origin: br.instanceID, Topic: env.topic, Event: env.event})
			if err != nil {
				log.Error("bus: encode broker payload", zap.Error(err))
				continue
			}

			pctx, cancel := context.WithTimeout(ctx, brokerTimeout)
			err = br.broker.Publish(pctx, payload)
			cancel()
			if err != nil {
				observability.PublishFailuresTotal.WithLabelValues(env.topic).Inc()
				log.Warn("bus: broker publish failed",
					zap.String("topic", env.topic),
					zap.Error(&domain.FanoutError{Topic: env.topic, Err: err}),
				)
			}
		}
	}
}

func (br *bridge) stop() {
	br.cancel()
	br.wg.Wait()
	if err := br.broker.Close(); err != nil {
		observability.GetLogger(context.Background()).Warn("bus: broker close", zap.Error(err))
	}
}
