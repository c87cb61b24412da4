package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

var (
	ErrQueueFull          = errors.New("bus queue full")
	ErrClosed             = errors.New("bus closed")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

const (
	DefaultQueueSize  = 1024
	DefaultBufferSize = 128
)

type Options struct {
	QueueSize  int
	BufferSize int
}

type envelope struct {
	topic  string
	event  domain.Event
	remote bool
}

// Bus is an in-process topic fan-out.
//
// Publish only enqueues. A single dispatcher goroutine drains the queue, so every
// subscriber sees events in publish order. A subscriber whose buffer is full is
// evicted instead of blocking the others.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]*Subscription
	nextID atomic.Uint64

	queue      chan envelope
	bufferSize int

	bridge   *bridge
	closed   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New(opts Options) *Bus {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	b := &Bus{
		topics:     make(map[string]map[uint64]*Subscription),
		queue:      make(chan envelope, opts.QueueSize),
		bufferSize: opts.BufferSize,
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish hands the event to the dispatcher without waiting for delivery.
// The only errors are a full queue or a closed bus, both *domain.FanoutError.
func (b *Bus) Publish(ctx context.Context, topic string, ev domain.Event) error {
	return b.enqueue(envelope{topic: topic, event: ev})
}

func (b *Bus) enqueue(env envelope) error {
	select {
	case <-b.closed:
		return &domain.FanoutError{Topic: env.topic, Err: ErrClosed}
	default:
	}

	select {
	case b.queue <- env:
		observability.EventsPublishedTotal.WithLabelValues(env.topic, string(env.event.Type)).Inc()
		return nil
	default:
		observability.EventsDroppedTotal.WithLabelValues(env.topic, "queue_full").Inc()
		return &domain.FanoutError{Topic: env.topic, Err: ErrQueueFull}
	}
}

func (b *Bus) Subscribe(topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.closed:
		return nil, ErrClosed
	default:
	}

	s := &Subscription{
		id:    b.nextID.Add(1),
		topic: topic,
		ch:    make(chan domain.Event, b.bufferSize),
		bus:   b,
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[uint64]*Subscription)
	}
	b.topics[topic][s.id] = s
	return s, nil
}

// Unsubscribe is idempotent and accepts a nil or foreign subscription.
func (b *Bus) Unsubscribe(topic string, s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(topic, s)
}

func (b *Bus) removeLocked(topic string, s *Subscription) {
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if cur, ok := subs[s.id]; !ok || cur != s {
		return
	}
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	s.closeLocked()
}

func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		select {
		case <-b.closed:
			return
		case env := <-b.queue:
			b.deliver(env)
			if b.bridge != nil && !env.remote {
				b.bridge.forward(env)
			}
		}
	}
}

func (b *Bus) deliver(env envelope) {
	var evicted []*Subscription

	b.mu.RLock()
	for _, s := range b.topics[env.topic] {
		select {
		case s.ch <- env.event:
		default:
			evicted = append(evicted, s)
		}
	}
	b.mu.RUnlock()

	if len(evicted) == 0 {
		return
	}

	b.mu.Lock()
	for _, s := range evicted {
		observability.EventsDroppedTotal.WithLabelValues(env.topic, "slow_subscriber").Inc()
		observability.GetLogger(context.Background()).Warn("bus: evicting slow subscriber",
			zap.String("topic", env.topic),
			zap.Uint64("subscription_id", s.id),
		)
		b.removeLocked(env.topic, s)
	}
	b.mu.Unlock()
}

// Close stops the dispatcher and closes every subscription.
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		close(b.closed)
		b.mu.Unlock()

		<-b.done

		b.mu.Lock()
		for topic, subs := range b.topics {
			for _, s := range subs {
				s.closeLocked()
			}
			delete(b.topics, topic)
		}
		b.mu.Unlock()

		if b.bridge != nil {
			b.bridge.stop()
		}
	})
}

// Subscription is one subscriber's ordered view of a topic.
type Subscription struct {
	id     uint64
	topic  string
	ch     chan domain.Event
	bus    *Bus
	closed bool
}

func (s *Subscription) ID() uint64    { return s.id }
func (s *Subscription) Topic() string { return s.topic }

// C is closed when the subscription ends, by Unsubscribe, eviction or bus shutdown.
func (s *Subscription) C() <-chan domain.Event { return s.ch }

// Next blocks until an event arrives, the subscription ends, or ctx is done.
func (s *Subscription) Next(ctx context.Context) (domain.Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return domain.Event{}, ErrSubscriptionClosed
		}
		return ev, nil
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	}
}

func (s *Subscription) Unsubscribe() {
	s.bus.Unsubscribe(s.topic, s)
}

// closeLocked requires the bus write lock.
func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
