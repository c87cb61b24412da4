package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string) domain.Event {
	return domain.NewMessageEvent(domain.EventMessageCreated, &domain.Message{ID: id}, time.Now())
}

func recv(t *testing.T, s *Subscription) domain.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := s.Next(ctx)
	require.NoError(t, err)
	return ev
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	s1, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)
	s2, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event(fmt.Sprint(i))))
	}

	for _, s := range []*Subscription{s1, s2} {
		for i := 0; i < 50; i++ {
			assert.Equal(t, fmt.Sprint(i), recv(t, s).Message.ID)
		}
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	other, err := b.Subscribe("other")
	require.NoError(t, err)
	msgs, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event("m1")))
	assert.Equal(t, "m1", recv(t, msgs).Message.ID)

	select {
	case ev := <-other.C():
		t.Fatalf("unexpected event on other topic: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	assert.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event("m1")))
}

func TestBus_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(Options{BufferSize: 2})
	defer b.Close()

	slow, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)
	fast, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	got := make([]string, 0, 10)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := 0; i < 10; i++ {
			ev, err := fast.Next(ctx)
			if err != nil {
				return
			}
			got = append(got, ev.Message.ID)
		}
	}()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event(fmt.Sprint(i))))
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, got)

	// the slow subscriber was evicted: buffered events drain, then the channel is closed
	drained := 0
	for range slow.C() {
		drained++
	}
	assert.LessOrEqual(t, drained, 2)
	_, err = slow.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestBus_QueueFullIsFanoutError(t *testing.T) {
	b := &Bus{
		topics: make(map[string]map[uint64]*Subscription),
		queue:  make(chan envelope, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	// no dispatcher running, so the queue never drains
	require.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event("m1")))

	err := b.Publish(context.Background(), domain.TopicMessages, event("m2"))
	assert.ErrorIs(t, err, domain.ErrFanout)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	s, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount(domain.TopicMessages))

	s.Unsubscribe()
	s.Unsubscribe()
	b.Unsubscribe(domain.TopicMessages, s)
	b.Unsubscribe(domain.TopicMessages, nil)
	b.Unsubscribe("never-subscribed", s)

	assert.Equal(t, 0, b.SubscriberCount(domain.TopicMessages))
	_, ok := <-s.C()
	assert.False(t, ok)
}

func TestSubscription_NextHonoursContext(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	s, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Next(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := New(Options{})
	s, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	b.Close()
	b.Close()

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)

	_, err = b.Subscribe(domain.TopicMessages)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Publish(context.Background(), domain.TopicMessages, event("m1")), ErrClosed)
}

// loopback is an in-memory Broker shared by several buses.
type loopback struct {
	mu       sync.Mutex
	handlers []func([]byte)
}

func (l *loopback) Publish(ctx context.Context, payload []byte) error {
	l.mu.Lock()
	hs := append(([]func([]byte))(nil), l.handlers...)
	l.mu.Unlock()
	for _, h := range hs {
		h(payload)
	}
	return nil
}

func (l *loopback) Subscribe(ctx context.Context, handler func([]byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

func (l *loopback) Close() error { return nil }

func TestBus_BrokerBridgesInstances(t *testing.T) {
	broker := &loopback{}

	a := New(Options{})
	defer a.Close()
	b := New(Options{})
	defer b.Close()

	a.AttachBroker(context.Background(), broker, "a")
	b.AttachBroker(context.Background(), broker, "b")

	subA, err := a.Subscribe(domain.TopicMessages)
	require.NoError(t, err)
	subB, err := b.Subscribe(domain.TopicMessages)
	require.NoError(t, err)

	require.NoError(t, a.Publish(context.Background(), domain.TopicMessages, event("m1")))

	assert.Equal(t, "m1", recv(t, subA).Message.ID)
	assert.Equal(t, "m1", recv(t, subB).Message.ID)

	// the origin instance does not receive its own event a second time
	select {
	case ev := <-subA.C():
		t.Fatalf("duplicate delivery: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishCountsOnce(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	published := observability.EventsPublishedTotal.WithLabelValues(domain.TopicMessages, string(domain.EventMessageCreated))
	before := testutil.ToFloat64(published)

	require.NoError(t, b.Publish(context.Background(), domain.TopicMessages, event("m1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(published)-before)
}
