package application

import (
	"context"
	"errors"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

// publish is fire-and-forget. The write it follows has already committed, so a
// failure here is logged and counted but never reaches the caller.
func (s *Service) publish(ctx context.Context, t domain.EventType, m *domain.Message) {
	if s.bus == nil {
		return
	}

	ev := domain.NewMessageEvent(t, m, s.now())
	err := s.bus.Publish(ctx, domain.TopicMessages, ev)
	if err == nil {
		return
	}

	var fe *domain.FanoutError
	if !errors.As(err, &fe) {
		err = &domain.FanoutError{Topic: domain.TopicMessages, Err: err}
	}
	observability.PublishFailuresTotal.WithLabelValues(domain.TopicMessages).Inc()
	observability.GetLogger(ctx).Warn("event publish failed",
		zap.String("type", string(t)),
		zap.String("message_id", m.ID),
		zap.Error(err),
	)
}
