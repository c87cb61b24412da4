package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/bus"
	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/middleware"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/SARVESHVARADKAR123/messenger/internal/view"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subscriber is the part of the bus a connection needs.
type Subscriber interface {
	Subscribe(topic string) (*bus.Subscription, error)
}

type Handler struct {
	registry *Registry
	bus      Subscriber
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, sub Subscriber) *Handler {
	return &Handler{
		registry: registry,
		bus:      sub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP GET /ws
//
// Every connection receives every event on the messages topic. Clients filter by
// conversation themselves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	log := observability.GetLogger(r.Context())

	sub, err := h.bus.Subscribe(domain.TopicMessages)
	if err != nil {
		log.Error("subscribe failed", zap.Error(err))
		transport.WriteError(w, http.StatusServiceUnavailable, "unavailable", "event stream unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Unsubscribe()
		log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), userID, conn)
	h.registry.Add(session)
	session.Start()

	log.Info("connected", zap.String("user_id", userID), zap.String("session_id", session.ID))

	go h.forward(session, sub)
	go h.readLoop(session, sub)
}

// forward pushes bus events to the client until either side goes away.
func (h *Handler) forward(s *Session, sub *bus.Subscription) {
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				s.CloseWithReason(websocket.CloseTryAgainLater, "event stream closed")
				return
			}
			payload, err := json.Marshal(view.FromEvent(ev))
			if err != nil {
				observability.GetLogger(context.Background()).Error("failed to encode event", zap.String("type", string(ev.Type)), zap.Error(err))
				continue
			}
			if !s.TrySend(payload) {
				return
			}
		case <-s.Done():
			return
		}
	}
}

// readLoop only watches for close and pong frames.
func (h *Handler) readLoop(s *Session, sub *bus.Subscription) {
	defer func() {
		sub.Unsubscribe()
		h.registry.Remove(s)
		s.Close()
		observability.GetLogger(context.Background()).Info("disconnected",
			zap.String("user_id", s.UserID),
			zap.String("session_id", s.ID),
		)
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	_ = s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		return s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				observability.GetLogger(context.Background()).Warn("read loop error", zap.String("user_id", s.UserID), zap.Error(err))
			}
			return
		}
	}
}
