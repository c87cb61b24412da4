package router

import (
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/config"
	"github.com/SARVESHVARADKAR123/messenger/internal/handlers"
	"github.com/SARVESHVARADKAR123/messenger/internal/middleware"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/websocket"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Conversations *handlers.ConversationHandler
	Messages      *handlers.MessageHandler
	Admin         *handlers.AdminHandler
	Events        *websocket.Handler
	Ready         map[string]observability.Pinger
}

func NewRouter(h Handlers, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler(h.Ready))

	sends := middleware.NewSendLimiter(cfg.SendRatePerMinute)

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))

		p.Route("/api/conversations", func(c chi.Router) {
			c.Post("/", h.Conversations.CreateConversation)
			c.Get("/", h.Conversations.ListConversations)

			c.Route("/{conversationID}", func(c chi.Router) {
				c.Get("/", h.Conversations.GetConversation)
				c.Delete("/", h.Conversations.DeleteConversation)

				c.Post("/participants", h.Conversations.AddParticipant)
				c.Delete("/participants/{userID}", h.Conversations.RemoveParticipant)

				c.Get("/messages", h.Messages.ListMessages)
				c.With(sends.Middleware).Post("/messages", h.Messages.SendMessage)
				c.With(sends.Middleware).Post("/messages/bulk", h.Messages.SendBulk)
			})
		})

		p.Route("/api/messages/{messageID}", func(m chi.Router) {
			m.Patch("/", h.Messages.EditMessage)
			m.Delete("/", h.Messages.DeleteMessage)
			m.With(sends.Middleware).Post("/attachments", h.Messages.AddAttachment)
			m.With(sends.Middleware).Post("/attachments/bulk", h.Messages.AddBulkAttachment)
		})

		p.Get("/api/attachments/{attachmentID}/url", h.Messages.AttachmentURL)

		p.Route("/api/admin", func(a chi.Router) {
			a.Get("/conversations", h.Admin.ListConversations)
			a.Delete("/conversations/{conversationID}", h.Admin.DeleteConversation)
			a.Delete("/messages/{messageID}", h.Admin.DeleteMessage)
		})

		p.Method(http.MethodGet, "/ws", h.Events)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
