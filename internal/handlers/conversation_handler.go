package handlers

import (
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/application"
	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/middleware"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/SARVESHVARADKAR123/messenger/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	svc Service
}

func NewConversationHandler(svc Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type createConversationRequest struct {
	Type      string   `json:"type" validate:"omitempty,oneof=private group"`
	Title     string   `json:"title" validate:"max=255"`
	Avatar    string   `json:"avatar" validate:"omitempty,url"`
	MemberIDs []string `json:"member_ids" validate:"required,min=1,max=50,dive,required"`
}

// CreateConversation POST /api/conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req createConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	observability.GetLogger(r.Context()).Info("creating conversation",
		zap.String("user_id", userID),
		zap.String("type", req.Type),
		zap.Int("members", len(req.MemberIDs)),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	conv, err := h.svc.CreateConversation(r.Context(), application.CreateConversationCommand{
		CreatorID: userID,
		Type:      domain.ConversationType(req.Type),
		Title:     req.Title,
		Avatar:    req.Avatar,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, view.FromConversation(conv))
}

// ListConversations GET /api/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.ListConversations(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": view.FromConversations(convs),
	})
}

// GetConversation GET /api/conversations/{conversationID}
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.svc.GetConversation(r.Context(), chi.URLParam(r, "conversationID"), middleware.UserID(r.Context()))
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, view.FromConversation(conv))
}

// DeleteConversation DELETE /api/conversations/{conversationID}
func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteConversation(r.Context(), application.DeleteConversationCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		ActorID:        middleware.UserID(r.Context()),
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=member admin"`
}

// AddParticipant POST /api/conversations/{conversationID}/participants
func (h *ConversationHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.svc.AddParticipant(r.Context(), application.AddParticipantCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		ActorID:        middleware.UserID(r.Context()),
		UserID:         req.UserID,
		Role:           domain.Role(req.Role),
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, view.Member{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt})
}

// RemoveParticipant DELETE /api/conversations/{conversationID}/participants/{userID}
func (h *ConversationHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveParticipant(r.Context(), application.RemoveParticipantCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		ActorID:        middleware.UserID(r.Context()),
		UserID:         chi.URLParam(r, "userID"),
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
