package handlers

import (
	"net/http"
	"strconv"

	"github.com/SARVESHVARADKAR123/messenger/internal/application"
	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/middleware"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/SARVESHVARADKAR123/messenger/internal/view"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the back-office routes. Access is decided by the token roles.
type AdminHandler struct {
	svc Service
}

func NewAdminHandler(svc Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func staff(r *http.Request) application.Staff {
	return application.Staff{
		ID:    middleware.UserID(r.Context()),
		Roles: middleware.Roles(r.Context()),
	}
}

// ListConversations GET /api/admin/conversations?type=&limit=&offset=
func (h *AdminHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ConversationFilter{Type: domain.ConversationType(q.Get("type"))}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "limit must be a number")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "offset must be a number")
			return
		}
	}

	convs, err := h.svc.ListAllConversations(r.Context(), staff(r), filter)
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": view.FromConversations(convs),
	})
}

// DeleteMessage DELETE /api/admin/messages/{messageID}
func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ModerateDeleteMessage(r.Context(), staff(r), chi.URLParam(r, "messageID")); err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteConversation DELETE /api/admin/conversations/{conversationID}
func (h *AdminHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ModerateDeleteConversation(r.Context(), staff(r), chi.URLParam(r, "conversationID")); err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
