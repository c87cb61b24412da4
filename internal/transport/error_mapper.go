package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

// DomainError writes the HTTP response for an error returned by the application layer.
func DomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := observability.GetLogger(ctx)

	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		pe *domain.PermissionError
		ne *domain.NotFoundError
		se *domain.StorageError
	)

	switch {
	case errors.As(err, &ve):
		details := map[string]interface{}{"field": ve.Field}
		if len(ve.Values) > 0 {
			details["values"] = ve.Values
		}
		WriteErrorDetails(w, http.StatusBadRequest, "invalid_argument", ve.Reason, details)
	case errors.As(err, &ce):
		WriteErrorDetails(w, http.StatusConflict, "already_exists", "private conversation already exists",
			map[string]interface{}{"existing_conversation_id": ce.ConversationID})
	case errors.As(err, &pe):
		log.Info("permission denied", zap.Error(err))
		WriteError(w, http.StatusForbidden, "forbidden", pe.Error())
	case errors.As(err, &ne):
		WriteError(w, http.StatusNotFound, "not_found", ne.Error())
	case errors.As(err, &se):
		log.Warn("storage_error", zap.Error(err))
		if se.Timeout {
			WriteError(w, http.StatusGatewayTimeout, "timeout", "attachment storage timed out")
			return
		}
		WriteError(w, http.StatusBadGateway, "storage_unavailable", "attachment storage failed")
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("internal_error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
