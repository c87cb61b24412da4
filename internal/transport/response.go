package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger(context.Background()).Error("failed to encode response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// WriteErrorDetails adds extra fields next to error and message.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	for k, v := range details {
		body[k] = v
	}
	WriteJSON(w, status, body)
}
