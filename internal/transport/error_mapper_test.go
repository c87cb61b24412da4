package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDomainError(t *testing.T) {
	observability.Log = zap.NewNop()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "validation carries field and values",
			err:    domain.NewValidationError("member_ids", "unknown users", "ghost"),
			status: http.StatusBadRequest,
			code:   "invalid_argument",
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "member_ids", body["field"])
				assert.Equal(t, []interface{}{"ghost"}, body["values"])
				assert.Equal(t, "unknown users", body["message"])
			},
		},
		{
			name:   "conflict carries existing id",
			err:    fmt.Errorf("create: %w", &domain.ConflictError{ConversationID: "c-1"}),
			status: http.StatusConflict,
			code:   "already_exists",
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "c-1", body["existing_conversation_id"])
			},
		},
		{
			name:   "permission",
			err:    domain.NewPermissionError("edit message", domain.ErrNotSender),
			status: http.StatusForbidden,
			code:   "forbidden",
		},
		{
			name:   "not found",
			err:    domain.NewNotFoundError(domain.ResourceMessage, "m-1"),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "storage timeout",
			err:    &domain.StorageError{Op: "store", Timeout: true, Err: context.DeadlineExceeded},
			status: http.StatusGatewayTimeout,
			code:   "timeout",
		},
		{
			name:   "storage failure",
			err:    &domain.StorageError{Op: "store", Err: errors.New("connection refused")},
			status: http.StatusBadGateway,
			code:   "storage_unavailable",
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			DomainError(context.Background(), rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}
