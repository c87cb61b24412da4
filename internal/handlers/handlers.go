package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/SARVESHVARADKAR123/messenger/internal/application"
	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/go-playground/validator/v10"
)

const (
	errInvalidBody = "invalid_body"
	msgInvalidJSON = "invalid json"

	maxJSONBody        = 1 << 20
	maxFilesPerRequest = 10
	multipartMemory    = 32 << 20
)

// Service is the part of the application layer the HTTP API drives.
type Service interface {
	CreateConversation(ctx context.Context, cmd application.CreateConversationCommand) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
	GetConversation(ctx context.Context, conversationID, requesterID string) (*domain.Conversation, error)
	DeleteConversation(ctx context.Context, cmd application.DeleteConversationCommand) error
	AddParticipant(ctx context.Context, cmd application.AddParticipantCommand) (*domain.Member, error)
	RemoveParticipant(ctx context.Context, cmd application.RemoveParticipantCommand) error

	CreateMessage(ctx context.Context, cmd application.CreateMessageCommand) (*domain.Message, error)
	EditMessage(ctx context.Context, cmd application.EditMessageCommand) (*domain.Message, error)
	DeleteMessage(ctx context.Context, cmd application.DeleteMessageCommand) error
	ListMessages(ctx context.Context, conversationID, requesterID string) ([]*domain.Message, error)

	AddAttachment(ctx context.Context, cmd application.AddAttachmentCommand) (*domain.Attachment, error)
	AttachmentURL(ctx context.Context, q application.AttachmentURLQuery) (*application.AttachmentURL, error)

	ListAllConversations(ctx context.Context, staff application.Staff, filter repository.ConversationFilter) ([]*domain.Conversation, error)
	ModerateDeleteMessage(ctx context.Context, staff application.Staff, messageID string) error
	ModerateDeleteConversation(ctx context.Context, staff application.Staff, conversationID string) error
}

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads and validates a request body. It writes the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	fe := verrs[0]
	transport.WriteErrorDetails(w, http.StatusBadRequest, "invalid_argument",
		fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		map[string]interface{}{"field": fe.Field()})
}

// multipartUploads collects the files under field. The returned closer releases them.
func multipartUploads(r *http.Request, field string) ([]application.Upload, io.Closer, error) {
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return nil, closers(nil), nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) > maxFilesPerRequest {
		return nil, nil, domain.NewValidationError(field, fmt.Sprintf("at most %d files per request", maxFilesPerRequest))
	}

	var (
		uploads = make([]application.Upload, 0, len(headers))
		opened  closers
	)
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			opened.Close()
			return nil, nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, application.Upload{
			Reader:      f,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}
	return uploads, opened, nil
}

type closers []multipart.File

func (c closers) Close() error {
	for _, f := range c {
		_ = f.Close()
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
