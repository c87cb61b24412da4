package handlers

import (
	"io"
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/application"
	"github.com/SARVESHVARADKAR123/messenger/internal/middleware"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/SARVESHVARADKAR123/messenger/internal/view"
	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	svc Service
}

func NewMessageHandler(svc Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=5000"`
}

// SendMessage POST /api/conversations/{conversationID}/messages
//
// Accepts JSON {"text"} or multipart/form-data with a text field and attachments files.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, false)
}

// SendBulk POST /api/conversations/{conversationID}/messages/bulk
func (h *MessageHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		transport.WriteError(w, http.StatusUnsupportedMediaType, errInvalidBody, "multipart/form-data required")
		return
	}
	h.send(w, r, true)
}

func (h *MessageHandler) send(w http.ResponseWriter, r *http.Request, bulk bool) {
	cmd := application.CreateMessageCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		SenderID:       middleware.UserID(r.Context()),
		Bulk:           bulk,
	}

	if isMultipart(r) {
		limit := application.MaxAttachmentSize
		if bulk {
			limit = application.MaxBulkAttachmentSize
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit*maxFilesPerRequest+maxJSONBody)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			transport.WriteError(w, http.StatusBadRequest, errInvalidBody, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		uploads, closer, err := multipartUploads(r, "attachments")
		if err != nil {
			transport.DomainError(r.Context(), w, err)
			return
		}
		defer closer.Close()

		cmd.Text = r.FormValue("text")
		cmd.Attachments = uploads
	} else {
		var req sendMessageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cmd.Text = req.Text
	}

	msg, err := h.svc.CreateMessage(r.Context(), cmd)
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, view.FromMessage(msg))
}

// ListMessages GET /api/conversations/{conversationID}/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListMessages(r.Context(), chi.URLParam(r, "conversationID"), middleware.UserID(r.Context()))
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": view.FromMessages(msgs),
	})
}

type editMessageRequest struct {
	Text string `json:"text" validate:"max=5000"`
}

// EditMessage PATCH /api/messages/{messageID}
func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var req editMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.svc.EditMessage(r.Context(), application.EditMessageCommand{
		MessageID: chi.URLParam(r, "messageID"),
		ActorID:   middleware.UserID(r.Context()),
		Text:      req.Text,
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, view.FromMessage(msg))
}

// DeleteMessage DELETE /api/messages/{messageID}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteMessage(r.Context(), application.DeleteMessageCommand{
		MessageID: chi.URLParam(r, "messageID"),
		ActorID:   middleware.UserID(r.Context()),
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAttachment POST /api/messages/{messageID}/attachments (multipart field "file")
func (h *MessageHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	h.attach(w, r, false)
}

// AddBulkAttachment POST /api/messages/{messageID}/attachments/bulk
func (h *MessageHandler) AddBulkAttachment(w http.ResponseWriter, r *http.Request) {
	h.attach(w, r, true)
}

func (h *MessageHandler) attach(w http.ResponseWriter, r *http.Request, bulk bool) {
	if !isMultipart(r) {
		transport.WriteError(w, http.StatusUnsupportedMediaType, errInvalidBody, "multipart/form-data required")
		return
	}
	limit := application.MaxAttachmentSize
	if bulk {
		limit = application.MaxBulkAttachmentSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+maxJSONBody)

	f, fh, err := r.FormFile("file")
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, "file is required")
		return
	}
	defer f.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	att, err := h.svc.AddAttachment(r.Context(), application.AddAttachmentCommand{
		MessageID: chi.URLParam(r, "messageID"),
		ActorID:   middleware.UserID(r.Context()),
		Upload: application.Upload{
			Reader:      io.Reader(f),
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		},
		Bulk: bulk,
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, view.FromAttachment(*att))
}

// AttachmentURL GET /api/attachments/{attachmentID}/url?purpose=default|download|preview
func (h *MessageHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.AttachmentURL(r.Context(), application.AttachmentURLQuery{
		AttachmentID: chi.URLParam(r, "attachmentID"),
		RequesterID:  middleware.UserID(r.Context()),
		Purpose:      application.URLPurpose(r.URL.Query().Get("purpose")),
	})
	if err != nil {
		transport.DomainError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"url":        u.URL,
		"expires_at": u.ExpiresAt,
	})
}
