package domain

import (
	"strings"
	"time"
)

const MaxMessageSize = 5000

// Message Invariants:
// 1. Text may be empty only when at least one attachment exists.
// 2. SentAt never changes. IsEdited never goes back to false.
// 3. EditedAt, when set, is not before SentAt.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	SentAt         time.Time
	EditedAt       *time.Time
	IsEdited       bool
	Attachments    []Attachment
}

type Attachment struct {
	ID         string
	MessageID  string
	Locator    string
	FileName   string
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
}

func NewMessage(id, conversationID, senderID, text string, attachments int, now time.Time) (*Message, error) {
	if id == "" || conversationID == "" || senderID == "" {
		return nil, NewValidationError("message", "missing identifiers")
	}
	if strings.TrimSpace(text) == "" && attachments == 0 {
		return nil, NewValidationError("text", ErrEmptyMessage.Error())
	}
	if len(text) > MaxMessageSize {
		return nil, NewValidationError("text", ErrMessageTooLarge.Error())
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		SentAt:         now,
	}, nil
}

func (m *Message) CanEdit(userID string) error {
	if m.SenderID != userID {
		return ErrNotSender
	}
	return nil
}

// Edit replaces the text and marks the message edited.
func (m *Message) Edit(text string, now time.Time) error {
	if strings.TrimSpace(text) == "" && len(m.Attachments) == 0 {
		return NewValidationError("text", ErrEmptyMessage.Error())
	}
	if len(text) > MaxMessageSize {
		return NewValidationError("text", ErrMessageTooLarge.Error())
	}
	if now.Before(m.SentAt) {
		now = m.SentAt
	}
	m.Text = text
	m.IsEdited = true
	m.EditedAt = &now
	return nil
}

// Snapshot returns a copy that does not share the attachment slice.
func (m *Message) Snapshot() Message {
	cp := *m
	cp.Attachments = append([]Attachment(nil), m.Attachments...)
	if m.EditedAt != nil {
		t := *m.EditedAt
		cp.EditedAt = &t
	}
	return cp
}
