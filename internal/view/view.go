// Package view holds the JSON shapes shared by the HTTP API and the event stream.
package view

import (
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/mimetypes"
	"github.com/samber/lo"
)

type Attachment struct {
	ID                string    `json:"id"`
	MessageID         string    `json:"message_id"`
	FileName          string    `json:"file_name"`
	FileSize          int64     `json:"file_size"`
	HumanReadableSize string    `json:"human_readable_size"`
	MimeType          string    `json:"mime_type"`
	FileType          string    `json:"file_type"`
	UploadedAt        time.Time `json:"uploaded_at"`
	URL               string    `json:"url,omitempty"`
}

type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Text           string       `json:"text"`
	SentAt         time.Time    `json:"sent_at"`
	EditedAt       *time.Time   `json:"edited_at"`
	IsEdited       bool         `json:"is_edited"`
	Attachments    []Attachment `json:"attachments"`
}

type Member struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Conversation struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Avatar        string    `json:"avatar,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	Members       []Member  `json:"members"`
}

// Event is the frame pushed to connected clients.
type Event struct {
	Type    string  `json:"type"`
	Entity  Message `json:"entity"`
	Message string  `json:"message"`
}

func FromAttachment(a domain.Attachment) Attachment {
	m := mimetypes.Normalize(a.MimeType)
	return Attachment{
		ID:                a.ID,
		MessageID:         a.MessageID,
		FileName:          a.FileName,
		FileSize:          a.FileSize,
		HumanReadableSize: mimetypes.HumanSize(a.FileSize),
		MimeType:          a.MimeType,
		FileType:          string(mimetypes.Classify(m)),
		UploadedAt:        a.UploadedAt,
	}
}

func FromMessage(m *domain.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		SentAt:         m.SentAt,
		EditedAt:       m.EditedAt,
		IsEdited:       m.IsEdited,
		Attachments: lo.Map(m.Attachments, func(a domain.Attachment, _ int) Attachment {
			return FromAttachment(a)
		}),
	}
}

func FromMessages(ms []*domain.Message) []Message {
	return lo.Map(ms, func(m *domain.Message, _ int) Message { return FromMessage(m) })
}

func FromConversation(c *domain.Conversation) Conversation {
	return Conversation{
		ID:            c.ID,
		Type:          string(c.Type),
		Title:         c.Title,
		Avatar:        c.Avatar,
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
		Members: lo.Map(c.Members, func(m domain.Member, _ int) Member {
			return Member{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
		}),
	}
}

func FromConversations(cs []*domain.Conversation) []Conversation {
	return lo.Map(cs, func(c *domain.Conversation, _ int) Conversation { return FromConversation(c) })
}

// FromEvent carries attachment metadata only. Clients fetch URLs on demand.
func FromEvent(ev domain.Event) Event {
	msg := ev.Message
	return Event{
		Type:    string(ev.Type),
		Entity:  FromMessage(&msg),
		Message: ev.Label,
	}
}
