package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
)

// ErrUniqueViolation is returned when an insert hits a uniqueness constraint.
var ErrUniqueViolation = errors.New("unique violation")

// ConversationFilter narrows the back-office listing.
type ConversationFilter struct {
	Type   domain.ConversationType
	Limit  int
	Offset int
}

type Repository interface {
	// Conversations
	CreateConversation(ctx context.Context, tx *sql.Tx, c *domain.Conversation, privateKey *string) error
	GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	GetConversationForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	FindPrivateConversationBetween(ctx context.Context, tx *sql.Tx, userA, userB string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
	ListAllConversations(ctx context.Context, filter ConversationFilter) ([]*domain.Conversation, error)
	TouchLastMessageAt(ctx context.Context, tx *sql.Tx, conversationID string, at time.Time) error
	DeleteConversation(ctx context.Context, tx *sql.Tx, id string) error
	InvalidateConversation(ctx context.Context, id string) error

	// Members
	AddMember(ctx context.Context, tx *sql.Tx, m domain.Member) error
	RemoveMember(ctx context.Context, tx *sql.Tx, conversationID, userID string) error
	ListMembers(ctx context.Context, tx *sql.Tx, conversationID string) ([]domain.Member, error)

	// Messages
	CreateMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error
	GetMessage(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error)
	GetMessageForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error)
	UpdateMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error
	DeleteMessage(ctx context.Context, tx *sql.Tx, id string) error
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	ListMessageIDs(ctx context.Context, tx *sql.Tx, conversationID string) ([]string, error)

	// Attachments
	CreateAttachment(ctx context.Context, tx *sql.Tx, a *domain.Attachment) error
	GetAttachment(ctx context.Context, tx *sql.Tx, id string) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, tx *sql.Tx, messageID string) ([]domain.Attachment, error)
	ListAttachmentsByConversation(ctx context.Context, tx *sql.Tx, conversationID string) ([]domain.Attachment, error)
	DeleteAttachment(ctx context.Context, tx *sql.Tx, id string) error

	// Users
	GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
}
