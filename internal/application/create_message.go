package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateMessageCommand struct {
	ConversationID string
	SenderID       string
	Text           string
	Attachments    []Upload
	// Bulk raises the per-file limit for the multi-file upload path.
	Bulk bool
}

func (s *Service) CreateMessage(
	ctx context.Context,
	cmd CreateMessageCommand,
) (*domain.Message, error) {

	log := observability.GetLogger(ctx)

	conv, err := s.repo.GetConversation(ctx, nil, cmd.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CanRead(cmd.SenderID); err != nil {
		return nil, domain.NewPermissionError("send message", err)
	}

	now := s.now()
	msg, err := domain.NewMessage(uuid.NewString(), cmd.ConversationID, cmd.SenderID, cmd.Text, len(cmd.Attachments), now)
	if err != nil {
		return nil, err
	}

	limit := MaxAttachmentSize
	if cmd.Bulk {
		limit = MaxBulkAttachmentSize
	}
	prepared, err := prepare(cmd.Attachments, limit)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeAll(ctx, prepared)
	if err != nil {
		return nil, err
	}
	for _, u := range stored {
		msg.Attachments = append(msg.Attachments, u.attachment(msg.ID, now))
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.CreateMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		for i := range msg.Attachments {
			if err := s.repo.CreateAttachment(ctx, tx, &msg.Attachments[i]); err != nil {
				return fmt.Errorf("failed to insert attachment: %w", err)
			}
		}
		return s.repo.TouchLastMessageAt(ctx, tx, msg.ConversationID, msg.SentAt)
	})
	if err != nil {
		s.cleanup(ctx, stored)
		return nil, err
	}

	observability.MessagesCreatedTotal.Inc()
	log.Info("message created",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
		zap.Int("attachments", len(msg.Attachments)),
	)

	s.publish(ctx, domain.EventMessageCreated, msg)
	return msg, nil
}
