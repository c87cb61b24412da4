package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

func (s *Service) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	convs, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (s *Service) GetConversation(ctx context.Context, conversationID, requesterID string) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CanRead(requesterID); err != nil {
		return nil, domain.NewPermissionError("view conversation", err)
	}
	return conv, nil
}

type DeleteConversationCommand struct {
	ConversationID string
	ActorID        string
}

func (s *Service) DeleteConversation(ctx context.Context, cmd DeleteConversationCommand) error {
	return s.deleteConversation(ctx, cmd.ConversationID, func(conv *domain.Conversation) error {
		if err := conv.CanAdminister(cmd.ActorID); err != nil {
			return domain.NewPermissionError("delete conversation", err)
		}
		return nil
	})
}

// deleteConversation frees every stored object and removes all rows of the
// conversation in one transaction. authorize runs against the locked row.
func (s *Service) deleteConversation(
	ctx context.Context,
	conversationID string,
	authorize func(conv *domain.Conversation) error,
) error {

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		conv, err := s.repo.GetConversationForUpdate(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if err := authorize(conv); err != nil {
			return err
		}

		attachments, err := s.repo.ListAttachmentsByConversation(ctx, tx, conversationID)
		if err != nil {
			return fmt.Errorf("failed to list attachments: %w", err)
		}
		for _, a := range attachments {
			if err := s.deleteAttachment(ctx, tx, a); err != nil {
				return err
			}
		}

		ids, err := s.repo.ListMessageIDs(ctx, tx, conversationID)
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}
		for _, id := range ids {
			if err := s.repo.DeleteMessage(ctx, tx, id); err != nil {
				return fmt.Errorf("failed to delete message %s: %w", id, err)
			}
		}

		return s.repo.DeleteConversation(ctx, tx, conversationID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, conversationID)
	observability.GetLogger(ctx).Info("conversation deleted", zap.String("conversation_id", conversationID))
	return nil
}

// deleteAttachment removes the stored object, then the record.
func (s *Service) deleteAttachment(ctx context.Context, tx *sql.Tx, a domain.Attachment) error {
	if err := s.storage.Delete(ctx, a.Locator); err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, tx, a.ID); err != nil {
		return fmt.Errorf("failed to delete attachment %s: %w", a.ID, err)
	}
	return nil
}
