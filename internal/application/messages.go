package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

type EditMessageCommand struct {
	MessageID string
	ActorID   string
	Text      string
}

func (s *Service) EditMessage(ctx context.Context, cmd EditMessageCommand) (*domain.Message, error) {
	var msg *domain.Message

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, cmd.MessageID)
		if err != nil {
			return err
		}
		if err := m.CanEdit(cmd.ActorID); err != nil {
			return domain.NewPermissionError("edit message", err)
		}
		if err := m.Edit(cmd.Text, s.now()); err != nil {
			return err
		}
		if err := s.repo.UpdateMessage(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventMessageUpdated, msg)
	return msg, nil
}

type DeleteMessageCommand struct {
	MessageID string
	ActorID   string
}

// DeleteMessage is allowed for the sender and for admins of the conversation.
func (s *Service) DeleteMessage(ctx context.Context, cmd DeleteMessageCommand) error {
	return s.deleteMessage(ctx, cmd.MessageID, func(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
		if m.CanEdit(cmd.ActorID) == nil {
			return nil
		}
		conv, err := s.repo.GetConversation(ctx, tx, m.ConversationID)
		if err != nil {
			return err
		}
		if err := conv.CanAdminister(cmd.ActorID); err != nil {
			if errors.Is(err, domain.ErrNotAdmin) {
				err = domain.ErrNotSender
			}
			return domain.NewPermissionError("delete message", err)
		}
		return nil
	})
}

func (s *Service) deleteMessage(
	ctx context.Context,
	messageID string,
	authorize func(ctx context.Context, tx *sql.Tx, m *domain.Message) error,
) error {

	var snapshot *domain.Message

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, tx, m); err != nil {
			return err
		}

		attachments, err := s.repo.ListAttachments(ctx, tx, m.ID)
		if err != nil {
			return fmt.Errorf("failed to list attachments: %w", err)
		}
		for _, a := range attachments {
			if err := s.deleteAttachment(ctx, tx, a); err != nil {
				return err
			}
		}
		m.Attachments = attachments

		if err := s.repo.DeleteMessage(ctx, tx, m.ID); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		snapshot = m
		return nil
	})
	if err != nil {
		return err
	}

	observability.GetLogger(ctx).Info("message deleted",
		zap.String("message_id", snapshot.ID),
		zap.String("conversation_id", snapshot.ConversationID),
	)
	s.publish(ctx, domain.EventMessageDeleted, snapshot)
	return nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID, requesterID string) ([]*domain.Message, error) {
	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CanRead(requesterID); err != nil {
		return nil, domain.NewPermissionError("list messages", err)
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
