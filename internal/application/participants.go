package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"go.uber.org/zap"
)

type AddParticipantCommand struct {
	ConversationID string
	ActorID        string
	UserID         string
	Role           domain.Role
}

func (s *Service) AddParticipant(ctx context.Context, cmd AddParticipantCommand) (*domain.Member, error) {
	role := cmd.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return nil, domain.NewValidationError("role", "unknown role", string(role))
	}

	users, err := s.repo.GetUsers(ctx, []string{cmd.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if _, ok := users[cmd.UserID]; !ok {
		return nil, domain.NewValidationError("user_id", "unknown users", cmd.UserID)
	}

	member := domain.Member{
		ConversationID: cmd.ConversationID,
		UserID:         cmd.UserID,
		Role:           role,
		JoinedAt:       s.now(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		conv, err := s.repo.GetConversationForUpdate(ctx, tx, cmd.ConversationID)
		if err != nil {
			return err
		}
		if err := conv.CanAdminister(cmd.ActorID); err != nil {
			return domain.NewPermissionError("add participant", err)
		}
		if conv.Type != domain.ConversationGroup {
			return domain.NewValidationError("conversation_id", "participants can only be changed in group conversations")
		}
		if _, ok := conv.Member(cmd.UserID); ok {
			return domain.NewValidationError("user_id", "user is already a member", cmd.UserID)
		}
		if len(conv.Members)-1 >= domain.MaxInvitees {
			return domain.NewValidationError("member_ids", fmt.Sprintf("at most %d members allowed", domain.MaxInvitees))
		}
		return s.repo.AddMember(ctx, tx, member)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cmd.ConversationID)
	observability.GetLogger(ctx).Info("participant added",
		zap.String("conversation_id", cmd.ConversationID),
		zap.String("user_id", cmd.UserID),
		zap.String("role", string(role)),
	)
	return &member, nil
}

type RemoveParticipantCommand struct {
	ConversationID string
	ActorID        string
	UserID         string
}

// RemoveParticipant lets an admin remove anyone, and any member leave.
func (s *Service) RemoveParticipant(ctx context.Context, cmd RemoveParticipantCommand) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		conv, err := s.repo.GetConversationForUpdate(ctx, tx, cmd.ConversationID)
		if err != nil {
			return err
		}
		if cmd.ActorID != cmd.UserID {
			if err := conv.CanAdminister(cmd.ActorID); err != nil {
				return domain.NewPermissionError("remove participant", err)
			}
		}
		if conv.Type != domain.ConversationGroup {
			return domain.NewValidationError("conversation_id", "participants can only be changed in group conversations")
		}
		if _, ok := conv.Member(cmd.UserID); !ok {
			return domain.NewNotFoundError(domain.ResourceMember, cmd.UserID)
		}
		return s.repo.RemoveMember(ctx, tx, cmd.ConversationID, cmd.UserID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cmd.ConversationID)
	observability.GetLogger(ctx).Info("participant removed",
		zap.String("conversation_id", cmd.ConversationID),
		zap.String("user_id", cmd.UserID),
	)
	return nil
}

func (s *Service) invalidate(ctx context.Context, conversationID string) {
	if err := s.repo.InvalidateConversation(ctx, conversationID); err != nil {
		observability.GetLogger(ctx).Warn("conversation cache invalidation failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}
