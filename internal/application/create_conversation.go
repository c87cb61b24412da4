package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type CreateConversationCommand struct {
	CreatorID string
	Type      domain.ConversationType
	Title     string
	Avatar    string
	MemberIDs []string
}

func (s *Service) CreateConversation(
	ctx context.Context,
	cmd CreateConversationCommand,
) (*domain.Conversation, error) {

	log := observability.GetLogger(ctx)

	invitees := lo.Compact(lo.Uniq(lo.Map(cmd.MemberIDs, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))

	convType := domain.ResolveConversationType(cmd.Type, len(invitees))
	if err := domain.ValidateNewConversation(cmd.CreatorID, convType, cmd.Title, invitees); err != nil {
		return nil, err
	}

	users, err := s.repo.GetUsers(ctx, invitees)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	missing := lo.Filter(invitees, func(id string, _ int) bool {
		_, ok := users[id]
		return !ok
	})
	if len(missing) > 0 {
		return nil, domain.NewValidationError("member_ids", "unknown users", missing...)
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:            uuid.NewString(),
		Type:          convType,
		Title:         strings.TrimSpace(cmd.Title),
		Avatar:        cmd.Avatar,
		CreatedBy:     cmd.CreatorID,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	conv.Members = append(conv.Members, domain.Member{
		ConversationID: conv.ID,
		UserID:         cmd.CreatorID,
		Role:           domain.RoleAdmin,
		JoinedAt:       now,
	})
	for _, id := range invitees {
		conv.Members = append(conv.Members, domain.Member{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           domain.RoleMember,
			JoinedAt:       now,
		})
	}

	var privateKey *string
	if convType == domain.ConversationPrivate {
		key := domain.PrivateKey(cmd.CreatorID, invitees[0])
		privateKey = &key
		// Private chats never carry a chosen title.
		conv.Title = users[invitees[0]].DisplayName()
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if privateKey != nil {
			existing, err := s.repo.FindPrivateConversationBetween(ctx, tx, cmd.CreatorID, invitees[0])
			switch {
			case err == nil:
				return &domain.ConflictError{ConversationID: existing.ID}
			case !errors.Is(err, domain.ErrNotFound):
				return fmt.Errorf("failed to look up private conversation: %w", err)
			}
		}

		if err := s.repo.CreateConversation(ctx, tx, conv, privateKey); err != nil {
			return err
		}
		for _, m := range conv.Members {
			if err := s.repo.AddMember(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to add member %s: %w", m.UserID, err)
			}
		}
		return nil
	})

	if errors.Is(err, repository.ErrUniqueViolation) && privateKey != nil {
		// lost the race against a concurrent create for the same pair
		existing, ferr := s.repo.FindPrivateConversationBetween(ctx, nil, cmd.CreatorID, invitees[0])
		if ferr != nil {
			return nil, fmt.Errorf("failed to refetch private conversation: %w", ferr)
		}
		return nil, &domain.ConflictError{ConversationID: existing.ID}
	}
	if err != nil {
		return nil, err
	}

	observability.ConversationsCreatedTotal.WithLabelValues(string(convType)).Inc()
	log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("type", string(convType)),
		zap.Int("members", len(conv.Members)),
	)

	return conv, nil
}
