package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/policy"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"go.uber.org/zap"
)

var errRoleNotGranted = errors.New("role not granted")

const maxListLimit = 200

// Staff identifies a back-office caller by the roles in its token.
type Staff struct {
	ID    string
	Roles []string
}

func (s *Service) authorize(staff Staff, resource string, action policy.Action) error {
	if !s.authz.StaffAllowed(staff.Roles, resource, action) {
		return domain.NewPermissionError(fmt.Sprintf("%s %s", action, resource), errRoleNotGranted)
	}
	return nil
}

func (s *Service) ListAllConversations(
	ctx context.Context,
	staff Staff,
	filter repository.ConversationFilter,
) ([]*domain.Conversation, error) {

	if err := s.authorize(staff, domain.ResourceConversation, policy.ActionView); err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.NewValidationError("type", "unknown conversation type", string(filter.Type))
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	convs, err := s.repo.ListAllConversations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (s *Service) ModerateDeleteMessage(ctx context.Context, staff Staff, messageID string) error {
	if err := s.authorize(staff, domain.ResourceMessage, policy.ActionDelete); err != nil {
		return err
	}
	observability.GetLogger(ctx).Info("moderator deleting message",
		zap.String("staff_id", staff.ID),
		zap.String("message_id", messageID),
	)
	return s.deleteMessage(ctx, messageID, func(context.Context, *sql.Tx, *domain.Message) error {
		return nil
	})
}

func (s *Service) ModerateDeleteConversation(ctx context.Context, staff Staff, conversationID string) error {
	if err := s.authorize(staff, domain.ResourceConversation, policy.ActionDelete); err != nil {
		return err
	}
	observability.GetLogger(ctx).Info("moderator deleting conversation",
		zap.String("staff_id", staff.ID),
		zap.String("conversation_id", conversationID),
	)
	return s.deleteConversation(ctx, conversationID, func(*domain.Conversation) error {
		return nil
	})
}
