package application

import (
	"context"
	"strings"
	"testing"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/policy"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAllConversations(t *testing.T) {
	h := newHarness("alice", "bob", "carol")
	ctx := context.Background()
	groupConversation(t, h)
	_, err := h.svc.CreateConversation(ctx, CreateConversationCommand{CreatorID: "alice", MemberIDs: []string{"bob"}})
	require.NoError(t, err)

	support := Staff{ID: "s1", Roles: []string{policy.RoleSupport}}

	all, err := h.svc.ListAllConversations(ctx, support, repository.ConversationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	private, err := h.svc.ListAllConversations(ctx, support, repository.ConversationFilter{Type: domain.ConversationPrivate})
	require.NoError(t, err)
	require.Len(t, private, 1)
	assert.Equal(t, domain.ConversationPrivate, private[0].Type)

	_, err = h.svc.ListAllConversations(ctx, support, repository.ConversationFilter{Type: "channel"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.ListAllConversations(ctx, Staff{ID: "u1", Roles: []string{"member"}}, repository.ConversationFilter{})
	assert.ErrorIs(t, err, domain.ErrPermission, "conversation roles grant nothing system-wide")

	_, err = h.svc.ListAllConversations(ctx, Staff{ID: "x"}, repository.ConversationFilter{})
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestModerateDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness("alice", "bob", "carol")
	conv := groupConversation(t, h)

	msg, err := h.svc.CreateMessage(ctx, CreateMessageCommand{
		ConversationID: conv.ID,
		SenderID:       "bob",
		Text:           "spam",
		Attachments:    []Upload{{Reader: strings.NewReader("spam"), Name: "spam.txt", ContentType: "text/plain"}},
	})
	require.NoError(t, err)

	analyst := Staff{ID: "a1", Roles: []string{policy.RoleAnalyst}}
	err = h.svc.ModerateDeleteMessage(ctx, analyst, msg.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.Equal(t, 1, h.repo.messageCount())

	moderator := Staff{ID: "m1", Roles: []string{policy.RoleModerator}}
	require.NoError(t, h.svc.ModerateDeleteMessage(ctx, moderator, msg.ID))
	assert.Equal(t, 0, h.repo.messageCount())
	assert.Equal(t, 0, h.store.count())
	assert.Equal(t, domain.EventMessageDeleted, h.bus.types()[len(h.bus.types())-1])

	err = h.svc.ModerateDeleteConversation(ctx, Staff{ID: "d1", Roles: []string{policy.RoleDepartmentAdmin}}, conv.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)

	require.NoError(t, h.svc.ModerateDeleteConversation(ctx, moderator, conv.ID))
	_, err = h.repo.GetConversation(ctx, nil, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModerateDelete_ConversationRolesAreNotStaff(t *testing.T) {
	ctx := context.Background()
	h := newHarness("alice", "bob", "carol", "mallory")
	conv := groupConversation(t, h)

	msg, err := h.svc.CreateMessage(ctx, CreateMessageCommand{ConversationID: conv.ID, SenderID: "bob", Text: "hi"})
	require.NoError(t, err)

	mallory := Staff{ID: "mallory", Roles: []string{"admin", "member"}}

	err = h.svc.ModerateDeleteMessage(ctx, mallory, msg.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.Equal(t, 1, h.repo.messageCount())

	err = h.svc.ModerateDeleteConversation(ctx, mallory, conv.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)
	_, err = h.repo.GetConversation(ctx, nil, conv.ID)
	assert.NoError(t, err)
}
