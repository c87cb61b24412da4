package policy

import (
	"testing"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizer_Allowed(t *testing.T) {
	a := NewAuthorizer()

	tests := []struct {
		name     string
		role     string
		resource string
		action   Action
		want     bool
	}{
		{"member views conversation", "member", domain.ResourceConversation, ActionView, true},
		{"member cannot delete conversation", "member", domain.ResourceConversation, ActionDelete, false},
		{"member sends message", "member", domain.ResourceMessage, ActionAdd, true},
		{"admin deletes conversation", "admin", domain.ResourceConversation, ActionDelete, true},
		{"support views messages", RoleSupport, domain.ResourceMessage, ActionView, true},
		{"support cannot delete", RoleSupport, domain.ResourceMessage, ActionDelete, false},
		{"moderator deletes message", RoleModerator, domain.ResourceMessage, ActionDelete, true},
		{"moderator changes member", RoleModerator, domain.ResourceMember, ActionChange, true},
		{"moderator cannot add", RoleModerator, domain.ResourceMember, ActionAdd, false},
		{"analyst views only", RoleAnalyst, domain.ResourceConversation, ActionChange, false},
		{"department admin adds member", RoleDepartmentAdmin, domain.ResourceMember, ActionAdd, true},
		{"department admin cannot delete", RoleDepartmentAdmin, domain.ResourceConversation, ActionDelete, false},
		{"unknown role denied", "guest", domain.ResourceConversation, ActionView, false},
		{"unknown resource denied", "admin", "invoice", ActionView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Allowed(tt.role, tt.resource, tt.action))
		})
	}
}

func TestAuthorizer_AnyAllowed(t *testing.T) {
	a := NewAuthorizer()
	assert.True(t, a.AnyAllowed([]string{"guest", RoleModerator}, domain.ResourceMessage, ActionDelete))
	assert.False(t, a.AnyAllowed(nil, domain.ResourceMessage, ActionView))
}

func TestAuthorizer_StaffAllowed(t *testing.T) {
	a := NewAuthorizer()

	tests := []struct {
		name     string
		roles    []string
		resource string
		action   Action
		want     bool
	}{
		{"support lists conversations", []string{RoleSupport}, domain.ResourceConversation, ActionView, true},
		{"moderator deletes conversation", []string{RoleModerator}, domain.ResourceConversation, ActionDelete, true},
		{"member claim is not staff", []string{"member"}, domain.ResourceConversation, ActionView, false},
		{"admin claim is not staff", []string{"admin"}, domain.ResourceConversation, ActionDelete, false},
		{"admin claim does not widen analyst", []string{"admin", RoleAnalyst}, domain.ResourceMessage, ActionDelete, false},
		{"no roles", nil, domain.ResourceConversation, ActionView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.StaffAllowed(tt.roles, tt.resource, tt.action))
		})
	}
}
