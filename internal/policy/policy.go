package policy

import (
	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
)

type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// Back-office roles, carried in the access token. Conversation roles come from membership.
const (
	RoleSupport         = "messenger_support"
	RoleModerator       = "messenger_moderator"
	RoleAnalyst         = "messenger_analyst"
	RoleDepartmentAdmin = "department_admin"
)

var staffRoles = map[string]struct{}{
	RoleSupport:         {},
	RoleModerator:       {},
	RoleAnalyst:         {},
	RoleDepartmentAdmin: {},
}

// IsStaffRole reports whether role is a back-office role.
func IsStaffRole(role string) bool {
	_, ok := staffRoles[role]
	return ok
}

var allResources = []string{
	domain.ResourceConversation,
	domain.ResourceMessage,
	domain.ResourceAttachment,
	domain.ResourceMember,
}

type grant map[string]map[Action]struct{}

func grantAll(actions ...Action) grant {
	g := make(grant, len(allResources))
	for _, r := range allResources {
		set := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		g[r] = set
	}
	return g
}

// Authorizer answers role/resource/action questions. Anything not granted is denied.
type Authorizer struct {
	grants map[string]grant
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{grants: map[string]grant{
		string(domain.RoleMember): {
			domain.ResourceConversation: {ActionView: {}},
			domain.ResourceMessage:      {ActionView: {}, ActionAdd: {}},
			domain.ResourceAttachment:   {ActionView: {}, ActionAdd: {}},
			domain.ResourceMember:       {ActionView: {}},
		},
		string(domain.RoleAdmin): grantAll(ActionView, ActionAdd, ActionChange, ActionDelete),
		RoleSupport:              grantAll(ActionView),
		RoleModerator:            grantAll(ActionView, ActionDelete, ActionChange),
		RoleAnalyst:              grantAll(ActionView),
		RoleDepartmentAdmin:      grantAll(ActionView, ActionAdd, ActionChange),
	}}
}

func (a *Authorizer) Allowed(role, resource string, action Action) bool {
	g, ok := a.grants[role]
	if !ok {
		return false
	}
	_, ok = g[resource][action]
	return ok
}

// AnyAllowed reports whether at least one of roles grants the action.
func (a *Authorizer) AnyAllowed(roles []string, resource string, action Action) bool {
	for _, r := range roles {
		if a.Allowed(r, resource, action) {
			return true
		}
	}
	return false
}

// StaffAllowed is AnyAllowed restricted to back-office roles. Conversation roles
// such as member or admin only apply inside a conversation and never grant
// system-wide access, whatever a token claims.
func (a *Authorizer) StaffAllowed(roles []string, resource string, action Action) bool {
	for _, r := range roles {
		if IsStaffRole(r) && a.Allowed(r, resource, action) {
			return true
		}
	}
	return false
}
