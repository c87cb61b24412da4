package domain

import (
	"fmt"
	"strings"
	"time"
)

type ConversationType string

const (
	ConversationPrivate ConversationType = "private"
	ConversationGroup   ConversationType = "group"
)

func (t ConversationType) Valid() bool {
	return t == ConversationPrivate || t == ConversationGroup
}

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

const (
	MaxInvitees     = 50
	MinGroupInvites = 2
	MaxTitleLength  = 255
)

type Member struct {
	ConversationID string
	UserID         string
	Role           Role
	JoinedAt       time.Time
}

// Conversation Invariants:
// 1. Private: exactly 2 members, at most one per unordered user pair.
// 2. Group: non-empty title, at least one member besides the creator.
// 3. Type never changes after creation.
type Conversation struct {
	ID            string
	Type          ConversationType
	Title         string
	Avatar        string
	CreatedBy     string
	CreatedAt     time.Time
	LastMessageAt time.Time
	Members       []Member
}

func (c *Conversation) Member(userID string) (Member, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

func (c *Conversation) CanRead(userID string) error {
	if _, ok := c.Member(userID); !ok {
		return ErrNotMember
	}
	return nil
}

func (c *Conversation) CanAdminister(userID string) error {
	m, ok := c.Member(userID)
	if !ok {
		return ErrNotMember
	}
	if m.Role != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (c *Conversation) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// PrivateKey is the canonical key for the unordered pair (a, b).
func PrivateKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("private:%s:%s", a, b)
}

// ResolveConversationType infers the type from the invitee count when none was given.
func ResolveConversationType(t ConversationType, invitees int) ConversationType {
	if t != "" {
		return t
	}
	if invitees == 1 {
		return ConversationPrivate
	}
	return ConversationGroup
}

// ValidateNewConversation checks the creation rules that do not need storage.
// invitees must already be de-duplicated.
func ValidateNewConversation(creatorID string, t ConversationType, title string, invitees []string) error {
	if !t.Valid() {
		return NewValidationError("type", "unknown conversation type", string(t))
	}
	if len(invitees) == 0 {
		return NewValidationError("member_ids", "at least one member is required")
	}
	if len(invitees) > MaxInvitees {
		return NewValidationError("member_ids", fmt.Sprintf("at most %d members allowed", MaxInvitees))
	}
	for _, id := range invitees {
		if id == creatorID {
			return NewValidationError("member_ids", "creator must not be listed as a member", id)
		}
	}

	switch t {
	case ConversationPrivate:
		if len(invitees) != 1 {
			return NewValidationError("member_ids", "private conversation requires exactly one member", invitees...)
		}
	case ConversationGroup:
		if strings.TrimSpace(title) == "" {
			return NewValidationError("title", "title is required for group conversations")
		}
		if len(title) > MaxTitleLength {
			return NewValidationError("title", "title too long")
		}
		if len(invitees) < MinGroupInvites {
			return NewValidationError("member_ids", fmt.Sprintf("minimum %d members required", MinGroupInvites))
		}
	}
	return nil
}
