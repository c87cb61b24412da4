package domain

import (
	"strings"
	"time"
)

// User is owned by the identity provider. The engine only reads it.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Avatar    string
	Status    string
	LastSeen  *time.Time
}

// DisplayName is the full name when present, else the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full != "" {
		return full
	}
	return u.Username
}
