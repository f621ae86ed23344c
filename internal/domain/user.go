package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus controls a user's capabilities and the visibility of their
// content. Marking an account as spam hides all of its comments site-wide.
type AccountStatus string

const (
	StatusUser      AccountStatus = "user"
	StatusModerator AccountStatus = "moderator"
	StatusAdmin     AccountStatus = "admin"
	StatusSpam      AccountStatus = "spam"
)

// Valid reports whether the status is one of the known values.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusUser, StatusModerator, StatusAdmin, StatusSpam:
		return true
	}
	return false
}

// IsModerator reports whether the status grants moderation capabilities.
func (s AccountStatus) IsModerator() bool {
	return s == StatusModerator || s == StatusAdmin
}

// User represents an application user.
//
// ScitesCount is a cached aggregate: it must always equal the number of
// scite rows owned by this user. It is adjusted only inside the same
// transaction as the scite row change itself.
type User struct {
	ID            uuid.UUID
	Email         string
	Username      string
	Name          string
	AccountStatus AccountStatus
	ScitesCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
