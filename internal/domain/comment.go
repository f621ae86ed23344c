package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment belongs to one user and one paper.
//
// Deleted and Hidden are independent flags: Deleted is a moderator
// soft-delete (content retained for the moderator view), Hidden is set when
// the author's account is marked as spam. A comment counts toward its
// paper's CommentsCount iff both flags are false; that predicate lives in
// IsLive and nowhere else.
type Comment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PaperUID  string
	Content   string
	Deleted   bool
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLive reports whether the comment counts toward its paper's comment
// counter and is visible in regular views.
func (c *Comment) IsLive() bool {
	return !c.Deleted && !c.Hidden
}

// Scite is a fact: the user marked the paper. At most one row exists per
// (user, paper) pair, enforced by the storage layer's primary key.
type Scite struct {
	UserID    uuid.UUID
	PaperUID  string
	CreatedAt time.Time
}
