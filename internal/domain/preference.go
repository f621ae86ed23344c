package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedPreference holds the two visit watermarks for a (user, feed) pair.
// A nil FeedUID means the user's default home feed.
//
// PreviousLastVisited marks the start of the "new since your last visit"
// window; LastVisited is the most recent visit. The invariant
// PreviousLastVisited <= LastVisited holds at all times: both fields are
// written together in a single atomic update.
type FeedPreference struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	FeedUID             *string
	LastVisited         time.Time
	PreviousLastVisited time.Time
}

// Window is a closed time range of papers to surface as new.
type Window struct {
	Start time.Time
	End   time.Time
}

// AdvanceVisit computes the watermarks after a visit at now, without
// mutating the receiver.
//
// The window start only moves when the visit happens on a different
// calendar day (in loc) than the previous visit: a user who skips several
// days sees everything back to their last real visit, while same-day
// refreshes keep the morning's window instead of shrinking it to "since
// five minutes ago". The trigger is the day boundary, not a fixed duration.
func (p FeedPreference) AdvanceVisit(now time.Time, loc *time.Location) (previous, last time.Time) {
	if SameCalendarDay(p.LastVisited, now, loc) {
		return p.PreviousLastVisited, now
	}
	return p.LastVisited, now
}

// SameCalendarDay reports whether a and b fall on the same calendar date
// when observed in loc.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
