package domain

import "time"

// Paper is a content item aggregated from an external archive. Papers are
// keyed by their archive uid (e.g. "1401.0001"), not a surrogate id.
//
// ScitesCount and CommentsCount are cached aggregates. The invariant is
// strict: ScitesCount equals the number of scite rows for the paper, and
// CommentsCount equals the number of comments with IsLive() == true. Both
// counters change only inside the transaction that changes the underlying
// fact.
type Paper struct {
	UID           string
	Title         string
	Abstract      string
	URL           string
	Pubdate       time.Time
	UpdatedDate   *time.Time
	ScitesCount   int
	CommentsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Author is an element in a paper's ordered author list.
//
// Authors are deliberately not normalized into a paper-independent table:
// no author property or combination of properties reliably identifies a
// unique individual. SearchKey is an approximate grouping key only.
type Author struct {
	ID       int64
	PaperUID string
	Position int
	FullName string
	// SearchKey is derived from FullName via SearchKeyForName. It is empty
	// only when the name normalizes to nothing.
	SearchKey string
}

// Feed is a named content channel. Papers belong to one or more feeds.
type Feed struct {
	UID           string
	Name          string
	LastPaperDate *time.Time
}
