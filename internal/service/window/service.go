// Package window computes the per-user "new since your last visit" window
// for a feed and advances the visit watermarks.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scitelab/scite-backend/internal/domain"
)

// PreferenceRepo is the slice of the preference repository the service needs.
type PreferenceRepo interface {
	GetOrCreateForUpdate(ctx context.Context, userID uuid.UUID, feedUID *string, now time.Time) (*domain.FeedPreference, error)
	UpdateWatermarks(ctx context.Context, id uuid.UUID, previous, last time.Time) error
}

// PaperLister lists papers inside a window.
type PaperLister interface {
	ListWindow(ctx context.Context, userID uuid.UUID, feedUID *string, start, end time.Time) ([]domain.Paper, error)
}

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service advances visit watermarks and resolves windows to papers.
type Service struct {
	txm   TxRunner
	prefs PreferenceRepo
	paps  PaperLister
	loc   *time.Location
	log   *slog.Logger
}

// New creates a window service. loc defines the calendar-day boundary used
// to decide whether a visit advances the window; it is a fixed deployment
// policy (config window.timezone), never the machine-local zone.
func New(txm TxRunner, prefs PreferenceRepo, paps PaperLister, loc *time.Location, log *slog.Logger) *Service {
	return &Service{txm: txm, prefs: prefs, paps: paps, loc: loc, log: log}
}

// Visit records a visit to a feed (nil feedUID = home feed) at now and
// returns the window of papers to surface as new.
//
// The watermark rules: on the first visit ever the row is created with an
// empty window; a visit on a new calendar day shifts the window start
// forward to the prior visit; a same-day repeat visit only refreshes the
// window end. Both watermarks persist in one atomic write inside one
// transaction; a storage failure leaves the row untouched and is returned
// to the caller.
func (s *Service) Visit(ctx context.Context, userID uuid.UUID, feedUID *string, now time.Time) (domain.Window, error) {
	var w domain.Window

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		pref, err := s.prefs.GetOrCreateForUpdate(ctx, userID, feedUID, now)
		if err != nil {
			return err
		}

		previous, last := pref.AdvanceVisit(now, s.loc)
		if err := s.prefs.UpdateWatermarks(ctx, pref.ID, previous, last); err != nil {
			return err
		}

		w = domain.Window{Start: previous, End: now}
		return nil
	})
	if err != nil {
		return domain.Window{}, fmt.Errorf("visit: %w", err)
	}

	s.log.Debug("visit recorded",
		slog.String("user_id", userID.String()),
		slog.Time("window_start", w.Start),
		slog.Time("window_end", w.End),
	)

	return w, nil
}

// Papers returns the papers inside w for the given feed (nil = home feed,
// i.e. all feeds the user subscribes to), newest first.
func (s *Service) Papers(ctx context.Context, userID uuid.UUID, feedUID *string, w domain.Window) ([]domain.Paper, error) {
	papers, err := s.paps.ListWindow(ctx, userID, feedUID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("window papers: %w", err)
	}
	return papers, nil
}
