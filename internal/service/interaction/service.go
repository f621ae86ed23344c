// Package interaction maintains the interaction ledger: scite facts,
// comments, and the cached counters derived from them.
//
// The one rule every operation follows: a counter changes only on a
// liveness transition, inside the same transaction as the fact change that
// caused it. Operations that do not change liveness never touch counters,
// which is what keeps repeated or out-of-order actions from drifting the
// counts.
package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scitelab/scite-backend/internal/adapter/postgres/modlog"
	"github.com/scitelab/scite-backend/internal/domain"
	"github.com/scitelab/scite-backend/pkg/ctxutil"
)

// Outcome reports what a toggle operation actually did. Already-in-state
// outcomes are successes, not errors: the caller's intent holds either way.
type Outcome string

const (
	OutcomeAdded         Outcome = "added"
	OutcomeAlreadyScited Outcome = "already_scited"
	OutcomeRemoved       Outcome = "removed"
	OutcomeNotScited     Outcome = "not_scited"
)

// SciteRepo is the slice of the scite repository the service needs.
type SciteRepo interface {
	Insert(ctx context.Context, userID uuid.UUID, paperUID string, at time.Time) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID, paperUID string) (bool, error)
}

// CommentRepo is the slice of the comment repository the service needs.
type CommentRepo interface {
	Insert(ctx context.Context, c *domain.Comment) error
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) (paperUID string, becameNonLive bool, err error)
	MarkRestored(ctx context.Context, id uuid.UUID, at time.Time) (paperUID string, becameLive bool, err error)
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool, at time.Time) (paperUID string, livenessChanged bool, err error)
	ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PaperCounters adjusts the cached counters on papers.
type PaperCounters interface {
	AdjustScitesCount(ctx context.Context, uid string, delta int) error
	AdjustCommentsCount(ctx context.Context, uid string, delta int) error
}

// UserCounters adjusts the cached counters on users and flips account status.
type UserCounters interface {
	AdjustScitesCount(ctx context.Context, id uuid.UUID, delta int) error
	SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error
}

// ModLog records moderation actions.
type ModLog interface {
	Insert(ctx context.Context, e modlog.Entry) error
}

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the interaction ledger.
type Service struct {
	txm      TxRunner
	scites   SciteRepo
	comments CommentRepo
	papers   PaperCounters
	users    UserCounters
	mlog     ModLog
	now      func() time.Time
	log      *slog.Logger
}

// New creates an interaction service.
func New(txm TxRunner, scites SciteRepo, comments CommentRepo, papers PaperCounters, users UserCounters, mlog ModLog, log *slog.Logger) *Service {
	return &Service{
		txm:      txm,
		scites:   scites,
		comments: comments,
		papers:   papers,
		users:    users,
		mlog:     mlog,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		log:      log,
	}
}

// Scite records that the user scited the paper. Idempotent: a repeat call
// returns OutcomeAlreadyScited without touching counters. Two concurrent
// calls for the same pair race on the primary key; the loser observes the
// already-scited outcome, never an error.
func (s *Service) Scite(ctx context.Context, userID uuid.UUID, paperUID string) (Outcome, error) {
	outcome := OutcomeAlreadyScited

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		inserted, err := s.scites.Insert(ctx, userID, paperUID, s.now())
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if err := s.papers.AdjustScitesCount(ctx, paperUID, +1); err != nil {
			return err
		}
		if err := s.users.AdjustScitesCount(ctx, userID, +1); err != nil {
			return err
		}

		outcome = OutcomeAdded
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scite %s: %w", paperUID, err)
	}

	return outcome, nil
}

// Unscite removes the user's scite of the paper. Idempotent: unsciting a
// paper that was never scited is OutcomeNotScited, not an error.
func (s *Service) Unscite(ctx context.Context, userID uuid.UUID, paperUID string) (Outcome, error) {
	outcome := OutcomeNotScited

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		removed, err := s.scites.Delete(ctx, userID, paperUID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}

		if err := s.papers.AdjustScitesCount(ctx, paperUID, -1); err != nil {
			return err
		}
		if err := s.users.AdjustScitesCount(ctx, userID, -1); err != nil {
			return err
		}

		outcome = OutcomeRemoved
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unscite %s: %w", paperUID, err)
	}

	return outcome, nil
}

// PostComment creates a live comment on a paper. Blank content fails with
// domain.ErrValidation before anything is written.
//
// Not safely retryable on storage failure: a retry after an ambiguous
// outcome can post twice, as there is no client dedup token.
func (s *Service) PostComment(ctx context.Context, userID uuid.UUID, paperUID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.NewValidationError("content", "must not be blank")
	}

	now := s.now()
	c := &domain.Comment{
		ID:        uuid.New(),
		UserID:    userID,
		PaperUID:  paperUID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Insert(ctx, c); err != nil {
			return err
		}
		return s.papers.AdjustCommentsCount(ctx, paperUID, +1)
	})
	if err != nil {
		return nil, fmt.Errorf("post comment on %s: %w", paperUID, err)
	}

	return c, nil
}

// ModerateDelete soft-deletes a comment. The content stays readable in the
// moderator view; the paper's counter drops only if the comment was live.
// Deleting an already-deleted comment reports changed=false and does
// nothing. The acting moderator must be present in the context.
func (s *Service) ModerateDelete(ctx context.Context, commentID uuid.UUID) (changed bool, err error) {
	return s.moderate(ctx, commentID, modlog.ActionDelete)
}

// ModerateRestore clears a comment's soft-delete flag. The counter rises
// only if the comment becomes live again (a hidden comment stays non-live).
func (s *Service) ModerateRestore(ctx context.Context, commentID uuid.UUID) (changed bool, err error) {
	return s.moderate(ctx, commentID, modlog.ActionRestore)
}

func (s *Service) moderate(ctx context.Context, commentID uuid.UUID, action string) (bool, error) {
	actorID, ok := ctxutil.ActorIDFromCtx(ctx)
	if !ok {
		return false, fmt.Errorf("moderate %s: no actor in context: %w", action, domain.ErrForbidden)
	}

	var changed bool
	now := s.now()

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		var paperUID string
		var transitioned bool
		var err error

		switch action {
		case modlog.ActionDelete:
			paperUID, transitioned, err = s.comments.MarkDeleted(ctx, commentID, now)
		case modlog.ActionRestore:
			paperUID, transitioned, err = s.comments.MarkRestored(ctx, commentID, now)
		default:
			return fmt.Errorf("unknown moderation action %q", action)
		}
		if err != nil {
			return err
		}
		if paperUID == "" {
			// Flag already in the target state.
			return nil
		}
		changed = true

		if transitioned {
			delta := -1
			if action == modlog.ActionRestore {
				delta = +1
			}
			if err := s.papers.AdjustCommentsCount(ctx, paperUID, delta); err != nil {
				return err
			}
		}

		return s.mlog.Insert(ctx, modlog.Entry{
			ID:        uuid.New(),
			ActorID:   actorID,
			Action:    action,
			CommentID: commentID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return false, fmt.Errorf("moderate %s comment %s: %w", action, commentID, err)
	}

	return changed, nil
}

// SetHidden flips a single comment's hidden flag, adjusting the owning
// paper's counter iff the comment's liveness changed.
func (s *Service) SetHidden(ctx context.Context, commentID uuid.UUID, hidden bool) (changed bool, err error) {
	now := s.now()

	err = s.txm.RunInTx(ctx, func(ctx context.Context) error {
		return s.setHiddenInTx(ctx, commentID, hidden, now, &changed)
	})
	if err != nil {
		return false, fmt.Errorf("set hidden on comment %s: %w", commentID, err)
	}

	return changed, nil
}

func (s *Service) setHiddenInTx(ctx context.Context, commentID uuid.UUID, hidden bool, now time.Time, changed *bool) error {
	paperUID, livenessChanged, err := s.comments.SetHidden(ctx, commentID, hidden, now)
	if err != nil {
		return err
	}
	if paperUID == "" {
		return nil
	}
	*changed = true

	if !livenessChanged {
		return nil
	}

	delta := -1
	if !hidden {
		delta = +1
	}
	if err := s.papers.AdjustCommentsCount(ctx, paperUID, delta); err != nil {
		return err
	}

	if actorID, ok := ctxutil.ActorIDFromCtx(ctx); ok {
		action := modlog.ActionHide
		if !hidden {
			action = modlog.ActionUnhide
		}
		return s.mlog.Insert(ctx, modlog.Entry{
			ID:        uuid.New(),
			ActorID:   actorID,
			Action:    action,
			CommentID: commentID,
			CreatedAt: now,
		})
	}

	return nil
}

// SetHiddenForUser flips the hidden flag on all of a user's comments, used
// when an account is marked spam or cleared. Each comment is processed in
// its own transaction: the flag flip and the counter adjustment on its
// paper commit together, so an interruption partway through leaves the
// processed comments and their papers fully consistent and the rest
// untouched. Re-running finishes the job.
func (s *Service) SetHiddenForUser(ctx context.Context, userID uuid.UUID, hidden bool) (changed int, err error) {
	ids, err := s.comments.ListIDsByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("set hidden for user %s: %w", userID, err)
	}

	for _, id := range ids {
		var one bool
		now := s.now()
		err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
			return s.setHiddenInTx(ctx, id, hidden, now, &one)
		})
		if err != nil {
			return changed, fmt.Errorf("set hidden for user %s: comment %s: %w", userID, id, err)
		}
		if one {
			changed++
		}
	}

	s.log.Info("bulk hidden flag applied",
		slog.String("user_id", userID.String()),
		slog.Bool("hidden", hidden),
		slog.Int("changed", changed),
		slog.Int("total", len(ids)),
	)

	return changed, nil
}

// SetSpamStatus marks an account as spam (or clears the mark) and hides or
// reveals all of its comments. The status write and the comment sweep run
// separately: the sweep is restartable (see SetHiddenForUser), so a crash
// between the two is repaired by re-running.
func (s *Service) SetSpamStatus(ctx context.Context, userID uuid.UUID, spam bool) error {
	status := domain.StatusUser
	if spam {
		status = domain.StatusSpam
	}

	if err := s.users.SetAccountStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("set spam status for user %s: %w", userID, err)
	}

	if _, err := s.SetHiddenForUser(ctx, userID, spam); err != nil {
		return err
	}

	return nil
}
