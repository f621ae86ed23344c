package interaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scitelab/scite-backend/internal/adapter/postgres/modlog"
	"github.com/scitelab/scite-backend/internal/domain"
	"github.com/scitelab/scite-backend/pkg/ctxutil"
)

// fakeTx runs the function directly and counts invocations.
type fakeTx struct {
	calls int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeScites struct {
	set map[string]bool
}

func sciteKey(userID uuid.UUID, paperUID string) string {
	return userID.String() + "/" + paperUID
}

func (f *fakeScites) Insert(_ context.Context, userID uuid.UUID, paperUID string, _ time.Time) (bool, error) {
	k := sciteKey(userID, paperUID)
	if f.set[k] {
		return false, nil
	}
	f.set[k] = true
	return true, nil
}

func (f *fakeScites) Delete(_ context.Context, userID uuid.UUID, paperUID string) (bool, error) {
	k := sciteKey(userID, paperUID)
	if !f.set[k] {
		return false, nil
	}
	delete(f.set, k)
	return true, nil
}

type fakeComments struct {
	byID map[uuid.UUID]*domain.Comment
}

func (f *fakeComments) Insert(_ context.Context, c *domain.Comment) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeComments) MarkDeleted(_ context.Context, id uuid.UUID, _ time.Time) (string, bool, error) {
	c, ok := f.byID[id]
	if !ok {
		return "", false, domain.ErrNotFound
	}
	if c.Deleted {
		return "", false, nil
	}
	c.Deleted = true
	return c.PaperUID, !c.Hidden, nil
}

func (f *fakeComments) MarkRestored(_ context.Context, id uuid.UUID, _ time.Time) (string, bool, error) {
	c, ok := f.byID[id]
	if !ok {
		return "", false, domain.ErrNotFound
	}
	if !c.Deleted {
		return "", false, nil
	}
	c.Deleted = false
	return c.PaperUID, !c.Hidden, nil
}

func (f *fakeComments) SetHidden(_ context.Context, id uuid.UUID, hidden bool, _ time.Time) (string, bool, error) {
	c, ok := f.byID[id]
	if !ok {
		return "", false, domain.ErrNotFound
	}
	if c.Hidden == hidden {
		return "", false, nil
	}
	c.Hidden = hidden
	return c.PaperUID, !c.Deleted, nil
}

func (f *fakeComments) ListIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, c := range f.byID {
		if c.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakePapers struct {
	scites   map[string]int
	comments map[string]int
	failOn   string
}

func (f *fakePapers) AdjustScitesCount(_ context.Context, uid string, delta int) error {
	if f.failOn == uid {
		return errors.New("storage down")
	}
	f.scites[uid] += delta
	return nil
}

func (f *fakePapers) AdjustCommentsCount(_ context.Context, uid string, delta int) error {
	if f.failOn == uid {
		return errors.New("storage down")
	}
	f.comments[uid] += delta
	return nil
}

type fakeUsers struct {
	scites   map[uuid.UUID]int
	statuses map[uuid.UUID]domain.AccountStatus
}

func (f *fakeUsers) AdjustScitesCount(_ context.Context, id uuid.UUID, delta int) error {
	f.scites[id] += delta
	return nil
}

func (f *fakeUsers) SetAccountStatus(_ context.Context, id uuid.UUID, status domain.AccountStatus) error {
	f.statuses[id] = status
	return nil
}

type fakeModLog struct {
	entries []modlog.Entry
}

func (f *fakeModLog) Insert(_ context.Context, e modlog.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fixture struct {
	svc      *Service
	tx       *fakeTx
	scites   *fakeScites
	comments *fakeComments
	papers   *fakePapers
	users    *fakeUsers
	mlog     *fakeModLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tx:       &fakeTx{},
		scites:   &fakeScites{set: map[string]bool{}},
		comments: &fakeComments{byID: map[uuid.UUID]*domain.Comment{}},
		papers:   &fakePapers{scites: map[string]int{}, comments: map[string]int{}},
		users:    &fakeUsers{scites: map[uuid.UUID]int{}, statuses: map[uuid.UUID]domain.AccountStatus{}},
		mlog:     &fakeModLog{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = New(f.tx, f.scites, f.comments, f.papers, f.users, f.mlog, log)
	return f
}

func (f *fixture) addComment(userID uuid.UUID, paperUID string, deleted, hidden bool) uuid.UUID {
	id := uuid.New()
	f.comments.byID[id] = &domain.Comment{
		ID:       id,
		UserID:   userID,
		PaperUID: paperUID,
		Content:  "text",
		Deleted:  deleted,
		Hidden:   hidden,
	}
	if !deleted && !hidden {
		f.papers.comments[paperUID]++
	}
	return id
}

func TestScite_ThenRepeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	out, err := f.svc.Scite(ctx, userID, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, out)
	assert.Equal(t, 1, f.papers.scites["2301.00001"])
	assert.Equal(t, 1, f.users.scites[userID])

	out, err = f.svc.Scite(ctx, userID, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyScited, out)
	assert.Equal(t, 1, f.papers.scites["2301.00001"], "repeat must not touch counters")
	assert.Equal(t, 1, f.users.scites[userID])
}

func TestUnscite_ThenRepeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.Scite(ctx, userID, "2301.00001")
	require.NoError(t, err)

	out, err := f.svc.Unscite(ctx, userID, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, out)
	assert.Equal(t, 0, f.papers.scites["2301.00001"])
	assert.Equal(t, 0, f.users.scites[userID])

	out, err = f.svc.Unscite(ctx, userID, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotScited, out)
	assert.Equal(t, 0, f.papers.scites["2301.00001"])
}

func TestScite_ChurnNetZero(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Scite(ctx, userID, "2301.00001")
		require.NoError(t, err)
		_, err = f.svc.Unscite(ctx, userID, "2301.00001")
		require.NoError(t, err)
	}

	assert.Equal(t, 0, f.papers.scites["2301.00001"])
	assert.Equal(t, 0, f.users.scites[userID])
}

func TestScite_CounterFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.papers.failOn = "2301.00001"

	_, err := f.svc.Scite(context.Background(), uuid.New(), "2301.00001")
	require.Error(t, err)
}

func TestPostComment_Blank(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.PostComment(context.Background(), uuid.New(), "2301.00001", content)
		assert.ErrorIs(t, err, domain.ErrValidation, "content %q", content)
	}
	assert.Equal(t, 0, f.tx.calls, "validation must reject before any write")
}

func TestPostComment_IncrementsCounter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()

	c, err := f.svc.PostComment(context.Background(), userID, "2301.00001", "nice result")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, userID, c.UserID)
	assert.True(t, c.IsLive())
	assert.Equal(t, 1, f.papers.comments["2301.00001"])

	stored, ok := f.comments.byID[c.ID]
	require.True(t, ok)
	assert.Equal(t, "nice result", stored.Content)
}

func TestModerateDelete_RequiresActor(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.addComment(uuid.New(), "2301.00001", false, false)

	_, err := f.svc.ModerateDelete(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, f.mlog.entries)
}

func TestModerateDelete_LiveComment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	moderator := uuid.New()
	ctx := ctxutil.WithActorID(context.Background(), moderator)
	id := f.addComment(uuid.New(), "2301.00001", false, false)

	changed, err := f.svc.ModerateDelete(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, f.papers.comments["2301.00001"])

	require.Len(t, f.mlog.entries, 1)
	assert.Equal(t, modlog.ActionDelete, f.mlog.entries[0].Action)
	assert.Equal(t, moderator, f.mlog.entries[0].ActorID)
	assert.Equal(t, id, f.mlog.entries[0].CommentID)
}

func TestModerateDelete_AlreadyDeleted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := ctxutil.WithActorID(context.Background(), uuid.New())
	id := f.addComment(uuid.New(), "2301.00001", true, false)

	changed, err := f.svc.ModerateDelete(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, f.papers.comments["2301.00001"])
	assert.Empty(t, f.mlog.entries, "no-op must not be logged")
}

func TestModerateDelete_Missing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := ctxutil.WithActorID(context.Background(), uuid.New())

	_, err := f.svc.ModerateDelete(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModerateRestore_HiddenStaysNonLive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := ctxutil.WithActorID(context.Background(), uuid.New())
	id := f.addComment(uuid.New(), "2301.00001", true, true)

	changed, err := f.svc.ModerateRestore(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, f.papers.comments["2301.00001"], "restore of a hidden comment must not raise the counter")
	require.Len(t, f.mlog.entries, 1)
	assert.Equal(t, modlog.ActionRestore, f.mlog.entries[0].Action)
}

func TestModerateRestore_LiveAgain(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := ctxutil.WithActorID(context.Background(), uuid.New())
	id := f.addComment(uuid.New(), "2301.00001", true, false)

	changed, err := f.svc.ModerateRestore(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, f.papers.comments["2301.00001"])
}

func TestSetHidden_DeletedCommentNoCounterChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.addComment(uuid.New(), "2301.00001", true, false)

	changed, err := f.svc.SetHidden(context.Background(), id, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, f.papers.comments["2301.00001"])
}

func TestSetHiddenForUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	spammer := uuid.New()
	other := uuid.New()

	f.addComment(spammer, "2301.00001", false, false)
	f.addComment(spammer, "2301.00002", false, false)
	f.addComment(spammer, "2301.00001", false, true) // already hidden
	f.addComment(other, "2301.00001", false, false)

	changed, err := f.svc.SetHiddenForUser(ctx, spammer, true)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 3, f.tx.calls, "one transaction per comment")

	assert.Equal(t, 1, f.papers.comments["2301.00001"], "only the other user's comment remains live")
	assert.Equal(t, 0, f.papers.comments["2301.00002"])

	// Sweep is idempotent.
	changed, err = f.svc.SetHiddenForUser(ctx, spammer, true)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 1, f.papers.comments["2301.00001"])
}

func TestSetHiddenForUser_Unhide(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	f.addComment(userID, "2301.00001", false, true)
	f.addComment(userID, "2301.00002", true, true) // deleted stays non-live

	changed, err := f.svc.SetHiddenForUser(ctx, userID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 1, f.papers.comments["2301.00001"])
	assert.Equal(t, 0, f.papers.comments["2301.00002"])
}

func TestSetSpamStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.addComment(userID, "2301.00001", false, false)

	require.NoError(t, f.svc.SetSpamStatus(ctx, userID, true))
	assert.Equal(t, domain.StatusSpam, f.users.statuses[userID])
	assert.Equal(t, 0, f.papers.comments["2301.00001"])

	require.NoError(t, f.svc.SetSpamStatus(ctx, userID, false))
	assert.Equal(t, domain.StatusUser, f.users.statuses[userID])
	assert.Equal(t, 1, f.papers.comments["2301.00001"])
}
