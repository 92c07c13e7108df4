package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("event category must exist", func(t *testing.T) { testEventCategoryExists(t, newStore(t)) })
	t.Run("event slots", func(t *testing.T) { testEventSlots(t, newStore(t)) })
	t.Run("event list filters", func(t *testing.T) { testEventList(t, newStore(t)) })
	t.Run("requests", func(t *testing.T) { testRequests(t, newStore(t)) })
	t.Run("lock commits together", func(t *testing.T) { testLockCommit(t, newStore(t)) })
	t.Run("lock discards on error", func(t *testing.T) { testLockRollback(t, newStore(t)) })
	t.Run("lock missing event", func(t *testing.T) { testLockMissing(t, newStore(t)) })
	t.Run("concurrent reservations", func(t *testing.T) { testConcurrentReserve(t, newStore(t)) })
}

var clock = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s Store, name string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.NewString(), Name: name, Email: name + "-" + uuid.NewString()[:8] + "@example.com", CreatedAt: clock}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedCategory(t *testing.T, s Store, name string) *model.Category {
	t.Helper()
	c := &model.Category{ID: uuid.NewString(), Name: name}
	require.NoError(t, s.Categories().Create(context.Background(), c))
	return c
}

func seedEvent(t *testing.T, s Store, initiator string, limit int, state model.EventState) *model.Event {
	t.Helper()
	category := seedCategory(t, s, "games-"+uuid.NewString()[:8])
	return seedEventIn(t, s, initiator, category.ID, limit, state)
}

func seedEventIn(t *testing.T, s Store, initiator, categoryID string, limit int, state model.EventState) *model.Event {
	t.Helper()
	clock = clock.Add(time.Second)
	e := &model.Event{
		ID:                uuid.NewString(),
		InitiatorID:       initiator,
		CategoryID:        categoryID,
		Title:             "Board games night",
		Annotation:        "Weekly board games with friends and strangers",
		Description:       "Bring your own games or play ours, snacks provided",
		EventDate:         clock.Add(72 * time.Hour),
		ParticipantLimit:  limit,
		RequestModeration: true,
		State:             state,
		CreatedOn:         clock,
	}
	require.NoError(t, s.Events().Create(context.Background(), e))
	return e
}

func seedRequest(t *testing.T, s Store, eventID, requesterID string, status model.RequestStatus) *model.ParticipationRequest {
	t.Helper()
	clock = clock.Add(time.Second)
	r := &model.ParticipationRequest{ID: uuid.NewString(), EventID: eventID, RequesterID: requesterID, Status: status, Created: clock}
	require.NoError(t, s.Requests().Create(context.Background(), r))
	return r
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ana")

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	dup := &model.User{ID: uuid.NewString(), Name: "other", Email: u.Email, CreatedAt: clock}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), ErrDuplicate)

	_, err = s.Users().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	bo := seedUser(t, s, "bo")
	users, err := s.Users().List(ctx, []string{bo.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bo.ID, users[0].ID)

	require.NoError(t, s.Users().Delete(ctx, bo.ID))
	assert.ErrorIs(t, s.Users().Delete(ctx, bo.ID), ErrNotFound)
}

func testCategories(t *testing.T, s Store) {
	ctx := context.Background()
	music := seedCategory(t, s, "music")
	seedCategory(t, s, "art")

	got, err := s.Categories().GetByID(ctx, music.ID)
	require.NoError(t, err)
	assert.Equal(t, "music", got.Name)

	_, err = s.Categories().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &model.Category{ID: uuid.NewString(), Name: "music"}
	assert.ErrorIs(t, s.Categories().Create(ctx, dup), ErrDuplicate)

	all, err := s.Categories().List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "art", all[0].Name, "ordered by name")

	second, err := s.Categories().List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, music.ID, second[0].ID)
}

func testEventCategoryExists(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")

	orphan := &model.Event{
		ID:          uuid.NewString(),
		InitiatorID: owner.ID,
		CategoryID:  uuid.NewString(),
		Title:       "Nowhere",
		Annotation:  "An event without a category to call home",
		Description: "It should never reach storage because its category is missing",
		EventDate:   clock.Add(72 * time.Hour),
		State:       model.EventPending,
		CreatedOn:   clock,
	}
	assert.ErrorIs(t, s.Events().Create(ctx, orphan), ErrNotFound)

	event := seedEvent(t, s, owner.ID, 0, model.EventPending)
	event.CategoryID = uuid.NewString()
	assert.ErrorIs(t, s.Events().Update(ctx, event), ErrNotFound)
}

func testEventSlots(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	limited := seedEvent(t, s, owner.ID, 2, model.EventPublished)

	require.NoError(t, s.Events().ReserveSlot(ctx, limited.ID))
	require.NoError(t, s.Events().ReserveSlot(ctx, limited.ID))
	assert.ErrorIs(t, s.Events().ReserveSlot(ctx, limited.ID), ErrNoCapacity)

	got, err := s.Events().GetByID(ctx, limited.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConfirmedRequests)

	require.NoError(t, s.Events().ReleaseSlot(ctx, limited.ID))
	require.NoError(t, s.Events().ReleaseSlot(ctx, limited.ID))
	require.NoError(t, s.Events().ReleaseSlot(ctx, limited.ID))
	got, err = s.Events().GetByID(ctx, limited.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConfirmedRequests)

	unlimited := seedEvent(t, s, owner.ID, 0, model.EventPublished)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Events().ReserveSlot(ctx, unlimited.ID))
	}
	require.NoError(t, s.Events().AddConfirmed(ctx, unlimited.ID, 3))
	got, err = s.Events().GetByID(ctx, unlimited.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.ConfirmedRequests)

	assert.ErrorIs(t, s.Events().AddConfirmed(ctx, limited.ID, 3), ErrNoCapacity)
	assert.ErrorIs(t, s.Events().ReserveSlot(ctx, uuid.NewString()), ErrNotFound)

	got.Title = "Renamed"
	got.ConfirmedRequests = 99
	require.NoError(t, s.Events().Update(ctx, got))
	again, err := s.Events().GetByID(ctx, unlimited.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)
	assert.Equal(t, 8, again.ConfirmedRequests, "Update must not touch the counter")
}

func testEventList(t *testing.T, s Store) {
	ctx := context.Background()
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")
	talks := seedCategory(t, s, "talks")
	first := seedEventIn(t, s, a.ID, talks.ID, 0, model.EventPending)
	second := seedEvent(t, s, a.ID, 0, model.EventPublished)
	third := seedEventIn(t, s, b.ID, talks.ID, 0, model.EventPublished)

	all, err := s.Events().List(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")

	byA, err := s.Events().List(ctx, EventFilter{InitiatorIDs: []string{a.ID}})
	require.NoError(t, err)
	assert.Len(t, byA, 2)

	published, err := s.Events().List(ctx, EventFilter{States: []model.EventState{model.EventPublished}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, second.ID, published[0].ID)

	inTalks, err := s.Events().List(ctx, EventFilter{CategoryIDs: []string{talks.ID}})
	require.NoError(t, err)
	require.Len(t, inTalks, 2)
	assert.Equal(t, third.ID, inTalks[0].ID)
	assert.Equal(t, first.ID, inTalks[1].ID)

	pendingOfA, err := s.Events().List(ctx, EventFilter{InitiatorIDs: []string{a.ID}, States: []model.EventState{model.EventPending}})
	require.NoError(t, err)
	require.Len(t, pendingOfA, 1)
	assert.Equal(t, first.ID, pendingOfA[0].ID)
}

func testRequests(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	x := seedUser(t, s, "x")
	y := seedUser(t, s, "y")
	event := seedEvent(t, s, owner.ID, 5, model.EventPublished)

	rx := seedRequest(t, s, event.ID, x.ID, model.StatusPending)
	dup := &model.ParticipationRequest{ID: uuid.NewString(), EventID: event.ID, RequesterID: x.ID, Status: model.StatusPending, Created: clock}
	assert.ErrorIs(t, s.Requests().Create(ctx, dup), ErrDuplicate)

	found, err := s.Requests().FindByRequesterAndEvent(ctx, x.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, rx.ID, found.ID)

	rx.Status = model.StatusCanceled
	require.NoError(t, s.Requests().Save(ctx, rx))
	_, err = s.Requests().FindByRequesterAndEvent(ctx, x.ID, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	again := seedRequest(t, s, event.ID, x.ID, model.StatusPending)
	ry := seedRequest(t, s, event.ID, y.ID, model.StatusPending)

	again.Status = model.StatusConfirmed
	ry.Status = model.StatusConfirmed
	require.NoError(t, s.Requests().SaveAll(ctx, []model.ParticipationRequest{*again, *ry}))

	n, err := s.Requests().CountConfirmed(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	byEvent, err := s.Requests().FindAllByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, byEvent, 3)
	assert.Equal(t, rx.ID, byEvent[0].ID, "oldest first")

	byX, err := s.Requests().FindAllByRequester(ctx, x.ID)
	require.NoError(t, err)
	assert.Len(t, byX, 2)

	some, err := s.Requests().GetByIDs(ctx, []string{ry.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, ry.ID, some[0].ID)

	ghost := model.ParticipationRequest{ID: uuid.NewString(), Status: model.StatusRejected}
	assert.ErrorIs(t, s.Requests().SaveAll(ctx, []model.ParticipationRequest{ghost}), ErrNotFound)
}

func testLockCommit(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	x := seedUser(t, s, "x")
	event := seedEvent(t, s, owner.ID, 3, model.EventPublished)
	r := seedRequest(t, s, event.ID, x.ID, model.StatusPending)

	err := s.WithEventLock(ctx, event.ID, func(ctx context.Context, tx Store, locked *model.Event) error {
		assert.Equal(t, event.ID, locked.ID)
		r.Status = model.StatusConfirmed
		if err := tx.Requests().Save(ctx, r); err != nil {
			return err
		}
		return tx.Events().AddConfirmed(ctx, event.ID, 1)
	})
	require.NoError(t, err)

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfirmedRequests)
	saved, err := s.Requests().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, saved.Status)
}

func testLockRollback(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	x := seedUser(t, s, "x")
	event := seedEvent(t, s, owner.ID, 3, model.EventPublished)
	r := seedRequest(t, s, event.ID, x.ID, model.StatusPending)
	boom := errors.New("boom")

	err := s.WithEventLock(ctx, event.ID, func(ctx context.Context, tx Store, _ *model.Event) error {
		r.Status = model.StatusConfirmed
		require.NoError(t, tx.Requests().Save(ctx, r))
		require.NoError(t, tx.Events().AddConfirmed(ctx, event.ID, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConfirmedRequests)
	saved, err := s.Requests().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, saved.Status)
}

func testLockMissing(t *testing.T, s Store) {
	called := false
	err := s.WithEventLock(context.Background(), uuid.NewString(), func(context.Context, Store, *model.Event) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func testConcurrentReserve(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	event := seedEvent(t, s, owner.ID, 10, model.EventPublished)

	var won atomic.Int32
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			return s.WithEventLock(ctx, event.ID, func(ctx context.Context, tx Store, locked *model.Event) error {
				if locked.IsFull() {
					return nil
				}
				if err := tx.Events().ReserveSlot(ctx, locked.ID); err != nil {
					return err
				}
				won.Add(1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), won.Load())
	assert.Equal(t, 10, got.ConfirmedRequests)
}
