// Package repository defines persistence contracts for users, categories,
// events and participation requests, with PostgreSQL and in-memory
// implementations.
// It applies no business rules beyond the storage-level backstops.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint rejects a write, such
// as a second active request for the same (event, requester) pair.
var ErrDuplicate = errors.New("duplicate record")

// ErrNoCapacity is returned when a slot reservation finds the event full.
var ErrNoCapacity = errors.New("participant limit reached")

// EventFilter narrows event listings. Empty slices match everything and a
// zero Limit means no limit.
type EventFilter struct {
	InitiatorIDs []string
	CategoryIDs  []string
	States       []model.EventState
	Offset       int
	Limit        int
}

// EventStore persists events. Capacity mutations go through ReserveSlot,
// ReleaseSlot and AddConfirmed only; Update never touches the counter.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter EventFilter) ([]model.Event, error)
	Update(ctx context.Context, event *model.Event) error

	// ReserveSlot atomically increments confirmed_requests when the event is
	// unlimited or below its limit, and returns ErrNoCapacity otherwise.
	ReserveSlot(ctx context.Context, id string) error
	// ReleaseSlot decrements confirmed_requests, floored at zero.
	ReleaseSlot(ctx context.Context, id string) error
	// AddConfirmed adds n newly confirmed requests to the counter.
	AddConfirmed(ctx context.Context, id string, n int) error
}

// RequestStore persists participation requests.
type RequestStore interface {
	Create(ctx context.Context, req *model.ParticipationRequest) error
	GetByID(ctx context.Context, id string) (*model.ParticipationRequest, error)
	// GetByIDs returns the requests found, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]model.ParticipationRequest, error)
	// FindByRequesterAndEvent returns the active (PENDING or CONFIRMED)
	// request for the pair, or ErrNotFound.
	FindByRequesterAndEvent(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error)
	FindAllByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error)
	FindAllByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error)
	// CountConfirmed derives the confirmed count from request rows. It is for
	// reconciliation only; the event counter is authoritative.
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	Save(ctx context.Context, req *model.ParticipationRequest) error
	SaveAll(ctx context.Context, reqs []model.ParticipationRequest) error
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, ids []string, offset, limit int) ([]model.User, error)
	Delete(ctx context.Context, id string) error
}

// CategoryStore persists event categories. Names are unique.
type CategoryStore interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context, offset, limit int) ([]model.Category, error)
}

// EventTxFunc runs inside an event-scoped transaction. tx is bound to that
// transaction and event is the locked row as read at the start.
type EventTxFunc func(ctx context.Context, tx Store, event *model.Event) error

// Store groups the repositories behind one transaction boundary.
type Store interface {
	Users() UserStore
	Categories() CategoryStore
	Events() EventStore
	Requests() RequestStore

	// WithEventLock runs fn holding an exclusive lock on one event. All writes
	// made through tx commit together when fn returns nil and are discarded
	// otherwise. Locks on different events never block each other. It
	// returns ErrNotFound when the event does not exist.
	WithEventLock(ctx context.Context, eventID string, fn EventTxFunc) error
}
