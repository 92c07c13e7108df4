package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// MemoryStore implements Store in process memory for single-instance
// deployments and tests. WithEventLock takes a per-event mutex and stages
// writes, applying them together on success.
type MemoryStore struct {
	data  *memData
	locks *keyedMutex
	tx    *memTx
}

type memData struct {
	mu         sync.RWMutex
	users      map[string]model.User
	categories map[string]model.Category
	events     map[string]model.Event
	requests   map[string]model.ParticipationRequest
}

// memTx holds the writes of one WithEventLock call until it commits.
type memTx struct {
	held     map[string]bool
	events   map[string]model.Event
	requests map[string]model.ParticipationRequest
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			users:      make(map[string]model.User),
			categories: make(map[string]model.Category),
			events:     make(map[string]model.Event),
			requests:   make(map[string]model.ParticipationRequest),
		},
		locks: newKeyedMutex(),
	}
}

func (s *MemoryStore) Users() UserStore           { return &memUsers{s: s} }
func (s *MemoryStore) Categories() CategoryStore { return &memCategories{s: s} }
func (s *MemoryStore) Events() EventStore         { return &memEvents{s: s} }
func (s *MemoryStore) Requests() RequestStore     { return &memRequests{s: s} }

func (s *MemoryStore) WithEventLock(ctx context.Context, eventID string, fn EventTxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.tx != nil {
		if !s.tx.held[eventID] {
			unlock := s.locks.Lock(eventID)
			defer unlock()
			s.tx.held[eventID] = true
			defer delete(s.tx.held, eventID)
		}
		event, ok := s.event(eventID)
		if !ok {
			return fmt.Errorf("lock event: %w", ErrNotFound)
		}
		return fn(ctx, s, &event)
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, ok := s.event(eventID)
	if !ok {
		return fmt.Errorf("lock event: %w", ErrNotFound)
	}

	tx := &memTx{
		held:     map[string]bool{eventID: true},
		events:   make(map[string]model.Event),
		requests: make(map[string]model.ParticipationRequest),
	}
	if err := fn(ctx, &MemoryStore{data: s.data, locks: s.locks, tx: tx}, &event); err != nil {
		return err
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	// A user deleted while fn ran takes their events and requests with them;
	// staged copies of those rows are dropped rather than written back.
	for id, e := range tx.events {
		if _, ok := s.data.users[e.InitiatorID]; ok {
			s.data.events[id] = e
		}
	}
	for id, r := range tx.requests {
		_, eventLeft := s.data.events[r.EventID]
		_, requesterLeft := s.data.users[r.RequesterID]
		if eventLeft && requesterLeft {
			s.data.requests[id] = r
		}
	}
	return nil
}

func (s *MemoryStore) event(id string) (model.Event, bool) {
	if s.tx != nil {
		if e, ok := s.tx.events[id]; ok {
			return e, true
		}
	}
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()
	e, ok := s.data.events[id]
	return e, ok
}

func (s *MemoryStore) request(id string) (model.ParticipationRequest, bool) {
	if s.tx != nil {
		if r, ok := s.tx.requests[id]; ok {
			return r, true
		}
	}
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()
	r, ok := s.data.requests[id]
	return r, ok
}

// mutateEvent applies fn to the current event state atomically and stores
// the result, staged when inside a transaction.
func (s *MemoryStore) mutateEvent(id string, fn func(*model.Event) error) error {
	if s.tx != nil {
		e, ok := s.event(id)
		if !ok {
			return ErrNotFound
		}
		if err := fn(&e); err != nil {
			return err
		}
		s.tx.events[id] = e
		return nil
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	e, ok := s.data.events[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&e); err != nil {
		return err
	}
	s.data.events[id] = e
	return nil
}

// requests returns every request matching keep, overlaying staged writes.
func (s *MemoryStore) requests(keep func(model.ParticipationRequest) bool) []model.ParticipationRequest {
	s.data.mu.RLock()
	merged := make(map[string]model.ParticipationRequest, len(s.data.requests))
	for id, r := range s.data.requests {
		merged[id] = r
	}
	s.data.mu.RUnlock()
	if s.tx != nil {
		for id, r := range s.tx.requests {
			merged[id] = r
		}
	}

	var out []model.ParticipationRequest
	for _, r := range merged {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type memEvents struct{ s *MemoryStore }

func (m *memEvents) Create(_ context.Context, e *model.Event) error {
	if m.s.tx != nil {
		m.s.tx.events[e.ID] = *e
		return nil
	}
	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	if _, ok := m.s.data.events[e.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.s.data.users[e.InitiatorID]; !ok {
		return fmt.Errorf("insert event: %w: initiator %s", ErrNotFound, e.InitiatorID)
	}
	if _, ok := m.s.data.categories[e.CategoryID]; !ok {
		return fmt.Errorf("insert event: %w: category %s", ErrNotFound, e.CategoryID)
	}
	m.s.data.events[e.ID] = *e
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	e, ok := m.s.event(id)
	if !ok {
		return nil, fmt.Errorf("get event: %w", ErrNotFound)
	}
	return &e, nil
}

func (m *memEvents) List(_ context.Context, f EventFilter) ([]model.Event, error) {
	m.s.data.mu.RLock()
	merged := make(map[string]model.Event, len(m.s.data.events))
	for id, e := range m.s.data.events {
		merged[id] = e
	}
	m.s.data.mu.RUnlock()
	if m.s.tx != nil {
		for id, e := range m.s.tx.events {
			merged[id] = e
		}
	}

	var out []model.Event
	for _, e := range merged {
		if len(f.InitiatorIDs) > 0 && !slices.Contains(f.InitiatorIDs, e.InitiatorID) {
			continue
		}
		if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, e.CategoryID) {
			continue
		}
		if len(f.States) > 0 && !slices.Contains(f.States, e.State) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].CreatedOn.After(out[j].CreatedOn)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Offset, f.Limit), nil
}

func (m *memEvents) Update(_ context.Context, e *model.Event) error {
	m.s.data.mu.RLock()
	_, ok := m.s.data.categories[e.CategoryID]
	m.s.data.mu.RUnlock()
	if !ok {
		return fmt.Errorf("update event: %w: category %s", ErrNotFound, e.CategoryID)
	}
	return m.s.mutateEvent(e.ID, func(cur *model.Event) error {
		confirmed := cur.ConfirmedRequests
		*cur = *e
		cur.ConfirmedRequests = confirmed
		return nil
	})
}

func (m *memEvents) ReserveSlot(_ context.Context, id string) error {
	return m.s.mutateEvent(id, func(e *model.Event) error {
		if !e.ReserveSlot() {
			return ErrNoCapacity
		}
		return nil
	})
}

func (m *memEvents) ReleaseSlot(_ context.Context, id string) error {
	return m.s.mutateEvent(id, func(e *model.Event) error {
		e.ReleaseSlot()
		return nil
	})
}

func (m *memEvents) AddConfirmed(_ context.Context, id string, n int) error {
	return m.s.mutateEvent(id, func(e *model.Event) error {
		if !e.Unlimited() && e.ConfirmedRequests+n > e.ParticipantLimit {
			return ErrNoCapacity
		}
		e.ConfirmedRequests += n
		return nil
	})
}

type memRequests struct{ s *MemoryStore }

func (m *memRequests) activeFor(requesterID, eventID string) []model.ParticipationRequest {
	return m.s.requests(func(r model.ParticipationRequest) bool {
		return r.RequesterID == requesterID && r.EventID == eventID && r.Status.Active()
	})
}

func (m *memRequests) Create(_ context.Context, req *model.ParticipationRequest) error {
	if m.s.tx != nil {
		if req.Status.Active() && len(m.activeFor(req.RequesterID, req.EventID)) > 0 {
			return fmt.Errorf("insert request: %w", ErrDuplicate)
		}
		m.s.tx.requests[req.ID] = *req
		return nil
	}

	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	if req.Status.Active() {
		for _, r := range m.s.data.requests {
			if r.RequesterID == req.RequesterID && r.EventID == req.EventID && r.Status.Active() {
				return fmt.Errorf("insert request: %w", ErrDuplicate)
			}
		}
	}
	m.s.data.requests[req.ID] = *req
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id string) (*model.ParticipationRequest, error) {
	r, ok := m.s.request(id)
	if !ok {
		return nil, fmt.Errorf("get request: %w", ErrNotFound)
	}
	return &r, nil
}

func (m *memRequests) GetByIDs(_ context.Context, ids []string) ([]model.ParticipationRequest, error) {
	var out []model.ParticipationRequest
	for _, id := range ids {
		if r, ok := m.s.request(id); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRequests) FindByRequesterAndEvent(_ context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	active := m.activeFor(requesterID, eventID)
	if len(active) == 0 {
		return nil, fmt.Errorf("find request: %w", ErrNotFound)
	}
	return &active[0], nil
}

func (m *memRequests) FindAllByEvent(_ context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return m.s.requests(func(r model.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (m *memRequests) FindAllByRequester(_ context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return m.s.requests(func(r model.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (m *memRequests) CountConfirmed(_ context.Context, eventID string) (int, error) {
	return len(m.s.requests(func(r model.ParticipationRequest) bool {
		return r.EventID == eventID && r.Status == model.StatusConfirmed
	})), nil
}

func (m *memRequests) Save(ctx context.Context, req *model.ParticipationRequest) error {
	return m.SaveAll(ctx, []model.ParticipationRequest{*req})
}

func (m *memRequests) SaveAll(_ context.Context, reqs []model.ParticipationRequest) error {
	for _, req := range reqs {
		if _, ok := m.s.request(req.ID); !ok {
			return fmt.Errorf("save request %s: %w", req.ID, ErrNotFound)
		}
	}
	if m.s.tx != nil {
		for _, req := range reqs {
			m.s.tx.requests[req.ID] = req
		}
		return nil
	}
	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	for _, req := range reqs {
		m.s.data.requests[req.ID] = req
	}
	return nil
}

type memUsers struct{ s *MemoryStore }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	for _, existing := range m.s.data.users {
		if existing.ID == u.ID || existing.Email == u.Email {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
	}
	m.s.data.users[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.data.mu.RLock()
	defer m.s.data.mu.RUnlock()
	u, ok := m.s.data.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return &u, nil
}

func (m *memUsers) List(_ context.Context, ids []string, offset, limit int) ([]model.User, error) {
	m.s.data.mu.RLock()
	var out []model.User
	for _, u := range m.s.data.users {
		if len(ids) == 0 || slices.Contains(ids, u.ID) {
			out = append(out, u)
		}
	}
	m.s.data.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, offset, limit), nil
}

// Delete removes the user and, like the foreign-key cascade in PostgreSQL,
// their events and requests.
func (m *memUsers) Delete(_ context.Context, id string) error {
	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	if _, ok := m.s.data.users[id]; !ok {
		return fmt.Errorf("delete user: %w", ErrNotFound)
	}
	delete(m.s.data.users, id)
	for eid, e := range m.s.data.events {
		if e.InitiatorID == id {
			delete(m.s.data.events, eid)
		}
	}
	for rid, r := range m.s.data.requests {
		_, eventLeft := m.s.data.events[r.EventID]
		if r.RequesterID == id || !eventLeft {
			delete(m.s.data.requests, rid)
		}
	}
	return nil
}

type memCategories struct{ s *MemoryStore }

func (m *memCategories) Create(_ context.Context, c *model.Category) error {
	m.s.data.mu.Lock()
	defer m.s.data.mu.Unlock()
	for _, existing := range m.s.data.categories {
		if existing.ID == c.ID || existing.Name == c.Name {
			return fmt.Errorf("insert category: %w", ErrDuplicate)
		}
	}
	m.s.data.categories[c.ID] = *c
	return nil
}

func (m *memCategories) GetByID(_ context.Context, id string) (*model.Category, error) {
	m.s.data.mu.RLock()
	defer m.s.data.mu.RUnlock()
	c, ok := m.s.data.categories[id]
	if !ok {
		return nil, fmt.Errorf("get category: %w", ErrNotFound)
	}
	return &c, nil
}

func (m *memCategories) List(_ context.Context, offset, limit int) ([]model.Category, error) {
	m.s.data.mu.RLock()
	out := make([]model.Category, 0, len(m.s.data.categories))
	for _, c := range m.s.data.categories {
		out = append(out, c)
	}
	m.s.data.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, offset, limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// keyedMutex hands out one mutex per key and drops it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
