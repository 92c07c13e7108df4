package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/jackc/pgx/v5"
)

const selectEvent = `SELECT id, initiator_id, category_id, title, annotation, description, event_date,
	lat, lon, paid, participant_limit, request_moderation, confirmed_requests,
	state, created_on, published_on
	FROM events`

// EventRepository handles persistence for events.
type EventRepository struct {
	db querier
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := row.Scan(
		&e.ID, &e.InitiatorID, &e.CategoryID, &e.Title, &e.Annotation, &e.Description, &e.EventDate,
		&e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit, &e.RequestModeration,
		&e.ConfirmedRequests, &state, &e.CreatedOn, &e.PublishedOn,
	)
	if err != nil {
		return nil, mapError(err)
	}
	e.State = model.EventState(state)
	return &e, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, initiator_id, category_id, title, annotation, description,
			event_date, lat, lon, paid, participant_limit, request_moderation,
			confirmed_requests, state, created_on, published_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.InitiatorID, e.CategoryID, e.Title, e.Annotation, e.Description, e.EventDate,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.RequestModeration,
		e.ConfirmedRequests, string(e.State), e.CreatedOn, e.PublishedOn,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", mapError(err))
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, selectEvent+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events matching the filter, newest first.
func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if len(f.InitiatorIDs) > 0 {
		args = append(args, f.InitiatorIDs)
		where = append(where, fmt.Sprintf("initiator_id = ANY($%d::uuid[])", len(args)))
	}
	if len(f.CategoryIDs) > 0 {
		args = append(args, f.CategoryIDs)
		where = append(where, fmt.Sprintf("category_id = ANY($%d::uuid[])", len(args)))
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		args = append(args, states)
		where = append(where, fmt.Sprintf("state = ANY($%d::text[])", len(args)))
	}

	var q strings.Builder
	q.WriteString(selectEvent)
	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY created_on DESC, id")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", mapError(err))
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update writes every mutable column except confirmed_requests.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET title = $2, annotation = $3, description = $4, event_date = $5,
			lat = $6, lon = $7, paid = $8, participant_limit = $9, request_moderation = $10,
			state = $11, published_on = $12, category_id = $13
		 WHERE id = $1`,
		e.ID, e.Title, e.Annotation, e.Description, e.EventDate,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.RequestModeration,
		string(e.State), e.PublishedOn, e.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveSlot is a conditional increment: the WHERE clause re-checks the
// limit against the row's current value, so it can never overshoot even
// without an explicit lock.
func (r *EventRepository) ReserveSlot(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET confirmed_requests = confirmed_requests + 1
		 WHERE id = $1 AND (participant_limit = 0 OR confirmed_requests < participant_limit)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNoCapacity
	}
	return nil
}

// ReleaseSlot decrements the counter, never below zero.
func (r *EventRepository) ReleaseSlot(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET confirmed_requests = GREATEST(confirmed_requests - 1, 0) WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("release slot: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddConfirmed bumps the counter by n. The events_capacity check constraint
// rejects any increment past the limit.
func (r *EventRepository) AddConfirmed(ctx context.Context, id string, n int) error {
	if n == 0 {
		return nil
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET confirmed_requests = confirmed_requests + $2 WHERE id = $1`,
		id, n,
	)
	if err != nil {
		return fmt.Errorf("add confirmed: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
