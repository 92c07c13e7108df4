package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/jackc/pgx/v5"
)

const selectRequest = `SELECT id, event_id, requester_id, status, created FROM participation_requests`

// RequestRepository handles persistence for participation requests.
type RequestRepository struct {
	db querier
}

func scanRequest(row pgx.Row) (*model.ParticipationRequest, error) {
	var (
		req    model.ParticipationRequest
		status string
	)
	if err := row.Scan(&req.ID, &req.EventID, &req.RequesterID, &status, &req.Created); err != nil {
		return nil, mapError(err)
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}

func (r *RequestRepository) list(ctx context.Context, query string, args ...any) ([]model.ParticipationRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", mapError(err))
	}
	defer rows.Close()

	var reqs []model.ParticipationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// Create inserts a request. The partial unique index on active rows turns a
// concurrent duplicate into ErrDuplicate.
func (r *RequestRepository) Create(ctx context.Context, req *model.ParticipationRequest) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO participation_requests (id, event_id, requester_id, status, created)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.EventID, req.RequesterID, string(req.Status), req.Created,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", mapError(err))
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*model.ParticipationRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, selectRequest+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (r *RequestRepository) GetByIDs(ctx context.Context, ids []string) ([]model.ParticipationRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, selectRequest+` WHERE id = ANY($1::uuid[])`, ids)
}

func (r *RequestRepository) FindByRequesterAndEvent(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx,
		selectRequest+` WHERE requester_id = $1 AND event_id = $2 AND status IN ('PENDING', 'CONFIRMED')`,
		requesterID, eventID,
	))
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return req, nil
}

func (r *RequestRepository) FindAllByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return r.list(ctx, selectRequest+` WHERE event_id = $1 ORDER BY created, id`, eventID)
}

func (r *RequestRepository) FindAllByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return r.list(ctx, selectRequest+` WHERE requester_id = $1 ORDER BY created, id`, requesterID)
}

func (r *RequestRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM participation_requests WHERE event_id = $1 AND status = 'CONFIRMED'`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", mapError(err))
	}
	return n, nil
}

// Save updates the status of one request.
func (r *RequestRepository) Save(ctx context.Context, req *model.ParticipationRequest) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE participation_requests SET status = $2 WHERE id = $1`,
		req.ID, string(req.Status),
	)
	if err != nil {
		return fmt.Errorf("save request: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAll updates statuses in a single round trip.
func (r *RequestRepository) SaveAll(ctx context.Context, reqs []model.ParticipationRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, req := range reqs {
		batch.Queue(`UPDATE participation_requests SET status = $2 WHERE id = $1`, req.ID, string(req.Status))
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, req := range reqs {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("save request %s: %w", req.ID, mapError(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("save request %s: %w", req.ID, ErrNotFound)
		}
	}
	return nil
}
