package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdmissionController decides which participation requests take a slot.
//
// Every capacity-affecting sequence (reserve on creation, release on
// cancellation, batch resolution) runs inside Store.WithEventLock, so the
// read-capacity and write-counter steps for one event never interleave and
// the status writes commit together with the counter update. Different
// events are admitted in parallel.
//
// A lost reservation at creation time fails with Conflict; the request is
// never stored as PENDING instead. Cancelling a confirmed request frees its
// slot but does not promote anyone waiting.
type AdmissionController struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewAdmissionController constructs an AdmissionController.
func NewAdmissionController(store repository.Store, logger zerolog.Logger) *AdmissionController {
	return &AdmissionController{
		store:  store,
		logger: logger.With().Str("component", "admission").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *AdmissionController) log(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, &a.logger)
}

func (a *AdmissionController) timestamp() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}

// observe records the outcome of one admission operation.
func observe(op string, start time.Time, err error) {
	metrics.AdmissionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdmissionRefusals.WithLabelValues(op, KindOf(err).String()).Inc()
	}
}

// CreateRequest files a participation request from requesterID to eventID.
// Events that skip moderation confirm immediately by reserving a slot.
func (a *AdmissionController) CreateRequest(ctx context.Context, requesterID, eventID string) (_ *model.ParticipationRequest, err error) {
	defer func(start time.Time) { observe("create", start, err) }(time.Now())

	var created *model.ParticipationRequest
	err = a.store.WithEventLock(ctx, eventID, func(ctx context.Context, tx repository.Store, event *model.Event) error {
		if _, err := tx.Users().GetByID(ctx, requesterID); err != nil {
			return storeError(err, "user %s not found", requesterID)
		}

		_, err := tx.Requests().FindByRequesterAndEvent(ctx, requesterID, eventID)
		switch {
		case err == nil:
			return Conflict("user %s already has an active request for event %s", requesterID, eventID)
		case !errors.Is(err, repository.ErrNotFound):
			return Internal(err, "check duplicate request")
		}

		if event.InitiatorID == requesterID {
			return Conflict("the initiator cannot request participation in their own event")
		}
		if event.State != model.EventPublished {
			return Conflict("event %s is not published", eventID)
		}
		if event.IsFull() {
			return Conflict("participant limit of event %s reached", eventID)
		}

		req := &model.ParticipationRequest{
			ID:          uuid.NewString(),
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      model.StatusPending,
			Created:     a.timestamp(),
		}
		if event.AutoConfirms() {
			if err := tx.Events().ReserveSlot(ctx, eventID); err != nil {
				if errors.Is(err, repository.ErrNoCapacity) {
					return Conflict("participant limit of event %s reached", eventID)
				}
				return Internal(err, "reserve slot")
			}
			req.Status = model.StatusConfirmed
		}

		if err := tx.Requests().Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return Conflict("user %s already has an active request for event %s", requesterID, eventID)
			}
			return Internal(err, "create request")
		}
		created = req
		return nil
	})
	if err != nil {
		err = storeError(err, "event %s not found", eventID)
		a.log(ctx).Debug().Err(err).Str("event_id", eventID).Str("requester_id", requesterID).Msg("participation request refused")
		return nil, err
	}

	metrics.RequestsCreated.WithLabelValues(string(created.Status)).Inc()
	a.log(ctx).Info().
		Str("event_id", eventID).
		Str("request_id", created.ID).
		Str("status", string(created.Status)).
		Msg("participation request created")
	return created, nil
}

// CancelRequest withdraws a request on behalf of its requester. Cancelling
// a confirmed request releases its slot; cancelling an already canceled
// request returns it unchanged.
func (a *AdmissionController) CancelRequest(ctx context.Context, requesterID, requestID string) (_ *model.ParticipationRequest, err error) {
	defer func(start time.Time) { observe("cancel", start, err) }(time.Now())

	req, err := a.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request %s not found", requestID)
	}
	if req.RequesterID != requesterID {
		return nil, Conflict("request %s does not belong to user %s", requestID, requesterID)
	}
	if req.Status == model.StatusCanceled {
		return req, nil
	}

	var (
		result   *model.ParticipationRequest
		previous model.RequestStatus
	)
	err = a.store.WithEventLock(ctx, req.EventID, func(ctx context.Context, tx repository.Store, _ *model.Event) error {
		// Re-read under the lock: a batch resolution may have moved it.
		cur, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return storeError(err, "request %s not found", requestID)
		}
		previous = cur.Status

		switch cur.Status {
		case model.StatusCanceled:
			result = cur
			return nil
		case model.StatusRejected:
			return Conflict("request %s was rejected and cannot be canceled", requestID)
		case model.StatusConfirmed:
			if err := tx.Events().ReleaseSlot(ctx, cur.EventID); err != nil {
				return Internal(err, "release slot")
			}
		}

		cur.Status = model.StatusCanceled
		if err := tx.Requests().Save(ctx, cur); err != nil {
			return Internal(err, "save request")
		}
		result = cur
		return nil
	})
	if err != nil {
		return nil, storeError(err, "event %s not found", req.EventID)
	}

	if previous != model.StatusCanceled {
		metrics.RequestsCanceled.WithLabelValues(string(previous)).Inc()
		a.log(ctx).Info().
			Str("event_id", result.EventID).
			Str("request_id", requestID).
			Str("previous_status", string(previous)).
			Msg("participation request canceled")
	}
	return result, nil
}

// UpdateRequestStatus confirms or rejects pending requests of one event on
// behalf of its initiator.
//
// Confirmation walks the requests in caller order: while slots remain each
// one is confirmed, and once they run out the rest are rejected. The status
// writes and the counter increment commit together.
func (a *AdmissionController) UpdateRequestStatus(
	ctx context.Context,
	initiatorID, eventID string,
	requestIDs []string,
	target model.RequestStatus,
) (_ *model.StatusUpdateResult, err error) {
	defer func(start time.Time) { observe("resolve", start, err) }(time.Now())

	if len(requestIDs) == 0 {
		return nil, BadRequest("request_ids must not be empty")
	}
	ids := dedupe(requestIDs)

	result := &model.StatusUpdateResult{
		Confirmed: []model.ParticipationRequest{},
		Rejected:  []model.ParticipationRequest{},
	}
	err = a.store.WithEventLock(ctx, eventID, func(ctx context.Context, tx repository.Store, event *model.Event) error {
		if event.InitiatorID != initiatorID {
			return Forbidden("user %s is not the initiator of event %s", initiatorID, eventID)
		}

		found, err := tx.Requests().GetByIDs(ctx, ids)
		if err != nil {
			return Internal(err, "load requests")
		}
		byID := make(map[string]model.ParticipationRequest, len(found))
		for _, r := range found {
			byID[r.ID] = r
		}

		reqs := make([]model.ParticipationRequest, 0, len(ids))
		for _, id := range ids {
			r, ok := byID[id]
			if !ok || r.EventID != eventID {
				return NotFound("request %s not found for event %s", id, eventID)
			}
			if r.Status != model.StatusPending {
				return Conflict("request %s is %s; only PENDING requests can be resolved", id, r.Status)
			}
			reqs = append(reqs, r)
		}

		switch target {
		case model.StatusRejected:
			for i := range reqs {
				reqs[i].Status = model.StatusRejected
			}
			result.Rejected = reqs

		case model.StatusConfirmed:
			available := len(reqs)
			if !event.Unlimited() {
				available = event.Remaining()
				if available <= 0 {
					return Conflict("participant limit of event %s reached", eventID)
				}
			}
			for i := range reqs {
				if available > 0 {
					reqs[i].Status = model.StatusConfirmed
					result.Confirmed = append(result.Confirmed, reqs[i])
					available--
				} else {
					reqs[i].Status = model.StatusRejected
					result.Rejected = append(result.Rejected, reqs[i])
				}
			}

		default:
			return BadRequest("status must be CONFIRMED or REJECTED, got %q", target)
		}

		if err := tx.Requests().SaveAll(ctx, reqs); err != nil {
			return Internal(err, "save requests")
		}
		if err := tx.Events().AddConfirmed(ctx, eventID, len(result.Confirmed)); err != nil {
			if errors.Is(err, repository.ErrNoCapacity) {
				return Conflict("participant limit of event %s reached", eventID)
			}
			return Internal(err, "update confirmed counter")
		}
		return nil
	})
	if err != nil {
		err = storeError(err, "event %s not found", eventID)
		a.log(ctx).Debug().Err(err).Str("event_id", eventID).Msg("status update refused")
		return nil, err
	}

	metrics.BatchResolved.WithLabelValues(string(model.StatusConfirmed)).Add(float64(len(result.Confirmed)))
	metrics.BatchResolved.WithLabelValues(string(model.StatusRejected)).Add(float64(len(result.Rejected)))
	a.log(ctx).Info().
		Str("event_id", eventID).
		Int("confirmed", len(result.Confirmed)).
		Int("rejected", len(result.Rejected)).
		Msg("participation requests resolved")
	return result, nil
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func loggerFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}
