package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// minLeadTime is how far ahead an initiator must schedule an event.
	minLeadTime = 2 * time.Hour
	// minPublishLead is how far ahead of publication an event must start.
	minPublishLead = time.Hour
)

// ViewCounter reports page views per URI from the stats collaborator.
type ViewCounter interface {
	Views(ctx context.Context, uris []string, start, end time.Time, unique bool) (map[string]int64, error)
}

// EventURI is the public path of an event, as recorded by the stats service.
func EventURI(id string) string {
	return "/events/" + id
}

// EventService owns the event lifecycle: creation and edits by initiators,
// moderation by admins, and public reads.
type EventService struct {
	store  repository.Store
	views  ViewCounter
	logger zerolog.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(store repository.Store, views ViewCounter, logger zerolog.Logger) *EventService {
	return &EventService{
		store:  store,
		views:  views,
		logger: logger.With().Str("component", "events").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *EventService) log(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, &s.logger)
}

// CreateEvent registers a new PENDING event for initiatorID.
func (s *EventService) CreateEvent(ctx context.Context, initiatorID string, req model.NewEventRequest) (*model.Event, error) {
	if _, err := s.store.Users().GetByID(ctx, initiatorID); err != nil {
		return nil, storeError(err, "user %s not found", initiatorID)
	}
	categoryID, err := s.category(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	now := s.now().Truncate(time.Microsecond)
	if req.EventDate.Before(now.Add(minLeadTime)) {
		return nil, Conflict("event date must be at least %s from now", minLeadTime)
	}

	event := &model.Event{
		ID:                uuid.NewString(),
		InitiatorID:       initiatorID,
		CategoryID:        categoryID,
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		EventDate:         req.EventDate.UTC(),
		Location:          req.Location,
		Paid:              req.Paid,
		RequestModeration: true,
		State:             model.EventPending,
		CreatedOn:         now,
	}
	if req.ParticipantLimit != nil {
		event.ParticipantLimit = *req.ParticipantLimit
	}
	if req.RequestModeration != nil {
		event.RequestModeration = *req.RequestModeration
	}

	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, storeError(err, "user %s or category %s not found", initiatorID, categoryID)
	}
	s.log(ctx).Info().Str("event_id", event.ID).Str("initiator_id", initiatorID).Msg("event created")
	return event, nil
}

// category resolves a category reference from a request body.
func (s *EventService) category(ctx context.Context, raw string) (string, error) {
	id, err := canonicalID("category", raw)
	if err != nil {
		return "", err
	}
	if _, err := s.store.Categories().GetByID(ctx, id); err != nil {
		return "", storeError(err, "category %s not found", id)
	}
	return id, nil
}

// patchCategory checks the category a patch moves the event to, if any.
func (s *EventService) patchCategory(ctx context.Context, p *model.EventPatch) error {
	if p.Category == nil {
		return nil
	}
	id, err := s.category(ctx, *p.Category)
	if err != nil {
		return err
	}
	p.Category = &id
	return nil
}

// ownEvent loads an event and checks that initiatorID created it.
func (s *EventService) ownEvent(ctx context.Context, initiatorID, eventID string) (*model.Event, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "event %s not found", eventID)
	}
	if event.InitiatorID != initiatorID {
		return nil, Forbidden("user %s is not the initiator of event %s", initiatorID, eventID)
	}
	return event, nil
}

// ListInitiatorEvents pages the events created by initiatorID.
func (s *EventService) ListInitiatorEvents(ctx context.Context, initiatorID string, offset, limit int) ([]model.Event, error) {
	if _, err := s.store.Users().GetByID(ctx, initiatorID); err != nil {
		return nil, storeError(err, "user %s not found", initiatorID)
	}
	events, err := s.store.Events().List(ctx, repository.EventFilter{
		InitiatorIDs: []string{initiatorID},
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		return nil, Internal(err, "list events")
	}
	return events, nil
}

// GetInitiatorEvent returns one of initiatorID's events.
func (s *EventService) GetInitiatorEvent(ctx context.Context, initiatorID, eventID string) (*model.Event, error) {
	return s.ownEvent(ctx, initiatorID, eventID)
}

// ListEventRequests returns every request filed against initiatorID's event.
func (s *EventService) ListEventRequests(ctx context.Context, initiatorID, eventID string) ([]model.ParticipationRequest, error) {
	if _, err := s.ownEvent(ctx, initiatorID, eventID); err != nil {
		return nil, err
	}
	reqs, err := s.store.Requests().FindAllByEvent(ctx, eventID)
	if err != nil {
		return nil, Internal(err, "list requests")
	}
	return reqs, nil
}

// UpdateByInitiator edits an event that is not published. The optional
// state action sends a canceled event back to review or withdraws it.
func (s *EventService) UpdateByInitiator(ctx context.Context, initiatorID, eventID string, req model.UpdateEventUserRequest) (*model.Event, error) {
	if _, err := s.ownEvent(ctx, initiatorID, eventID); err != nil {
		return nil, err
	}
	if err := s.patchCategory(ctx, &req.EventPatch); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.store.WithEventLock(ctx, eventID, func(ctx context.Context, tx repository.Store, event *model.Event) error {
		if !event.EditableByInitiator() {
			return Conflict("only pending or canceled events can be changed")
		}
		if req.EventDate != nil && req.EventDate.Before(s.now().Add(minLeadTime)) {
			return Conflict("event date must be at least %s from now", minLeadTime)
		}
		event.Apply(req.EventPatch)

		switch req.StateAction {
		case model.ActionSendToReview:
			if err := event.SendToReview(); err != nil {
				return Conflict("%s", err.Error())
			}
		case model.ActionCancelReview:
			if err := event.CancelReview(); err != nil {
				return Conflict("%s", err.Error())
			}
		case "":
		default:
			return BadRequest("unknown state action %q", req.StateAction)
		}

		if err := tx.Events().Update(ctx, event); err != nil {
			return Internal(err, "update event")
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, storeError(err, "event %s not found", eventID)
	}
	s.log(ctx).Info().Str("event_id", eventID).Str("state", string(updated.State)).Msg("event updated by initiator")
	return updated, nil
}

// UpdateByAdmin applies moderator edits and the publish/reject transition.
// It holds the event lock so a publication never races an admission check.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID string, req model.UpdateEventAdminRequest) (*model.Event, error) {
	if err := s.patchCategory(ctx, &req.EventPatch); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.store.WithEventLock(ctx, eventID, func(ctx context.Context, tx repository.Store, event *model.Event) error {
		if req.ParticipantLimit != nil && *req.ParticipantLimit != 0 && *req.ParticipantLimit < event.ConfirmedRequests {
			return Conflict("participant limit %d is below the %d confirmed requests", *req.ParticipantLimit, event.ConfirmedRequests)
		}
		event.Apply(req.EventPatch)

		switch req.StateAction {
		case model.ActionPublishEvent:
			if err := event.Publish(s.now().Truncate(time.Microsecond)); err != nil {
				return Conflict("%s", err.Error())
			}
		case model.ActionRejectEvent:
			if err := event.Reject(); err != nil {
				return Conflict("%s", err.Error())
			}
		case "":
		default:
			return BadRequest("unknown state action %q", req.StateAction)
		}

		if event.State == model.EventPublished && event.PublishedOn != nil &&
			event.EventDate.Before(event.PublishedOn.Add(minPublishLead)) {
			return Conflict("event must start at least %s after publication", minPublishLead)
		}

		if err := tx.Events().Update(ctx, event); err != nil {
			return Internal(err, "update event")
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, storeError(err, "event %s not found", eventID)
	}
	s.log(ctx).Info().Str("event_id", eventID).Str("state", string(updated.State)).Msg("event updated by admin")
	return updated, nil
}

// AdminEventFilter narrows the admin event listing.
type AdminEventFilter struct {
	InitiatorIDs []string
	CategoryIDs  []string
	States       []model.EventState
	Offset       int
	Limit        int
}

// ListForAdmin pages events in any state with their view counts.
func (s *EventService) ListForAdmin(ctx context.Context, f AdminEventFilter) ([]model.EventView, error) {
	events, err := s.store.Events().List(ctx, repository.EventFilter{
		InitiatorIDs: f.InitiatorIDs,
		CategoryIDs:  f.CategoryIDs,
		States:       f.States,
		Offset:       f.Offset,
		Limit:        f.Limit,
	})
	if err != nil {
		return nil, Internal(err, "list events")
	}
	return s.withViews(ctx, events), nil
}

// ListPublished pages published events with their view counts.
func (s *EventService) ListPublished(ctx context.Context, offset, limit int) ([]model.EventView, error) {
	events, err := s.store.Events().List(ctx, repository.EventFilter{
		States: []model.EventState{model.EventPublished},
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, Internal(err, "list events")
	}
	return s.withViews(ctx, events), nil
}

// GetPublished returns a published event with its unique view count.
// Unpublished events are reported as not found.
func (s *EventService) GetPublished(ctx context.Context, eventID string) (*model.EventView, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "event %s not found", eventID)
	}
	if event.State != model.EventPublished {
		return nil, NotFound("event %s not found", eventID)
	}
	views := s.withViews(ctx, []model.Event{*event})
	return &views[0], nil
}

// Reconcile compares an event's stored counter with the number of
// CONFIRMED rows. It is a diagnostic and never used to admit requests.
func (s *EventService) Reconcile(ctx context.Context, eventID string) (*model.Reconciliation, error) {
	var rec *model.Reconciliation
	err := s.store.WithEventLock(ctx, eventID, func(ctx context.Context, tx repository.Store, event *model.Event) error {
		derived, err := tx.Requests().CountConfirmed(ctx, eventID)
		if err != nil {
			return Internal(err, "count confirmed")
		}
		rec = &model.Reconciliation{
			EventID:          eventID,
			StoredConfirmed:  event.ConfirmedRequests,
			DerivedConfirmed: derived,
			Consistent:       derived == event.ConfirmedRequests,
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "event %s not found", eventID)
	}
	if !rec.Consistent {
		s.log(ctx).Warn().
			Str("event_id", eventID).
			Int("stored", rec.StoredConfirmed).
			Int("derived", rec.DerivedConfirmed).
			Msg("confirmed counter drift")
	}
	return rec, nil
}

// withViews attaches unique view counts. A failing stats service degrades
// to zero views rather than failing the read.
func (s *EventService) withViews(ctx context.Context, events []model.Event) []model.EventView {
	out := make([]model.EventView, len(events))
	if len(events) == 0 {
		return out
	}

	uris := make([]string, len(events))
	start := s.now()
	for i, e := range events {
		out[i] = model.EventView{Event: e}
		uris[i] = EventURI(e.ID)
		from := e.CreatedOn
		if e.PublishedOn != nil {
			from = *e.PublishedOn
		}
		if from.Before(start) {
			start = from
		}
	}

	counts, err := s.views.Views(ctx, uris, start, s.now(), true)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log(ctx).Warn().Err(err).Int("events", len(events)).Msg("view counts unavailable")
		}
		return out
	}
	for i := range out {
		out[i].Views = counts[uris[i]]
	}
	return out
}
