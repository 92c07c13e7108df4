package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// CreateEvent handles POST /users/{userId}/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body model.NewEventRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), userID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListInitiatorEvents handles GET /users/{userId}/events?from=&size=
func (h *Handler) ListInitiatorEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, limit, err := page(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.events.ListInitiatorEvents(r.Context(), userID, offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(events))
}

// GetInitiatorEvent handles GET /users/{userId}/events/{eventId}
func (h *Handler) GetInitiatorEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.GetInitiatorEvent(r.Context(), userID, eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEventByInitiator handles PATCH /users/{userId}/events/{eventId}
func (h *Handler) UpdateEventByInitiator(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body model.UpdateEventUserRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.UpdateByInitiator(r.Context(), userID, eventID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *Handler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	reqs, err := h.events.ListEventRequests(r.Context(), userID, eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reqs))
}

// ListPublishedEvents handles GET /events?from=&size=
func (h *Handler) ListPublishedEvents(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := page(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.events.ListPublished(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.recordHit(r)
	writeJSON(w, http.StatusOK, emptyIfNil(events))
}

// GetPublishedEvent handles GET /events/{eventId}
// Only published events are visible; each successful read counts as a hit.
func (h *Handler) GetPublishedEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.GetPublished(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.recordHit(r)
	writeJSON(w, http.StatusOK, event)
}

// ListEventsForAdmin handles GET /admin/events?users=&states=&categories=&from=&size=
func (h *Handler) ListEventsForAdmin(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := page(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := service.AdminEventFilter{Offset: offset, Limit: limit}
	for _, raw := range listParam(r, "users") {
		id, err := parseUUID("users", raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.InitiatorIDs = append(filter.InitiatorIDs, id)
	}
	for _, raw := range listParam(r, "categories") {
		id, err := parseUUID("categories", raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.CategoryIDs = append(filter.CategoryIDs, id)
	}
	for _, raw := range listParam(r, "states") {
		st, ok := model.ParseEventState(raw)
		if !ok {
			h.writeError(w, r, service.BadRequest("unknown event state %q", raw))
			return
		}
		filter.States = append(filter.States, st)
	}

	events, err := h.events.ListForAdmin(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(events))
}

// UpdateEventByAdmin handles PATCH /admin/events/{eventId}
func (h *Handler) UpdateEventByAdmin(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body model.UpdateEventAdminRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.UpdateByAdmin(r.Context(), eventID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ReconcileEvent handles GET /admin/events/{eventId}/reconcile
func (h *Handler) ReconcileEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.events.Reconcile(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
