package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// CreateRequest handles POST /users/{userId}/requests?eventId=
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	eventID, err := queryID(r, "eventId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req, err := h.requests.Create(r.Context(), userID, eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListOwnRequests handles GET /users/{userId}/requests
func (h *Handler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	reqs, err := h.requests.ListOwn(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reqs))
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req, err := h.requests.Cancel(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// UpdateRequestStatus handles PATCH /users/{userId}/events/{eventId}/requests
// The initiator confirms or rejects a batch of pending requests.
func (h *Handler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
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

	var body model.StatusUpdateRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.requests.Resolve(r.Context(), userID, eventID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
