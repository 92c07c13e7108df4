package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body model.CreateUserRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ListUsers handles GET /admin/users?ids=&from=&size=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := page(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var ids []string
	for _, raw := range listParam(r, "ids") {
		id, err := parseUUID("ids", raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ids = append(ids, id)
	}

	users, err := h.users.ListUsers(r.Context(), ids, offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(users))
}

// DeleteUser handles DELETE /admin/users/{userId}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
