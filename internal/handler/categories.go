package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// CreateCategory handles POST /admin/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body model.CreateCategoryRequest
	if err := h.decodeValid(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	category, err := h.categories.CreateCategory(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// ListCategories handles GET /categories?from=&size=
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := page(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	categories, err := h.categories.ListCategories(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(categories))
}

// GetCategory handles GET /categories/{catId}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "catId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.categories.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}
