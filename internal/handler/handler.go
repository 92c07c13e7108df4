// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 10
	maxPageSize     = 1000
	hitTimeout      = 5 * time.Second
	timestampLayout = "2006-01-02 15:04:05"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Users      *service.UserService
	Categories *service.CategoryService
	Events     *service.EventService
	Requests   *service.RequestService
	Stats      stats.Client

	// App is the name hits are recorded under.
	App string
	// Development exposes internal error details in responses.
	Development bool
	Logger      zerolog.Logger
}

// Handler holds all HTTP handlers for the participation API.
type Handler struct {
	users       *service.UserService
	categories  *service.CategoryService
	events      *service.EventService
	requests    *service.RequestService
	hits        stats.Client
	validate    *validator.Validate
	app         string
	development bool
	logger      zerolog.Logger
	now         func() time.Time

	inflight sync.WaitGroup
}

// New constructs a Handler.
func New(d Deps) *Handler {
	hits := d.Stats
	if hits == nil {
		hits = stats.Noop{}
	}
	return &Handler{
		users:       d.Users,
		categories:  d.Categories,
		events:      d.Events,
		requests:    d.Requests,
		hits:        hits,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		app:         d.App,
		development: d.Development,
		logger:      d.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until hits recorded in the background have been sent.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeValid decodes the body into dst and runs its validate tags.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return service.BadRequest("invalid request body: %s", err.Error())
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &validationError{fields: verrs}
		}
		return service.BadRequest("%s", err.Error())
	}
	return nil
}

// validationError carries per-field failures into the error body.
type validationError struct {
	fields validator.ValidationErrors
}

func (e *validationError) Error() string {
	return "request validation failed"
}

func (e *validationError) messages() []string {
	out := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		msg := "field " + f.Namespace() + " failed on '" + f.Tag() + "'"
		if f.Param() != "" {
			msg += " (" + f.Param() + ")"
		}
		out = append(out, msg)
	}
	return out
}

func parseUUID(name, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", service.BadRequest("%s must be a UUID, got %q", name, raw)
	}
	return id.String(), nil
}

// pathID reads a UUID path parameter.
func pathID(r *http.Request, name string) (string, error) {
	return parseUUID(name, chi.URLParam(r, name))
}

// queryID reads a required UUID query parameter.
func queryID(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", service.BadRequest("query parameter %s is required", name)
	}
	return parseUUID(name, raw)
}

// page reads the from/size paging parameters.
func page(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	offset, limit = 0, defaultPageSize
	if v := q.Get("from"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, service.BadRequest("from must be a non-negative integer")
		}
	}
	if v := q.Get("size"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxPageSize {
			return 0, 0, service.BadRequest("size must be between 1 and %d", maxPageSize)
		}
	}
	return offset, limit, nil
}

// listParam collects a repeated or comma-separated query parameter.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// recordHit sends a page view to the stats service without holding up the
// response.
func (h *Handler) recordHit(r *http.Request) {
	hit := stats.Hit{
		App:       h.app,
		URI:       r.URL.Path,
		IP:        clientIP(r),
		Timestamp: h.now(),
	}
	ctx := context.WithoutCancel(r.Context())

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, hitTimeout)
		defer cancel()
		if err := h.hits.RecordHit(ctx, hit); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", hit.URI).Msg("failed to record hit")
		}
	}()
}

// clientIP strips the port from RemoteAddr when one is present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// emptyIfNil returns an empty slice rather than null for better client
// compatibility.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
