package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStats struct {
	mu    sync.Mutex
	hits  []stats.Hit
	views map[string]int64
}

func (s *recordingStats) RecordHit(_ context.Context, hit stats.Hit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, hit)
	return nil
}

func (s *recordingStats) Views(context.Context, []string, time.Time, time.Time, bool) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views, nil
}

func (s *recordingStats) recorded() []stats.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stats.Hit(nil), s.hits...)
}

type testServer struct {
	t        *testing.T
	handler  *Handler
	router   http.Handler
	stats    *recordingStats
	category model.Category
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zerolog.Nop()
	admission := service.NewAdmissionController(store, logger)
	rec := &recordingStats{views: map[string]int64{}}
	h := New(Deps{
		Users:       service.NewUserService(store.Users(), logger),
		Categories:  service.NewCategoryService(store.Categories(), logger),
		Events:      service.NewEventService(store, rec, logger),
		Requests:    service.NewRequestService(store, admission),
		Stats:       rec,
		App:         "main-service",
		Development: true,
		Logger:      logger,
	})
	s := &testServer{t: t, handler: h, router: h.Routes(), stats: rec}

	created := s.do(http.MethodPost, "/admin/categories", model.CreateCategoryRequest{Name: "games"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	s.category = decode[model.Category](t, created)
	return s
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createUser(name string) model.User {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/admin/users", model.CreateUserRequest{Name: name, Email: name + "-" + uuid.NewString()[:8] + "@example.com"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.User](s.t, rec)
}

func (s *testServer) publishedEvent(initiator string, limit int, moderation bool) model.Event {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/users/"+initiator+"/events", model.NewEventRequest{
		Category:          s.category.ID,
		Title:             "Chess club",
		Annotation:        "Rapid games for every level, boards provided",
		Description:       "Swiss pairing, five rounds, ten minutes plus five seconds per move",
		EventDate:         time.Now().Add(24 * time.Hour),
		ParticipantLimit:  &limit,
		RequestModeration: &moderation,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decode[model.Event](s.t, rec)
	assert.Equal(s.t, model.EventPending, event.State)

	rec = s.do(http.MethodPatch, "/admin/events/"+event.ID, model.UpdateEventAdminRequest{StateAction: model.ActionPublishEvent})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[model.Event](s.t, rec)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestParticipationFlow(t *testing.T) {
	s := newTestServer(t)
	initiator := s.createUser("host")
	a, b, c := s.createUser("alice"), s.createUser("bob"), s.createUser("carol")
	event := s.publishedEvent(initiator.ID, 2, true)

	var ids []string
	for _, u := range []model.User{a, b, c} {
		rec := s.do(http.MethodPost, "/users/"+u.ID+"/requests?eventId="+event.ID, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		req := decode[model.ParticipationRequest](t, rec)
		assert.Equal(t, model.StatusPending, req.Status)
		ids = append(ids, req.ID)
	}

	rec := s.do(http.MethodPatch, "/users/"+initiator.ID+"/events/"+event.ID+"/requests", model.StatusUpdateRequest{
		RequestIDs: []string{ids[0], strings.ToUpper(ids[1]), ids[2]},
		Status:     string(model.StatusConfirmed),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[model.StatusUpdateResult](t, rec)
	require.Len(t, result.Confirmed, 2)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ids[2], result.Rejected[0].ID)

	rec = s.do(http.MethodGet, "/users/"+initiator.ID+"/events/"+event.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[model.Event](t, rec).ConfirmedRequests)

	// Alice withdraws and frees a slot.
	rec = s.do(http.MethodPatch, "/users/"+a.ID+"/requests/"+ids[0]+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusCanceled, decode[model.ParticipationRequest](t, rec).Status)

	rec = s.do(http.MethodGet, "/admin/events/"+event.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reconciled := decode[model.Reconciliation](t, rec)
	assert.True(t, reconciled.Consistent)
	assert.Equal(t, 1, reconciled.StoredConfirmed)

	rec = s.do(http.MethodGet, "/users/"+a.ID+"/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ParticipationRequest](t, rec), 1)

	rec = s.do(http.MethodGet, "/users/"+initiator.ID+"/events/"+event.ID+"/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ParticipationRequest](t, rec), 3)
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	initiator := s.createUser("host")
	guest := s.createUser("guest")
	event := s.publishedEvent(initiator.ID, 1, false)

	rec := s.do(http.MethodPost, "/users/"+guest.ID+"/requests?eventId="+event.ID, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusConfirmed, decode[model.ParticipationRequest](t, rec).Status)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "event full", method: http.MethodPost, path: "/users/" + s.createUser("late").ID + "/requests?eventId=" + event.ID, status: http.StatusConflict, kind: "CONFLICT"},
		{name: "initiator joins own event", method: http.MethodPost, path: "/users/" + initiator.ID + "/requests?eventId=" + event.ID, status: http.StatusConflict, kind: "CONFLICT"},
		{name: "unknown event", method: http.MethodPost, path: "/users/" + guest.ID + "/requests?eventId=" + uuid.NewString(), status: http.StatusNotFound, kind: "NOT_FOUND"},
		{name: "missing eventId", method: http.MethodPost, path: "/users/" + guest.ID + "/requests", status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "malformed user id", method: http.MethodGet, path: "/users/not-a-uuid/requests", status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "resolve by stranger", method: http.MethodPatch, path: "/users/" + guest.ID + "/events/" + event.ID + "/requests",
			body: model.StatusUpdateRequest{RequestIDs: []string{uuid.NewString()}, Status: "CONFIRMED"}, status: http.StatusForbidden, kind: "FORBIDDEN"},
		{name: "empty batch", method: http.MethodPatch, path: "/users/" + initiator.ID + "/events/" + event.ID + "/requests",
			body: model.StatusUpdateRequest{RequestIDs: []string{}, Status: "CONFIRMED"}, status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "bad status", method: http.MethodPatch, path: "/users/" + initiator.ID + "/events/" + event.ID + "/requests",
			body: model.StatusUpdateRequest{RequestIDs: []string{uuid.NewString()}, Status: "MAYBE"}, status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "reject published event", method: http.MethodPatch, path: "/admin/events/" + event.ID,
			body: model.UpdateEventAdminRequest{StateAction: model.ActionRejectEvent}, status: http.StatusConflict, kind: "CONFLICT"},
		{name: "malformed request id", method: http.MethodPatch, path: "/users/" + initiator.ID + "/events/" + event.ID + "/requests",
			body: model.StatusUpdateRequest{RequestIDs: []string{"42"}, Status: "CONFIRMED"}, status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "unknown state", method: http.MethodGet, path: "/admin/events?states=DRAFT", status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "malformed category filter", method: http.MethodGet, path: "/admin/events?categories=music", status: http.StatusBadRequest, kind: "BAD_REQUEST"},
		{name: "unknown category", method: http.MethodGet, path: "/categories/" + uuid.NewString(), status: http.StatusNotFound, kind: "NOT_FOUND"},
		{name: "duplicate category", method: http.MethodPost, path: "/admin/categories",
			body: model.CreateCategoryRequest{Name: "games"}, status: http.StatusConflict, kind: "CONFLICT"},
		{name: "bad page size", method: http.MethodGet, path: "/events?size=0", status: http.StatusBadRequest, kind: "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[model.ErrorResponse](t, rec)
			assert.Equal(t, tt.kind, body.Status)
			assert.NotEmpty(t, body.Reason)
			assert.NotEmpty(t, body.Message)
			_, err := time.Parse(timestampLayout, body.Timestamp)
			assert.NoError(t, err)
		})
	}
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/admin/users", map[string]string{"name": "x", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[model.ErrorResponse](t, rec)
	assert.Equal(t, "BAD_REQUEST", body.Status)
	assert.Len(t, body.Errors, 2)

	rec = s.do(http.MethodPost, "/admin/users", map[string]string{"name": "Ada", "email": "ada@example.com", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestPublicReadsRecordHits(t *testing.T) {
	s := newTestServer(t)
	initiator := s.createUser("host")
	event := s.publishedEvent(initiator.ID, 0, true)
	s.stats.views[service.EventURI(event.ID)] = 12

	rec := s.do(http.MethodGet, "/events/"+event.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[model.EventView](t, rec)
	assert.Equal(t, int64(12), view.Views)
	assert.Equal(t, event.ID, view.ID)

	rec = s.do(http.MethodGet, "/events?from=0&size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.EventView](t, rec), 1)

	s.handler.Wait()
	hits := s.stats.recorded()
	require.Len(t, hits, 2)
	var uris []string
	for _, h := range hits {
		uris = append(uris, h.URI)
		assert.Equal(t, "main-service", h.App)
		assert.Equal(t, "192.0.2.1", h.IP)
	}
	assert.ElementsMatch(t, []string{"/events/" + event.ID, "/events"}, uris)
}

func TestUnpublishedEventIsHidden(t *testing.T) {
	s := newTestServer(t)
	initiator := s.createUser("host")
	limit, moderation := 0, true
	rec := s.do(http.MethodPost, "/users/"+initiator.ID+"/events", model.NewEventRequest{
		Category:          s.category.ID,
		Title:             "Draft meetup",
		Annotation:        "Not yet reviewed by the moderators of the site",
		Description:       "This event should stay invisible until it is published",
		EventDate:         time.Now().Add(24 * time.Hour),
		ParticipantLimit:  &limit,
		RequestModeration: &moderation,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decode[model.Event](t, rec)

	rec = s.do(http.MethodGet, "/events/"+event.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.handler.Wait()
	assert.Empty(t, s.stats.recorded())
}

func TestAdminUsers(t *testing.T) {
	s := newTestServer(t)
	u := s.createUser("ada")

	rec := s.do(http.MethodGet, "/admin/users?ids="+u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.User](t, rec), 1)

	rec = s.do(http.MethodDelete, "/admin/users/"+u.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/admin/users/"+u.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	initiator := s.createUser("host")

	rec := s.do(http.MethodPost, "/admin/categories", model.CreateCategoryRequest{Name: "concerts"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	concerts := decode[model.Category](t, rec)

	rec = s.do(http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Category](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "concerts", list[0].Name)

	rec = s.do(http.MethodGet, "/categories/"+concerts.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, concerts, decode[model.Category](t, rec))

	newEvent := model.NewEventRequest{
		Category:    uuid.NewString(),
		Title:       "Quartet evening",
		Annotation:  "Haydn and Shostakovich in the small hall",
		Description: "Doors open half an hour before the first movement",
		EventDate:   time.Now().Add(24 * time.Hour),
	}
	rec = s.do(http.MethodPost, "/users/"+initiator.ID+"/events", newEvent)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	newEvent.Category = concerts.ID
	rec = s.do(http.MethodPost, "/users/"+initiator.ID+"/events", newEvent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decode[model.Event](t, rec)
	assert.Equal(t, concerts.ID, event.CategoryID)
	s.publishedEvent(initiator.ID, 0, true)

	rec = s.do(http.MethodGet, "/admin/events?categories="+concerts.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[[]model.EventView](t, rec)
	require.Len(t, filtered, 1)
	assert.Equal(t, event.ID, filtered[0].ID)

	rec = s.do(http.MethodGet, "/admin/events?categories="+concerts.ID+","+s.category.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.EventView](t, rec), 2)
}
