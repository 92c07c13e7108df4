// Package model defines the core domain types for the event participation system.
package model

import "time"

// EventState is the publication lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// ParseEventState validates a state name received from a caller.
func ParseEventState(s string) (EventState, bool) {
	switch st := EventState(s); st {
	case EventPending, EventPublished, EventCanceled:
		return st, true
	}
	return "", false
}

// RequestStatus is the admission status of a participation request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusConfirmed RequestStatus = "CONFIRMED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCanceled  RequestStatus = "CANCELED"
)

// Active reports whether the status still holds (or may hold) a slot.
// At most one active request may exist per (event, requester) pair.
func (s RequestStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Location is the geographic point where an event takes place.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is the aggregate root for participant capacity.
// Requests reference it by ID only; it never holds back-pointers to them.
type Event struct {
	ID                string     `json:"id"`
	InitiatorID       string     `json:"initiator_id"`
	CategoryID        string     `json:"category"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	EventDate         time.Time  `json:"event_date"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	ConfirmedRequests int        `json:"confirmed_requests"`
	State             EventState `json:"state"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on,omitempty"`
}

// Category groups events by topic. Every event belongs to exactly one.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParticipationRequest is one user's request to attend an event.
type ParticipationRequest struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event"`
	RequesterID string        `json:"requester"`
	Status      RequestStatus `json:"status"`
	Created     time.Time     `json:"created"`
}

// User is a registered platform user. Only identity matters to admission.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusUpdateResult partitions a batch resolution, preserving caller order
// within each group.
type StatusUpdateResult struct {
	Confirmed []ParticipationRequest `json:"confirmed_requests"`
	Rejected  []ParticipationRequest `json:"rejected_requests"`
}

// EventView is an event enriched for reads with its view count.
type EventView struct {
	Event
	Views int64 `json:"views"`
}

// Reconciliation compares the stored counter to the derived count.
type Reconciliation struct {
	EventID          string `json:"event_id"`
	StoredConfirmed  int    `json:"stored_confirmed"`
	DerivedConfirmed int    `json:"derived_confirmed"`
	Consistent       bool   `json:"consistent"`
}
