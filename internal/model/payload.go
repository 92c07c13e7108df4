package model

import "time"

// State actions accepted on event edits.
const (
	ActionSendToReview = "SEND_TO_REVIEW"
	ActionCancelReview = "CANCEL_REVIEW"
	ActionPublishEvent = "PUBLISH_EVENT"
	ActionRejectEvent  = "REJECT_EVENT"
)

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=250"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// CreateCategoryRequest is the payload for adding a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// NewEventRequest is the payload an initiator sends to create an event.
type NewEventRequest struct {
	Title             string    `json:"title" validate:"required,min=3,max=120"`
	Annotation        string    `json:"annotation" validate:"required,min=20,max=2000"`
	Description       string    `json:"description" validate:"required,min=20,max=7000"`
	Category          string    `json:"category" validate:"required"`
	EventDate         time.Time `json:"event_date" validate:"required"`
	Location          Location  `json:"location"`
	Paid              bool      `json:"paid"`
	ParticipantLimit  *int      `json:"participant_limit" validate:"omitempty,min=0"`
	RequestModeration *bool     `json:"request_moderation"`
}

// EventPatch holds optional field edits shared by initiator and admin updates.
// Nil fields are left untouched.
type EventPatch struct {
	Title             *string    `json:"title" validate:"omitempty,min=3,max=120"`
	Annotation        *string    `json:"annotation" validate:"omitempty,min=20,max=2000"`
	Description       *string    `json:"description" validate:"omitempty,min=20,max=7000"`
	Category          *string    `json:"category"`
	EventDate         *time.Time `json:"event_date"`
	Location          *Location  `json:"location"`
	Paid              *bool      `json:"paid"`
	ParticipantLimit  *int       `json:"participant_limit" validate:"omitempty,min=0"`
	RequestModeration *bool      `json:"request_moderation"`
}

// UpdateEventUserRequest is the initiator's edit payload.
type UpdateEventUserRequest struct {
	EventPatch
	StateAction string `json:"state_action" validate:"omitempty,oneof=SEND_TO_REVIEW CANCEL_REVIEW"`
}

// UpdateEventAdminRequest is the moderator's edit payload.
type UpdateEventAdminRequest struct {
	EventPatch
	StateAction string `json:"state_action" validate:"omitempty,oneof=PUBLISH_EVENT REJECT_EVENT"`
}

// StatusUpdateRequest asks to confirm or reject a batch of pending requests.
// Status and the ID format are checked by the service, not here.
type StatusUpdateRequest struct {
	RequestIDs []string `json:"request_ids" validate:"required,min=1,dive,required"`
	Status     string   `json:"status" validate:"required"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Status    string   `json:"status"`
	Reason    string   `json:"reason"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp string   `json:"timestamp"`
}
