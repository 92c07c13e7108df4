package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a lifecycle action does not apply to
// the event's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// Remaining returns the number of free participant slots.
// It is meaningless for unlimited events.
func (e *Event) Remaining() int {
	return e.ParticipantLimit - e.ConfirmedRequests
}

// IsFull returns true when a limited event has no slot left.
func (e *Event) IsFull() bool {
	return !e.Unlimited() && e.ConfirmedRequests >= e.ParticipantLimit
}

// AutoConfirms reports whether new requests skip moderation.
func (e *Event) AutoConfirms() bool {
	return !e.RequestModeration || e.Unlimited()
}

// ReserveSlot takes one participant slot if one is free.
func (e *Event) ReserveSlot() bool {
	if e.IsFull() {
		return false
	}
	e.ConfirmedRequests++
	return true
}

// ReleaseSlot gives back one slot. Releasing at zero is a no-op.
func (e *Event) ReleaseSlot() {
	if e.ConfirmedRequests > 0 {
		e.ConfirmedRequests--
	}
}

// Publish moves a PENDING event to PUBLISHED and stamps the publication time.
func (e *Event) Publish(now time.Time) error {
	if e.State != EventPending {
		return fmt.Errorf("%w: cannot publish event in state %s", ErrInvalidTransition, e.State)
	}
	e.State = EventPublished
	e.PublishedOn = &now
	return nil
}

// Reject cancels an event that has not been published.
func (e *Event) Reject() error {
	if e.State == EventPublished {
		return fmt.Errorf("%w: cannot reject a published event", ErrInvalidTransition)
	}
	e.State = EventCanceled
	return nil
}

// SendToReview returns a canceled event to moderation.
func (e *Event) SendToReview() error {
	if e.State != EventCanceled && e.State != EventPending {
		return fmt.Errorf("%w: cannot send event in state %s to review", ErrInvalidTransition, e.State)
	}
	e.State = EventPending
	return nil
}

// CancelReview withdraws a pending event from moderation.
func (e *Event) CancelReview() error {
	if e.State != EventPending && e.State != EventCanceled {
		return fmt.Errorf("%w: cannot cancel review of event in state %s", ErrInvalidTransition, e.State)
	}
	e.State = EventCanceled
	return nil
}

// EditableByInitiator reports whether the initiator may still change the event.
func (e *Event) EditableByInitiator() bool {
	return e.State == EventPending || e.State == EventCanceled
}

// Apply copies the non-nil fields of p onto the event.
func (e *Event) Apply(p EventPatch) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Annotation != nil {
		e.Annotation = *p.Annotation
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		e.CategoryID = *p.Category
	}
	if p.EventDate != nil {
		e.EventDate = p.EventDate.UTC()
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
}
