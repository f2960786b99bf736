package models

import "time"

// EventKind is the declared type of an identity-provider event.
type EventKind string

const (
	EventUserCreated EventKind = "user.created"
	EventUserUpdated EventKind = "user.updated"
	EventUserDeleted EventKind = "user.deleted"
)

// IdentityEvent is a verified lifecycle event from the identity provider.
// ID is the delivery id (svix-id), stable across redeliveries of the same message.
type IdentityEvent struct {
	ID            string       `json:"id"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Type          EventKind    `json:"type"`
	Data          UserSnapshot `json:"data"`
	ReceivedAt    time.Time    `json:"received_at"`
}

// Outcome describes what a dispatch did to the remote directory.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpserted  Outcome = "upserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeUnhandled Outcome = "unhandled"
	OutcomeFailed    Outcome = "failed"
)

// DispatchResult is returned for every dispatched event, including unhandled ones.
type DispatchResult struct {
	Kind           EventKind `json:"kind"`
	ExternalUserID string    `json:"external_user_id"`
	Outcome        Outcome   `json:"outcome"`
	RemoteID       int64     `json:"remote_id,omitempty"`
	Found          bool      `json:"found"`
}
