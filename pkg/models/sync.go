package models

import "time"

// SyncEntry is one row of the sync audit log.
type SyncEntry struct {
	DeliveryID     string    `json:"delivery_id" yaml:"delivery_id"`
	CorrelationID  string    `json:"correlation_id" yaml:"correlation_id"`
	EventType      EventKind `json:"event_type" yaml:"event_type"`
	ExternalUserID string    `json:"external_user_id" yaml:"external_user_id"`
	Outcome        Outcome   `json:"outcome" yaml:"outcome"`
	RemoteID       int64     `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
	SyncedAt       time.Time `json:"synced_at" yaml:"synced_at"`
}

// NewSyncEntry builds the log row for a dispatch attempt.
func NewSyncEntry(event IdentityEvent, result DispatchResult, err error, at time.Time) SyncEntry {
	entry := SyncEntry{
		DeliveryID:     event.ID,
		CorrelationID:  event.CorrelationID,
		EventType:      event.Type,
		ExternalUserID: event.Data.ID,
		Outcome:        result.Outcome,
		RemoteID:       result.RemoteID,
		SyncedAt:       at.UTC(),
	}
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Error = err.Error()
	}
	return entry
}
