package crm

import (
	"context"
	"log/slog"
	"time"

	"partnersync/pkg/models"
)

// Directory is the remote partner directory the dispatcher writes to.
type Directory interface {
	Create(ctx context.Context, fields models.PartnerFields) (int64, error)
	Update(ctx context.Context, externalUserID string, fields models.PartnerFields) (bool, error)
	Delete(ctx context.Context, externalUserID string) (bool, error)
	FindByExternalID(ctx context.Context, externalUserID string) (*models.RemotePartnerRecord, error)
}

// Recorder stores the outcome of each dispatch. Optional.
type Recorder interface {
	Record(ctx context.Context, entry models.SyncEntry) error
}

// Dispatcher maps verified identity events onto directory operations.
type Dispatcher struct {
	Directory Directory
	Recorder  Recorder
	// UpsertOnCreate makes a redelivered user.created update the existing
	// partner instead of creating a second one.
	UpsertOnCreate bool

	log *slog.Logger
	now func() time.Time
}

// NewDispatcher creates a dispatcher with upsert-on-create enabled.
func NewDispatcher(dir Directory, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Directory:      dir,
		UpsertOnCreate: true,
		log:            log.With("component", "dispatcher"),
		now:            time.Now,
	}
}

// Dispatch applies event to the directory. Directory errors are returned
// unchanged and never retried here; unknown event types are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.IdentityEvent) (models.DispatchResult, error) {
	log := d.log.With("event_id", event.ID, "type", event.Type, "user_id", event.Data.ID, "correlation_id", event.CorrelationID)

	result, err := d.dispatch(ctx, event)
	if err != nil {
		log.Error("dispatch failed", "error", err)
	} else {
		log.Info("dispatched", "outcome", result.Outcome, "remote_id", result.RemoteID)
	}

	if d.Recorder != nil && result.Outcome != models.OutcomeUnhandled {
		if recErr := d.Recorder.Record(ctx, models.NewSyncEntry(event, result, err, d.now())); recErr != nil {
			log.Warn("failed to record sync outcome", "error", recErr)
		}
	}
	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, event models.IdentityEvent) (models.DispatchResult, error) {
	userID := event.Data.ID
	result := models.DispatchResult{Kind: event.Type, ExternalUserID: userID}

	switch event.Type {
	case models.EventUserCreated:
		fields := Normalize(event.Data)
		if d.UpsertOnCreate {
			existing, err := d.Directory.FindByExternalID(ctx, userID)
			if err != nil {
				return result, err
			}
			if existing != nil {
				if _, err := d.Directory.Update(ctx, userID, fields); err != nil {
					return result, err
				}
				result.Outcome = models.OutcomeUpserted
				result.RemoteID = existing.RemoteID
				result.Found = true
				return result, nil
			}
		}
		id, err := d.Directory.Create(ctx, fields)
		if err != nil {
			return result, err
		}
		result.Outcome = models.OutcomeCreated
		result.RemoteID = id
		return result, nil

	case models.EventUserUpdated:
		found, err := d.Directory.Update(ctx, userID, Normalize(event.Data))
		if err != nil {
			return result, err
		}
		result.Found = found
		result.Outcome = models.OutcomeUpdated
		if !found {
			result.Outcome = models.OutcomeNotFound
		}
		return result, nil

	case models.EventUserDeleted:
		found, err := d.Directory.Delete(ctx, userID)
		if err != nil {
			return result, err
		}
		result.Found = found
		result.Outcome = models.OutcomeDeleted
		if !found {
			result.Outcome = models.OutcomeNotFound
		}
		return result, nil

	default:
		result.Outcome = models.OutcomeUnhandled
		return result, nil
	}
}
