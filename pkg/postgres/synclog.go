package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"partnersync/pkg/models"
)

// SyncLog is the Postgres-backed audit trail of dispatch outcomes.
type SyncLog struct {
	DB *sql.DB
}

// NewSyncLog wraps an open database handle.
func NewSyncLog(db *sql.DB) *SyncLog {
	return &SyncLog{DB: db}
}

// Record stores entry and bumps the daily counter for its event and outcome.
func (s *SyncLog) Record(ctx context.Context, entry models.SyncEntry) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO partner_sync_log
			(delivery_id, correlation_id, event_type, external_user_id, outcome, remote_id, error, synced_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.DeliveryID, entry.CorrelationID, string(entry.EventType), entry.ExternalUserID,
		string(entry.Outcome), nullInt(entry.RemoteID), nullString(entry.Error), entry.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_metrics (metric_date, event_type, outcome, count)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (metric_date, event_type, outcome)
		 DO UPDATE SET count = sync_metrics.count + 1`,
		entry.SyncedAt.Format("2006-01-02"), string(entry.EventType), string(entry.Outcome),
	)
	if err != nil {
		return fmt.Errorf("update sync metrics: %w", err)
	}

	return tx.Commit()
}

// Processed reports whether deliveryID already has a successful outcome.
func (s *SyncLog) Processed(ctx context.Context, deliveryID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM partner_sync_log WHERE delivery_id = $1 AND outcome <> $2)",
		deliveryID, string(models.OutcomeFailed),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delivery %s: %w", deliveryID, err)
	}
	return exists, nil
}

// Recent returns the newest entries, optionally narrowed to one user.
func (s *SyncLog) Recent(ctx context.Context, externalUserID string, limit int) ([]models.SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT delivery_id, COALESCE(correlation_id, ''), event_type, external_user_id,
			outcome, COALESCE(remote_id, 0), COALESCE(error, ''), synced_at
		FROM partner_sync_log`
	args := []any{}
	if externalUserID != "" {
		query += " WHERE external_user_id = $1"
		args = append(args, externalUserID)
	}
	query += fmt.Sprintf(" ORDER BY synced_at DESC, id DESC LIMIT %d", limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync log: %w", err)
	}
	defer rows.Close()

	var entries []models.SyncEntry
	for rows.Next() {
		var e models.SyncEntry
		var eventType, outcome string
		if err := rows.Scan(&e.DeliveryID, &e.CorrelationID, &eventType, &e.ExternalUserID,
			&outcome, &e.RemoteID, &e.Error, &e.SyncedAt); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		e.EventType = models.EventKind(eventType)
		e.Outcome = models.Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DailyTotal is one sync_metrics row.
type DailyTotal struct {
	Date      string           `json:"date" yaml:"date"`
	EventType models.EventKind `json:"event_type" yaml:"event_type"`
	Outcome   models.Outcome   `json:"outcome" yaml:"outcome"`
	Count     int              `json:"count" yaml:"count"`
}

// Totals returns the daily counters from since onwards, oldest first.
func (s *SyncLog) Totals(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT metric_date, event_type, outcome, count
		 FROM sync_metrics
		 WHERE metric_date >= $1
		 ORDER BY metric_date, event_type, outcome`,
		since.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("query sync metrics: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		var day time.Time
		var eventType, outcome string
		if err := rows.Scan(&day, &eventType, &outcome, &t.Count); err != nil {
			return nil, fmt.Errorf("scan sync metrics: %w", err)
		}
		t.Date = day.Format("2006-01-02")
		t.EventType = models.EventKind(eventType)
		t.Outcome = models.Outcome(outcome)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
