package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// RunMigrations creates the tables a service needs. Statements are idempotent.
func RunMigrations(ctx context.Context, db *sql.DB, service string, log *slog.Logger) error {
	for i, m := range serviceMigrations(service) {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d for %s: %w", i, service, err)
		}
	}
	log.Info("migrations completed", "service", service)
	return nil
}

func serviceMigrations(service string) []string {
	syncLog := []string{
		`CREATE TABLE IF NOT EXISTS partner_sync_log (
			id SERIAL PRIMARY KEY,
			delivery_id VARCHAR(64) NOT NULL,
			correlation_id VARCHAR(64),
			event_type VARCHAR(50) NOT NULL,
			external_user_id VARCHAR(64) NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			remote_id BIGINT,
			error TEXT,
			synced_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS partner_sync_log_delivery_idx ON partner_sync_log (delivery_id)`,
		`CREATE INDEX IF NOT EXISTS partner_sync_log_user_idx ON partner_sync_log (external_user_id)`,
	}
	metrics := []string{
		`CREATE TABLE IF NOT EXISTS sync_metrics (
			id SERIAL PRIMARY KEY,
			metric_date DATE NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			UNIQUE(metric_date, event_type, outcome)
		)`,
	}

	switch service {
	case "metrics":
		return metrics
	default:
		return append(syncLog, metrics...)
	}
}
