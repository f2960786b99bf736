package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Retry controls how Connect waits for the database to come up.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry waits up to a minute, which covers a compose start-up.
var DefaultRetry = Retry{Attempts: 30, Delay: 2 * time.Second}

// Connect opens the sync log database and pings it until it answers.
func Connect(ctx context.Context, databaseURL string, retry Retry, log *slog.Logger) (*sql.DB, error) {
	if retry.Attempts <= 0 {
		retry.Attempts = 1
	}

	var err error
	for i := 0; i < retry.Attempts; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", databaseURL)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				log.Info("connected to postgres")
				return db, nil
			}
			db.Close()
		}

		log.Warn("postgres not ready, retrying", "error", err, "attempt", i+1, "delay", retry.Delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.Delay):
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", retry.Attempts, err)
}
