package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"partnersync/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*SyncLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSyncLog(db), mock
}

func TestRecord(t *testing.T) {
	log, mock := newMock(t)
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	entry := models.SyncEntry{
		DeliveryID:     "msg_001",
		CorrelationID:  "corr-001",
		EventType:      models.EventUserCreated,
		ExternalUserID: "user_001",
		Outcome:        models.OutcomeCreated,
		RemoteID:       101,
		SyncedAt:       at,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO partner_sync_log").
		WithArgs("msg_001", "corr-001", "user.created", "user_001", "created", int64(101), nil, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sync_metrics").
		WithArgs("2026-03-04", "user.created", "created").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := log.Record(context.Background(), entry); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecord_FailedEntryStoresError(t *testing.T) {
	log, mock := newMock(t)
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	entry := models.SyncEntry{
		DeliveryID:     "msg_002",
		EventType:      models.EventUserDeleted,
		ExternalUserID: "user_002",
		Outcome:        models.OutcomeFailed,
		Error:          "odoo unreachable",
		SyncedAt:       at,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO partner_sync_log").
		WithArgs("msg_002", "", "user.deleted", "user_002", "failed", nil, "odoo unreachable", at).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO sync_metrics").
		WithArgs("2026-03-04", "user.deleted", "failed").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := log.Record(context.Background(), entry); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecord_RollsBackOnError(t *testing.T) {
	log, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO partner_sync_log").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := log.Record(context.Background(), models.SyncEntry{DeliveryID: "msg_003", SyncedAt: time.Now()})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestProcessed(t *testing.T) {
	for _, done := range []bool{true, false} {
		log, mock := newMock(t)
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("msg_001", "failed").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(done))

		got, err := log.Processed(context.Background(), "msg_001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != done {
			t.Errorf("expected %v, got %v", done, got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
	}
}

func TestRecent(t *testing.T) {
	log, mock := newMock(t)
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"delivery_id", "correlation_id", "event_type", "external_user_id", "outcome", "remote_id", "error", "synced_at"}).
		AddRow("msg_002", "corr-2", "user.updated", "user_001", "not_found", int64(0), "", at).
		AddRow("msg_001", "corr-1", "user.created", "user_001", "created", int64(101), "", at.Add(-time.Hour))
	mock.ExpectQuery("SELECT delivery_id, .* FROM partner_sync_log WHERE external_user_id = \\$1 ORDER BY synced_at DESC, id DESC LIMIT 5").
		WithArgs("user_001").
		WillReturnRows(rows)

	entries, err := log.Recent(context.Background(), "user_001", 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Outcome != models.OutcomeNotFound || entries[1].RemoteID != 101 {
		t.Errorf("unexpected entries %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecent_DefaultLimit(t *testing.T) {
	log, mock := newMock(t)
	mock.ExpectQuery("FROM partner_sync_log ORDER BY synced_at DESC, id DESC LIMIT 20").
		WillReturnRows(sqlmock.NewRows([]string{"delivery_id"}))

	entries, err := log.Recent(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestTotals(t *testing.T) {
	log, mock := newMock(t)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT metric_date, event_type, outcome, count").
		WithArgs("2026-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"metric_date", "event_type", "outcome", "count"}).
			AddRow(day, "user.created", "created", 3).
			AddRow(day, "user.deleted", "not_found", 1))

	totals, err := log.Totals(context.Background(), time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 totals, got %d", len(totals))
	}
	if totals[0].Date != "2026-03-04" || totals[0].Count != 3 || totals[1].Outcome != models.OutcomeNotFound {
		t.Errorf("unexpected totals %+v", totals)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
