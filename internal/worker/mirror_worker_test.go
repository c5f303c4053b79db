package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"submanager/internal/amqp"
	"submanager/internal/core"
	"submanager/internal/mirror/memory"
	"submanager/internal/store"
)

type failingAppender struct{}

func (failingAppender) AppendExpense(context.Context, core.VariableExpense) (string, error) {
	return "", errors.New("sheet unavailable")
}

func newWorkerEnv(t *testing.T) (*store.RecordStore, string) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	u, err := s.CreateUser(context.Background(), "w@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return s, u.UID
}

func createExpense(t *testing.T, s *store.RecordStore, uid string) core.VariableExpense {
	t.Helper()
	e, err := s.CreateExpense(context.Background(), uid, core.VariableExpense{
		Description: "Dinner",
		Amount:      core.Money{Cents: 2500},
		Date:        core.NewDate(2024, time.May, 2),
		Category:    "Food",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func TestHandleRecordEvent_MirrorsExpense(t *testing.T) {
	ctx := context.Background()
	s, uid := newWorkerEnv(t)
	sheet := memory.New()
	w := NewMirrorWorker(s, sheet, 10)

	e := createExpense(t, s, uid)
	event := amqp.NewRecordEvent(amqp.CollectionExpenses, amqp.OpCreate, e.ID, uid)
	if err := w.HandleRecordEvent(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 || rows[0].Description != "Dinner" {
		t.Fatalf("sheet rows: %+v", rows)
	}

	pending, err := s.PendingMirrorExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expense still pending after mirror: %+v", pending)
	}
}

func TestHandleRecordEvent_IgnoresOtherCollections(t *testing.T) {
	ctx := context.Background()
	s, uid := newWorkerEnv(t)
	sheet := memory.New()
	w := NewMirrorWorker(s, sheet, 10)

	event := amqp.NewRecordEvent(amqp.CollectionSubscriptions, amqp.OpCreate, "sub-1", uid)
	if err := w.HandleRecordEvent(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	deleteEvent := amqp.NewRecordEvent(amqp.CollectionExpenses, amqp.OpDelete, "exp-1", uid)
	if err := w.HandleRecordEvent(ctx, deleteEvent); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Errorf("unexpected rows: %+v", sheet.Rows())
	}
}

func TestHandleRecordEvent_MissingExpenseIsNotAnError(t *testing.T) {
	ctx := context.Background()
	s, uid := newWorkerEnv(t)
	w := NewMirrorWorker(s, memory.New(), 10)

	event := amqp.NewRecordEvent(amqp.CollectionExpenses, amqp.OpCreate, "already-deleted", uid)
	if err := w.HandleRecordEvent(ctx, event); err != nil {
		t.Fatalf("missing expense must ack, got %v", err)
	}
}

func TestSweepPending(t *testing.T) {
	ctx := context.Background()
	s, uid := newWorkerEnv(t)
	sheet := memory.New()
	w := NewMirrorWorker(s, sheet, 10)

	createExpense(t, s, uid)
	createExpense(t, s, uid)

	if err := w.SweepPending(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Fatalf("mirrored %d rows, want 2", len(sheet.Rows()))
	}

	// A second sweep finds nothing pending.
	if err := w.SweepPending(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Errorf("second sweep duplicated rows: %d", len(sheet.Rows()))
	}
}

func TestMirrorExpense_AppendFailureMarksError(t *testing.T) {
	ctx := context.Background()
	s, uid := newWorkerEnv(t)
	w := NewMirrorWorker(s, failingAppender{}, 10)

	e := createExpense(t, s, uid)
	event := amqp.NewRecordEvent(amqp.CollectionExpenses, amqp.OpCreate, e.ID, uid)
	if err := w.HandleRecordEvent(ctx, event); err == nil {
		t.Fatal("expected an error from the failing appender")
	}

	// The record leaves the pending queue so the sweep does not retry it
	// forever against a broken sheet.
	pending, err := s.PendingMirrorExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("failed expense still pending: %+v", pending)
	}
}
