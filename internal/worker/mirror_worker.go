// Package worker mirrors confirmed expense records into the external sheet.
// It consumes record events from AMQP and keeps a pending-rows sweep as a
// backup in case messages are lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"submanager/internal/amqp"
	"submanager/internal/mirror"
	"submanager/internal/store"
)

type MirrorWorker struct {
	store     *store.RecordStore
	appender  mirror.RowAppender
	batchSize int
}

func NewMirrorWorker(st *store.RecordStore, appender mirror.RowAppender, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &MirrorWorker{
		store:     st,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleRecordEvent processes a single record event from AMQP. Only expense
// creations and updates are mirrored; deletes and subscription events are
// acknowledged without action.
func (w *MirrorWorker) HandleRecordEvent(ctx context.Context, event *amqp.RecordEvent) error {
	if event.Collection != amqp.CollectionExpenses {
		return nil
	}
	switch event.Op {
	case amqp.OpCreate, amqp.OpUpdate:
	default:
		return nil
	}

	slog.InfoContext(ctx, "Processing record event",
		"op", event.Op,
		"record_id", event.RecordID)

	return w.mirrorExpense(ctx, event.RecordID)
}

// SweepPending mirrors any expenses whose rows were never written. This is
// the backup path for lost messages; it runs once at startup and then on the
// daily schedule.
func (w *MirrorWorker) SweepPending(ctx context.Context) error {
	pending, err := w.store.PendingMirrorExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending expenses", "count", len(pending))

	var failed int
	for _, p := range pending {
		if err := w.mirrorExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending expense", "record_id", p.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("sweep: %d of %d expenses failed", failed, len(pending))
	}
	return nil
}

// ScheduleDailySweep registers SweepPending on the given cron spec and
// returns the started scheduler.
func (w *MirrorWorker) ScheduleDailySweep(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := w.SweepPending(ctx); err != nil {
			slog.ErrorContext(ctx, "Daily sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule daily sweep %q: %w", spec, err)
	}
	c.Start()
	slog.InfoContext(ctx, "Scheduled daily mirror sweep", "spec", spec)
	return c, nil
}

func (w *MirrorWorker) mirrorExpense(ctx context.Context, id string) error {
	expense, uid, err := w.store.ExpenseByID(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		// Deleted before we got to it; nothing to mirror.
		slog.InfoContext(ctx, "Expense gone before mirroring", "record_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}

	rowRef, err := w.appender.AppendExpense(ctx, expense)
	if err != nil {
		if markErr := w.store.MarkMirrorError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "record_id", id, "error", markErr)
		}
		return fmt.Errorf("append row: %w", err)
	}

	if err := w.store.MarkMirrored(ctx, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"record_id", id,
		"user_uid", uid,
		"row_ref", rowRef)
	return nil
}
