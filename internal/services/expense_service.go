package services

import (
	"context"
	"fmt"
	"log/slog"

	"submanager/internal/aggregate"
	"submanager/internal/amqp"
	"submanager/internal/auth"
	"submanager/internal/core"
	"submanager/internal/store"
)

// ExpenseService owns the variable-expense collection.
type ExpenseService struct {
	store     *store.RecordStore
	publisher EventPublisher
}

func NewExpenseService(st *store.RecordStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: st, publisher: publisher}
}

// Add validates and creates repeatMonths copies of the expense, one per
// month starting at its date. The creates run sequentially and are not
// rolled back on failure; the error reports how many records were already
// written.
func (s *ExpenseService) Add(ctx context.Context, sess *auth.Session, expense core.VariableExpense, repeatMonths int) ([]core.VariableExpense, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	expense = expense.Normalize()
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	batch, err := aggregate.ExpandMonthly(expense, repeatMonths)
	if err != nil {
		return nil, err
	}

	created := make([]core.VariableExpense, 0, len(batch))
	for _, rec := range batch {
		got, err := s.store.CreateExpense(ctx, sess.UID, rec)
		if err != nil {
			return created, fmt.Errorf("create expense %d of %d (%d already created): %w",
				len(created)+1, len(batch), len(created), err)
		}
		created = append(created, got)
		s.publish(ctx, amqp.OpCreate, got.ID, sess.UID)
	}
	return created, nil
}

// Update replaces the mutable fields of an existing expense.
func (s *ExpenseService) Update(ctx context.Context, sess *auth.Session, expense core.VariableExpense) error {
	if !sess.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	expense = expense.Normalize()
	if err := expense.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateExpense(ctx, sess.UID, expense); err != nil {
		return err
	}

	s.publish(ctx, amqp.OpUpdate, expense.ID, sess.UID)
	return nil
}

// Remove deletes an expense by id.
func (s *ExpenseService) Remove(ctx context.Context, sess *auth.Session, id string) error {
	if !sess.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	if err := s.store.DeleteExpense(ctx, sess.UID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.OpDelete, id, sess.UID)
	return nil
}

// List returns the user's expenses, most recent date first.
func (s *ExpenseService) List(ctx context.Context, sess *auth.Session) ([]core.VariableExpense, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.store.ListExpenses(ctx, sess.UID)
}

// Watch opens a live snapshot feed of the user's expenses.
func (s *ExpenseService) Watch(ctx context.Context, sess *auth.Session) (*store.Watch[[]core.VariableExpense], error) {
	if !sess.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.store.WatchExpenses(ctx, sess.UID)
}

func (s *ExpenseService) publish(ctx context.Context, op, id, uid string) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewRecordEvent(amqp.CollectionExpenses, op, id, uid)
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"collection", event.Collection, "op", op, "record_id", id, "error", err)
	}
}
