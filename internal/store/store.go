// Package store implements the record store: per-user SQLite collections of
// subscriptions and variable expenses with a live change feed. Every
// committed write re-reads the owner's collection and pushes the fresh
// snapshot to all watchers, so consumers always aggregate over confirmed
// state and never over optimistic local mutations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"submanager/internal/core"
)

var (
	// ErrRecordNotFound is returned by updates and deletes that target an id
	// absent from the caller's collection. There is no upsert path.
	ErrRecordNotFound = errors.New("record not found")
)

type RecordStore struct {
	db *sql.DB

	subFeeds *feedSet[[]core.Subscription]
	expFeeds *feedSet[[]core.VariableExpense]
}

func Open(dbPath string) (*RecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &RecordStore{
		db:       db,
		subFeeds: newFeedSet[[]core.Subscription](),
		expFeeds: newFeedSet[[]core.VariableExpense](),
	}, nil
}

func (s *RecordStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database connection, for readiness checks.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- subscriptions ---

// CreateSubscription assigns a fresh id, persists the record in the user's
// collection and emits a new snapshot to watchers.
func (s *RecordStore) CreateSubscription(ctx context.Context, uid string, sub core.Subscription) (core.Subscription, error) {
	sub.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, user_uid, name, cost_cents, start_date, cycle) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, uid, sub.Name, sub.Cost.Cents, sub.StartDate.String(), string(sub.Cycle))
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved",
		"id", sub.ID,
		"name", sub.Name,
		"cost_cents", sub.Cost.Cents,
		"cycle", sub.Cycle)

	s.notifySubscriptions(ctx, uid)
	return sub, nil
}

// UpdateSubscription replaces the mutable fields of an existing record; the
// id is immutable and must already exist.
func (s *RecordStore) UpdateSubscription(ctx context.Context, uid string, sub core.Subscription) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET name = ?, cost_cents = ?, start_date = ?, cycle = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_uid = ?`,
		sub.Name, sub.Cost.Cents, sub.StartDate.String(), string(sub.Cycle), sub.ID, uid)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}

	s.notifySubscriptions(ctx, uid)
	return nil
}

func (s *RecordStore) DeleteSubscription(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = ? AND user_uid = ?`, id, uid)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}

	s.notifySubscriptions(ctx, uid)
	return nil
}

// ListSubscriptions returns the user's subscriptions in creation order.
func (s *RecordStore) ListSubscriptions(ctx context.Context, uid string) ([]core.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, cost_cents, start_date, cycle FROM subscriptions
		 WHERE user_uid = ? ORDER BY created_at, id`, uid)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		var (
			sub       core.Subscription
			cents     int64
			startDate string
			cycle     string
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &cents, &startDate, &cycle); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Cost = core.Money{Cents: cents}
		sub.StartDate, err = core.ParseDate(startDate)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: bad start date %q: %w", sub.ID, startDate, err)
		}
		sub.Cycle = core.NormalizeCycle(cycle)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// WatchSubscriptions returns a live snapshot feed for the user's
// subscription collection. The current snapshot is delivered immediately.
func (s *RecordStore) WatchSubscriptions(ctx context.Context, uid string) (*Watch[[]core.Subscription], error) {
	w := s.subFeeds.get(uid).subscribe()
	snapshot, err := s.ListSubscriptions(ctx, uid)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.deliver(snapshot)
	return w, nil
}

func (s *RecordStore) notifySubscriptions(ctx context.Context, uid string) {
	err := s.subFeeds.get(uid).publishLatest(func() ([]core.Subscription, error) {
		return s.ListSubscriptions(ctx, uid)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Subscription feed refresh failed", "error", err, "user", uid)
	}
}

// --- variable expenses ---

// CreateExpense assigns a fresh id, persists the record and emits a new
// snapshot. The expense enters the mirror queue as pending.
func (s *RecordStore) CreateExpense(ctx context.Context, uid string, e core.VariableExpense) (core.VariableExpense, error) {
	e.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variable_expenses (id, user_uid, description, amount_cents, date, category) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, uid, e.Description, e.Amount.Cents, e.Date.String(), e.Category)
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	s.notifyExpenses(ctx, uid)
	return e, nil
}

func (s *RecordStore) UpdateExpense(ctx context.Context, uid string, e core.VariableExpense) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE variable_expenses SET description = ?, amount_cents = ?, date = ?, category = ?,
		 mirror_status = 'pending', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_uid = ?`,
		e.Description, e.Amount.Cents, e.Date.String(), e.Category, e.ID, uid)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}

	s.notifyExpenses(ctx, uid)
	return nil
}

func (s *RecordStore) DeleteExpense(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM variable_expenses WHERE id = ? AND user_uid = ?`, id, uid)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}

	s.notifyExpenses(ctx, uid)
	return nil
}

// ListExpenses returns the user's expenses ordered by date descending, the
// collection's explicit sort key.
func (s *RecordStore) ListExpenses(ctx context.Context, uid string) ([]core.VariableExpense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, date, category FROM variable_expenses
		 WHERE user_uid = ? ORDER BY date DESC, created_at DESC, id`, uid)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.VariableExpense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WatchExpenses returns a live snapshot feed for the user's expense
// collection. The current snapshot is delivered immediately.
func (s *RecordStore) WatchExpenses(ctx context.Context, uid string) (*Watch[[]core.VariableExpense], error) {
	w := s.expFeeds.get(uid).subscribe()
	snapshot, err := s.ListExpenses(ctx, uid)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.deliver(snapshot)
	return w, nil
}

func (s *RecordStore) notifyExpenses(ctx context.Context, uid string) {
	err := s.expFeeds.get(uid).publishLatest(func() ([]core.VariableExpense, error) {
		return s.ListExpenses(ctx, uid)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Expense feed refresh failed", "error", err, "user", uid)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.VariableExpense, error) {
	var (
		e     core.VariableExpense
		cents int64
		date  string
	)
	if err := row.Scan(&e.ID, &e.Description, &cents, &date, &e.Category); err != nil {
		return core.VariableExpense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = core.Money{Cents: cents}
	var err error
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("expense %s: bad date %q: %w", e.ID, date, err)
	}
	return e, nil
}
