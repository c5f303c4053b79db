package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"submanager/internal/core"
)

// PendingMirrorExpense is the minimal record the mirror worker needs to pick
// up an expense that has not reached the spreadsheet yet.
type PendingMirrorExpense struct {
	ID      string
	UserUID string
}

// PendingMirrorExpenses returns expenses still waiting to be mirrored,
// oldest first. This backs the sweep that recovers from lost AMQP messages.
func (s *RecordStore) PendingMirrorExpenses(ctx context.Context, limit int) ([]PendingMirrorExpense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_uid FROM variable_expenses
		 WHERE mirror_status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending mirror expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingMirrorExpense
	for rows.Next() {
		var p PendingMirrorExpense
		if err := rows.Scan(&p.ID, &p.UserUID); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExpenseByID fetches a single expense regardless of owner, returning the
// owner's uid alongside it. Used by the mirror worker.
func (s *RecordStore) ExpenseByID(ctx context.Context, id string) (core.VariableExpense, string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, date, category, user_uid FROM variable_expenses WHERE id = ?`, id)

	var (
		e     core.VariableExpense
		cents int64
		date  string
		uid   string
	)
	err := row.Scan(&e.ID, &e.Description, &cents, &date, &e.Category, &uid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VariableExpense{}, "", ErrRecordNotFound
	}
	if err != nil {
		return core.VariableExpense{}, "", fmt.Errorf("expense by id: %w", err)
	}
	e.Amount = core.Money{Cents: cents}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.VariableExpense{}, "", fmt.Errorf("expense %s: bad date %q: %w", e.ID, date, err)
	}
	return e, uid, nil
}

func (s *RecordStore) MarkMirrored(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE variable_expenses SET mirror_status = 'done' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as mirrored", "id", id)
	return nil
}

func (s *RecordStore) MarkMirrorError(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE variable_expenses SET mirror_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with mirror error", "id", id)
	return nil
}
