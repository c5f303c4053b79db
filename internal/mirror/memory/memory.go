// Package memory is an in-process mirror for tests and deployments without
// a configured spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"

	"submanager/internal/core"
	"submanager/internal/mirror"
)

type Store struct {
	mu   sync.Mutex
	rows []core.VariableExpense
}

var _ mirror.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpense stores the expense and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.VariableExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, e)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.VariableExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.VariableExpense(nil), s.rows...)
}
