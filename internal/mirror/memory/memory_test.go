package memory

import (
	"context"
	"testing"
	"time"

	"submanager/internal/core"
)

func TestAppendExpense(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendExpense(ctx, core.VariableExpense{
		Description: "Coffee",
		Amount:      core.Money{Cents: 350},
		Date:        core.NewDate(2024, time.May, 2),
		Category:    "Food",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].Description != "Coffee" {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestAppendExpense_RejectsInvalid(t *testing.T) {
	s := New()
	_, err := s.AppendExpense(context.Background(), core.VariableExpense{
		Description: "",
		Amount:      core.Money{Cents: 100},
		Date:        core.NewDate(2024, time.May, 2),
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid expense was stored")
	}
}
