package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"submanager/internal/amqp"
	"submanager/internal/auth"
	"submanager/internal/core"
	"submanager/internal/store"
)

type capturePublisher struct {
	events []*amqp.RecordEvent
	err    error
}

func (p *capturePublisher) PublishRecordEvent(_ context.Context, e *amqp.RecordEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func newTestEnv(t *testing.T) (*store.RecordStore, *auth.Session, *capturePublisher) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	u, err := s.CreateUser(context.Background(), "svc@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return s, &auth.Session{UID: u.UID, Email: u.Email}, &capturePublisher{}
}

func validSubscription() core.Subscription {
	return core.Subscription{
		Name:      "Netflix",
		Cost:      core.Money{Cents: 1299},
		StartDate: core.NewDate(2024, time.March, 15),
		Cycle:     core.Monthly,
	}
}

func validExpense() core.VariableExpense {
	return core.VariableExpense{
		Description: "Groceries",
		Amount:      core.Money{Cents: 4200},
		Date:        core.NewDate(2024, time.May, 2),
	}
}

func TestMutationsRequireSession(t *testing.T) {
	st, _, pub := newTestEnv(t)
	subs := NewSubscriptionService(st, pub)
	exps := NewExpenseService(st, pub)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"add subscription", func() error { _, err := subs.Add(ctx, nil, validSubscription()); return err }},
		{"update subscription", func() error { return subs.Update(ctx, nil, validSubscription()) }},
		{"remove subscription", func() error { return subs.Remove(ctx, nil, "id") }},
		{"add expense", func() error { _, err := exps.Add(ctx, nil, validExpense(), 1); return err }},
		{"update expense", func() error { return exps.Update(ctx, nil, validExpense()) }},
		{"remove expense", func() error { return exps.Remove(ctx, nil, "id") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, auth.ErrNotAuthenticated) {
				t.Errorf("got %v, want ErrNotAuthenticated", err)
			}
		})
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for rejected mutations", len(pub.events))
	}
}

func TestSubscriptionService_AddPublishesEvent(t *testing.T) {
	st, sess, pub := newTestEnv(t)
	svc := NewSubscriptionService(st, pub)

	created, err := svc.Add(context.Background(), sess, validSubscription())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if len(pub.events) != 1 {
		t.Fatalf("got %d events, want 1", len(pub.events))
	}
	e := pub.events[0]
	if e.Collection != amqp.CollectionSubscriptions || e.Op != amqp.OpCreate || e.RecordID != created.ID || e.UserUID != sess.UID {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestSubscriptionService_ValidationBeforeStore(t *testing.T) {
	st, sess, pub := newTestEnv(t)
	svc := NewSubscriptionService(st, pub)

	bad := validSubscription()
	bad.Name = "  "
	if _, err := svc.Add(context.Background(), sess, bad); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("got %v, want ErrEmptyName", err)
	}
	got, err := svc.List(context.Background(), sess)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("invalid record reached the store: %+v", got)
	}
}

func TestSubscriptionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	st, sess, pub := newTestEnv(t)
	pub.err = errors.New("broker down")
	svc := NewSubscriptionService(st, pub)

	if _, err := svc.Add(context.Background(), sess, validSubscription()); err != nil {
		t.Fatalf("add failed on publish error: %v", err)
	}
	got, err := svc.List(context.Background(), sess)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("write not confirmed: %d records", len(got))
	}
}

func TestExpenseService_AddWithRepeat(t *testing.T) {
	st, sess, pub := newTestEnv(t)
	svc := NewExpenseService(st, pub)

	base := validExpense()
	base.Date = core.NewDate(2025, time.January, 31)
	created, err := svc.Add(context.Background(), sess, base, 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("got %d records, want 3", len(created))
	}

	listed, err := svc.List(context.Background(), sess)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("store holds %d records, want 3", len(listed))
	}
	// List is date-descending; the clamped February record sits in the middle.
	if listed[1].Date.String() != "2025-02-28" {
		t.Errorf("middle record date %s, want 2025-02-28", listed[1].Date)
	}
	if len(pub.events) != 3 {
		t.Errorf("got %d events, want 3", len(pub.events))
	}
}

func TestExpenseService_AddDefaultsCategory(t *testing.T) {
	st, sess, pub := newTestEnv(t)
	svc := NewExpenseService(st, pub)

	created, err := svc.Add(context.Background(), sess, validExpense(), 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created[0].Category != core.DefaultCategory {
		t.Errorf("category %q, want %q", created[0].Category, core.DefaultCategory)
	}
}

func TestExpenseService_RepeatOutOfRange(t *testing.T) {
	st, sess, _ := newTestEnv(t)
	svc := NewExpenseService(st, nil)

	for _, n := range []int{0, 37} {
		if _, err := svc.Add(context.Background(), sess, validExpense(), n); !errors.Is(err, core.ErrInvalidRepeat) {
			t.Errorf("n=%d: got %v, want ErrInvalidRepeat", n, err)
		}
	}
}

func TestExpenseService_UpdateRequiresExistingID(t *testing.T) {
	st, sess, _ := newTestEnv(t)
	svc := NewExpenseService(st, nil)

	missing := validExpense()
	missing.ID = "missing"
	if err := svc.Update(context.Background(), sess, missing); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}
