// Package services orchestrates record mutations: session check, validation,
// store write, then a best-effort record-event publish for the mirror worker.
// A publish failure never fails a confirmed write.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"submanager/internal/amqp"
	"submanager/internal/auth"
	"submanager/internal/core"
	"submanager/internal/store"
)

// EventPublisher is the slice of the AMQP client the services need.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
}

var _ EventPublisher = (*amqp.Client)(nil)

// SubscriptionService owns the recurring-subscription collection.
type SubscriptionService struct {
	store     *store.RecordStore
	publisher EventPublisher
}

func NewSubscriptionService(st *store.RecordStore, publisher EventPublisher) *SubscriptionService {
	return &SubscriptionService{store: st, publisher: publisher}
}

// Add validates and creates a subscription, returning it with its assigned id.
func (s *SubscriptionService) Add(ctx context.Context, sess *auth.Session, sub core.Subscription) (core.Subscription, error) {
	if !sess.Authenticated() {
		return core.Subscription{}, auth.ErrNotAuthenticated
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}

	created, err := s.store.CreateSubscription(ctx, sess.UID, sub)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	s.publish(ctx, amqp.OpCreate, created.ID, sess.UID)
	return created, nil
}

// Update replaces the mutable fields of an existing subscription. The target
// id must already exist; there is no upsert.
func (s *SubscriptionService) Update(ctx context.Context, sess *auth.Session, sub core.Subscription) error {
	if !sess.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateSubscription(ctx, sess.UID, sub); err != nil {
		return err
	}

	s.publish(ctx, amqp.OpUpdate, sub.ID, sess.UID)
	return nil
}

// Remove deletes a subscription by id.
func (s *SubscriptionService) Remove(ctx context.Context, sess *auth.Session, id string) error {
	if !sess.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	if err := s.store.DeleteSubscription(ctx, sess.UID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.OpDelete, id, sess.UID)
	return nil
}

// List returns the user's subscriptions.
func (s *SubscriptionService) List(ctx context.Context, sess *auth.Session) ([]core.Subscription, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.store.ListSubscriptions(ctx, sess.UID)
}

// Watch opens a live snapshot feed of the user's subscriptions.
func (s *SubscriptionService) Watch(ctx context.Context, sess *auth.Session) (*store.Watch[[]core.Subscription], error) {
	if !sess.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.store.WatchSubscriptions(ctx, sess.UID)
}

func (s *SubscriptionService) publish(ctx context.Context, op, id, uid string) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewRecordEvent(amqp.CollectionSubscriptions, op, id, uid)
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"collection", event.Collection, "op", op, "record_id", id, "error", err)
	}
}
