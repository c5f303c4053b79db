package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// handleFeed streams live collection snapshots over server-sent events.
// Each confirmed write produces a fresh full snapshot; intermediate
// snapshots may be skipped under load but never delivered out of order.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	subWatch, err := s.subscriptions.Watch(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer subWatch.Close()

	expWatch, err := s.expenses.Watch(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer expWatch.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case subs, open := <-subWatch.Updates():
			if !open {
				return
			}
			out := make([]subscriptionResponse, 0, len(subs))
			for _, sub := range subs {
				out = append(out, toSubscriptionResponse(sub))
			}
			if err := writeEvent(w, flusher, "subscriptions", out); err != nil {
				slog.InfoContext(ctx, "Feed client gone", "error", err)
				return
			}
		case expenses, open := <-expWatch.Updates():
			if !open {
				return
			}
			out := make([]expenseResponse, 0, len(expenses))
			for _, e := range expenses {
				out = append(out, toExpenseResponse(e))
			}
			if err := writeEvent(w, flusher, "expenses", out); err != nil {
				slog.InfoContext(ctx, "Feed client gone", "error", err)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
