package http

import (
	"net/http"

	"submanager/internal/core"
)

type subscriptionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        string `json:"cost"`
	CostDisplay string `json:"cost_display"`
	StartDate   string `json:"start_date"`
	Cycle       string `json:"cycle"`
}

func toSubscriptionResponse(sub core.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:          sub.ID,
		Name:        sub.Name,
		Cost:        sub.Cost.String(),
		CostDisplay: formatMoney(sub.Cost),
		StartDate:   sub.StartDate.String(),
		Cycle:       string(sub.Cycle),
	}
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	subs, err := s.subscriptions.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var payload subscriptionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	sub, err := payload.toSubscription()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.subscriptions.Add(r.Context(), sess, sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDerived(sess.UID)
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(created))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var payload subscriptionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	sub, err := payload.toSubscription()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	sub.ID = r.PathValue("id")

	if err := s.subscriptions.Update(r.Context(), sess, sub); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDerived(sess.UID)
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := s.subscriptions.Remove(r.Context(), sess, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDerived(sess.UID)
	w.WriteHeader(http.StatusNoContent)
}
