package http

import (
	"net/http"

	"submanager/internal/core"
)

type expenseResponse struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	Date          string `json:"date"`
	Category      string `json:"category"`
}

func toExpenseResponse(e core.VariableExpense) expenseResponse {
	return expenseResponse{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount.String(),
		AmountDisplay: formatMoney(e.Amount),
		Date:          e.Date.String(),
		Category:      e.Category,
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	expenses, err := s.expenses.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateExpense creates one record, or several when repeat_months asks
// for a monthly recurrence. A partial failure reports the records that were
// already written; they are not rolled back.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var payload expensePayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	expense, err := payload.toExpense()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.expenses.Add(r.Context(), sess, expense, payload.repeatOrDefault())
	if len(created) > 0 {
		s.invalidateDerived(sess.UID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(created))
	for _, e := range created {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var payload expensePayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	expense, err := payload.toExpense()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	expense.ID = r.PathValue("id")

	if err := s.expenses.Update(r.Context(), sess, expense); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDerived(sess.UID)
	writeJSON(w, http.StatusOK, toExpenseResponse(expense.Normalize()))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := s.expenses.Remove(r.Context(), sess, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDerived(sess.UID)
	w.WriteHeader(http.StatusNoContent)
}
