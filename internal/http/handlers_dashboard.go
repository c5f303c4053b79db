package http

import (
	"net/http"
	"time"

	"submanager/internal/aggregate"
	"submanager/internal/core"
	"submanager/internal/projection"
)

type categoryTotalResponse struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

type summaryResponse struct {
	FixedMonthlyTotal   string                  `json:"fixed_monthly_total"`
	VariableMonthTotal  string                  `json:"variable_month_total"`
	GrandTotal          string                  `json:"grand_total"`
	GrandTotalDisplay   string                  `json:"grand_total_display"`
	ActiveSubscriptions int                     `json:"active_subscriptions"`
	Categories          []categoryTotalResponse `json:"categories"`
}

type monthGroupResponse struct {
	Label    string            `json:"label"`
	Total    string            `json:"total"`
	Expenses []expenseResponse `json:"expenses"`
}

type monthSlotResponse struct {
	Month      string         `json:"month"`
	Monthly    map[int]string `json:"monthly"`
	Cumulative map[int]string `json:"cumulative"`
}

type projectionResponse struct {
	Slots []monthSlotResponse `json:"slots"`
}

// handleSummary returns the dashboard card values: total fixed monthly cost,
// the current month's variable spend, their sum, and the current month's
// category breakdown.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if cached, ok := s.summaryCache.Get(sess.UID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	subs, err := s.subscriptions.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	expenses, err := s.expenses.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	today := core.DateOf(time.Now())
	fixed := aggregate.TotalMonthlyCost(subs)
	variable := aggregate.CurrentMonthTotal(expenses, today)
	grand := fixed.Add(variable)

	var currentMonth []core.VariableExpense
	for _, e := range expenses {
		if e.Date.SameMonth(today) {
			currentMonth = append(currentMonth, e)
		}
	}

	categories := aggregate.ByCategory(currentMonth)
	catOut := make([]categoryTotalResponse, 0, len(categories))
	for _, c := range categories {
		catOut = append(catOut, categoryTotalResponse{
			Name:          c.Name,
			Amount:        c.Amount.String(),
			AmountDisplay: formatMoney(c.Amount),
		})
	}

	resp := summaryResponse{
		FixedMonthlyTotal:   fixed.String(),
		VariableMonthTotal:  variable.String(),
		GrandTotal:          grand.String(),
		GrandTotalDisplay:   formatMoney(grand),
		ActiveSubscriptions: len(subs),
		Categories:          catOut,
	}
	s.summaryCache.Set(sess.UID, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory returns expenses grouped per calendar month, most recent
// month first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	expenses, err := s.expenses.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	groups := aggregate.GroupByCalendarMonth(expenses)
	out := make([]monthGroupResponse, 0, len(groups))
	for _, g := range groups {
		expOut := make([]expenseResponse, 0, len(g.Expenses))
		for _, e := range g.Expenses {
			expOut = append(expOut, toExpenseResponse(e))
		}
		out = append(out, monthGroupResponse{
			Label:    g.Label,
			Total:    g.Total.String(),
			Expenses: expOut,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProjection returns the twelve Jan..Dec slots of the multi-year
// chart. Absent map keys mean "no data", distinct from an explicit zero.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if cached, ok := s.projectionCache.Get(sess.UID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	subs, err := s.subscriptions.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	expenses, err := s.expenses.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slots := projection.Project(subs, expenses, core.DateOf(time.Now()))
	out := make([]monthSlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, monthSlotResponse{
			Month:      slot.Month.String(),
			Monthly:    moneyMapToStrings(slot.Monthly),
			Cumulative: moneyMapToStrings(slot.Cumulative),
		})
	}

	resp := projectionResponse{Slots: out}
	s.projectionCache.Set(sess.UID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func moneyMapToStrings(in map[int]core.Money) map[int]string {
	out := make(map[int]string, len(in))
	for year, amount := range in {
		out[year] = amount.String()
	}
	return out
}
