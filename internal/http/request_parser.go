package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"submanager/internal/core"
)

const maxBodySize = 64 << 10

// subscriptionPayload is the wire shape of a subscription write. Money
// arrives as a decimal string and is parsed once at this boundary; nothing
// ambiguous is ever stored.
type subscriptionPayload struct {
	Name      string `json:"name"`
	Cost      string `json:"cost"`
	StartDate string `json:"start_date"`
	Cycle     string `json:"cycle"`
}

type expensePayload struct {
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Category     string `json:"category"`
	RepeatMonths int    `json:"repeat_months"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func (p subscriptionPayload) toSubscription() (core.Subscription, error) {
	cost, err := core.ParseMoney(strings.TrimSpace(p.Cost))
	if err != nil {
		return core.Subscription{}, err
	}
	start, err := core.ParseDate(strings.TrimSpace(p.StartDate))
	if err != nil {
		return core.Subscription{}, err
	}

	cycle := core.BillingCycle(strings.ToLower(strings.TrimSpace(p.Cycle)))
	if p.Cycle == "" {
		cycle = core.Monthly
	}

	return core.Subscription{
		Name:      sanitizeInput(p.Name),
		Cost:      cost,
		StartDate: start,
		Cycle:     cycle,
	}, nil
}

func (p expensePayload) toExpense() (core.VariableExpense, error) {
	amount, err := core.ParseMoney(strings.TrimSpace(p.Amount))
	if err != nil {
		return core.VariableExpense{}, err
	}
	date, err := core.ParseDate(strings.TrimSpace(p.Date))
	if err != nil {
		return core.VariableExpense{}, err
	}

	return core.VariableExpense{
		Description: sanitizeInput(p.Description),
		Amount:      amount,
		Date:        date,
		Category:    sanitizeInput(p.Category),
	}, nil
}

// repeatOrDefault treats an absent repeat_months as a single record.
func (p expensePayload) repeatOrDefault() int {
	if p.RepeatMonths == 0 {
		return 1
	}
	return p.RepeatMonths
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
