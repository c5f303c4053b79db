package core

import (
	"errors"
	"strings"
)

const (
	Monthly   BillingCycle = "monthly"
	Weekly    BillingCycle = "weekly"
	Quarterly BillingCycle = "quarterly"
	Yearly    BillingCycle = "yearly"
)

// DefaultCategory is assigned to variable expenses created without a category.
const DefaultCategory = "General"

// MaxRepeatMonths caps recurrence expansion of a variable expense.
const MaxRepeatMonths = 36

type (
	// BillingCycle is how often a subscription charges. Records persisted
	// before cycle validation existed may carry unknown values; those are
	// read back as Monthly.
	BillingCycle string

	// Subscription is a recurring charge owned by a single user. ID is
	// assigned by the record store on creation and immutable afterwards.
	Subscription struct {
		ID        string
		Name      string
		Cost      Money
		StartDate Date
		Cycle     BillingCycle
	}

	// VariableExpense is a one-off dated expense. It has no link to any
	// subscription; both only meet in the aggregate totals.
	VariableExpense struct {
		ID          string
		Description string
		Amount      Money
		Date        Date
		Category    string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCycle     = errors.New("invalid billing cycle")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidRepeat    = errors.New("invalid repeat count")
)

// Valid reports whether the cycle is one of the known billing cycles.
func (c BillingCycle) Valid() bool {
	switch c {
	case Monthly, Weekly, Quarterly, Yearly:
		return true
	}
	return false
}

// NormalizeCycle maps a stored cycle value onto a known cycle, degrading
// unknown values to Monthly.
func NormalizeCycle(s string) BillingCycle {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return Monthly
	}
	return c
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := s.Cost.Validate(); err != nil {
		return err
	}
	if err := s.StartDate.Validate(); err != nil {
		return err
	}
	if !s.Cycle.Valid() {
		return ErrInvalidCycle
	}
	return nil
}

func (e VariableExpense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

// Normalize fills defaults that creation tolerates: a blank category becomes
// DefaultCategory.
func (e VariableExpense) Normalize() VariableExpense {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = DefaultCategory
	}
	return e
}
