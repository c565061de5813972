package core

import (
	"errors"
	"strings"
)

const (
	NeedLow      Need = "Low"
	NeedMedium   Need = "Medium"
	NeedHigh     Need = "High"
	NeedVeryHigh Need = "Very High"
)

// Ceilings for absurd input, in cents. Amount and goal carry independent
// exclusive limits of 10,000,000 and 1,000,000 units respectively.
const (
	MaxAmountCents int64 = 10_000_000 * 100
	MaxGoalCents   int64 = 1_000_000 * 100
)

type (
	// Need is the priority level of a savings goal.
	Need string

	// User is a credential record. Password is an opaque secret compared
	// verbatim; GoogleID is an optional external-identity linkage and is
	// never consulted during password authentication.
	User struct {
		ID       int64
		Username string
		Password string
		GoogleID string
	}

	// PiggyBank is a savings goal owned by a single user. Amounts are held
	// in cents and rendered with two decimals at the edges.
	PiggyBank struct {
		ID          int64
		Title       string
		AmountCents int64
		GoalCents   int64
		Need        Need
		Owner       string
	}

	// PiggyInput carries raw create/update fields before validation.
	PiggyInput struct {
		Title  string
		Amount string
		Goal   string
		Need   string
	}
)

var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidAmount   = errors.New("amount is not a valid number")
	ErrInvalidGoal     = errors.New("goal is not a valid number")
	ErrInvalidNeed     = errors.New("need must be one of Low, Medium, High, Very High")
	ErrNonPositive     = errors.New("amount and goal must be greater than zero")
	ErrGoalBelowAmount = errors.New("goal must not be less than amount")
	ErrAboveCeiling    = errors.New("amount or goal exceeds the allowed ceiling")

	// ErrUserNotFound and ErrPiggyNotFound are the uniform not-found
	// sentinels. A record owned by someone else reports the same error as
	// a record that does not exist.
	ErrUserNotFound  = errors.New("user not found")
	ErrPiggyNotFound = errors.New("piggy bank not found")
)

func (n Need) Valid() bool {
	switch n {
	case NeedLow, NeedMedium, NeedHigh, NeedVeryHigh:
		return true
	}
	return false
}

// ValidatePiggyInput applies the business rules to raw fields and returns the
// normalized piggy bank (owner and ID unset). Rules run in a fixed order and
// the first violation wins. Validation is pure: no I/O, no stored state.
func ValidatePiggyInput(in PiggyInput) (PiggyBank, error) {
	if strings.TrimSpace(in.Title) == "" {
		return PiggyBank{}, ErrEmptyTitle
	}
	amount, err := ParseDecimalToCents(in.Amount)
	if err != nil {
		return PiggyBank{}, ErrInvalidAmount
	}
	goal, err := ParseDecimalToCents(in.Goal)
	if err != nil {
		return PiggyBank{}, ErrInvalidGoal
	}
	need := Need(strings.TrimSpace(in.Need))
	if !need.Valid() {
		return PiggyBank{}, ErrInvalidNeed
	}
	if amount <= 0 || goal <= 0 {
		return PiggyBank{}, ErrNonPositive
	}
	if goal < amount {
		return PiggyBank{}, ErrGoalBelowAmount
	}
	if amount >= MaxAmountCents || goal >= MaxGoalCents {
		return PiggyBank{}, ErrAboveCeiling
	}
	return PiggyBank{
		Title:       strings.TrimSpace(in.Title),
		AmountCents: amount,
		GoalCents:   goal,
		Need:        need,
	}, nil
}

// Validate checks a stored piggy bank against the same invariants the input
// rules guarantee.
func (p PiggyBank) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if !p.Need.Valid() {
		return ErrInvalidNeed
	}
	if p.AmountCents <= 0 || p.GoalCents <= 0 {
		return ErrNonPositive
	}
	if p.GoalCents < p.AmountCents {
		return ErrGoalBelowAmount
	}
	if p.AmountCents >= MaxAmountCents || p.GoalCents >= MaxGoalCents {
		return ErrAboveCeiling
	}
	return nil
}
