package core

import (
	"errors"
	"testing"
)

func TestValidatePiggyInputOK(t *testing.T) {
	got, err := ValidatePiggyInput(PiggyInput{
		Title:  " Vacation ",
		Amount: "500.5",
		Goal:   "1000",
		Need:   "Low",
	})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Title != "Vacation" {
		t.Fatalf("title not trimmed: %q", got.Title)
	}
	if got.AmountCents != 50050 || got.GoalCents != 100000 {
		t.Fatalf("unexpected cents: amount=%d goal=%d", got.AmountCents, got.GoalCents)
	}
	if got.Need != NeedLow {
		t.Fatalf("need = %q", got.Need)
	}
	// goal == amount is allowed
	if _, err := ValidatePiggyInput(PiggyInput{Title: "x", Amount: "50", Goal: "50", Need: "High"}); err != nil {
		t.Fatalf("goal == amount should pass: %v", err)
	}
}

func TestValidatePiggyInputRuleOrder(t *testing.T) {
	cases := []struct {
		name string
		in   PiggyInput
		want error
	}{
		{"empty title", PiggyInput{Title: "  ", Amount: "1", Goal: "1", Need: "Low"}, ErrEmptyTitle},
		{"bad amount", PiggyInput{Title: "a", Amount: "abc", Goal: "1", Need: "Low"}, ErrInvalidAmount},
		{"bad goal", PiggyInput{Title: "a", Amount: "1", Goal: "abc", Need: "Low"}, ErrInvalidGoal},
		{"bad need", PiggyInput{Title: "a", Amount: "1", Goal: "1", Need: "Urgent"}, ErrInvalidNeed},
		{"zero amount", PiggyInput{Title: "a", Amount: "0", Goal: "1", Need: "Low"}, ErrNonPositive},
		{"negative amount", PiggyInput{Title: "a", Amount: "-5", Goal: "1", Need: "Low"}, ErrNonPositive},
		{"goal below amount", PiggyInput{Title: "Vacation", Amount: "100", Goal: "50", Need: "Low"}, ErrGoalBelowAmount},
		{"above ceiling", PiggyInput{Title: "Car", Amount: "50000000", Goal: "60000000", Need: "High"}, ErrAboveCeiling},
		{"goal ceiling", PiggyInput{Title: "a", Amount: "1", Goal: "1000000", Need: "Low"}, ErrAboveCeiling},
		// title check wins over everything else
		{"title first", PiggyInput{Title: "", Amount: "abc", Goal: "abc", Need: "nope"}, ErrEmptyTitle},
		// parse check wins over need check
		{"amount before need", PiggyInput{Title: "a", Amount: "abc", Goal: "1", Need: "nope"}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		_, err := ValidatePiggyInput(tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNeedValid(t *testing.T) {
	for _, n := range []Need{NeedLow, NeedMedium, NeedHigh, NeedVeryHigh} {
		if !n.Valid() {
			t.Fatalf("%q should be valid", n)
		}
	}
	for _, n := range []Need{"", "low", "VERY HIGH", "Urgent"} {
		if n.Valid() {
			t.Fatalf("%q should be invalid", n)
		}
	}
}

func TestPiggyBankValidate(t *testing.T) {
	good := PiggyBank{Title: "Bike", AmountCents: 100, GoalCents: 200, Need: NeedMedium, Owner: "sam"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []PiggyBank{
		{Title: "", AmountCents: 1, GoalCents: 1, Need: NeedLow},
		{Title: "a", AmountCents: 0, GoalCents: 1, Need: NeedLow},
		{Title: "a", AmountCents: 2, GoalCents: 1, Need: NeedLow},
		{Title: "a", AmountCents: 1, GoalCents: 1, Need: "nope"},
		{Title: "a", AmountCents: MaxAmountCents, GoalCents: MaxAmountCents, Need: NeedLow},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
