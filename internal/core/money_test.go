package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"500.5", 50050, true},
		{"1000", 100000, true},
		{"12,34", 1234, true},
		{"12.344", 1234, true}, // rounds down
		{"12.345", 1235, true}, // half-up on the third decimal
		{"12.346", 1235, true}, // rounds up
		{"0", 0, true},
		{"-3", -300, true},
		{"+7.5", 750, true},
		{".50", 50, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"12a", 0, false},
		{"-", 0, false},
		{".", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("%q: got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{50050, "500.50"},
		{100000, "1000.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.in); got != tc.want {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	// amount=500.5 must come back out as "500.50"
	cents, err := ParseDecimalToCents("500.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := FormatCents(cents); got != "500.50" {
		t.Fatalf("got %q, want %q", got, "500.50")
	}
}
