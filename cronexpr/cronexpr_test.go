package cronexpr

import (
	"errors"
	"testing"
)

func TestParseStepMinuteExpression(t *testing.T) {
	e, err := Parse("*/15 * * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []struct {
		minute int
		want   bool
	}{
		{0, true}, {15, true}, {30, true}, {45, true}, {7, false}, {59, false},
	}
	for _, c := range cases {
		if got := e.Matches(10, c.minute); got != c.want {
			t.Errorf("minute %d: got %v want %v", c.minute, got, c.want)
		}
	}
}

func TestParseDailyHourExpression(t *testing.T) {
	e, err := Parse("0 1 * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Matches(1, 0) {
		t.Errorf("expected match at 01:00")
	}
	if e.Matches(1, 1) {
		t.Errorf("expected no match at 01:01")
	}
	if e.Matches(2, 0) {
		t.Errorf("expected no match at a different hour")
	}
}

func TestParseRejectsUnsupportedForms(t *testing.T) {
	invalid := []string{
		"*/15 * * * 1",
		"* * * * *",
		"5 5 * * *",
		"*/0 * * * *",
		"*/60 * * * *",
		"0 24 * * *",
		"not a cron",
	}
	for _, expr := range invalid {
		if _, err := Parse(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("expr %q: expected ErrInvalidExpression, got %v", expr, err)
		}
	}
}
