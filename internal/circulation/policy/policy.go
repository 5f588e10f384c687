// Package policy holds the circulation date and fee arithmetic.
// Everything here is pure; callers inject "now" so transitions stay
// deterministic under test.
package policy

import (
	"math"
	"time"
)

const (
	// DefaultLoanDays is the lending window applied when a borrowing
	// request carries no due date.
	DefaultLoanDays = 14

	// DefaultWeeklyFee is the late-fee unit charged per started week.
	DefaultWeeklyFee = 100.0
)

// Policy is the effective circulation policy, normally loaded from config.
type Policy struct {
	LoanDays  int
	WeeklyFee float64
}

func Default() Policy {
	return Policy{LoanDays: DefaultLoanDays, WeeklyFee: DefaultWeeklyFee}
}

// AddDays returns the instant n days after t.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DueDate derives the default due date for a borrowing started at borrowDate.
func (p Policy) DueDate(borrowDate time.Time) time.Time {
	days := p.LoanDays
	if days <= 0 {
		days = DefaultLoanDays
	}
	return AddDays(borrowDate, days)
}

// CalculateLateFee computes the fee owed for a borrowing due at due and
// ended at end (the return instant, or "now" for a still-open borrowing).
// Fees accrue in whole-week increments rounding up: one day late already
// costs a full week. The ceiling semantics are the billing contract and
// must not be loosened to floor/round.
func CalculateLateFee(due time.Time, end time.Time, weeklyFee float64) float64 {
	if due.IsZero() {
		return 0
	}
	if !end.After(due) {
		return 0
	}
	daysLate := math.Ceil(end.Sub(due).Hours() / 24)
	weeksLate := math.Ceil(daysLate / 7)
	return weeksLate * weeklyFee
}

// LateFee applies CalculateLateFee with the policy's weekly fee. A nil
// returnedAt means the borrowing is still open and is charged up to now.
func (p Policy) LateFee(due time.Time, returnedAt *time.Time, now time.Time) float64 {
	end := now
	if returnedAt != nil {
		end = *returnedAt
	}
	fee := p.WeeklyFee
	if fee <= 0 {
		fee = DefaultWeeklyFee
	}
	return CalculateLateFee(due, end, fee)
}

// RoundAmount rounds a currency aggregate to 2 decimal places. Single-record
// fees are whole multiples of the weekly fee and are never rounded; only
// sums across many records go through here.
func RoundAmount(x float64) float64 {
	return math.Round(x*100) / 100
}
