package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateLateFee(t *testing.T) {
	due := date(2024, time.January, 1)

	testCases := []struct {
		name     string
		due      time.Time
		end      time.Time
		weekly   float64
		expected float64
	}{
		{"zero due date", time.Time{}, date(2024, time.February, 1), 100, 0},
		{"returned early", due, date(2023, time.December, 20), 100, 0},
		{"returned on due date", due, due, 100, 0},
		{"one day late charges a full week", due, date(2024, time.January, 2), 100, 100},
		{"seven days late still one week", due, date(2024, time.January, 8), 100, 100},
		{"eight days late charges two weeks", due, date(2024, time.January, 9), 100, 200},
		{"ten days late charges two weeks", due, date(2024, time.January, 11), 100, 200},
		{"fourteen days late charges two weeks", due, date(2024, time.January, 15), 100, 200},
		{"fifteen days late charges three weeks", due, date(2024, time.January, 16), 100, 300},
		{"different weekly fee", due, date(2024, time.January, 9), 50, 100},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateLateFee(tt.due, tt.end, tt.weekly))
		})
	}
}

func TestCalculateLateFeeIsPure(t *testing.T) {
	due := date(2024, time.January, 1)
	end := date(2024, time.January, 11)

	first := CalculateLateFee(due, end, 100)
	second := CalculateLateFee(due, end, 100)
	assert.Equal(t, first, second)
}

func TestCalculateLateFeePartialDayRoundsUp(t *testing.T) {
	due := date(2024, time.January, 1)
	// A few hours past due still counts as one day, hence one week.
	end := due.Add(5 * time.Hour)
	assert.Equal(t, 100.0, CalculateLateFee(due, end, 100))
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, date(2024, time.January, 15), AddDays(date(2024, time.January, 1), 14))
	assert.Equal(t, date(2024, time.March, 1), AddDays(date(2024, time.February, 28), 2))
	assert.Equal(t, date(2023, time.December, 31), AddDays(date(2024, time.January, 1), -1))
}

func TestDueDate(t *testing.T) {
	p := Default()
	assert.Equal(t, date(2024, time.June, 15), p.DueDate(date(2024, time.June, 1)))

	// Zero-valued policy falls back to the default window.
	var empty Policy
	assert.Equal(t, date(2024, time.June, 15), empty.DueDate(date(2024, time.June, 1)))
}

func TestLateFee(t *testing.T) {
	p := Policy{LoanDays: 14, WeeklyFee: 100}
	due := date(2024, time.January, 1)

	returned := date(2024, time.January, 11)
	assert.Equal(t, 200.0, p.LateFee(due, &returned, date(2024, time.June, 1)))

	// Open borrowing accrues against now.
	assert.Equal(t, 100.0, p.LateFee(due, nil, date(2024, time.January, 3)))
	assert.Equal(t, 0.0, p.LateFee(due, nil, date(2023, time.December, 1)))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 0.3, RoundAmount(0.1+0.2))
	assert.Equal(t, 123.46, RoundAmount(123.456))
	assert.Equal(t, 100.0, RoundAmount(100))
}
