package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoNumber(t *testing.T) {
	testCases := []struct {
		prefix   string
		year     int
		seq      int
		pad      int
		expected string
	}{
		{"BR", 2026, 1, 4, "BR20260001"},
		{"BR", 2026, 123, 4, "BR20260123"},
		{"RS", 2024, 42, 4, "RS20240042"},
		{"M", 2025, 7, 4, "M20250007"},
		{"BR", 2026, 12345, 4, "BR202612345"},
		{"X", 2026, 3, 3, "X2026003"},
	}
	for _, tt := range testCases {
		assert.Equal(t, tt.expected, AutoNumber(tt.prefix, tt.year, tt.seq, tt.pad))
	}
}

func TestNextSequence(t *testing.T) {
	testCases := []struct {
		name     string
		existing []string
		prefix   string
		year     int
		expected int
	}{
		{"empty", nil, "BR", 2026, 1},
		{"continues max", []string{"BR20260001", "BR20260005", "BR20260003"}, "BR", 2026, 6},
		{"other years ignored", []string{"BR20250009", "BR20260002"}, "BR", 2026, 3},
		{"other prefixes ignored", []string{"RS20260009"}, "BR", 2026, 1},
		{"malformed suffix ignored", []string{"BR2026abcd", "BR20260004"}, "BR", 2026, 5},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextSequence(tt.existing, tt.prefix, tt.year))
		})
	}
}

func TestNext(t *testing.T) {
	assert.Equal(t, "RS20260001", Next(nil, ReservationPrefix, 2026))
	assert.Equal(t, "BR20260003", Next([]string{"BR20260002"}, BorrowingPrefix, 2026))
}

func TestNextBookNumber(t *testing.T) {
	testCases := []struct {
		name     string
		existing []string
		expected string
	}{
		{"empty catalog", nil, "B10001"},
		{"continues max", []string{"B10005", "B10002"}, "B10006"},
		{"single entry", []string{"B10001"}, "B10002"},
		{"malformed ignored", []string{"X999", "B10003", "Bxyz"}, "B10004"},
		{"all malformed falls back to floor", []string{"junk", "12345"}, "B10001"},
		{"below floor still advances from floor", []string{"B3"}, "B10001"},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextBookNumber(tt.existing))
		})
	}
}
