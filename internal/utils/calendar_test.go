package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueDate(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		month  int
		dueDay int
		want   time.Time
	}{
		{name: "mid month", year: 2025, month: 7, dueDay: 15, want: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)},
		{name: "february clamp", year: 2025, month: 2, dueDay: 31, want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "leap february", year: 2024, month: 2, dueDay: 30, want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "zero day", year: 2025, month: 3, dueDay: 0, want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueDate(tt.year, tt.month, tt.dueDay, time.UTC))
		})
	}
}

func TestResolveDueDay(t *testing.T) {
	assert.Equal(t, 10, ResolveDueDay(10, 15))
	assert.Equal(t, 28, ResolveDueDay(28, 15))
	assert.Equal(t, 15, ResolveDueDay(0, 15))
	assert.Equal(t, 15, ResolveDueDay(31, 15))
}

func TestPeriodIndexOrdersAcrossYears(t *testing.T) {
	assert.Less(t, PeriodIndex(2024, 12), PeriodIndex(2025, 1))
	assert.Equal(t, 1, PeriodIndex(2025, 2)-PeriodIndex(2025, 1))
}

func TestYearMonthUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on June 30 is already July 1 in IST
	instant := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)

	y, m := YearMonth(instant, time.UTC)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 6, m)

	y, m = YearMonth(instant, kolkata)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 7, m)
}

func TestWholeDaysBetween(t *testing.T) {
	due := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WholeDaysBetween(due, due.Add(23*time.Hour)))
	assert.Equal(t, 31, WholeDaysBetween(due, time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, WholeDaysBetween(due, due.Add(-48*time.Hour)))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 31, DaysIn(2025, 1, time.UTC))
	assert.Equal(t, 28, DaysIn(2025, 2, time.UTC))
	assert.Equal(t, 29, DaysIn(2024, 2, time.UTC))
	assert.Equal(t, 30, DaysIn(2025, 9, time.UTC))
}

func TestMonthAbbrev(t *testing.T) {
	assert.Equal(t, "Jan", MonthAbbrev(1))
	assert.Equal(t, "Jul", MonthAbbrev(7))
	assert.Equal(t, "Dec", MonthAbbrev(12))
}
