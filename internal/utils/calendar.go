package utils

import "time"

// MaxDueDay is the latest day of month a fee may fall due, so every month has it
const MaxDueDay = 28

// DaysIn returns the number of days in the given month
func DaysIn(year, month int, loc *time.Location) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc).Day()
}

// ResolveDueDay picks the student's due day when it is in range, otherwise the fallback
func ResolveDueDay(studentDay, fallback int) int {
	if studentDay >= 1 && studentDay <= MaxDueDay {
		return studentDay
	}
	return fallback
}

// DueDate places dueDay inside the month, clamped to the month's length
func DueDate(year, month, dueDay int, loc *time.Location) time.Time {
	day := min(dueDay, DaysIn(year, month, loc))
	if day < 1 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// PeriodIndex maps (year, month) onto a single comparable integer
func PeriodIndex(year, month int) int {
	return year*12 + month - 1
}

// YearMonth returns t's calendar year and month in loc
func YearMonth(t time.Time, loc *time.Location) (int, int) {
	t = t.In(loc)
	return t.Year(), int(t.Month())
}

// WholeDaysBetween counts whole days from earlier to later
func WholeDaysBetween(earlier, later time.Time) int {
	if later.Before(earlier) {
		return 0
	}
	return int(later.Sub(earlier) / (24 * time.Hour))
}

// MonthAbbrev returns "Jan".."Dec"
func MonthAbbrev(month int) string {
	return time.Month(month).String()[:3]
}
