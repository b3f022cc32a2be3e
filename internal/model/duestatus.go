package model

import "time"

// DueStatusFor buckets a due date relative to today. Both inputs are
// normalized to midnight, so time-of-day never affects the bucket. Weeks
// start on Monday: anything from today through Sunday of the current week is
// Due Now, the following calendar week is Due Soon, and past dates are
// Overdue. The caller supplies "today" so the classification stays
// deterministic.
func DueStatusFor(today, dueDate time.Time) DueStatus {
	today = midnight(today)
	due := midnight(dueDate)

	if due.Before(today) {
		return DueOverdue
	}

	weekEnd := endOfWeek(today)
	if !due.After(weekEnd) {
		return DueNow
	}
	if !due.After(weekEnd.AddDate(0, 0, 7)) {
		return DueSoon
	}
	return DueLater
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// endOfWeek returns the Sunday at or after t, at midnight.
func endOfWeek(t time.Time) time.Time {
	daysUntilSunday := (7 - int(t.Weekday())) % 7
	return midnight(t).AddDate(0, 0, daysUntilSunday)
}
