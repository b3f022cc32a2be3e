package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDueStatusFor(t *testing.T) {
	// Wednesday, in the week Mon Jan 8 – Sun Jan 14.
	today := time.Date(2024, time.January, 10, 15, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		want DueStatus
	}{
		{"yesterday", date(2024, time.January, 9), DueOverdue},
		{"last month", date(2023, time.December, 20), DueOverdue},
		{"today", date(2024, time.January, 10), DueNow},
		{"friday this week", date(2024, time.January, 12), DueNow},
		{"sunday this week", date(2024, time.January, 14), DueNow},
		{"monday next week", date(2024, time.January, 15), DueSoon},
		{"sunday next week", date(2024, time.January, 21), DueSoon},
		{"monday in two weeks", date(2024, time.January, 22), DueLater},
		{"next year", date(2025, time.June, 1), DueLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueStatusFor(today, tt.due))
		})
	}
}

func TestDueStatusForIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2024, time.January, 10, 23, 59, 59, 0, time.UTC)

	// Late on Sunday is still this week.
	due := time.Date(2024, time.January, 14, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DueNow, DueStatusFor(today, due))

	// Very early today is not overdue.
	due = time.Date(2024, time.January, 10, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, DueNow, DueStatusFor(today, due))
}

func TestDueStatusForWeekStartsMonday(t *testing.T) {
	// On a Sunday, the current week ends the same day.
	sunday := date(2024, time.January, 14)

	assert.Equal(t, DueNow, DueStatusFor(sunday, date(2024, time.January, 14)))
	assert.Equal(t, DueSoon, DueStatusFor(sunday, date(2024, time.January, 15)))
	assert.Equal(t, DueSoon, DueStatusFor(sunday, date(2024, time.January, 21)))
	assert.Equal(t, DueLater, DueStatusFor(sunday, date(2024, time.January, 22)))
}
