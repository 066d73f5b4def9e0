package seasons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		override bool
		ok       bool
	}{
		{StatusDraft, StatusRegistration, false, true},
		{StatusDraft, StatusActive, false, false},
		{StatusRegistration, StatusActive, false, true},
		{StatusRegistration, StatusDraft, false, true},
		{StatusActive, StatusCompleted, false, true},
		{StatusActive, StatusDraft, false, false},
		{StatusCompleted, StatusArchived, false, true},
		{StatusCompleted, StatusActive, false, false},
		{StatusCompleted, StatusActive, true, true},
		{StatusArchived, StatusActive, true, false},
		{StatusActive, StatusActive, false, true},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to, tc.override)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s override=%v", tc.from, tc.to, tc.override)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s override=%v", tc.from, tc.to, tc.override)
		}
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWeekCount(t *testing.T) {
	season := Season{StartDate: day("2025-06-02"), EndDate: day("2025-07-28")}
	// Eight full weeks.
	assert.Equal(t, 8, season.WeekCount())

	short := Season{StartDate: day("2025-06-02"), EndDate: day("2025-06-12")}
	// Ten days round up to two weeks.
	assert.Equal(t, 2, short.WeekCount())

	empty := Season{StartDate: day("2025-06-02"), EndDate: day("2025-06-02")}
	assert.Equal(t, 0, empty.WeekCount())
}

func TestWeeksClipFinalBlock(t *testing.T) {
	season := Season{StartDate: day("2025-06-02"), EndDate: day("2025-06-12")}
	weeks := season.Weeks()
	require.Len(t, weeks, 2)

	assert.Equal(t, 1, weeks[0].Number)
	assert.Equal(t, day("2025-06-02"), weeks[0].Start)
	assert.Equal(t, day("2025-06-09"), weeks[0].End)

	assert.Equal(t, 2, weeks[1].Number)
	assert.Equal(t, day("2025-06-09"), weeks[1].Start)
	assert.Equal(t, day("2025-06-12"), weeks[1].End, "final week clipped to season end")
}

func TestWeekOf(t *testing.T) {
	season := Season{StartDate: day("2025-06-02"), EndDate: day("2025-07-28")}

	assert.Equal(t, 1, season.WeekOf(day("2025-06-02")))
	assert.Equal(t, 1, season.WeekOf(day("2025-06-08")))
	assert.Equal(t, 2, season.WeekOf(day("2025-06-09")))
	assert.Equal(t, 8, season.WeekOf(day("2025-07-27")))
	assert.Equal(t, 0, season.WeekOf(day("2025-06-01")), "before season start")
	assert.Equal(t, 0, season.WeekOf(day("2025-07-28")), "season end is exclusive")
}
