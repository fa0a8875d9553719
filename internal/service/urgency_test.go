package service

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aec-internal/requisitions-api/internal/dto"
)

var today = time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)

func isoDate(daysFromToday int) string {
	return today.AddDate(0, 0, daysFromToday).Format("2006-01-02")
}

func TestClassifyUrgencyBands(t *testing.T) {
	cases := []struct {
		name string
		date string
		band string
		days int
	}{
		{"overdue yesterday", isoDate(-1), BandOverdue, -1},
		{"urgent today", isoDate(0), BandUrgent, 0},
		{"urgent plus three", isoDate(3), BandUrgent, 3},
		{"urgent boundary", isoDate(7), BandUrgent, 7},
		{"high lower boundary", isoDate(8), BandHigh, 8},
		{"high upper boundary", isoDate(15), BandHigh, 15},
		{"medium lower boundary", isoDate(16), BandMedium, 16},
		{"medium plus twenty", isoDate(20), BandMedium, 20},
		{"medium upper boundary", isoDate(30), BandMedium, 30},
		{"low", isoDate(31), BandLow, 31},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := ClassifyUrgency(tc.date, today)
			assert.Equal(t, tc.band, u.Band)
			assert.Equal(t, tc.days, u.DaysRemaining)
			assert.True(t, u.Scheduled)
		})
	}
}

func TestClassifyUrgencyMissingDate(t *testing.T) {
	for _, raw := range []string{"", "-", "not a date"} {
		u := ClassifyUrgency(raw, today)
		assert.Equal(t, BandUnscheduled, u.Band, "input %q", raw)
		assert.False(t, u.Scheduled)
	}
}

func TestClassifyUrgencyBrazilianDateLayout(t *testing.T) {
	u := ClassifyUrgency(today.AddDate(0, 0, 3).Format("02/01/2006"), today)
	assert.Equal(t, BandUrgent, u.Band)
	assert.Equal(t, 3, u.DaysRemaining)
}

func TestMatchesUrgencyFilterAggregates(t *testing.T) {
	urgent := ClassifyUrgency(isoDate(5), today)
	overdue := ClassifyUrgency(isoDate(-2), today)
	high := ClassifyUrgency(isoDate(12), today)
	medium := ClassifyUrgency(isoDate(25), today)
	low := ClassifyUrgency(isoDate(45), today)
	unscheduled := ClassifyUrgency("", today)

	// the source dashboard filter semantics
	assert.True(t, MatchesUrgencyFilter("urgent", urgent))
	assert.True(t, MatchesUrgencyFilter("urgent", overdue))
	assert.False(t, MatchesUrgencyFilter("urgent", high))

	assert.True(t, MatchesUrgencyFilter("medium", high))
	assert.True(t, MatchesUrgencyFilter("medium", medium))
	assert.False(t, MatchesUrgencyFilter("medium", urgent))
	assert.False(t, MatchesUrgencyFilter("medium", low))

	assert.True(t, MatchesUrgencyFilter("low", low))
	assert.False(t, MatchesUrgencyFilter("low", medium))

	assert.True(t, MatchesUrgencyFilter("unscheduled", unscheduled))
	assert.False(t, MatchesUrgencyFilter("urgent", unscheduled))

	assert.True(t, MatchesUrgencyFilter("", urgent))
	assert.False(t, MatchesUrgencyFilter("bogus", urgent))
}

func TestLessUrgentOrdersUnscheduledLast(t *testing.T) {
	urgencies := []dto.Urgency{
		ClassifyUrgency("", today),
		ClassifyUrgency(isoDate(20), today),
		ClassifyUrgency(isoDate(-1), today),
		ClassifyUrgency(isoDate(3), today),
	}

	sort.SliceStable(urgencies, func(i, j int) bool {
		return LessUrgent(urgencies[i], urgencies[j])
	})

	assert.Equal(t, -1, urgencies[0].DaysRemaining)
	assert.Equal(t, 3, urgencies[1].DaysRemaining)
	assert.Equal(t, 20, urgencies[2].DaysRemaining)
	assert.False(t, urgencies[3].Scheduled)
}
