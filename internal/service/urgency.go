package service

import (
	"math"
	"strings"
	"time"

	"github.com/aec-internal/requisitions-api/internal/dto"
)

// Urgency bands derived from the days remaining until the needed-by date.
const (
	BandOverdue     = "overdue"
	BandUrgent      = "urgent"
	BandHigh        = "high"
	BandMedium      = "medium"
	BandLow         = "low"
	BandUnscheduled = "unscheduled"
)

// dateLayouts cover the formats the sheet accumulated over time: ISO dates
// from date inputs and dd/mm/yyyy from pt-BR locale formatting.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006"}

// ClassifyUrgency bands a needed-by date relative to today. A missing or
// unparseable date classifies as unscheduled, which sorts after every
// scheduled band.
func ClassifyUrgency(neededBy string, today time.Time) dto.Urgency {
	needed, ok := parseSheetDate(neededBy)
	if !ok {
		return dto.Urgency{Band: BandUnscheduled}
	}

	days := daysRemaining(needed, today)
	return dto.Urgency{Band: bandFor(days), DaysRemaining: days, Scheduled: true}
}

// MatchesUrgencyFilter evaluates the dashboard urgency filters: the three
// aggregate filters match the source dashboards exactly (urgent ≤7 days,
// medium 8–30, low >30), and each band name matches itself.
func MatchesUrgencyFilter(filter string, u dto.Urgency) bool {
	switch strings.ToLower(filter) {
	case "":
		return true
	case BandUrgent:
		// The urgent aggregate has no lower bound: overdue items are
		// still outstanding, so they show under the urgent filter even
		// though they band as overdue.
		return u.Scheduled && u.DaysRemaining <= 7
	case BandMedium:
		return u.Scheduled && u.DaysRemaining > 7 && u.DaysRemaining <= 30
	case BandLow:
		return u.Scheduled && u.DaysRemaining > 30
	case BandOverdue:
		return u.Scheduled && u.DaysRemaining < 0
	case BandHigh:
		return u.Scheduled && u.DaysRemaining > 7 && u.DaysRemaining <= 15
	case BandUnscheduled:
		return !u.Scheduled
	default:
		return false
	}
}

// LessUrgent orders groups for display: scheduled before unscheduled, then
// ascending days remaining.
func LessUrgent(a, b dto.Urgency) bool {
	if a.Scheduled != b.Scheduled {
		return a.Scheduled
	}
	if !a.Scheduled {
		return false
	}
	return a.DaysRemaining < b.DaysRemaining
}

func bandFor(days int) string {
	switch {
	case days < 0:
		return BandOverdue
	case days <= 7:
		return BandUrgent
	case days <= 15:
		return BandHigh
	case days <= 30:
		return BandMedium
	default:
		return BandLow
	}
}

func daysRemaining(needed, today time.Time) int {
	needed = truncateToDay(needed)
	today = truncateToDay(today)
	return int(math.Ceil(needed.Sub(today).Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseSheetDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
