package kpi

import (
	"fmt"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Period names a preset reporting window.
type Period string

const (
	PeriodThisWeek    Period = "this_week"
	PeriodThisMonth   Period = "this_month"
	PeriodLastNWeeks  Period = "last_n_weeks"
	PeriodLastNMonths Period = "last_n_months"
	PeriodRange       Period = "range"
	PeriodAll         Period = "all"
)

// PeriodQuery selects a reporting window. N applies to the last_n presets;
// From and To to explicit ranges.
type PeriodQuery struct {
	Period Period
	N      int
	From   *time.Time
	To     *time.Time
}

// Bucket is a half-open time window [From, To).
type Bucket struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// Contains reports whether t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.From) && t.Before(b.To)
}

// WeekOfMonth returns 1 for days 1-7, 2 for 8-14, 3 for 15-21 and 4 for the
// rest of the month.
func WeekOfMonth(t time.Time) int {
	switch day := t.Day(); {
	case day <= 7:
		return 1
	case day <= 14:
		return 2
	case day <= 21:
		return 3
	default:
		return 4
	}
}

// GroupByWeekOfMonth splits tickets by the week-of-month of their creation.
// Index 0 holds week 1. Tickets without a creation time are dropped.
func GroupByWeekOfMonth(tickets []domain.Ticket) [4][]domain.Ticket {
	var groups [4][]domain.Ticket
	for _, t := range tickets {
		if !t.Created.IsSet() {
			continue
		}
		week := WeekOfMonth(t.Created.Time)
		groups[week-1] = append(groups[week-1], t)
	}
	return groups
}

// WeekOfMonthBuckets returns the four week-of-month windows of the month
// containing t.
func WeekOfMonthBuckets(t time.Time) []Bucket {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	next := start.AddDate(0, 1, 0)
	bounds := []time.Time{start, start.AddDate(0, 0, 7), start.AddDate(0, 0, 14), start.AddDate(0, 0, 21), next}
	buckets := make([]Bucket, 0, 4)
	for i := 0; i < 4; i++ {
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("Week %d", i+1),
			From:  bounds[i],
			To:    bounds[i+1],
		})
	}
	return buckets
}

// WeeklyBuckets returns n consecutive seven-day windows ending at now, oldest first.
func WeeklyBuckets(n int, now time.Time) []Bucket {
	if n < 1 {
		n = 1
	}
	buckets := make([]Bucket, 0, n)
	for i := n; i > 0; i-- {
		from := now.AddDate(0, 0, -7*i)
		buckets = append(buckets, Bucket{
			Label: from.Format("2006-01-02"),
			From:  from,
			To:    from.AddDate(0, 0, 7),
		})
	}
	return buckets
}

// MonthlyBuckets returns the calendar months from n-1 months ago up to and
// including the current one, oldest first.
func MonthlyBuckets(n int, now time.Time) []Bucket {
	if n < 1 {
		n = 1
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	buckets := make([]Bucket, 0, n)
	for i := n - 1; i >= 0; i-- {
		from := current.AddDate(0, -i, 0)
		buckets = append(buckets, Bucket{
			Label: from.Format("2006-01"),
			From:  from,
			To:    from.AddDate(0, 1, 0),
		})
	}
	return buckets
}

// Range resolves the query into a window relative to now. Weeks start on Monday.
func (q PeriodQuery) Range(now time.Time) (Bucket, error) {
	n := q.N
	if n < 1 {
		n = 1
	}
	end := now.Add(time.Nanosecond)
	switch q.Period {
	case PeriodThisWeek:
		offset := (int(now.Weekday()) + 6) % 7
		start := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, now.Location())
		return Bucket{Label: string(q.Period), From: start, To: end}, nil
	case PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Bucket{Label: string(q.Period), From: start, To: end}, nil
	case PeriodLastNWeeks:
		return Bucket{Label: fmt.Sprintf("last_%d_weeks", n), From: now.AddDate(0, 0, -7*n), To: end}, nil
	case PeriodLastNMonths:
		return Bucket{Label: fmt.Sprintf("last_%d_months", n), From: now.AddDate(0, -n, 0), To: end}, nil
	case PeriodRange:
		if q.From == nil || q.To == nil {
			return Bucket{}, fmt.Errorf("range period needs both from and to")
		}
		if q.To.Before(*q.From) {
			return Bucket{}, fmt.Errorf("range ends before it starts")
		}
		return Bucket{Label: string(q.Period), From: *q.From, To: *q.To}, nil
	case PeriodAll, "":
		return Bucket{Label: string(PeriodAll), To: end}, nil
	default:
		return Bucket{}, fmt.Errorf("unknown period %q", q.Period)
	}
}

// FilterCreatedBetween keeps tickets created inside b.
func FilterCreatedBetween(tickets []domain.Ticket, b Bucket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Created.IsSet() && b.Contains(t.Created.Time) {
			out = append(out, t)
		}
	}
	return out
}

// TrendPoint is the report of one bucket.
type TrendPoint struct {
	Bucket
	Report Report `json:"report"`
}

// Trend computes one report per bucket over the tickets created in it.
func Trend(tickets []domain.Ticket, buckets []Bucket, now time.Time) []TrendPoint {
	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, TrendPoint{Bucket: b, Report: Compute(FilterCreatedBetween(tickets, b), now)})
	}
	return points
}
