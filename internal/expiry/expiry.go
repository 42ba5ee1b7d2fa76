package expiry

import (
	"fmt"
	"sort"
	"time"

	"gympulse-backend/internal/model"
)

// DefaultWindowDays is the inclusive alerting window before expiry.
const DefaultWindowDays = 3

// ExpiringVisitor is a visitor projected with its derived expiry state.
type ExpiringVisitor struct {
	model.Visitor
	ExpiryDate      time.Time `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// AddMonths advances t by the given number of calendar months, clamping the
// day-of-month to the length of the target month (Jan 31 + 1 month is
// Feb 28/29, not Mar 2).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ExpiryDate derives the subscription end date: start date plus duration in
// calendar months.
func ExpiryDate(v model.Visitor) time.Time {
	return AddMonths(v.StartDate, v.Duration)
}

// DaysUntil returns the number of whole calendar days from today until the
// given date. Time-of-day is ignored on both sides; negative means the date
// has passed.
func DaysUntil(date, today time.Time) int {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := today.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b) / (24 * time.Hour))
}

// ComputeExpiring classifies the visitor collection by expiry urgency.
// A visitor is in the result iff it is active and its expiry date falls
// within [0, windowDays] days of today. The result is sorted ascending by
// days-until-expiry; ties keep input order. Pure: the input is never
// mutated and the same snapshot always yields the same output.
func ComputeExpiring(visitors []model.Visitor, today time.Time, windowDays int) []ExpiringVisitor {
	expiring := make([]ExpiringVisitor, 0)
	for _, v := range visitors {
		if v.Status != model.StatusActive {
			continue
		}
		expiryDate := ExpiryDate(v)
		days := DaysUntil(expiryDate, today)
		if days < 0 || days > windowDays {
			continue
		}
		expiring = append(expiring, ExpiringVisitor{
			Visitor:         v,
			ExpiryDate:      expiryDate,
			DaysUntilExpiry: days,
		})
	}

	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].DaysUntilExpiry < expiring[j].DaysUntilExpiry
	})
	return expiring
}

// Lapsed returns the visitors that are still recorded active but whose
// expiry date has already passed. These feed the reconciliation write.
func Lapsed(visitors []model.Visitor, today time.Time) []model.Visitor {
	var lapsed []model.Visitor
	for _, v := range visitors {
		if v.Status != model.StatusActive {
			continue
		}
		if DaysUntil(ExpiryDate(v), today) < 0 {
			lapsed = append(lapsed, v)
		}
	}
	return lapsed
}

// SummaryMessage builds the single advisory line for a non-empty expiring
// set. Only the most urgent bucket is reported: today takes precedence over
// tomorrow, tomorrow over 2 days, 2 days over 3. Returns false for an empty
// set.
func SummaryMessage(expiring []ExpiringVisitor) (string, bool) {
	if len(expiring) == 0 {
		return "", false
	}

	minDays := expiring[0].DaysUntilExpiry
	count := 0
	for _, v := range expiring {
		if v.DaysUntilExpiry < minDays {
			minDays = v.DaysUntilExpiry
			count = 0
		}
		if v.DaysUntilExpiry == minDays {
			count++
		}
	}

	switch minDays {
	case 0:
		return fmt.Sprintf("%d %s today!", count, subscriptionsExpire(count)), true
	case 1:
		return fmt.Sprintf("%d %s tomorrow!", count, subscriptionsExpire(count)), true
	default:
		return fmt.Sprintf("%d %s in %d days!", count, subscriptionsExpire(count), minDays), true
	}
}

func subscriptionsExpire(n int) string {
	if n == 1 {
		return "subscription expires"
	}
	return "subscriptions expire"
}
