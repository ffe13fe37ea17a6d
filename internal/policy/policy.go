// Package policy holds the pure accrual arithmetic: minute-to-point
// conversion, the per-session ceiling, the all-or-nothing daily cap and
// lazy day rollover. No I/O, so the cap rules are testable without a
// storage fixture.
package policy

import (
	"math"
	"time"
)

// ApprovedMinutes recomputes a session's server-approved minutes at
// heartbeat time. Only the server clock determines billable duration:
// floor of wall time since startedAt, clamped to capMinutes, and never
// below stored so clock skew cannot regress the counter.
func ApprovedMinutes(startedAt, now time.Time, capMinutes, stored int) int {
	elapsed := int(now.Sub(startedAt) / time.Minute)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > capMinutes {
		elapsed = capMinutes
	}
	if elapsed < stored {
		return stored
	}
	return elapsed
}

// ComputeAward converts approved minutes into a point award and checks
// the daily cap. allowed=false means the whole award is rejected; the
// caller must not commit a partial credit.
func ComputeAward(approvedMinutes int, pointsPerMinute int64, sessionCapMinutes int, pointsEarnedToday, dailyLimit int64) (award int64, allowed bool) {
	minutes := approvedMinutes
	if minutes > sessionCapMinutes {
		minutes = sessionCapMinutes
	}
	if minutes < 0 {
		minutes = 0
	}
	award = int64(minutes) * pointsPerMinute
	if pointsEarnedToday+award > dailyLimit {
		return award, false
	}
	return award, true
}

// SameAccrualDay reports whether last and now fall on the same calendar
// day in the reference timezone.
func SameAccrualDay(last, now time.Time, loc *time.Location) bool {
	ly, lm, ld := last.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ly == ny && lm == nm && ld == nd
}

// EffectiveEarnedToday applies lazy day rollover: the stored counter
// counts only if the last committed accrual happened today. Computed
// fresh inside each transaction instead of a scheduled midnight reset.
func EffectiveEarnedToday(stored int64, lastAccrualAt *time.Time, now time.Time, loc *time.Location) int64 {
	if lastAccrualAt == nil || !SameAccrualDay(*lastAccrualAt, now, loc) {
		return 0
	}
	return stored
}

// PointsCost converts a currency amount into locked points.
func PointsCost(amountCurrency float64, conversionRate int64) int64 {
	return int64(math.Round(amountCurrency * float64(conversionRate)))
}
