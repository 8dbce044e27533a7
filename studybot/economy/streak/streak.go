// Package streak implements the daily check-in streak rule. The streak
// runs Monday through Sunday: checking in the day after a Sunday
// check-in starts a fresh week at 1 rather than continuing, which caps
// the streak at 7 without an explicit limit.
package streak

import "time"

// Next computes the new streak for a check-in on today. lastCheckin is
// the zero time when the user has never checked in; current is only
// meaningful when lastCheckin is set. Both dates are compared at
// day granularity.
func Next(today, lastCheckin time.Time, current int) int {
	if lastCheckin.IsZero() {
		return 1
	}
	yesterday := today.AddDate(0, 0, -1)
	if !sameDay(lastCheckin, yesterday) {
		// Gap of two or more days. Same-day check-ins are rejected
		// before this function runs.
		return 1
	}
	if lastCheckin.Weekday() == time.Sunday {
		// Weekly reset: a new Mon-Sun cycle begins.
		return 1
	}
	return current + 1
}

// Reward returns the payout for reaching the given streak day: day N
// pays N times the base amount.
func Reward(streak int, base int64) int64 {
	return int64(streak) * base
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
