// Package streak holds the pure daily check-in streak rules.
// Every function takes the current instant as an argument.
package streak

import (
	"math"
	"time"
)

// MinInterval is the minimum gap between two admitted check-ins.
const MinInterval = 24 * time.Hour

// DecayAfterDays is the elapsed whole-day count beyond which a streak is broken.
const DecayAfterDays = 1

// Reason explains why a check-in was not admitted.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonTooSoon Reason = "too_soon"
)

// Decision is the result of evaluating a check-in attempt.
type Decision struct {
	Admitted bool
	Reason   Reason
	// Streak is the new value when admitted, otherwise the unchanged current value.
	Streak int
	// RetryAt is set when the attempt was rejected as too soon.
	RetryAt *time.Time
}

// ElapsedHours returns the hours since last, or +Inf when there is no previous check-in.
func ElapsedHours(last *time.Time, now time.Time) float64 {
	if last == nil {
		return math.Inf(1)
	}
	return now.Sub(*last).Hours()
}

// ElapsedDays returns floor(elapsedHours/24), or -1 when there is no previous check-in.
func ElapsedDays(last *time.Time, now time.Time) int {
	if last == nil {
		return -1
	}
	return int(math.Floor(ElapsedHours(last, now) / 24))
}

// Decayed reports whether a streak anchored at last is broken at now.
// An absent last check-in counts as decayed.
func Decayed(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return ElapsedDays(last, now) > DecayAfterDays
}

// DecayCutoff is the latest last-check-in instant that is decayed at now.
// A streak is intact exactly when its last check-in is after the cutoff.
func DecayCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(DecayAfterDays+1) * 24 * time.Hour)
}

// Admissible reports whether a new check-in may be recorded at now.
func Admissible(last *time.Time, now time.Time) bool {
	return ElapsedHours(last, now) >= MinInterval.Hours()
}

// Evaluate applies the admission gate and the streak transition.
func Evaluate(last *time.Time, now time.Time, current int) Decision {
	if current < 0 {
		current = 0
	}
	if !Admissible(last, now) {
		retry := last.Add(MinInterval)
		return Decision{Reason: ReasonTooSoon, Streak: current, RetryAt: &retry}
	}
	if last == nil {
		return Decision{Admitted: true, Streak: 1}
	}
	// admission guarantees at least one elapsed day
	if ElapsedDays(last, now) == 1 {
		return Decision{Admitted: true, Streak: current + 1}
	}
	return Decision{Admitted: true, Streak: 1}
}

// Current returns the streak a reader should see at now without mutating anything.
func Current(last *time.Time, now time.Time, stored int) int {
	if stored <= 0 || Decayed(last, now) {
		return 0
	}
	return stored
}
