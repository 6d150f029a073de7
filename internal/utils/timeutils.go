package utils

import "time"

// StepFloor rounds an epoch-millisecond timestamp down to the start of its
// step bucket. It is idempotent: StepFloor(StepFloor(ts, s), s) == StepFloor(ts, s).
// A non-positive step returns the timestamp unchanged.
func StepFloor(ts, stepMillis int64) int64 {
	if stepMillis <= 0 {
		return ts
	}
	floored := (ts / stepMillis) * stepMillis
	if ts < 0 && ts%stepMillis != 0 {
		floored -= stepMillis
	}
	return floored
}

// EpochMillis converts a time to epoch milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// AgeOf returns how long ago the epoch-millisecond timestamp was, relative to
// now. A timestamp from the future yields zero rather than a negative age.
func AgeOf(now time.Time, ts int64) time.Duration {
	age := now.Sub(time.UnixMilli(ts))
	if age < 0 {
		return 0
	}
	return age
}
