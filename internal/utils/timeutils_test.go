package utils

import (
	"testing"
	"time"
)

func TestStepFloor(t *testing.T) {
	const step = int64(60000)

	if got := StepFloor(125000, step); got != 120000 {
		t.Fatalf("expected 120000, got %d", got)
	}
	if got := StepFloor(120000, step); got != 120000 {
		t.Fatalf("expected boundary to be unchanged, got %d", got)
	}
	if got := StepFloor(61000, step); got != 60000 {
		t.Fatalf("expected 60000, got %d", got)
	}
}

func TestStepFloorIdempotent(t *testing.T) {
	const step = int64(60000)
	for _, ts := range []int64{0, 1, 59999, 60000, 125000, 1_700_000_123_456} {
		once := StepFloor(ts, step)
		if twice := StepFloor(once, step); twice != once {
			t.Fatalf("StepFloor not idempotent for %d: %d != %d", ts, once, twice)
		}
	}
}

func TestStepFloorNonPositiveStep(t *testing.T) {
	if got := StepFloor(125000, 0); got != 125000 {
		t.Fatalf("expected timestamp unchanged, got %d", got)
	}
}

func TestAgeOf(t *testing.T) {
	now := time.UnixMilli(120000)
	if got := AgeOf(now, 60000); got != time.Minute {
		t.Fatalf("expected 1m age, got %v", got)
	}
	if got := AgeOf(now, 180000); got != 0 {
		t.Fatalf("future timestamp should yield zero age, got %v", got)
	}
}
