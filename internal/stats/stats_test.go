package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewRecorder(time.Minute)
	if err := recorder.Register(reg); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	// Registering twice must tolerate AlreadyRegisteredError.
	if err := recorder.Register(reg); err != nil {
		t.Fatalf("re-register should be a no-op, got %v", err)
	}
}

func TestRecordFailureCountsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewRecorder(time.Minute)
	if err := recorder.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	recorder.RecordFailure("invalid tag")
	recorder.RecordFailure("invalid tag")
	recorder.RecordFailure("value is not finite")

	if got := testutil.ToFloat64(recorder.invalidDatapoints.WithLabelValues("invalid tag")); got != 2 {
		t.Fatalf("expected 2 'invalid tag' failures, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.invalidDatapoints.WithLabelValues("value is not finite")); got != 1 {
		t.Fatalf("expected 1 'value is not finite' failure, got %v", got)
	}
}

func TestRecordAgeObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewRecorder(time.Minute)
	if err := recorder.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	recorder.RecordAge(30 * time.Second)
	recorder.RecordAge(-time.Second)

	if got := testutil.CollectAndCount(recorder.datapointAgeSeconds); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestAgeBucketsScaleWithStep(t *testing.T) {
	buckets := ageBuckets(time.Minute)
	if len(buckets) < 4 {
		t.Fatalf("expected sub-step and geometric buckets, got %v", buckets)
	}
	if buckets[0] != 15 || buckets[3] != 60 {
		t.Fatalf("expected quarter-step resolution up to one step, got %v", buckets)
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			t.Fatalf("buckets must be strictly increasing: %v", buckets)
		}
	}
}
