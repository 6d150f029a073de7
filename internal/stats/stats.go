package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeOK labels batches accepted in full.
	OutcomeOK = "ok"
	// OutcomePartial labels batches accepted with validation failures.
	OutcomePartial = "partial"
	// OutcomeRejected labels batches rejected outright.
	OutcomeRejected = "rejected"
)

// Recorder tracks received-datapoint volume and validation failures. It is
// safe for concurrent use; all state lives in Prometheus collectors.
type Recorder struct {
	datapointAgeSeconds prometheus.Histogram
	invalidDatapoints   *prometheus.CounterVec
	publishBatches      *prometheus.CounterVec
}

// NewRecorder builds a recorder whose age histogram is bucketed around the
// evaluation step: dense below one step, geometric above it.
func NewRecorder(step time.Duration) *Recorder {
	if step <= 0 {
		step = time.Minute
	}
	return &Recorder{
		datapointAgeSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "publish_bridge",
				Name:      "datapoint_age_seconds",
				Help:      "Age of received datapoints relative to arrival time.",
				Buckets:   ageBuckets(step),
			},
		),
		invalidDatapoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_bridge",
				Name:      "invalid_datapoints_total",
				Help:      "Datapoints rejected by validation, partitioned by error kind.",
			},
			[]string{"error"},
		),
		publishBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_bridge",
				Name:      "publish_batches_total",
				Help:      "Publish batches handled, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// ageBuckets produces an age-biased layout: quarter-step resolution up to one
// step, then doubling out to roughly an hour.
func ageBuckets(step time.Duration) []float64 {
	quarter := step.Seconds() / 4
	buckets := []float64{quarter, 2 * quarter, 3 * quarter}
	for width := step.Seconds(); width <= 3600; width *= 2 {
		buckets = append(buckets, width)
	}
	return buckets
}

// Register attaches the recorder's collectors to the supplied registerer.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.datapointAgeSeconds,
		r.invalidDatapoints,
		r.publishBatches,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordAge feeds one datapoint's publish latency into the age histogram.
func (r *Recorder) RecordAge(age time.Duration) {
	if age < 0 {
		age = 0
	}
	r.datapointAgeSeconds.Observe(age.Seconds())
}

// RecordFailure increments the invalid-datapoint counter for an error kind.
func (r *Recorder) RecordFailure(kind string) {
	r.invalidDatapoints.WithLabelValues(kind).Inc()
}

// RecordBatch increments the batch counter for a classification outcome.
func (r *Recorder) RecordBatch(outcome string) {
	r.publishBatches.WithLabelValues(outcome).Inc()
}
