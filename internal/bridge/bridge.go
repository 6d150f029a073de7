package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/meterstack/publish-bridge/internal/eval"
	"github.com/meterstack/publish-bridge/internal/models"
	"github.com/meterstack/publish-bridge/internal/stats"
	"github.com/meterstack/publish-bridge/internal/utils"
)

// Evaluator is the narrow contract the bridge depends on: evaluate a batch of
// pairs against a named subscription group. The payload is opaque to the
// bridge and forwarded verbatim.
type Evaluator interface {
	Eval(group string, timestamp int64, pairs []models.TagsValuePair) any
}

// Forwarder delivers an evaluation payload downstream.
type Forwarder interface {
	Forward(ctx context.Context, payload any) error
}

// Refresher brings the evaluator's subscription set up to date.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StatsRecorder records received-volume and validation-failure statistics.
type StatsRecorder interface {
	RecordAge(age time.Duration)
	RecordFailure(kind string)
	RecordBatch(outcome string)
}

// Config controls bucketing and the refresh schedule.
type Config struct {
	Step                time.Duration
	RefreshInterval     time.Duration
	RefreshInitialDelay time.Duration
}

// Bridge classifies inbound publish batches, evaluates valid datapoints
// against the current subscriptions, and forwards the result downstream.
// It also drives the periodic subscription refresh.
//
// Classification is a pure function of one request; the only state shared
// between the publish path and the refresh path is the evaluator's
// subscription set, which supports atomic replace and lock-free reads. The
// refresh loop runs on a single goroutine, so refresh invocations never
// overlap each other.
type Bridge struct {
	logger    *slog.Logger
	stats     StatsRecorder
	evaluator Evaluator
	forwarder Forwarder
	refresher Refresher
	cfg       Config
	latencies *utils.LatencyTracker

	// now is swappable for tests.
	now func() time.Time
}

// New constructs a bridge. Step defaults to one minute and the refresh
// interval to ten seconds when unset.
func New(logger *slog.Logger, cfg Config, recorder StatsRecorder, evaluator Evaluator, forwarder Forwarder, refresher Refresher) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Step <= 0 {
		cfg.Step = time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 10 * time.Second
	}
	return &Bridge{
		logger:    logger,
		stats:     recorder,
		evaluator: evaluator,
		forwarder: forwarder,
		refresher: refresher,
		cfg:       cfg,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

// Publish classifies one inbound batch and completes it. Complete is invoked
// exactly once on every path. Forwarding is fire-and-forget: completion never
// waits for the downstream POST.
func (b *Bridge) Publish(req *models.PublishRequest) {
	start := b.now()

	switch {
	case len(req.Values) == 0 && len(req.Failures) == 0:
		b.stats.RecordBatch(stats.OutcomeRejected)
		req.Complete(http.StatusBadRequest, models.EmptyPayloadDiagnostic())

	case len(req.Values) == 0:
		b.recordFailures(req.Failures)
		b.stats.RecordBatch(stats.OutcomeRejected)
		req.Complete(http.StatusBadRequest, models.FailureDiagnostic(models.DiagnosticError, req.Failures))

	case len(req.Failures) == 0:
		b.process(req.Values)
		b.stats.RecordBatch(stats.OutcomeOK)
		req.Complete(http.StatusOK, nil)

	default:
		b.process(req.Values)
		b.recordFailures(req.Failures)
		b.stats.RecordBatch(stats.OutcomePartial)
		req.Complete(http.StatusAccepted, models.FailureDiagnostic(models.DiagnosticPartial, req.Failures))
	}

	b.observeLatency(b.now().Sub(start))
}

// process evaluates a non-empty value list and dispatches the forward.
// The first datapoint's timestamp is authoritative for the batch.
func (b *Bridge) process(values []models.Datapoint) {
	now := b.now()
	for _, dp := range values {
		b.stats.RecordAge(utils.AgeOf(now, dp.Timestamp))
	}

	timestamp := utils.StepFloor(values[0].Timestamp, b.cfg.Step.Milliseconds())
	pairs := make([]models.TagsValuePair, 0, len(values))
	for _, dp := range values {
		pairs = append(pairs, dp.Pair())
	}

	payload := b.evaluator.Eval(eval.DefaultGroup, timestamp, pairs)

	go func() {
		if err := b.forwarder.Forward(context.Background(), payload); err != nil {
			b.logger.Warn("forward failed, batch dropped", slog.Any("error", err))
		}
	}()
}

func (b *Bridge) recordFailures(failures []models.ValidationFailure) {
	for _, f := range failures {
		b.stats.RecordFailure(f.Error)
	}
}

func (b *Bridge) observeLatency(d time.Duration) {
	b.latencies.Observe(d)
	if count := b.latencies.Count(); count >= 100 && count%100 == 0 {
		b.logger.Info("publish latency",
			slog.Duration("p95", b.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
}

// Run drives the periodic subscription refresh until ctx is cancelled: one
// refresh after the initial delay, then one per interval. Every failure is
// logged and absorbed; the loop never stops on its own.
func (b *Bridge) Run(ctx context.Context) {
	if b.cfg.RefreshInitialDelay > 0 {
		delay := time.NewTimer(b.cfg.RefreshInitialDelay)
		select {
		case <-ctx.Done():
			delay.Stop()
			return
		case <-delay.C:
		}
	}
	b.runRefresh(ctx)

	ticker := time.NewTicker(b.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.runRefresh(ctx)
		}
	}
}

func (b *Bridge) runRefresh(ctx context.Context) {
	if err := b.refresher.Refresh(ctx); err != nil {
		b.logger.Warn("subscription refresh failed", slog.Any("error", err))
	}
}
