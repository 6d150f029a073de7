package subs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meterstack/publish-bridge/internal/cache"
	"github.com/meterstack/publish-bridge/internal/repo"
)

const snapshotKey = "publish-bridge:subscriptions:snapshot"

// SubscriptionSource fetches the current subscription document.
type SubscriptionSource interface {
	Fetch(ctx context.Context) (expressions []string, raw []byte, err error)
}

// SubscriptionSink receives refreshed expression lists. Installing a list
// replaces the group's previous expressions wholesale.
type SubscriptionSink interface {
	AddGroupSubscriptions(group string, expressions []string)
}

// Refresher keeps the evaluator's subscription set current. Refresh failures
// are soft: the previous set stays in effect and the caller retries on its
// next scheduled tick.
type Refresher struct {
	logger      *slog.Logger
	source      SubscriptionSource
	sink        SubscriptionSink
	snapshots   cache.Provider
	group       string
	snapshotTTL time.Duration
}

// NewRefresher constructs a refresher installing into the given group.
func NewRefresher(logger *slog.Logger, source SubscriptionSource, sink SubscriptionSink, snapshots cache.Provider, group string, snapshotTTL time.Duration) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if snapshots == nil {
		snapshots = cache.NoopProvider{}
	}
	return &Refresher{
		logger:      logger,
		source:      source,
		sink:        sink,
		snapshots:   snapshots,
		group:       group,
		snapshotTTL: snapshotTTL,
	}
}

// Refresh fetches the subscription document and installs its expressions.
// On success the raw document is also snapshotted best-effort so the next
// process start can seed from it. On any failure the current set is left
// untouched and the error is returned for the caller to log.
func (r *Refresher) Refresh(ctx context.Context) error {
	expressions, raw, err := r.source.Fetch(ctx)
	if err != nil {
		return err
	}

	r.sink.AddGroupSubscriptions(r.group, expressions)
	r.logger.Debug("subscriptions refreshed",
		slog.String("group", r.group),
		slog.Int("expressions", len(expressions)))

	if err := r.snapshots.Set(ctx, snapshotKey, raw, r.snapshotTTL); err != nil {
		r.logger.Warn("subscription snapshot write failed", slog.Any("error", err))
	}
	return nil
}

// Seed installs the last snapshotted subscription document, if one exists,
// so evaluations between process start and the first successful refresh see
// the previous working set. A miss or unparsable snapshot is ignored.
func (r *Refresher) Seed(ctx context.Context) {
	raw, err := r.snapshots.Get(ctx, snapshotKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("subscription snapshot read failed", slog.Any("error", err))
		}
		return
	}

	expressions, err := repo.ParseSubscriptionDocument(raw)
	if err != nil {
		r.logger.Warn("discarding unparsable subscription snapshot", slog.Any("error", err))
		return
	}

	r.sink.AddGroupSubscriptions(r.group, expressions)
	r.logger.Info("seeded subscriptions from snapshot",
		slog.String("group", r.group),
		slog.Int("expressions", len(expressions)))
}
