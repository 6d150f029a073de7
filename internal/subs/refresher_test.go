package subs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meterstack/publish-bridge/internal/cache"
	"github.com/meterstack/publish-bridge/internal/eval"
)

type fakeSource struct {
	expressions []string
	raw         []byte
	err         error
}

func (f *fakeSource) Fetch(context.Context) ([]string, []byte, error) {
	return f.expressions, f.raw, f.err
}

type fakeSink struct {
	group       string
	expressions []string
	installs    int
}

func (f *fakeSink) AddGroupSubscriptions(group string, expressions []string) {
	f.group = group
	f.expressions = expressions
	f.installs++
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryCache) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

func (m *memoryCache) Close() error { return nil }

func TestRefreshInstallsExpressions(t *testing.T) {
	source := &fakeSource{
		expressions: []string{"name,cpu,:eq,:sum"},
		raw:         []byte(`{"expressions":["name,cpu,:eq,:sum"]}`),
	}
	sink := &fakeSink{}
	snapshots := newMemoryCache()
	refresher := NewRefresher(nil, source, sink, snapshots, eval.DefaultGroup, time.Hour)

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.group != eval.DefaultGroup || len(sink.expressions) != 1 {
		t.Fatalf("expressions not installed: %+v", sink)
	}
	if _, err := snapshots.Get(context.Background(), snapshotKey); err != nil {
		t.Fatalf("expected snapshot to be written: %v", err)
	}
}

func TestRefreshReplacesPriorSet(t *testing.T) {
	evaluator := eval.NewBatchEvaluator()
	source := &fakeSource{
		expressions: []string{"name,cpu,:eq,:sum"},
		raw:         []byte(`{}`),
	}
	refresher := NewRefresher(nil, source, evaluator, nil, eval.DefaultGroup, time.Hour)

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	source.expressions = []string{"name,disk,:eq,:max", "name,mem,:eq,:avg"}
	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	exprs := evaluator.GroupSubscriptions(eval.DefaultGroup)
	if len(exprs) != 2 || exprs[0] != "name,disk,:eq,:max" {
		t.Fatalf("expected only the second list to be active, got %v", exprs)
	}
}

func TestRefreshFailureKeepsPriorSet(t *testing.T) {
	evaluator := eval.NewBatchEvaluator()
	source := &fakeSource{
		expressions: []string{"name,cpu,:eq,:sum"},
		raw:         []byte(`{}`),
	}
	refresher := NewRefresher(nil, source, evaluator, nil, eval.DefaultGroup, time.Hour)

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	source.err = errors.New("503 Service Unavailable")
	if err := refresher.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error to be reported to the caller")
	}

	exprs := evaluator.GroupSubscriptions(eval.DefaultGroup)
	if len(exprs) != 1 || exprs[0] != "name,cpu,:eq,:sum" {
		t.Fatalf("failed refresh must leave the prior set in effect, got %v", exprs)
	}
}

func TestSeedInstallsSnapshot(t *testing.T) {
	snapshots := newMemoryCache()
	if err := snapshots.Set(context.Background(), snapshotKey, []byte(`{"expressions":["name,cpu,:eq,:sum"]}`), 0); err != nil {
		t.Fatalf("prime snapshot: %v", err)
	}

	sink := &fakeSink{}
	refresher := NewRefresher(nil, &fakeSource{}, sink, snapshots, eval.DefaultGroup, time.Hour)
	refresher.Seed(context.Background())

	if sink.installs != 1 || len(sink.expressions) != 1 {
		t.Fatalf("expected snapshot to seed the sink: %+v", sink)
	}
}

func TestSeedIgnoresMissAndGarbage(t *testing.T) {
	sink := &fakeSink{}
	refresher := NewRefresher(nil, &fakeSource{}, sink, newMemoryCache(), eval.DefaultGroup, time.Hour)
	refresher.Seed(context.Background())
	if sink.installs != 0 {
		t.Fatalf("cache miss must not install anything")
	}

	snapshots := newMemoryCache()
	_ = snapshots.Set(context.Background(), snapshotKey, []byte("not json"), 0)
	refresher = NewRefresher(nil, &fakeSource{}, sink, snapshots, eval.DefaultGroup, time.Hour)
	refresher.Seed(context.Background())
	if sink.installs != 0 {
		t.Fatalf("garbage snapshot must not install anything")
	}
}
