package eval

import (
	"sync"
	"testing"

	"github.com/meterstack/publish-bridge/internal/models"
)

func TestAddGroupSubscriptionsReplaces(t *testing.T) {
	evaluator := NewBatchEvaluator()
	evaluator.AddGroupSubscriptions(DefaultGroup, []string{"name,cpu,:eq,:sum"})
	evaluator.AddGroupSubscriptions(DefaultGroup, []string{"name,disk,:eq,:max", "name,mem,:eq,:avg"})

	exprs := evaluator.GroupSubscriptions(DefaultGroup)
	if len(exprs) != 2 {
		t.Fatalf("expected second list only, got %v", exprs)
	}
	for _, e := range exprs {
		if e == "name,cpu,:eq,:sum" {
			t.Fatalf("stale expression survived replace: %v", exprs)
		}
	}
}

func TestEvalCarriesCurrentSubscriptions(t *testing.T) {
	evaluator := NewBatchEvaluator()
	evaluator.AddGroupSubscriptions(DefaultGroup, []string{"name,cpu,:eq,:sum"})

	pairs := []models.TagsValuePair{{Tags: map[string]string{"name": "cpu"}, Value: 0.5}}
	result := evaluator.Eval(DefaultGroup, 60000, pairs)
	payload, ok := result.(Payload)
	if !ok {
		t.Fatalf("expected Payload, got %T", result)
	}
	if payload.Group != DefaultGroup || payload.Timestamp != 60000 {
		t.Fatalf("unexpected payload header: %+v", payload)
	}
	if len(payload.Expressions) != 1 || len(payload.Metrics) != 1 {
		t.Fatalf("unexpected payload contents: %+v", payload)
	}
}

func TestEvalEmptyGroup(t *testing.T) {
	evaluator := NewBatchEvaluator()
	payload := evaluator.Eval(DefaultGroup, 0, nil).(Payload)
	if len(payload.Expressions) != 0 {
		t.Fatalf("expected no expressions before first refresh, got %v", payload.Expressions)
	}
}

func TestConcurrentReplaceAndEval(t *testing.T) {
	evaluator := NewBatchEvaluator()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			evaluator.AddGroupSubscriptions(DefaultGroup, []string{"name,cpu,:eq,:sum", "name,mem,:eq,:avg"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			payload := evaluator.Eval(DefaultGroup, int64(i), nil).(Payload)
			if n := len(payload.Expressions); n != 0 && n != 2 {
				t.Errorf("observed torn subscription set of size %d", n)
				return
			}
		}
	}()
	wg.Wait()
}
