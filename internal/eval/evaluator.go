package eval

import (
	"sync"

	"github.com/meterstack/publish-bridge/internal/models"
)

// DefaultGroup is the evaluation group used by the bridge.
const DefaultGroup = "all"

// Payload is the serializable result of evaluating one batch: the batch's
// tags/value pairs at the normalized timestamp, together with the group's
// current subscription expressions. The downstream evaluation endpoint
// performs the actual subscription matching and aggregation.
type Payload struct {
	Group       string                 `json:"group"`
	Timestamp   int64                  `json:"timestamp"`
	Expressions []string               `json:"expressions"`
	Metrics     []models.TagsValuePair `json:"metrics"`
}

// BatchEvaluator holds per-group subscription sets and assembles evaluation
// payloads. The subscription map is copy-on-write: AddGroupSubscriptions
// swaps in a rebuilt map under a write lock while Eval reads the current map
// without blocking, so readers never observe a partially updated group.
type BatchEvaluator struct {
	mu     sync.Mutex // serializes writers
	groups atomicGroups
}

// NewBatchEvaluator returns an evaluator with an empty working set.
func NewBatchEvaluator() *BatchEvaluator {
	e := &BatchEvaluator{}
	e.groups.store(map[string][]string{})
	return e
}

// AddGroupSubscriptions replaces the group's expression list wholesale.
// Expressions registered by earlier calls for the same group are dropped.
func (e *BatchEvaluator) AddGroupSubscriptions(group string, expressions []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.groups.load()
	next := make(map[string][]string, len(current)+1)
	for name, exprs := range current {
		next[name] = exprs
	}
	next[group] = append([]string(nil), expressions...)
	e.groups.store(next)
}

// GroupSubscriptions returns the group's current expressions.
func (e *BatchEvaluator) GroupSubscriptions(group string) []string {
	return e.groups.load()[group]
}

// Eval evaluates a batch of pairs against the group's working set at the
// given epoch-millisecond timestamp.
func (e *BatchEvaluator) Eval(group string, timestamp int64, pairs []models.TagsValuePair) any {
	exprs := e.groups.load()[group]
	return Payload{
		Group:       group,
		Timestamp:   timestamp,
		Expressions: exprs,
		Metrics:     pairs,
	}
}
