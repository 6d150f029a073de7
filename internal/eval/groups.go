package eval

import "sync/atomic"

// atomicGroups wraps the group → expressions map behind an atomic pointer so
// evaluation-path reads never block on refresh-path writes.
type atomicGroups struct {
	v atomic.Value
}

func (g *atomicGroups) load() map[string][]string {
	m, _ := g.v.Load().(map[string][]string)
	return m
}

func (g *atomicGroups) store(m map[string][]string) {
	g.v.Store(m)
}
