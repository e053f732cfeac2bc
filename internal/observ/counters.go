package observ

import (
	"sort"
	"sync/atomic"
)

// Counter names recorded by the engine.
const (
	CounterInstanceHit    = "instance.cache_hit"
	CounterInstanceMiss   = "instance.cache_miss"
	CounterInstanceLost   = "instance.race_lost"
	CounterResolve        = "resolve.calls"
	CounterOverload       = "overload.calls"
	CounterConversionMiss = "conv.no_plan"
)

// Counters is a fixed set of named atomic counters. Names not declared at
// construction are ignored by Add.
type Counters struct {
	values map[string]*atomic.Uint64
}

// NewCounters declares the given counter names.
func NewCounters(names ...string) *Counters {
	c := &Counters{values: make(map[string]*atomic.Uint64, len(names))}
	for _, n := range names {
		c.values[n] = new(atomic.Uint64)
	}
	return c
}

// DefaultCounters declares every engine counter.
func DefaultCounters() *Counters {
	return NewCounters(
		CounterInstanceHit,
		CounterInstanceMiss,
		CounterInstanceLost,
		CounterResolve,
		CounterOverload,
		CounterConversionMiss,
	)
}

// Add increments name by delta. Nil receivers are allowed.
func (c *Counters) Add(name string, delta uint64) {
	if c == nil {
		return
	}
	if v, ok := c.values[name]; ok {
		v.Add(delta)
	}
}

// Get returns the current value of name.
func (c *Counters) Get(name string) uint64 {
	if c == nil {
		return 0
	}
	if v, ok := c.values[name]; ok {
		return v.Load()
	}
	return 0
}

// CounterValue is one entry of a Snapshot.
type CounterValue struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// Snapshot returns all counters sorted by name.
func (c *Counters) Snapshot() []CounterValue {
	if c == nil {
		return nil
	}
	out := make([]CounterValue, 0, len(c.values))
	for name, v := range c.values {
		out = append(out, CounterValue{Name: name, Value: v.Load()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
