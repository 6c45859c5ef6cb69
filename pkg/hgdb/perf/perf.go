// Package perf implements the process-wide performance counters from
// original_source's perf.cc/perf.hh, scoped to an orchestrator's lifetime and
// gated by the perf_count runtime option (spec.md 4.7, 9).
package perf

import "sync/atomic"

// Counters is a small registry of atomic counters. The zero value is usable
// but inert; call Enable to start counting.
type Counters struct {
	enabled atomic.Bool

	evals      atomic.Uint64
	hits       atomic.Uint64
	sweeps     atomic.Uint64
	rtlReads   atomic.Uint64
	vpiErrors  atomic.Uint64
}

// Enable turns counting on or off. Disabling does not reset accumulated
// values, matching the original's "compile it out when disabled" intent
// applied at runtime instead of at compile time.
func (c *Counters) Enable(on bool) {
	c.enabled.Store(on)
}

func (c *Counters) IncEval() {
	if c.enabled.Load() {
		c.evals.Add(1)
	}
}

func (c *Counters) IncHit() {
	if c.enabled.Load() {
		c.hits.Add(1)
	}
}

func (c *Counters) IncSweep() {
	if c.enabled.Load() {
		c.sweeps.Add(1)
	}
}

func (c *Counters) IncRTLRead() {
	if c.enabled.Load() {
		c.rtlReads.Add(1)
	}
}

func (c *Counters) IncVPIError() {
	if c.enabled.Load() {
		c.vpiErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters, safe to log or serve.
type Snapshot struct {
	Evals     uint64
	Hits      uint64
	Sweeps    uint64
	RTLReads  uint64
	VPIErrors uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Evals:     c.evals.Load(),
		Hits:      c.hits.Load(),
		Sweeps:    c.sweeps.Load(),
		RTLReads:  c.rtlReads.Load(),
		VPIErrors: c.vpiErrors.Load(),
	}
}
