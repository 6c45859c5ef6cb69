package replay

import (
	"sync"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl"
)

// handle is the replay engine's rtl.Handle: just the waveform signal id.
type handle uint64

type callback struct {
	kind rtl.CallbackKind
	sig  uint64
	fire func()
}

// Client drives rtl.Client from a parsed Waveform instead of a live
// simulator, advancing its own clock across recorded value-change times.
// Grounded on engine.cc's EmulationEngine: the same callback-fire-on-change
// loop, minus the VPI plumbing, since Go calls fire() directly.
type Client struct {
	wave *Waveform

	mu   sync.Mutex
	time uint64
	cbs  map[rtl.CbHandle]callback
	next rtl.CbHandle
	argv []string
}

// New builds a replay Client starting at time 0.
func New(wave *Waveform, argv []string) *Client {
	return &Client{wave: wave, cbs: make(map[rtl.CbHandle]callback), argv: argv}
}

func (c *Client) HandleByName(fullName string) (rtl.Handle, bool) {
	id, ok := c.wave.SignalByName(fullName)
	if !ok {
		return nil, false
	}
	return handle(id), true
}

func (c *Client) GetValue(h rtl.Handle) (int64, bool) {
	sigID, ok := h.(handle)
	if !ok {
		return 0, false
	}
	c.mu.Lock()
	t := c.time
	c.mu.Unlock()
	return c.wave.ValueAt(uint64(sigID), t)
}

func (c *Client) IsValidSignal(fullName string) bool {
	_, ok := c.wave.SignalByName(fullName)
	return ok
}

func (c *Client) IterChildren(h rtl.Handle, kind rtl.ChildKind) []rtl.Handle {
	if kind != rtl.ChildNet {
		return nil
	}
	instanceID, ok := h.(handle)
	if !ok {
		return nil
	}
	ids := c.wave.ChildSignals(uint64(instanceID))
	out := make([]rtl.Handle, len(ids))
	for i, id := range ids {
		out[i] = handle(id)
	}
	return out
}

func (c *Client) RegisterCB(kind rtl.CallbackKind, h rtl.Handle, data any, cb func(data any)) rtl.CbHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	sigID, _ := h.(handle)
	c.cbs[id] = callback{kind: kind, sig: uint64(sigID), fire: func() { cb(data) }}
	return id
}

func (c *Client) RemoveCB(cb rtl.CbHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cbs[cb]; !ok {
		return false
	}
	delete(c.cbs, cb)
	return true
}

func (c *Client) Control(op rtl.ControlOp) {}

func (c *Client) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *Client) Argv() []string { return c.argv }

// Rewind moves the replay clock back to target unconditionally; unlike a
// live simulator there is no re-settling to do, since every signal's value
// at any past time is already recorded (spec.md 4.1's rewind contract).
func (c *Client) Rewind(target uint64, clockSignals []string) bool {
	c.mu.Lock()
	c.time = target
	c.mu.Unlock()
	return true
}

// Advance moves the replay clock to the next recorded change across all
// registered value-change callbacks' signals, firing any whose value
// changed, and reports whether the waveform had any time left to advance to.
func (c *Client) Advance() bool {
	c.mu.Lock()
	best, found := uint64(0), false
	for _, cb := range c.cbs {
		if cb.kind != rtl.CallbackValueChange {
			continue
		}
		if t, ok := c.wave.NextChangeTime(cb.sig, c.time); ok {
			if !found || t < best {
				best, found = t, true
			}
		}
	}
	if !found {
		c.mu.Unlock()
		return false
	}
	prev := c.time
	c.time = best
	var toFire []func()
	for _, cb := range c.cbs {
		if cb.kind != rtl.CallbackValueChange {
			continue
		}
		if t, ok := c.wave.NextChangeTime(cb.sig, prev); ok && t == best {
			toFire = append(toFire, cb.fire)
		}
	}
	c.mu.Unlock()
	for _, fire := range toFire {
		fire()
	}
	return true
}

var _ rtl.Client = (*Client)(nil)
