// Package rtl implements the Simulator Interface (C1): the capability
// surface to read named signals, register callbacks, query time, and
// control the simulator, plus the instance mapper that reconciles the symbol
// table's expected hierarchy with the simulator's actual one.
//
// Grounded on original_source/src/rtl.cc/rtl.hh for the contract and
// get_full_name's longest-suffix remapping (spec.md 4.1), and on the
// teacher's split of raw CPUState access (pkg/hw/cpu/interpreter) from
// Backend policy (pkg/hw/cpu/debugger) for shaping a thin interface with a
// cache sitting beside it rather than inside it.
package rtl

import (
	"strings"
	"sync"
)

// Handle is an opaque simulator handle, the Go analog of vpiHandle. Concrete
// Client implementations define what it actually holds.
type Handle any

// CallbackKind enumerates the VPI callback kinds the core registers.
type CallbackKind int

const (
	CallbackValueChange CallbackKind = iota
	CallbackStartOfSim
	CallbackEndOfSim
	CallbackNextSimTime
)

// ControlOp is a simulator control request.
type ControlOp int

const (
	ControlStop ControlOp = iota
	ControlFinish
)

// ChildKind selects which kind of children IterChildren walks.
type ChildKind int

const (
	ChildModule ChildKind = iota
	ChildNet
)

// CbHandle identifies a registered callback, for RemoveCB.
type CbHandle uint64

// Client is the capability surface a simulator integration implements. Every
// operation is infallible unless its return type says otherwise, per
// spec.md 4.1.
type Client interface {
	HandleByName(fullName string) (Handle, bool)
	GetValue(h Handle) (int64, bool)
	IsValidSignal(fullName string) bool
	IterChildren(h Handle, kind ChildKind) []Handle
	RegisterCB(kind CallbackKind, h Handle, data any, cb func(data any)) CbHandle
	RemoveCB(cb CbHandle) bool
	Control(op ControlOp)
	Time() uint64
	Argv() []string
	// Rewind attempts to move simulation time backwards to target, replaying
	// clockSignals so the caller can re-settle state. ok=false is a soft
	// "unsupported", never an error (spec.md 7).
	Rewind(target uint64, clockSignals []string) (ok bool)
}

// VPIProvider is the raw C-ABI-shaped surface an embedding program supplies;
// Client wraps it once at this boundary per spec.md 9's "wrap once... never
// surface the raw callback shape" design note. No portable pure-Go VPI
// binding exists in the example pack or as a named ecosystem library (see
// DESIGN.md), so this interface - not a cgo wrapper - is the boundary.
type VPIProvider interface {
	HandleByName(fullName string) (Handle, bool)
	GetValueInt(h Handle) (int64, bool)
	GetType(h Handle) (kind string, ok bool)
	IterateNet(h Handle) []Handle
	Name(h Handle) string
	RegisterCallback(kind CallbackKind, h Handle, fire func()) CbHandle
	RemoveCallback(cb CbHandle) bool
	Control(op ControlOp)
	Time() uint64
	Argv() []string
	Rewind(target uint64, clockSignals []string) bool
}

// VPIClient adapts a VPIProvider into a Client, caching name->handle lookups
// and, when enabled, per-sweep signal values (the use_signal_cache option,
// spec.md 4.7).
type VPIClient struct {
	provider VPIProvider

	mu        sync.Mutex
	handles   map[string]Handle
	prefixMap map[string]string // def_name -> mapped_prefix, from the instance mapper

	cacheEnabled bool
	valueCache   map[Handle]int64
	valueCacheOK map[Handle]bool
}

// NewVPIClient wraps provider as a Client.
func NewVPIClient(provider VPIProvider) *VPIClient {
	return &VPIClient{
		provider:  provider,
		handles:   make(map[string]Handle),
		prefixMap: make(map[string]string),
	}
}

// SetSignalCache turns the per-sweep value cache on or off (use_signal_cache).
func (c *VPIClient) SetSignalCache(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheEnabled = on
	c.invalidateCacheLocked()
}

// InvalidateCache clears the per-sweep value cache; called by the scheduler
// at the start of each sweep (start_breakpoint_evaluation, spec.md 4.5).
func (c *VPIClient) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateCacheLocked()
}

func (c *VPIClient) invalidateCacheLocked() {
	c.valueCache = make(map[Handle]int64)
	c.valueCacheOK = make(map[Handle]bool)
}

func (c *VPIClient) HandleByName(fullName string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[fullName]; ok {
		return h, true
	}
	h, ok := c.provider.HandleByName(fullName)
	if ok {
		c.handles[fullName] = h
	}
	return h, ok
}

func (c *VPIClient) GetValue(h Handle) (int64, bool) {
	if h == nil {
		return 0, false
	}
	c.mu.Lock()
	if c.cacheEnabled {
		if v, ok := c.valueCacheOK[h]; ok {
			value := c.valueCache[h]
			c.mu.Unlock()
			return value, v
		}
	}
	c.mu.Unlock()

	v, ok := c.provider.GetValueInt(h)

	if c.cacheEnabled {
		c.mu.Lock()
		c.valueCache[h] = v
		c.valueCacheOK[h] = ok
		c.mu.Unlock()
	}
	return v, ok
}

func (c *VPIClient) IsValidSignal(fullName string) bool {
	_, ok := c.HandleByName(fullName)
	return ok
}

func (c *VPIClient) IterChildren(h Handle, kind ChildKind) []Handle {
	if kind != ChildNet {
		return nil
	}
	if t, ok := c.provider.GetType(h); !ok || t != "module" {
		return nil
	}
	return c.provider.IterateNet(h)
}

func (c *VPIClient) RegisterCB(kind CallbackKind, h Handle, data any, cb func(data any)) CbHandle {
	return c.provider.RegisterCallback(kind, h, func() { cb(data) })
}

func (c *VPIClient) RemoveCB(cb CbHandle) bool {
	return c.provider.RemoveCallback(cb)
}

func (c *VPIClient) Control(op ControlOp) { c.provider.Control(op) }
func (c *VPIClient) Time() uint64         { return c.provider.Time() }
func (c *VPIClient) Argv() []string       { return c.provider.Argv() }

func (c *VPIClient) Rewind(target uint64, clockSignals []string) bool {
	return c.provider.Rewind(target, clockSignals)
}

// InstanceMapper discovers the prefix the simulator's actual testbench
// hierarchy adds in front of the instance names the symbol table expects,
// per spec.md 4.1's longest-matching-suffix algorithm.
type InstanceMapper struct {
	client    *VPIClient
	defToFull map[string]string
}

// NewInstanceMapper builds a mapper for wanted instance def names (e.g.
// {"alu", "cpu.alu"}) against the simulator's actual hierarchy, rooted at
// each of roots (top-level module handles).
func NewInstanceMapper(client *VPIClient, wanted []string, roots []Handle) *InstanceMapper {
	m := &InstanceMapper{client: client, defToFull: make(map[string]string)}
	m.discover(wanted, roots)
	return m
}

func (m *InstanceMapper) discover(wanted []string, roots []Handle) {
	for _, root := range roots {
		all := m.client.provider.IterateNet(root)
		rootName := m.client.provider.Name(root)
		best := make(map[string]string)
		for _, def := range wanted {
			longest := ""
			for _, h := range all {
				name := m.client.provider.Name(h)
				if strings.HasSuffix(name, def) && len(name) > len(longest) {
					longest = name
				}
			}
			if longest != "" {
				prefix := strings.TrimSuffix(longest, def)
				best[def] = prefix
			} else if rootName != "" {
				best[def] = rootName + "."
			}
		}
		for def, prefix := range best {
			if existing, ok := m.defToFull[def]; !ok || len(prefix) > len(existing) {
				m.defToFull[def] = prefix
			}
		}
	}
}

// GetFullName translates a def-scoped name (e.g. "cpu.alu.X") into the
// simulator-visible full name (e.g. "top.tb.cpu.alu.X") by matching the
// longest known instance def name that prefixes it.
func (m *InstanceMapper) GetFullName(name string) string {
	best := ""
	for def := range m.defToFull {
		if (name == def || strings.HasPrefix(name, def+".")) && len(def) > len(best) {
			best = def
		}
	}
	if best == "" {
		return name
	}
	return m.defToFull[best] + name
}
