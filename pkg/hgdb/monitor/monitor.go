// Package monitor implements the Monitor (C4): a mapping from monitor id to
// watched entry, with per-watch-kind sampling policy. Grounded directly on
// original_source/src/monitor.cc's WatchVariable/WatchVariableBuffer split and
// its five-way Collect dispatch (spec.md 4.4).
package monitor

import (
	"sync"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
)

// Value is an optional int64, mirroring the original's
// std::optional<int64_t>.
type Value struct {
	Valid bool
	Num   int64
}

// GetValueFunc reads the current value behind a resolved handle. The monitor
// itself doesn't know how to read RTL state or resolve names - those are
// injected, same as the original's constructor taking get_value/get_handle
// closures.
type GetValueFunc func(handle any) Value

// GetHandleFunc resolves a full RTL name to a simulator handle.
type GetHandleFunc func(fullName string) (any, bool)

type watchVariable struct {
	kind       schema.WatchKind
	fullName   string
	handle     any
	enableCond func() bool // nil means "always enabled"

	// plain watch: current reported value
	value Value

	// delay_clock_edge watch: FIFO of depth d
	depth uint32
	fifo  []Value
}

func (w *watchVariable) get() Value {
	if w.depth == 0 {
		return w.value
	}
	if uint32(len(w.fifo)) < w.depth {
		return Value{}
	}
	return w.fifo[0]
}

func (w *watchVariable) set(v Value) {
	if w.depth == 0 {
		w.value = v
		return
	}
	w.fifo = append(w.fifo, v)
	if uint32(len(w.fifo)) > w.depth {
		w.fifo = w.fifo[1:]
	}
}

// Monitor tracks named signals with the watch kinds from spec.md 3/4.4. It
// holds no thread of its own (spec.md 4.4) - accessed only from the simulator
// thread per spec.md 5, so the mutex here is a defensive low-cost guard, not
// a concurrency requirement.
type Monitor struct {
	mu         sync.Mutex
	getValue   GetValueFunc
	getHandle  GetHandleFunc
	watched    map[uint64]*watchVariable
	nextID     uint64
}

// New constructs a Monitor with injected value/handle resolution closures.
func New(getValue GetValueFunc, getHandle GetHandleFunc) *Monitor {
	if getValue == nil {
		getValue = func(any) Value { return Value{} }
	}
	if getHandle == nil {
		getHandle = func(string) (any, bool) { return nil, false }
	}
	return &Monitor{
		getValue:  getValue,
		getHandle: getHandle,
		watched:   make(map[uint64]*watchVariable),
	}
}

// Add registers a watch on fullName under kind, deduplicating on
// (handle, kind): adding the same pair twice returns the same id (testable
// property 7).
func (m *Monitor) Add(fullName string, kind schema.WatchKind) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, _ := m.getHandle(fullName)
	if id, ok := m.isMonitoredLocked(handle, kind); ok {
		return id
	}
	w := &watchVariable{kind: kind, fullName: fullName, handle: handle}
	return m.addLocked(w)
}

// AddDelayed registers a delay_clock_edge watch with a FIFO of depth d.
func (m *Monitor) AddDelayed(fullName string, depth uint32) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, _ := m.getHandle(fullName)
	w := &watchVariable{kind: schema.WatchDelayClockEdge, fullName: fullName, handle: handle, depth: depth}
	return m.addLocked(w)
}

// SetCondition attaches an enable predicate to an existing watch id.
func (m *Monitor) SetCondition(id uint64, cond func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.watched[id]; ok {
		w.enableCond = cond
	}
}

func (m *Monitor) addLocked(w *watchVariable) uint64 {
	id := m.nextID
	m.watched[id] = w
	m.nextID++
	return id
}

// Remove deletes a watch id, a no-op if it doesn't exist.
func (m *Monitor) Remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, id)
}

// IsMonitored returns the id of an existing (handle, kind) watch, if any.
func (m *Monitor) IsMonitored(fullName string, kind schema.WatchKind) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, _ := m.getHandle(fullName)
	return m.isMonitoredLocked(handle, kind)
}

func (m *Monitor) isMonitoredLocked(handle any, kind schema.WatchKind) (uint64, bool) {
	for id, w := range m.watched {
		if w.handle == handle && w.kind == kind {
			return id, true
		}
	}
	return 0, false
}

// Empty reports whether there are no watches registered.
func (m *Monitor) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watched) == 0
}

// NumWatches counts watches on (fullName, kind).
func (m *Monitor) NumWatches(fullName string, kind schema.WatchKind) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint64
	for _, w := range m.watched {
		if w.fullName == fullName && w.kind == kind {
			n++
		}
	}
	return n
}

// VarChanged samples the current value of id, compares it against the last
// reported value, and updates the stored value if it changed.
func (m *Monitor) VarChanged(id uint64) (changed bool, value Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watched[id]
	if !ok {
		return false, Value{}
	}
	v := m.getValue(w.handle)
	if !v.Valid {
		return false, Value{}
	}
	old := w.get()
	if !old.Valid || old.Num != v.Num {
		w.set(v)
		return true, v
	}
	return false, v
}

// CollectedValue is one emitted (id, value) pair from Collect.
type CollectedValue struct {
	ID    uint64
	Value Value
}

// Collect computes which watches of kind should emit a value right now,
// per the per-kind policy in spec.md 4.4. Called by the orchestrator, not on
// any schedule of the monitor's own.
func (m *Monitor) Collect(kind schema.WatchKind) []CollectedValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]CollectedValue, 0, len(m.watched))
	for id, w := range m.watched {
		if w.kind != kind {
			continue
		}
		switch kind {
		case schema.WatchBreakpoint, schema.WatchClockEdge:
			var v Value
			if w.enableCond == nil || w.enableCond() {
				v = m.getValue(w.handle)
			} else {
				v = w.get()
			}
			result = append(result, CollectedValue{ID: id, Value: v})
		case schema.WatchData, schema.WatchChanged:
			if changed, v := m.varChangedLocked(w); changed {
				result = append(result, CollectedValue{ID: id, Value: v})
			}
		case schema.WatchDelayClockEdge:
			newValue := m.getValue(w.handle)
			old := w.get()
			w.set(newValue)
			result = append(result, CollectedValue{ID: id, Value: old})
		}
	}
	return result
}

func (m *Monitor) varChangedLocked(w *watchVariable) (bool, Value) {
	v := m.getValue(w.handle)
	if !v.Valid {
		return false, Value{}
	}
	old := w.get()
	if !old.Valid || old.Num != v.Num {
		w.set(v)
		return true, v
	}
	return false, v
}
