// Package orchestrator implements the Runtime Orchestrator (C7): the
// Debugger owns the simulator-thread eval loop and every other component
// (C1-C6, C8); the Dispatcher translates transport requests into method
// calls on them. Grounded on pkg/hw/cpu/debugger/backend.go's split of
// policy-over-raw-state (Backend) from command-dispatch-plus-notification
// (Controller), re-expressed against original_source/src/debug.cc's exact
// method list (handle_connection, handle_breakpoint, handle_command,
// send_breakpoint_hit, should_trigger/eval_breakpoint,
// update_delayed_values).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdblog"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/monitor"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/pauselock"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/perf"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/scheduler"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab/open"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/transport"
)

// Options are the seven runtime-togglable settings from spec.md 4.7 point 5.
type Options struct {
	SingleThreadMode      bool `json:"single_thread_mode"`
	LogEnabled            bool `json:"log_enabled"`
	DetachAfterDisconnect bool `json:"detach_after_disconnect"`
	UseHexStr             bool `json:"use_hex_str"`
	PauseAtPosedge        bool `json:"pause_at_posedge"`
	PerfCount             bool `json:"perf_count"`
	UseSignalCache        bool `json:"use_signal_cache"`
}

// Debugger owns the simulator-thread state: the RTL client, the active
// symbol table (swapped in wholesale on each `connection` request), the
// scheduler, the monitor, the pause lock, and the runtime options. It plays
// Backend's role: policy over raw simulator state, no transport awareness.
type Debugger struct {
	mu sync.RWMutex

	rtlClient rtl.Client
	resolver  scheduler.NameResolver
	db        symtab.Provider
	sched     *scheduler.Scheduler
	mon       *monitor.Monitor

	lock    *pauselock.Lock
	counts  perf.Counters
	logger  *slog.Logger
	opts    Options
	clients atomic.Int32
	running atomic.Bool
	stopped atomic.Bool

	bus *transport.Dispatcher
}

// New builds a Debugger with no symbol table loaded yet; a `connection`
// request must load one before `Eval` can find any breakpoints.
func New(rtlClient rtl.Client, resolver scheduler.NameResolver, bus *transport.Dispatcher, logger *slog.Logger) *Debugger {
	if logger == nil {
		logger = hgdblog.Discard()
	}
	d := &Debugger{
		rtlClient: rtlClient,
		resolver:  resolver,
		lock:      pauselock.New(),
		logger:    logger,
		bus:       bus,
	}
	d.mon = monitor.New(d.readHandleValue, d.resolveHandle)
	return d
}

func (d *Debugger) readHandleValue(handle any) monitor.Value {
	h, ok := handle.(rtl.Handle)
	if !ok {
		return monitor.Value{}
	}
	v, ok := d.rtlClient.GetValue(h)
	if !ok {
		return monitor.Value{}
	}
	return monitor.Value{Valid: true, Num: v}
}

func (d *Debugger) resolveHandle(fullName string) (any, bool) {
	return d.rtlClient.HandleByName(d.resolver.GetFullName(fullName))
}

// Run starts the debug session: it parks the simulator thread on the pause
// lock until a client has connected and issued `continue`, per spec.md
// 4.7 point 2.
func (d *Debugger) Run(ctx context.Context) {
	d.running.Store(true)
	d.lock.Wait()
}

// Stopped reports whether a `stop` command has been issued.
func (d *Debugger) Stopped() bool {
	return d.stopped.Load()
}

// Eval runs one simulator-thread evaluation pass on a rising clock edge,
// per spec.md 4.7 point 3: sweep the scheduler for triggered breakpoints,
// publish hits and breakpoint-scoped monitor values, park on each hit until
// resumed, then publish the remaining monitor kinds.
func (d *Debugger) Eval(ctx context.Context) error {
	d.mu.RLock()
	sched, db := d.sched, d.db
	d.mu.RUnlock()
	if sched == nil || db == nil {
		return nil
	}

	d.counts.IncSweep()
	sched.StartBreakpointEvaluation()

	for {
		candidates := sched.NextBreakpoints()
		if len(candidates) == 0 {
			break
		}
		triggered, err := scheduler.EvaluateTriggered(ctx, candidates, d.valuesForLocked)
		if err != nil {
			return hgdberr.MakeError(hgdberr.ErrInvariant, "evaluate triggered: %v", err)
		}
		d.counts.IncEval()
		if len(triggered) == 0 {
			continue
		}
		d.counts.IncHit()
		for _, bp := range triggered {
			hit := d.buildHitResponse(bp)
			if d.bus != nil {
				if err := d.bus.PublishBreakpointHit(ctx, hit); err != nil {
					d.logger.Error("publish breakpoint hit failed", "err", err)
				}
			}
		}
		d.publishMonitors(ctx, schema.WatchBreakpoint)
		d.lock.Wait()
		if d.stopped.Load() {
			return nil
		}
	}

	d.publishMonitors(ctx, schema.WatchClockEdge)
	d.publishMonitors(ctx, schema.WatchChanged)
	d.publishMonitors(ctx, schema.WatchDelayClockEdge)
	return nil
}

func (d *Debugger) publishMonitors(ctx context.Context, kind schema.WatchKind) {
	if d.bus == nil {
		return
	}
	for _, cv := range d.mon.Collect(kind) {
		if err := d.bus.PublishMonitorValue(ctx, transport.MonitorValueResponse{
			ID: cv.ID, Valid: cv.Value.Valid, Value: cv.Value.Num,
		}); err != nil {
			d.logger.Error("publish monitor value failed", "err", err)
		}
	}
}

// valuesForLocked resolves every symbol an enable-gate expression requires
// to its current int64 value, reading through the RTL client via the
// already-resolved full names ValidateExpr stashed on the expression.
func (d *Debugger) valuesForLocked(bp *scheduler.DebugBreakPoint) map[string]int64 {
	values := make(map[string]int64)
	for name := range bp.EnableExpr.GetRequiredSymbols() {
		full, ok := bp.EnableExpr.ResolvedSymbol(name)
		if !ok {
			full = d.resolver.GetFullName(name)
		}
		h, ok := d.rtlClient.HandleByName(full)
		if !ok {
			continue
		}
		v, ok := d.rtlClient.GetValue(h)
		if !ok {
			d.counts.IncVPIError()
			continue
		}
		d.counts.IncRTLRead()
		values[name] = v
	}
	if _, needed := bp.EnableExpr.Symbols()["$time"]; needed {
		values["$time"] = int64(d.rtlClient.Time())
	}
	if _, needed := bp.EnableExpr.Symbols()["$instance"]; needed {
		values["$instance"] = int64(bp.InstanceID)
	}
	return values
}

func (d *Debugger) buildHitResponse(bp *scheduler.DebugBreakPoint) *transport.BreakpointHitResponse {
	hit := transport.NewBreakpointHitResponse(d.rtlClient.Time(), bp.Filename, bp.LineNum, bp.ColumnNum)

	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return hit
	}

	if ctxVars, err := db.GetContextVariables(bp.ID, true); err == nil {
		for _, cv := range ctxVars {
			hit.AddLocalValue(cv.Name, d.renderValue(cv.Value, cv.IsRTL))
		}
	}
	if genVars, err := db.GetGeneratorVariables(bp.InstanceID, true); err == nil {
		for _, gv := range genVars {
			hit.AddGeneratorValue(gv.Name, d.renderValue(gv.Value, gv.IsRTL))
		}
	}
	return hit
}

// renderValue resolves an RTL-backed symtab value through the instance
// mapper and RTL client, or passes a literal value through untouched,
// formatting per the use_hex_str option.
func (d *Debugger) renderValue(value string, isRTL bool) string {
	if !isRTL {
		return value
	}
	full := d.resolver.GetFullName(value)
	h, ok := d.rtlClient.HandleByName(full)
	if !ok {
		return value
	}
	num, ok := d.rtlClient.GetValue(h)
	if !ok {
		return value
	}
	return d.formatNum(num)
}

func (d *Debugger) formatNum(num int64) string {
	d.mu.RLock()
	hexStr := d.opts.UseHexStr
	d.mu.RUnlock()
	if hexStr {
		return fmt.Sprintf("0x%x", num)
	}
	return fmt.Sprintf("%d", num)
}

// SetOptions replaces the runtime option set and propagates the ones the
// rest of the core reads directly.
func (d *Debugger) SetOptions(opts Options) {
	d.mu.Lock()
	d.opts = opts
	sched := d.sched
	d.mu.Unlock()

	d.counts.Enable(opts.PerfCount)
	if cache, ok := d.rtlClient.(interface{ SetSignalCache(bool) }); ok {
		cache.SetSignalCache(opts.UseSignalCache)
	}
	if sched != nil {
		sched.SetSingleThreadMode(opts.SingleThreadMode)
	}
}

// Options returns the current runtime option set.
func (d *Debugger) Options() Options {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.opts
}

// LoadSymbolTable opens uri as the active symbol table, rebuilding the
// scheduler and monitor against it, per spec.md 4.7 point 2's `connection`
// handling.
func (d *Debugger) LoadSymbolTable(uri string, pathMapping map[string]string) error {
	db, err := open.Provider(uri)
	if err != nil {
		return hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "open %s: %v", uri, err)
	}
	if len(pathMapping) > 0 {
		db.SetSrcMapping(pathMapping)
	}

	d.mu.Lock()
	d.db = db
	d.sched = scheduler.New(d.rtlClient, db, d.resolver, d.logger)
	d.mon = monitor.New(d.readHandleValue, d.resolveHandle)
	d.mu.Unlock()
	return nil
}

// Scheduler exposes the active scheduler for the Dispatcher.
func (d *Debugger) Scheduler() *scheduler.Scheduler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sched
}

// SymbolTable exposes the active symbol table provider for the Dispatcher.
func (d *Debugger) SymbolTable() symtab.Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Monitor exposes the active monitor for the Dispatcher.
func (d *Debugger) Monitor() *monitor.Monitor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mon
}

// Resume releases the pause lock, waking the simulator thread parked in Run
// or Eval.
func (d *Debugger) Resume() {
	d.lock.Ready()
}

// Stop marks the session stopped, tells the RTL client to finish, and wakes
// any parked wait so Eval/Run can return.
func (d *Debugger) Stop() {
	d.stopped.Store(true)
	d.rtlClient.Control(rtl.ControlFinish)
	d.lock.Ready()
}

// ClientConnected/ClientDisconnected track the connected-client count the
// debugger-info status payload reports.
func (d *Debugger) ClientConnected()    { d.clients.Add(1) }
func (d *Debugger) ClientDisconnected() { d.clients.Add(-1) }

// ClientCount is the current connected-client count.
func (d *Debugger) ClientCount() int32 { return d.clients.Load() }

// Counters exposes the perf counter registry.
func (d *Debugger) Counters() *perf.Counters { return &d.counts }
