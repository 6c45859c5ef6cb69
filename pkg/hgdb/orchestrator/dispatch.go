package orchestrator

import (
	"context"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/eval"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/scheduler"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/transport"
)

// Dispatcher translates decoded transport requests into method calls on the
// Debugger's components, per spec.md 4.7 point 4. It never does RTL work
// itself beyond what's already safe from the server thread (reads through
// db/monitor/scheduler state, all mutex-guarded); it only arms the pause
// lock for the simulator thread to act on.
type Dispatcher struct {
	debugger *Debugger
}

// NewDispatcher builds a Dispatcher over debugger and registers every
// handler from spec.md 4.6's exhaustive request-type list on bus.
func NewDispatcher(debugger *Debugger, bus *transport.Dispatcher) *Dispatcher {
	d := &Dispatcher{debugger: debugger}
	d.registerHandlers(bus)
	return d
}

func (d *Dispatcher) registerHandlers(bus *transport.Dispatcher) {
	bus.Handle(transport.TypeConnection, d.handleConnection)
	bus.Handle(transport.TypeBreakpoint, d.handleBreakpoint)
	bus.Handle(transport.TypeBreakpointID, d.handleBreakpointID)
	bus.Handle(transport.TypeBPLocation, d.handleBPLocation)
	bus.Handle(transport.TypeCommand, d.handleCommand)
	bus.Handle(transport.TypeDebuggerInfo, d.handleDebuggerInfo)
	bus.Handle(transport.TypePathMapping, d.handlePathMapping)
	bus.Handle(transport.TypeEvaluation, d.handleEvaluation)
	bus.Handle(transport.TypeOptionChange, d.handleOptionChange)
	bus.Handle(transport.TypeMonitor, d.handleMonitor)
	bus.Handle(transport.TypeSetValue, d.handleSetValue)
	bus.Handle(transport.TypeDataBreakpoint, d.handleDataBreakpoint)
	bus.Handle(transport.TypeSymbol, d.handleSymbol)
}

func (d *Dispatcher) handleConnection(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.ConnectionPayload](req)
	if err != nil {
		return nil, "", err
	}
	if err := d.debugger.LoadSymbolTable(payload.DBFilename, payload.PathMapping); err != nil {
		return nil, "", err
	}
	d.debugger.ClientConnected()
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeConnection, nil
}

func (d *Dispatcher) handleBreakpoint(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.BreakpointPayload](req)
	if err != nil {
		return nil, "", err
	}
	db := d.debugger.SymbolTable()
	sched := d.debugger.Scheduler()
	if db == nil || sched == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	bps, err := db.GetBreakpoints(payload.Filename, payload.LineNum, payload.ColumnNum)
	if err != nil {
		return nil, "", err
	}
	switch payload.Action {
	case "add":
		for _, bp := range bps {
			if err := sched.AddBreakpoint(payload.Condition, bp); err != nil {
				return nil, "", err
			}
		}
	case "remove":
		for _, bp := range bps {
			sched.RemoveBreakpoint(bp.ID)
		}
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown breakpoint action %q", payload.Action)
	}
	sched.ReorderBreakpoints()
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeBreakpoint, nil
}

func (d *Dispatcher) handleBreakpointID(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.BreakpointIDPayload](req)
	if err != nil {
		return nil, "", err
	}
	db := d.debugger.SymbolTable()
	sched := d.debugger.Scheduler()
	if db == nil || sched == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	switch payload.Action {
	case "add":
		bp, found, err := db.GetBreakpoint(payload.ID)
		if err != nil {
			return nil, "", err
		}
		if !found {
			return nil, "", hgdberr.MakeError(hgdberr.ErrUnknownID, "breakpoint %d", payload.ID)
		}
		if err := sched.AddBreakpoint("", bp); err != nil {
			return nil, "", err
		}
		sched.ReorderBreakpoints()
	case "remove":
		sched.RemoveBreakpoint(payload.ID)
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown breakpoint action %q", payload.Action)
	}
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeBreakpointID, nil
}

func (d *Dispatcher) handleBPLocation(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.BPLocationPayload](req)
	if err != nil {
		return nil, "", err
	}
	db := d.debugger.SymbolTable()
	if db == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	var line, col uint32
	if payload.LineNum != nil {
		line = *payload.LineNum
	}
	if payload.ColumnNum != nil {
		col = *payload.ColumnNum
	}
	bps, err := db.GetBreakpoints(payload.Filename, line, col)
	if err != nil {
		return nil, "", err
	}
	return transport.BPLocationResponse{Breakpoints: bps}, transport.TypeBPLocation, nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.CommandPayload](req)
	if err != nil {
		return nil, "", err
	}
	sched := d.debugger.Scheduler()
	if sched == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	switch payload.Command {
	case "continue":
		sched.SetEvaluationMode(scheduler.ModeBreakpointOnly)
		d.debugger.Resume()
	case "step-over":
		sched.SetEvaluationMode(scheduler.ModeStepOver)
		d.debugger.Resume()
	case "step-back":
		sched.SetEvaluationMode(scheduler.ModeStepBack)
		d.debugger.Resume()
	case "reverse-continue":
		sched.SetEvaluationMode(scheduler.ModeReverseBreakpointOnly)
		d.debugger.Resume()
	case "stop":
		d.debugger.Stop()
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown command %q", payload.Command)
	}
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeCommand, nil
}

func (d *Dispatcher) handleDebuggerInfo(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	sched := d.debugger.Scheduler()
	var bps []schema.BreakPoint
	if sched != nil {
		bps = sched.GetCurrentBreakpoints()
	}
	opts := d.debugger.Options()
	return debuggerInfoPayload{
		Breakpoints: bps,
		Options:     opts,
		Status: statusPayload{
			Running:    d.debugger.running.Load(),
			Stopped:    d.debugger.Stopped(),
			NumClients: d.debugger.ClientCount(),
		},
	}, transport.TypeDebuggerInfo, nil
}

// debuggerInfoPayload is the full debugger-info response shape added by
// SPEC_FULL.md's original_source supplement (debug.cc's get_options /
// handle_debug_info).
type debuggerInfoPayload struct {
	Breakpoints []schema.BreakPoint `json:"breakpoints"`
	Options     Options             `json:"options"`
	Status      statusPayload       `json:"status"`
}

type statusPayload struct {
	Running    bool  `json:"running"`
	Stopped    bool  `json:"stopped"`
	NumClients int32 `json:"num_clients"`
}

func (d *Dispatcher) handlePathMapping(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.PathMappingPayload](req)
	if err != nil {
		return nil, "", err
	}
	db := d.debugger.SymbolTable()
	if db == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	db.SetSrcMapping(payload.Mapping)
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypePathMapping, nil
}

func (d *Dispatcher) handleEvaluation(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.EvaluationPayload](req)
	if err != nil {
		return nil, "", err
	}
	rtlClient := d.debugger.rtlClient
	resolver := d.debugger.resolver
	db := d.debugger.SymbolTable()
	if db == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}

	expr, parseErr := eval.Parse(payload.Expression)
	if parseErr != nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrUnparsableExpr, "%v", parseErr)
	}
	scheduler.ValidateExpr(rtlClient, resolver, db, expr, payload.BreakpointID, payload.InstanceID)
	if !expr.Correct() {
		return nil, "", hgdberr.MakeError(hgdberr.ErrUnresolvedSymbol, "unresolved symbol in %q", payload.Expression)
	}

	values := make(map[string]int64)
	for name := range expr.GetRequiredSymbols() {
		full, ok := expr.ResolvedSymbol(name)
		if !ok {
			full = resolver.GetFullName(name)
		}
		h, ok := rtlClient.HandleByName(full)
		if !ok {
			continue
		}
		v, ok := rtlClient.GetValue(h)
		if !ok {
			continue
		}
		values[name] = v
	}
	result := expr.Eval(values)
	return evaluationResponse{Result: result}, transport.TypeEvaluation, nil
}

type evaluationResponse struct {
	Result int64 `json:"result"`
}

func (d *Dispatcher) handleOptionChange(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.OptionChangePayload](req)
	if err != nil {
		return nil, "", err
	}
	opts := d.debugger.Options()
	switch payload.Option {
	case "single_thread_mode":
		opts.SingleThreadMode = payload.Value
	case "log_enabled":
		opts.LogEnabled = payload.Value
	case "detach_after_disconnect":
		opts.DetachAfterDisconnect = payload.Value
	case "use_hex_str":
		opts.UseHexStr = payload.Value
	case "pause_at_posedge":
		opts.PauseAtPosedge = payload.Value
	case "perf_count":
		opts.PerfCount = payload.Value
	case "use_signal_cache":
		opts.UseSignalCache = payload.Value
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown option %q", payload.Option)
	}
	d.debugger.SetOptions(opts)
	return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeOptionChange, nil
}

func (d *Dispatcher) handleMonitor(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.MonitorPayload](req)
	if err != nil {
		return nil, "", err
	}
	mon := d.debugger.Monitor()
	if mon == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	switch payload.Action {
	case "add":
		full := d.debugger.resolver.GetFullName(payload.VariableName)
		kind, err := parseWatchKind(payload.WatchType)
		if err != nil {
			return nil, "", err
		}
		var id uint64
		if kind == schema.WatchDelayClockEdge {
			id = mon.AddDelayed(full, payload.Depth)
		} else {
			id = mon.Add(full, kind)
		}
		return monitorAddResponse{ID: id}, transport.TypeMonitor, nil
	case "remove":
		mon.Remove(payload.ID)
		return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeMonitor, nil
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown monitor action %q", payload.Action)
	}
}

type monitorAddResponse struct {
	ID uint64 `json:"id"`
}

func parseWatchKind(s string) (schema.WatchKind, error) {
	switch s {
	case "breakpoint":
		return schema.WatchBreakpoint, nil
	case "clock_edge":
		return schema.WatchClockEdge, nil
	case "changed":
		return schema.WatchChanged, nil
	case "data":
		return schema.WatchData, nil
	case "delay_clock_edge":
		return schema.WatchDelayClockEdge, nil
	default:
		return 0, hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown watch type %q", s)
	}
}

// handleSetValue always fails: spec.md 4.1's RTL capability surface is
// read-only (handle_by_name/get_value/is_valid_signal/iter_children/
// register_cb/remove_cb/control/time/argv/rewind), with no write operation
// defined anywhere in spec.md. `set-value` stays a named, dispatchable
// request type (per spec.md 4.6's exhaustive list) that reports it has
// nothing to act on, rather than being silently undispatchable.
func (d *Dispatcher) handleSetValue(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	return nil, "", hgdberr.MakeError(hgdberr.ErrInvariant, "set-value unsupported: RTL interface is read-only")
}

func (d *Dispatcher) handleDataBreakpoint(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.DataBreakpointPayload](req)
	if err != nil {
		return nil, "", err
	}
	sched := d.debugger.Scheduler()
	db := d.debugger.SymbolTable()
	if sched == nil || db == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	switch payload.Action {
	case "add":
		bp, found, err := db.GetBreakpoint(payload.BreakpointID)
		if err != nil {
			return nil, "", err
		}
		if !found {
			return nil, "", hgdberr.MakeError(hgdberr.ErrUnknownID, "breakpoint %d", payload.BreakpointID)
		}
		id, added := sched.AddDataBreakpoint(payload.VariableName, payload.Condition, bp)
		if !added {
			return nil, "", hgdberr.MakeError(hgdberr.ErrUnparsableExpr, "data breakpoint expression")
		}
		return dataBreakpointResponse{ID: id}, transport.TypeDataBreakpoint, nil
	case "remove":
		sched.RemoveDataBreakpoint(payload.ID)
		return transport.GenericResponse{Status: transport.StatusSuccess}, transport.TypeDataBreakpoint, nil
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown data-breakpoint action %q", payload.Action)
	}
}

type dataBreakpointResponse struct {
	ID uint64 `json:"id"`
}

// handleSymbol answers symbol-table queries, after debug.cc's handle_symbol:
// "context" lists a breakpoint's context variables, "generator" lists an
// instance's generator variables, and "instance-names" lists every instance
// name. It does not resolve a scoped name to its full RTL name.
func (d *Dispatcher) handleSymbol(ctx context.Context, req transport.Frame) (any, transport.RequestType, error) {
	payload, err := transport.DecodePayload[transport.SymbolPayload](req)
	if err != nil {
		return nil, "", err
	}
	db := d.debugger.SymbolTable()
	if db == nil {
		return nil, "", hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "no active connection")
	}
	switch payload.Query {
	case "context":
		if payload.BreakpointID == nil {
			return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "context query requires breakpoint_id")
		}
		vars, err := db.GetContextVariables(*payload.BreakpointID, true)
		if err != nil {
			return nil, "", err
		}
		return symbolListResponse{Variables: vars}, transport.TypeSymbol, nil
	case "generator":
		if payload.InstanceID == nil {
			return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "generator query requires instance_id")
		}
		vars, err := db.GetGeneratorVariables(*payload.InstanceID, true)
		if err != nil {
			return nil, "", err
		}
		return symbolListResponse{Variables: vars}, transport.TypeSymbol, nil
	case "instance-names":
		names, err := db.GetInstanceNames()
		if err != nil {
			return nil, "", err
		}
		return instanceNamesResponse{Names: names}, transport.TypeSymbol, nil
	default:
		return nil, "", hgdberr.MakeError(hgdberr.ErrTransportIO, "unknown symbol query %q", payload.Query)
	}
}

type symbolListResponse struct {
	Variables any `json:"variables"`
}

type instanceNamesResponse struct {
	Names []string `json:"names"`
}
