// Package transport implements the Transport layer (C6): self-describing
// request/response JSON frames, the exhaustive request dispatch table, and
// pub/sub broadcast of breakpoint hits and monitor values to connected
// clients.
//
// Grounded on original_source/src/proto.cc/proto.hh's frame envelope
// (request/type/payload) and its per-type Request subclasses, plus
// spec.md 4.6's exhaustive request/response type lists.
package transport

import (
	json "github.com/goccy/go-json"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
)

// StatusCode mirrors proto.hh's status_code.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusError
)

// RequestType enumerates every frame type a client may send, per spec.md 4.6.
type RequestType string

const (
	TypeConnection     RequestType = "connection"
	TypeBreakpoint     RequestType = "breakpoint"
	TypeBreakpointID   RequestType = "breakpoint-id"
	TypeBPLocation     RequestType = "bp-location"
	TypeCommand        RequestType = "command"
	TypeDebuggerInfo   RequestType = "debugger-info"
	TypePathMapping    RequestType = "path-mapping"
	TypeEvaluation     RequestType = "evaluation"
	TypeOptionChange   RequestType = "option-change"
	TypeMonitor        RequestType = "monitor"
	TypeSetValue       RequestType = "set-value"
	TypeDataBreakpoint RequestType = "data-breakpoint"
	TypeSymbol         RequestType = "symbol"
	TypeError          RequestType = "error"
)

// Frame is the wire envelope both requests and responses use: a
// self-describing type tag, a request/response flag, an opaque correlation
// token the client may set and expect echoed back, and a type-specific
// payload.
type Frame struct {
	Request bool            `json:"request"`
	Type    RequestType     `json:"type"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeFrame parses a wire frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, hgdberr.MakeError(hgdberr.ErrTransportIO, "decode frame: %v", err)
	}
	return f, nil
}

// EncodeFrame serializes a wire frame.
func EncodeFrame(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, hgdberr.MakeError(hgdberr.ErrTransportIO, "encode frame: %v", err)
	}
	return data, nil
}

// --- request payloads, one per RequestType that carries structured data ---

// ConnectionPayload opens a debug session against a database, with an
// optional client<->db path remapping (path-mapping may also arrive
// standalone later via TypePathMapping).
type ConnectionPayload struct {
	DBFilename  string            `json:"db_filename"`
	PathMapping map[string]string `json:"path_mapping,omitempty"`
}

// BreakpointPayload adds or removes a breakpoint at a source location.
type BreakpointPayload struct {
	Action    string `json:"action"` // "add" | "remove"
	Filename  string `json:"filename"`
	LineNum   uint32 `json:"line_num"`
	ColumnNum uint32 `json:"column_num,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// BreakpointIDPayload targets a breakpoint already known by id, e.g. to
// remove it without resending its location.
type BreakpointIDPayload struct {
	Action string `json:"action"`
	ID     uint32 `json:"id"`
}

// BPLocationPayload asks which breakpoints exist at a location (line
// optional: omitted means "every breakpoint in this file").
type BPLocationPayload struct {
	Filename  string  `json:"filename"`
	LineNum   *uint32 `json:"line_num,omitempty"`
	ColumnNum *uint32 `json:"column_num,omitempty"`
}

// CommandPayload drives the scheduler: continue, step-over, step-back,
// reverse-continue, stop.
type CommandPayload struct {
	Command string `json:"command"`
}

// PathMappingPayload replaces the client<->db source path mapping.
type PathMappingPayload struct {
	Mapping map[string]string `json:"path_mapping"`
}

// EvaluationPayload evaluates a one-off expression in a scope, either at a
// breakpoint (scoped by BreakpointID) or an instance (scoped by
// InstanceID) - exactly one of the two should be set.
type EvaluationPayload struct {
	Expression   string  `json:"expression"`
	BreakpointID *uint32 `json:"breakpoint_id,omitempty"`
	InstanceID   *uint64 `json:"instance_id,omitempty"`
}

// OptionChangePayload toggles one of the runtime options from spec.md 4.7.
type OptionChangePayload struct {
	Option string `json:"option"`
	Value  bool   `json:"value"`
}

// MonitorPayload adds or removes a watch on a scoped variable.
type MonitorPayload struct {
	Action       string  `json:"action"` // "add" | "remove"
	VariableName string  `json:"variable_name,omitempty"`
	WatchType    string  `json:"watch_type,omitempty"` // breakpoint|clock_edge|changed|data|delay_clock_edge
	Depth        uint32  `json:"depth,omitempty"`      // required when watch_type is delay_clock_edge
	ID           uint64  `json:"id,omitempty"`
	BreakpointID *uint32 `json:"breakpoint_id,omitempty"`
	InstanceID   *uint64 `json:"instance_id,omitempty"`
}

// SetValuePayload pokes a new value into a signal.
type SetValuePayload struct {
	VariableName string `json:"variable_name"`
	Value        int64  `json:"value"`
	BreakpointID *uint32 `json:"breakpoint_id,omitempty"`
	InstanceID   *uint64 `json:"instance_id,omitempty"`
}

// DataBreakpointPayload adds or removes a watch-on-write breakpoint.
type DataBreakpointPayload struct {
	Action       string `json:"action"`
	VariableName string `json:"variable_name,omitempty"`
	Condition    string `json:"condition,omitempty"`
	BreakpointID uint32 `json:"breakpoint_id"`
	ID           uint64 `json:"id,omitempty"`
}

// SymbolPayload queries context/generator variables or instance names.
type SymbolPayload struct {
	Query        string  `json:"query"` // "context" | "generator" | "instance-names"
	BreakpointID *uint32 `json:"breakpoint_id,omitempty"`
	InstanceID   *uint64 `json:"instance_id,omitempty"`
}

// --- response payloads ---

// GenericResponse is the generic ack/error response, per
// proto.hh's GenericResponse.
type GenericResponse struct {
	Status StatusCode `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// BPLocationResponse answers TypeBPLocation.
type BPLocationResponse struct {
	Breakpoints []schema.BreakPoint `json:"breakpoints"`
}

// BreakpointHitResponse is the breakpoint-hit broadcast, per
// proto.hh's BreakPointResponse with its add_local_value/
// add_generator_value accumulation.
type BreakpointHitResponse struct {
	Time              uint64            `json:"time"`
	Filename          string            `json:"filename"`
	LineNum           uint32            `json:"line_num"`
	ColumnNum         uint32            `json:"column_num"`
	LocalValues       map[string]string `json:"local_values,omitempty"`
	GeneratorValues   map[string]string `json:"generator_values,omitempty"`
}

// NewBreakpointHitResponse builds an empty hit response ready for
// AddLocalValue/AddGeneratorValue, mirroring the constructor +
// accumulator-method pattern of BreakPointResponse.
func NewBreakpointHitResponse(t uint64, filename string, lineNum, columnNum uint32) *BreakpointHitResponse {
	return &BreakpointHitResponse{
		Time: t, Filename: filename, LineNum: lineNum, ColumnNum: columnNum,
		LocalValues:     make(map[string]string),
		GeneratorValues: make(map[string]string),
	}
}

func (r *BreakpointHitResponse) AddLocalValue(name, value string)     { r.LocalValues[name] = value }
func (r *BreakpointHitResponse) AddGeneratorValue(name, value string) { r.GeneratorValues[name] = value }

// MonitorValueResponse is one published value on topic "watch-<id>".
type MonitorValueResponse struct {
	ID    uint64 `json:"id"`
	Valid bool   `json:"valid"`
	Value int64  `json:"value,omitempty"`
}

// DebuggerInfoResponse answers TypeDebuggerInfo with the session-level
// facts the original_source's debug.cc gathers at connect time.
type DebuggerInfoResponse struct {
	Version      string `json:"version"`
	IsVerilator  bool   `json:"is_verilator"`
	ProcessID    int    `json:"process_id"`
	Argv         []string `json:"argv,omitempty"`
}
