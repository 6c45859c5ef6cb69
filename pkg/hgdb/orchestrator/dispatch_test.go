package orchestrator

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdblog"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/transport"
)

func newTestDispatcher(t *testing.T, db *fakeDB, rtlClient *fakeRTL) (*Dispatcher, *transport.Dispatcher, *Debugger) {
	t.Helper()
	bus := transport.NewDispatcher(hgdblog.Discard())
	t.Cleanup(func() { bus.Close() })
	d := newTestDebugger(t, db, rtlClient, bus)
	return NewDispatcher(d, bus), bus, d
}

func dispatchJSON(t *testing.T, bus *transport.Dispatcher, typ transport.RequestType, payload any) transport.Frame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	reqFrame, err := transport.EncodeFrame(transport.Frame{Request: true, Type: typ, Token: "t", Payload: raw})
	require.NoError(t, err)
	out := bus.Dispatch(context.Background(), reqFrame)
	require.NotNil(t, out)
	respFrame, err := transport.DecodeFrame(out)
	require.NoError(t, err)
	return respFrame
}

func TestHandleSetValueAlwaysErrors(t *testing.T) {
	_, bus, _ := newTestDispatcher(t, newFakeDB(), newFakeRTL())
	resp := dispatchJSON(t, bus, transport.TypeSetValue, transport.SetValuePayload{VariableName: "a", Value: 1})
	assert.Equal(t, transport.TypeError, resp.Type)
}

func TestHandleBreakpointAddThenBPLocationQuery(t *testing.T) {
	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	_, bus, _ := newTestDispatcher(t, db, newFakeRTL())

	addResp := dispatchJSON(t, bus, transport.TypeBreakpoint, transport.BreakpointPayload{
		Action: "add", Filename: "alu.sv", LineNum: 10,
	})
	generic, err := transport.DecodePayload[transport.GenericResponse](addResp)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusSuccess, generic.Status)

	locResp := dispatchJSON(t, bus, transport.TypeBPLocation, transport.BPLocationPayload{Filename: "alu.sv"})
	loc, err := transport.DecodePayload[transport.BPLocationResponse](locResp)
	require.NoError(t, err)
	require.Len(t, loc.Breakpoints, 1)
	assert.Equal(t, uint32(1), loc.Breakpoints[0].ID)
}

func TestHandleCommandContinueResumesRun(t *testing.T) {
	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	_, bus, d := newTestDispatcher(t, db, newFakeRTL())

	runDone := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(runDone)
	}()

	resp := dispatchJSON(t, bus, transport.TypeCommand, transport.CommandPayload{Command: "continue"})
	generic, err := transport.DecodePayload[transport.GenericResponse](resp)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusSuccess, generic.Status)

	<-runDone
}

func TestHandleCommandUnknownErrors(t *testing.T) {
	_, bus, _ := newTestDispatcher(t, newFakeDB(), newFakeRTL())
	resp := dispatchJSON(t, bus, transport.TypeCommand, transport.CommandPayload{Command: "teleport"})
	assert.Equal(t, transport.TypeError, resp.Type)
}

func TestHandleOptionChangeUnknownErrors(t *testing.T) {
	_, bus, _ := newTestDispatcher(t, newFakeDB(), newFakeRTL())
	resp := dispatchJSON(t, bus, transport.TypeOptionChange, transport.OptionChangePayload{Option: "bogus", Value: true})
	assert.Equal(t, transport.TypeError, resp.Type)
}

func TestHandleOptionChangeUpdatesOptions(t *testing.T) {
	_, bus, d := newTestDispatcher(t, newFakeDB(), newFakeRTL())
	resp := dispatchJSON(t, bus, transport.TypeOptionChange, transport.OptionChangePayload{Option: "use_hex_str", Value: true})
	generic, err := transport.DecodePayload[transport.GenericResponse](resp)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusSuccess, generic.Status)
	assert.True(t, d.Options().UseHexStr)
}

func TestHandleSymbolContextRequiresBreakpointID(t *testing.T) {
	_, bus, _ := newTestDispatcher(t, newFakeDB(), newFakeRTL())
	resp := dispatchJSON(t, bus, transport.TypeSymbol, transport.SymbolPayload{Query: "context"})
	assert.Equal(t, transport.TypeError, resp.Type)
}

func TestHandleSymbolContextReturnsVariables(t *testing.T) {
	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	_, bus, _ := newTestDispatcher(t, db, newFakeRTL())
	bpID := uint32(1)
	resp := dispatchJSON(t, bus, transport.TypeSymbol, transport.SymbolPayload{Query: "context", BreakpointID: &bpID})
	assert.Equal(t, transport.TypeSymbol, resp.Type)
}

func TestHandleDataBreakpointAddAndRemove(t *testing.T) {
	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	r := newFakeRTL()
	r.values["a"] = 0
	_, bus, _ := newTestDispatcher(t, db, r)

	addResp := dispatchJSON(t, bus, transport.TypeDataBreakpoint, transport.DataBreakpointPayload{
		Action: "add", VariableName: "a", BreakpointID: 1,
	})
	assert.Equal(t, transport.TypeDataBreakpoint, addResp.Type)

	removeResp := dispatchJSON(t, bus, transport.TypeDataBreakpoint, transport.DataBreakpointPayload{
		Action: "remove", ID: 0,
	})
	generic, err := transport.DecodePayload[transport.GenericResponse](removeResp)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusSuccess, generic.Status)
}
