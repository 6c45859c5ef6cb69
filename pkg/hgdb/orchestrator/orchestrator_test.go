package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdblog"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/monitor"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/scheduler"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/transport"
)

// fakeRTL is a minimal rtl.Client with a settable signal table, mirroring
// the scheduler package's own test fixture.
type fakeRTL struct {
	values map[string]int64
}

func newFakeRTL() *fakeRTL { return &fakeRTL{values: make(map[string]int64)} }

func (f *fakeRTL) HandleByName(name string) (rtl.Handle, bool) {
	if _, ok := f.values[name]; !ok {
		return nil, false
	}
	return name, true
}
func (f *fakeRTL) GetValue(h rtl.Handle) (int64, bool) {
	name, ok := h.(string)
	if !ok {
		return 0, false
	}
	v, ok := f.values[name]
	return v, ok
}
func (f *fakeRTL) IsValidSignal(name string) bool { _, ok := f.values[name]; return ok }
func (f *fakeRTL) IterChildren(h rtl.Handle, kind rtl.ChildKind) []rtl.Handle { return nil }
func (f *fakeRTL) RegisterCB(kind rtl.CallbackKind, h rtl.Handle, data any, cb func(any)) rtl.CbHandle {
	return 0
}
func (f *fakeRTL) RemoveCB(cb rtl.CbHandle) bool { return true }
func (f *fakeRTL) Control(op rtl.ControlOp)      {}
func (f *fakeRTL) Time() uint64                  { return 7 }
func (f *fakeRTL) Argv() []string                { return nil }
func (f *fakeRTL) Rewind(target uint64, clocks []string) bool { return false }

var _ rtl.Client = (*fakeRTL)(nil)

// fakeDB is a minimal symtab.Provider, enough to drive one breakpoint hit.
type fakeDB struct {
	bps   map[uint32]schema.BreakPoint
	order []uint32
}

func newFakeDB(bps ...schema.BreakPoint) *fakeDB {
	db := &fakeDB{bps: make(map[uint32]schema.BreakPoint)}
	for _, bp := range bps {
		db.bps[bp.ID] = bp
		db.order = append(db.order, bp.ID)
	}
	return db
}

func (d *fakeDB) GetBreakpoints(filename string, line, column uint32) ([]schema.BreakPoint, error) {
	var out []schema.BreakPoint
	for _, bp := range d.bps {
		if bp.Filename == filename && (line == 0 || bp.LineNum == line) {
			out = append(out, bp)
		}
	}
	return out, nil
}
func (d *fakeDB) GetBreakpoint(id uint32) (schema.BreakPoint, bool, error) {
	bp, ok := d.bps[id]
	return bp, ok, nil
}
func (d *fakeDB) GetInstanceNameFromBreakpoint(id uint32) (string, bool, error) { return "", false, nil }
func (d *fakeDB) GetInstanceName(instanceID uint64) (string, bool, error)       { return "top", true, nil }
func (d *fakeDB) GetInstanceIDByName(name string) (uint64, bool, error)        { return 0, false, nil }
func (d *fakeDB) GetInstanceIDByBreakpoint(breakpointID uint64) (uint64, bool, error) {
	return 0, false, nil
}
func (d *fakeDB) GetFilenames() ([]string, error) { return nil, nil }
func (d *fakeDB) GetContextVariables(id uint32, resolve bool) ([]symtab.ContextVariable, error) {
	return []symtab.ContextVariable{{Name: "a", Value: "5", IsRTL: false}}, nil
}
func (d *fakeDB) GetGeneratorVariables(id uint64, resolve bool) ([]symtab.GeneratorVariable, error) {
	return nil, nil
}
func (d *fakeDB) GetInstanceNames() ([]string, error)                { return nil, nil }
func (d *fakeDB) GetAnnotationValues(name string) ([]string, error)  { return nil, nil }
func (d *fakeDB) GetContextStaticValues(id uint32) (map[string]int64, error) {
	return nil, nil
}
func (d *fakeDB) GetAllArrayNames() ([]string, error)            { return nil, nil }
func (d *fakeDB) SetSrcMapping(mapping map[string]string)       {}
func (d *fakeDB) ResolveFilenameToDB(filename string) string     { return filename }
func (d *fakeDB) ResolveFilenameToClient(filename string) string { return filename }
func (d *fakeDB) ResolveScopedNameBreakpoint(name string, id uint64) (string, bool, error) {
	return "", false, nil
}
func (d *fakeDB) ResolveScopedNameInstance(name string, id uint64) (string, bool, error) {
	return "", false, nil
}
func (d *fakeDB) GetAssignedBreakpoints(instanceID uint64) ([]schema.BreakPoint, error) {
	return nil, nil
}
func (d *fakeDB) ExecutionBreakpointOrders() []uint32 { return d.order }
func (d *fakeDB) Close() error                        { return nil }

var _ symtab.Provider = (*fakeDB)(nil)

// newTestDebugger wires a Debugger directly over fakes, the way
// LoadSymbolTable would, without going through symtab/open's URI dispatch.
func newTestDebugger(t *testing.T, db *fakeDB, rtlClient *fakeRTL, bus *transport.Dispatcher) *Debugger {
	t.Helper()
	d := New(rtlClient, scheduler.IdentityResolver, bus, hgdblog.Discard())
	d.sched = scheduler.New(rtlClient, db, scheduler.IdentityResolver, hgdblog.Discard())
	d.db = db
	d.mon = monitor.New(d.readHandleValue, d.resolveHandle)
	return d
}

func TestEvalPublishesBreakpointHitAndAdvancesCleanly(t *testing.T) {
	bus := transport.NewDispatcher(hgdblog.Discard())
	defer bus.Close()

	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	r := newFakeRTL()
	d := newTestDebugger(t, db, r, bus)
	require.NoError(t, d.sched.AddBreakpoint("", schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1}))
	d.sched.ReorderBreakpoints()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, transport.BreakpointHitTopic)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Eval(ctx) }()

	select {
	case <-msgs:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for breakpoint hit")
	}

	// Eval parks on the pause lock after the hit; resume so it can finish.
	d.Resume()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Eval never returned after Resume")
	}
}

func TestEvalNoBreakpointsReturnsImmediately(t *testing.T) {
	bus := transport.NewDispatcher(hgdblog.Discard())
	defer bus.Close()

	db := newFakeDB()
	r := newFakeRTL()
	d := newTestDebugger(t, db, r, bus)

	err := d.Eval(context.Background())
	assert.NoError(t, err)
}

func TestStopWakesParkedEval(t *testing.T) {
	bus := transport.NewDispatcher(hgdblog.Discard())
	defer bus.Close()

	db := newFakeDB(schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1})
	r := newFakeRTL()
	d := newTestDebugger(t, db, r, bus)
	require.NoError(t, d.sched.AddBreakpoint("", schema.BreakPoint{ID: 1, Filename: "alu.sv", LineNum: 10, InstanceID: 1}))
	d.sched.ReorderBreakpoints()

	done := make(chan error, 1)
	go func() { done <- d.Eval(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	d.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, d.Stopped())
	case <-time.After(time.Second):
		t.Fatal("Eval never returned after Stop")
	}
}

func TestFormatNumRespectsUseHexStr(t *testing.T) {
	d := New(newFakeRTL(), scheduler.IdentityResolver, nil, hgdblog.Discard())
	assert.Equal(t, "10", d.formatNum(10))
	d.SetOptions(Options{UseHexStr: true})
	assert.Equal(t, "0xa", d.formatNum(10))
}
