package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
)

// fakeRTL is a minimal rtl.Client that treats every signal as valid.
type fakeRTL struct {
	rewound bool
}

func (f *fakeRTL) HandleByName(name string) (rtl.Handle, bool) { return name, true }
func (f *fakeRTL) GetValue(h rtl.Handle) (int64, bool)          { return 0, true }
func (f *fakeRTL) IsValidSignal(name string) bool               { return true }
func (f *fakeRTL) IterChildren(h rtl.Handle, kind rtl.ChildKind) []rtl.Handle { return nil }
func (f *fakeRTL) RegisterCB(kind rtl.CallbackKind, h rtl.Handle, data any, cb func(any)) rtl.CbHandle {
	return 0
}
func (f *fakeRTL) RemoveCB(cb rtl.CbHandle) bool { return true }
func (f *fakeRTL) Control(op rtl.ControlOp)      {}
func (f *fakeRTL) Time() uint64                  { return 0 }
func (f *fakeRTL) Argv() []string                { return nil }
func (f *fakeRTL) Rewind(target uint64, clocks []string) bool {
	f.rewound = true
	return true
}

// fakeDB is a minimal symtab.Provider backed by in-memory breakpoint data,
// enough to exercise the scheduler without a real store.
type fakeDB struct {
	breakpoints map[uint32]schema.BreakPoint
	order       []uint32
}

func newFakeDB(bps ...schema.BreakPoint) *fakeDB {
	db := &fakeDB{breakpoints: make(map[uint32]schema.BreakPoint)}
	for _, bp := range bps {
		db.breakpoints[bp.ID] = bp
		db.order = append(db.order, bp.ID)
	}
	return db
}

func (d *fakeDB) GetBreakpoints(filename string, line, column uint32) ([]schema.BreakPoint, error) {
	return nil, nil
}
func (d *fakeDB) GetBreakpoint(id uint32) (schema.BreakPoint, bool, error) {
	bp, ok := d.breakpoints[id]
	return bp, ok, nil
}
func (d *fakeDB) GetInstanceNameFromBreakpoint(id uint32) (string, bool, error) { return "", false, nil }
func (d *fakeDB) GetInstanceName(instanceID uint64) (string, bool, error)      { return "top", true, nil }
func (d *fakeDB) GetInstanceIDByName(name string) (uint64, bool, error)        { return 0, false, nil }
func (d *fakeDB) GetInstanceIDByBreakpoint(breakpointID uint64) (uint64, bool, error) {
	return 0, false, nil
}
func (d *fakeDB) GetFilenames() ([]string, error) { return nil, nil }
func (d *fakeDB) GetContextVariables(id uint32, resolve bool) ([]symtab.ContextVariable, error) {
	return nil, nil
}
func (d *fakeDB) GetGeneratorVariables(id uint64, resolve bool) ([]symtab.GeneratorVariable, error) {
	return nil, nil
}
func (d *fakeDB) GetInstanceNames() ([]string, error)            { return nil, nil }
func (d *fakeDB) GetAnnotationValues(name string) ([]string, error) { return nil, nil }
func (d *fakeDB) GetContextStaticValues(id uint32) (map[string]int64, error) {
	return nil, nil
}
func (d *fakeDB) GetAllArrayNames() ([]string, error)                { return nil, nil }
func (d *fakeDB) SetSrcMapping(mapping map[string]string)            {}
func (d *fakeDB) ResolveFilenameToDB(filename string) string         { return filename }
func (d *fakeDB) ResolveFilenameToClient(filename string) string     { return filename }
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

func newTestScheduler(bps ...schema.BreakPoint) (*Scheduler, *fakeDB, *fakeRTL) {
	db := newFakeDB(bps...)
	r := &fakeRTL{}
	return New(r, db, nil, nil), db, r
}

// TestNextNormalBreakpointsCoalescesSiblings covers testable property 5/6 and
// scenario E1-ish: two breakpoints at the same location+condition but
// different instances should be returned together in one sweep.
func TestNextNormalBreakpointsCoalescesSiblings(t *testing.T) {
	s, _, _ := newTestScheduler(
		schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 10, InstanceID: 1},
		schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 10, InstanceID: 2},
		schema.BreakPoint{ID: 3, Filename: "b.sv", LineNum: 20, InstanceID: 1},
	)
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 10, InstanceID: 1}))
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 10, InstanceID: 2}))
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 3, Filename: "b.sv", LineNum: 20, InstanceID: 1}))
	s.ReorderBreakpoints()

	s.SetEvaluationMode(ModeBreakpointOnly)
	s.StartBreakpointEvaluation()

	first := s.NextBreakpoints()
	require.Len(t, first, 2)
	assert.ElementsMatch(t, []uint32{1, 2}, []uint32{first[0].ID, first[1].ID})

	second := s.NextBreakpoints()
	require.Len(t, second, 1)
	assert.Equal(t, uint32(3), second[0].ID)

	third := s.NextBreakpoints()
	assert.Nil(t, third)
}

// TestStepOverAfterCoalescedContinueUsesFirstSibling covers the mode-switch
// case where a continue hits a coalesced multi-instance batch and the client
// steps over before the next clock edge: the cursor left behind must name
// the lowest-position sibling of that batch (spec.md 4.5 step 5's
// "cursor = result[0].id"), not whichever sibling happened to be scanned
// last, since step-over walks execution order from the cursor.
func TestStepOverAfterCoalescedContinueUsesFirstSibling(t *testing.T) {
	s, _, _ := newTestScheduler(
		schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 10, InstanceID: 1},
		schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 10, InstanceID: 2},
		schema.BreakPoint{ID: 3, Filename: "b.sv", LineNum: 20, InstanceID: 1},
	)
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 10, InstanceID: 1}))
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 10, InstanceID: 2}))
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 3, Filename: "b.sv", LineNum: 20, InstanceID: 1}))
	s.ReorderBreakpoints()

	s.SetEvaluationMode(ModeBreakpointOnly)
	s.StartBreakpointEvaluation()

	hit := s.NextBreakpoints()
	require.Len(t, hit, 2)
	assert.ElementsMatch(t, []uint32{1, 2}, []uint32{hit[0].ID, hit[1].ID})

	// Client switches to step-over before the next clock edge; the cursor
	// set by the coalesced continue hit above must carry over unchanged.
	s.SetEvaluationMode(ModeStepOver)

	next := s.NextBreakpoints()
	require.Len(t, next, 1)
	assert.Equal(t, uint32(2), next[0].ID,
		"step-over must resume from breakpoint 1's execution-order successor, not breakpoint 2's")
}

func TestSetEvaluationModeClearsEvaluated(t *testing.T) {
	s, _, _ := newTestScheduler()
	s.SetEvaluationMode(ModeStepOver)
	s.evaluatedIDs[5] = struct{}{}
	s.SetEvaluationMode(ModeStepBack)
	assert.Empty(t, s.evaluatedIDs)
}

func TestStepBackRewindsAtUnderflow(t *testing.T) {
	s, _, r := newTestScheduler(
		schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 1, InstanceID: 1},
		schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 2, InstanceID: 1},
	)
	s.SetEvaluationMode(ModeStepBack)
	id := uint32(1)
	s.currentBreakpointID = &id

	bp := s.NextBreakpoints()
	require.Len(t, bp, 1)
	assert.True(t, r.rewound)
	assert.Equal(t, uint32(2), bp[0].ID)
}

func TestAddDataBreakpointAllocatesID(t *testing.T) {
	s, _, _ := newTestScheduler()
	id1, ok := s.AddDataBreakpoint("a", "1", schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 1, InstanceID: 1})
	require.True(t, ok)
	id2, ok := s.AddDataBreakpoint("b", "1", schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 2, InstanceID: 1})
	require.True(t, ok)
	assert.NotEqual(t, id1, id2)
	assert.Len(t, s.GetDataBreakpoints(), 2)

	s.ClearDataBreakpoints()
	assert.Empty(t, s.GetDataBreakpoints())
}

func TestEvaluateTriggeredFiltersByGate(t *testing.T) {
	s, _, _ := newTestScheduler()
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 1, Filename: "a.sv", LineNum: 1, InstanceID: 1, Condition: "a > 0"}))
	require.NoError(t, s.AddBreakpoint("", schema.BreakPoint{ID: 2, Filename: "a.sv", LineNum: 2, InstanceID: 1, Condition: "a > 0"}))

	candidates := []*DebugBreakPoint{s.breakpoints[0], s.breakpoints[1]}
	valuesFor := func(bp *DebugBreakPoint) map[string]int64 {
		if bp.ID == 1 {
			return map[string]int64{"a": 1}
		}
		return map[string]int64{"a": -1}
	}
	triggered, err := EvaluateTriggered(context.Background(), candidates, valuesFor)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, uint32(1), triggered[0].ID)
}
