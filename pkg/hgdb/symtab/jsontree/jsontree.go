// Package jsontree implements a Symbol Table Provider (C2) backed by a
// single JSON document held entirely in memory, for short-lived debug
// sessions (unit tests, generated fixtures) that don't warrant a database
// file.
//
// Grounded on original_source/include/json.hh's document shape (the nested
// scope/breakpoint/variable object tree a debug build serializes) and
// spec.md 4.2's "three concrete providers" description. Uses goccy/go-json
// (contributed to the stack by mindersec-minder) rather than encoding/json,
// consistent with SPEC_FULL.md's domain-stack wiring.
package jsontree

import (
	"fmt"
	"io"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
)

// document is the on-disk/in-memory shape: flat tables, mirroring schema.go,
// rather than a nested tree - flat tables are trivially indexable in Go maps
// and round-trip exactly what a sqlstore export would produce.
type document struct {
	Breakpoints        []schema.BreakPoint        `json:"breakpoints"`
	Instances          []schema.Instance           `json:"instances"`
	Scopes             []schema.Scope              `json:"scopes"`
	Variables          []schema.Variable           `json:"variables"`
	ContextVariables    []schema.ContextVariable    `json:"context_variables"`
	GeneratorVariables []schema.GeneratorVariable `json:"generator_variables"`
	Annotations        []schema.Annotation         `json:"annotations"`
	ExecutionOrder     []uint32                   `json:"execution_order"`
}

// Tree is the in-memory Provider. Safe for concurrent reads and writes of
// src mapping.
type Tree struct {
	mu sync.RWMutex

	byID           map[uint32]schema.BreakPoint
	byFile         map[string][]schema.BreakPoint
	instanceByID   map[uint64]schema.Instance
	instanceByName map[string]uint64
	variables      map[uint32]schema.Variable
	ctxVars        map[uint32][]schema.ContextVariable // keyed by breakpoint id
	genVars        map[uint64][]schema.GeneratorVariable
	annotations    map[string][]string
	executionOrder []uint32

	srcMapping map[string]string
}

// Load parses a JSON document from r into a Tree.
func Load(r io.Reader) (*Tree, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "parse json symbol table: %v", err)
	}
	t := &Tree{
		byID:           make(map[uint32]schema.BreakPoint),
		byFile:         make(map[string][]schema.BreakPoint),
		instanceByID:   make(map[uint64]schema.Instance),
		instanceByName: make(map[string]uint64),
		variables:      make(map[uint32]schema.Variable),
		ctxVars:        make(map[uint32][]schema.ContextVariable),
		genVars:        make(map[uint64][]schema.GeneratorVariable),
		annotations:    make(map[string][]string),
		srcMapping:     make(map[string]string),
		executionOrder: doc.ExecutionOrder,
	}
	for _, bp := range doc.Breakpoints {
		t.byID[bp.ID] = bp
		t.byFile[bp.Filename] = append(t.byFile[bp.Filename], bp)
	}
	for _, inst := range doc.Instances {
		t.instanceByID[inst.ID] = inst
		t.instanceByName[inst.Name] = inst.ID
	}
	for _, v := range doc.Variables {
		t.variables[v.ID] = v
	}
	for _, cv := range doc.ContextVariables {
		t.ctxVars[cv.BreakpointID] = append(t.ctxVars[cv.BreakpointID], cv)
	}
	for _, gv := range doc.GeneratorVariables {
		t.genVars[gv.InstanceID] = append(t.genVars[gv.InstanceID], gv)
	}
	for _, a := range doc.Annotations {
		t.annotations[a.Name] = append(t.annotations[a.Name], a.Value)
	}
	return t, nil
}

func (t *Tree) GetBreakpoints(filename string, line, column uint32) ([]schema.BreakPoint, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn := t.resolveFilenameToDBLocked(filename)
	var out []schema.BreakPoint
	for _, bp := range t.byFile[fn] {
		if line != 0 && bp.LineNum != line {
			continue
		}
		if column != 0 && bp.ColumnNum != column {
			continue
		}
		out = append(out, bp)
	}
	return out, nil
}

func (t *Tree) GetBreakpoint(id uint32) (schema.BreakPoint, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bp, ok := t.byID[id]
	return bp, ok, nil
}

func (t *Tree) GetInstanceNameFromBreakpoint(id uint32) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bp, ok := t.byID[id]
	if !ok {
		return "", false, nil
	}
	inst, ok := t.instanceByID[bp.InstanceID]
	return inst.Name, ok, nil
}

func (t *Tree) GetInstanceName(instanceID uint64) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.instanceByID[instanceID]
	return inst.Name, ok, nil
}

func (t *Tree) GetInstanceIDByName(instanceName string) (uint64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.instanceByName[instanceName]
	return id, ok, nil
}

func (t *Tree) GetInstanceIDByBreakpoint(breakpointID uint64) (uint64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bp, ok := t.byID[uint32(breakpointID)]
	if !ok {
		return 0, false, nil
	}
	return bp.InstanceID, true, nil
}

func (t *Tree) GetFilenames() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.byFile))
	for f := range t.byFile {
		out = append(out, f)
	}
	return out, nil
}

func (t *Tree) GetContextVariables(breakpointID uint32, resolveHierarchy bool) ([]symtab.ContextVariable, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []symtab.ContextVariable
	for _, cv := range t.ctxVars[breakpointID] {
		v := t.variables[cv.VariableID]
		value := v.Value
		if resolveHierarchy && v.IsRTL {
			value = t.qualifyRTLValueLocked(cv.BreakpointID, value)
		}
		out = append(out, symtab.ContextVariable{Name: cv.Name, Value: value, IsRTL: v.IsRTL})
	}
	return out, nil
}

func (t *Tree) GetGeneratorVariables(instanceID uint64, resolveHierarchy bool) ([]symtab.GeneratorVariable, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []symtab.GeneratorVariable
	for _, gv := range t.genVars[instanceID] {
		v := t.variables[gv.VariableID]
		value := v.Value
		if resolveHierarchy && v.IsRTL {
			if inst, ok := t.instanceByID[instanceID]; ok {
				value = inst.Name + "." + value
			}
		}
		out = append(out, symtab.GeneratorVariable{Name: gv.Name, Value: value, IsRTL: v.IsRTL})
	}
	return out, nil
}

func (t *Tree) qualifyRTLValueLocked(breakpointID uint32, value string) string {
	bp, ok := t.byID[breakpointID]
	if !ok {
		return value
	}
	inst, ok := t.instanceByID[bp.InstanceID]
	if !ok {
		return value
	}
	return inst.Name + "." + value
}

func (t *Tree) GetInstanceNames() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.instanceByName))
	for name := range t.instanceByName {
		out = append(out, name)
	}
	return out, nil
}

func (t *Tree) GetAnnotationValues(name string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.annotations[name], nil
}

func (t *Tree) GetContextStaticValues(breakpointID uint32) (map[string]int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int64)
	for _, cv := range t.ctxVars[breakpointID] {
		v := t.variables[cv.VariableID]
		if v.IsRTL {
			continue
		}
		var n int64
		_, _ = fmt.Sscanf(v.Value, "%d", &n)
		out[cv.Name] = n
	}
	return out, nil
}

func (t *Tree) GetAllArrayNames() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, v := range t.variables {
		if strings.Contains(v.Value, "[") {
			out = append(out, v.Value)
		}
	}
	return out, nil
}

func (t *Tree) SetSrcMapping(mapping map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range mapping {
		t.srcMapping[k] = v
	}
}

func (t *Tree) ResolveFilenameToDB(filename string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolveFilenameToDBLocked(filename)
}

func (t *Tree) resolveFilenameToDBLocked(filename string) string {
	for db, client := range t.srcMapping {
		if client == filename {
			return db
		}
	}
	return filename
}

func (t *Tree) ResolveFilenameToClient(filename string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if mapped, ok := t.srcMapping[filename]; ok {
		return mapped
	}
	return filename
}

func (t *Tree) ResolveScopedNameBreakpoint(scopedName string, breakpointID uint64) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok, err := t.GetInstanceNameFromBreakpoint(uint32(breakpointID))
	if err != nil || !ok {
		return "", false, err
	}
	return name + "." + scopedName, true, nil
}

func (t *Tree) ResolveScopedNameInstance(scopedName string, instanceID uint64) (string, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.instanceByID[instanceID]
	if !ok {
		return "", false, nil
	}
	return inst.Name + "." + scopedName, true, nil
}

func (t *Tree) GetAssignedBreakpoints(instanceID uint64) ([]schema.BreakPoint, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []schema.BreakPoint
	for _, bp := range t.byID {
		if bp.InstanceID == instanceID {
			out = append(out, bp)
		}
	}
	return out, nil
}

func (t *Tree) ExecutionBreakpointOrders() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.executionOrder
}

func (t *Tree) Close() error { return nil }

var _ symtab.Provider = (*Tree)(nil)
