// Package symtab defines the Symbol Table Provider (C2): the read interface
// over the persisted debug database (breakpoints, instances, scopes,
// variables, annotations). The factory that picks a concrete backend by URI
// scheme is open.Provider, in package symtab/open.
//
// Grounded on original_source/src/symbol.hh/symbol.cc's SymbolTableProvider
// abstract base and its create_symbol_table URI-scheme dispatch (tcp://,
// ws://, else a database file path).
package symtab

import (
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
)

// ContextVariable pairs a context variable's declared name with its
// resolved RTL value expression, per symbol.hh's ContextVariableInfo.
type ContextVariable struct {
	Name  string
	Value string
	IsRTL bool
}

// GeneratorVariable pairs a generator (parameter/localparam) variable's
// declared name with its resolved value, per symbol.hh's GeneratorVariableInfo.
type GeneratorVariable struct {
	Name  string
	Value string
	IsRTL bool
}

// Provider is the read surface over a loaded debug database. Every method
// mirrors a SymbolTableProvider method from symbol.hh; overload sets in the
// original collapse into a single Go method with a fuller parameter list.
type Provider interface {
	// GetBreakpoints looks up breakpoints at filename, optionally narrowed by
	// line (>0) and column (>0).
	GetBreakpoints(filename string, line, column uint32) ([]schema.BreakPoint, error)
	GetBreakpoint(id uint32) (schema.BreakPoint, bool, error)
	GetInstanceNameFromBreakpoint(id uint32) (string, bool, error)
	GetInstanceName(instanceID uint64) (string, bool, error)
	GetInstanceIDByName(instanceName string) (uint64, bool, error)
	GetInstanceIDByBreakpoint(breakpointID uint64) (uint64, bool, error)
	GetFilenames() ([]string, error)
	GetContextVariables(breakpointID uint32, resolveHierarchy bool) ([]ContextVariable, error)
	GetGeneratorVariables(instanceID uint64, resolveHierarchy bool) ([]GeneratorVariable, error)
	GetInstanceNames() ([]string, error)
	GetAnnotationValues(name string) ([]string, error)
	GetContextStaticValues(breakpointID uint32) (map[string]int64, error)
	GetAllArrayNames() ([]string, error)

	SetSrcMapping(mapping map[string]string)
	ResolveFilenameToDB(filename string) string
	ResolveFilenameToClient(filename string) string
	ResolveScopedNameBreakpoint(scopedName string, breakpointID uint64) (string, bool, error)
	ResolveScopedNameInstance(scopedName string, instanceID uint64) (string, bool, error)

	GetAssignedBreakpoints(instanceID uint64) ([]schema.BreakPoint, error)
	ExecutionBreakpointOrders() []uint32

	Close() error
}
