// Package sqlstore implements a Symbol Table Provider (C2) backed by an
// embedded SQL database, the primary provider for real debug sessions.
//
// Grounded on original_source/src/db.cc/db.hh (DebugDatabaseClient wrapping
// a sqlite_orm-backed DebugDatabase, sync_schema on open) and
// include/schema.hh's table layout. Uses modernc.org/sqlite (a pure-Go
// driver, promoted to direct in SPEC_FULL.md's domain stack) through
// database/sql rather than cgo-backed mattn/go-sqlite3, since no toolchain
// run in this exercise can verify a cgo build ever links.
package sqlstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/schema"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS breakpoint (
	id INTEGER PRIMARY KEY,
	filename TEXT NOT NULL,
	line_num INTEGER NOT NULL,
	column_num INTEGER NOT NULL DEFAULT 0,
	condition TEXT NOT NULL DEFAULT '',
	trigger TEXT NOT NULL DEFAULT '',
	instance_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS instance (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scope (
	id INTEGER PRIMARY KEY,
	breakpoints TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS variable (
	id INTEGER PRIMARY KEY,
	value TEXT NOT NULL,
	is_rtl INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS context_variable (
	name TEXT NOT NULL,
	breakpoint_id INTEGER NOT NULL,
	variable_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS generator_variable (
	name TEXT NOT NULL,
	instance_id INTEGER NOT NULL,
	variable_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS annotation (
	name TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS breakpoint_filename_idx ON breakpoint(filename);
`

// Store is a sqlite-backed Provider.
type Store struct {
	db         *sql.DB
	srcMapping map[string]string
}

// Open opens (or creates) the database file at path and ensures its schema
// exists, mirroring DebugDatabaseClient's constructor + sync_schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "open sqlite symbol table %q: %v", path, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "sync schema %q: %v", path, err)
	}
	return &Store{db: db, srcMapping: make(map[string]string)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetBreakpoints(filename string, line, column uint32) ([]schema.BreakPoint, error) {
	fn := s.ResolveFilenameToDB(filename)
	query := `SELECT id, filename, line_num, column_num, condition, trigger, instance_id FROM breakpoint WHERE filename = ?`
	args := []any{fn}
	if line != 0 {
		query += " AND line_num = ?"
		args = append(args, line)
	}
	if column != 0 {
		query += " AND column_num = ?"
		args = append(args, column)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, hgdberr.MakeError(hgdberr.ErrTransportIO, "query breakpoints: %v", err)
	}
	defer rows.Close()
	var out []schema.BreakPoint
	for rows.Next() {
		var bp schema.BreakPoint
		if err := rows.Scan(&bp.ID, &bp.Filename, &bp.LineNum, &bp.ColumnNum, &bp.Condition, &bp.Trigger, &bp.InstanceID); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

func (s *Store) GetBreakpoint(id uint32) (schema.BreakPoint, bool, error) {
	row := s.db.QueryRow(`SELECT id, filename, line_num, column_num, condition, trigger, instance_id FROM breakpoint WHERE id = ?`, id)
	var bp schema.BreakPoint
	err := row.Scan(&bp.ID, &bp.Filename, &bp.LineNum, &bp.ColumnNum, &bp.Condition, &bp.Trigger, &bp.InstanceID)
	if err == sql.ErrNoRows {
		return schema.BreakPoint{}, false, nil
	}
	if err != nil {
		return schema.BreakPoint{}, false, err
	}
	return bp, true, nil
}

func (s *Store) GetInstanceNameFromBreakpoint(id uint32) (string, bool, error) {
	row := s.db.QueryRow(`SELECT instance.name FROM instance JOIN breakpoint ON breakpoint.instance_id = instance.id WHERE breakpoint.id = ?`, id)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return name, err == nil, err
}

func (s *Store) GetInstanceName(instanceID uint64) (string, bool, error) {
	row := s.db.QueryRow(`SELECT name FROM instance WHERE id = ?`, instanceID)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return name, err == nil, err
}

func (s *Store) GetInstanceIDByName(instanceName string) (uint64, bool, error) {
	row := s.db.QueryRow(`SELECT id FROM instance WHERE name = ?`, instanceName)
	var id uint64
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return id, err == nil, err
}

func (s *Store) GetInstanceIDByBreakpoint(breakpointID uint64) (uint64, bool, error) {
	row := s.db.QueryRow(`SELECT instance_id FROM breakpoint WHERE id = ?`, breakpointID)
	var id uint64
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return id, err == nil, err
}

func (s *Store) GetFilenames() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT filename FROM breakpoint`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetContextVariables(breakpointID uint32, resolveHierarchy bool) ([]symtab.ContextVariable, error) {
	rows, err := s.db.Query(`SELECT context_variable.name, variable.value, variable.is_rtl
		FROM context_variable JOIN variable ON context_variable.variable_id = variable.id
		WHERE context_variable.breakpoint_id = ?`, breakpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []symtab.ContextVariable
	for rows.Next() {
		var cv symtab.ContextVariable
		var isRTL int
		if err := rows.Scan(&cv.Name, &cv.Value, &isRTL); err != nil {
			return nil, err
		}
		cv.IsRTL = isRTL != 0
		if resolveHierarchy && cv.IsRTL {
			if name, ok, _ := s.GetInstanceNameFromBreakpoint(breakpointID); ok {
				cv.Value = name + "." + cv.Value
			}
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

func (s *Store) GetGeneratorVariables(instanceID uint64, resolveHierarchy bool) ([]symtab.GeneratorVariable, error) {
	rows, err := s.db.Query(`SELECT generator_variable.name, variable.value, variable.is_rtl
		FROM generator_variable JOIN variable ON generator_variable.variable_id = variable.id
		WHERE generator_variable.instance_id = ?`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []symtab.GeneratorVariable
	for rows.Next() {
		var gv symtab.GeneratorVariable
		var isRTL int
		if err := rows.Scan(&gv.Name, &gv.Value, &isRTL); err != nil {
			return nil, err
		}
		gv.IsRTL = isRTL != 0
		if resolveHierarchy && gv.IsRTL {
			if name, ok, _ := s.GetInstanceName(instanceID); ok {
				gv.Value = name + "." + gv.Value
			}
		}
		out = append(out, gv)
	}
	return out, rows.Err()
}

func (s *Store) GetInstanceNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM instance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) GetAnnotationValues(name string) ([]string, error) {
	rows, err := s.db.Query(`SELECT value FROM annotation WHERE name = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetContextStaticValues(breakpointID uint32) (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT context_variable.name, variable.value FROM context_variable
		JOIN variable ON context_variable.variable_id = variable.id
		WHERE context_variable.breakpoint_id = ? AND variable.is_rtl = 0`, breakpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		var n int64
		fmt.Sscanf(value, "%d", &n)
		out[name] = n
	}
	return out, rows.Err()
}

func (s *Store) GetAllArrayNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT value FROM variable WHERE value LIKE '%[%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) SetSrcMapping(mapping map[string]string) {
	for k, v := range mapping {
		s.srcMapping[k] = v
	}
}

func (s *Store) ResolveFilenameToDB(filename string) string {
	for db, client := range s.srcMapping {
		if client == filename {
			return db
		}
	}
	return filename
}

func (s *Store) ResolveFilenameToClient(filename string) string {
	if mapped, ok := s.srcMapping[filename]; ok {
		return mapped
	}
	return filename
}

func (s *Store) ResolveScopedNameBreakpoint(scopedName string, breakpointID uint64) (string, bool, error) {
	name, ok, err := s.GetInstanceNameFromBreakpoint(uint32(breakpointID))
	if err != nil || !ok {
		return "", false, err
	}
	return name + "." + scopedName, true, nil
}

func (s *Store) ResolveScopedNameInstance(scopedName string, instanceID uint64) (string, bool, error) {
	name, ok, err := s.GetInstanceName(instanceID)
	if err != nil || !ok {
		return "", false, err
	}
	return name + "." + scopedName, true, nil
}

func (s *Store) GetAssignedBreakpoints(instanceID uint64) ([]schema.BreakPoint, error) {
	rows, err := s.db.Query(`SELECT id, filename, line_num, column_num, condition, trigger, instance_id FROM breakpoint WHERE instance_id = ?`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.BreakPoint
	for rows.Next() {
		var bp schema.BreakPoint
		if err := rows.Scan(&bp.ID, &bp.Filename, &bp.LineNum, &bp.ColumnNum, &bp.Condition, &bp.Trigger, &bp.InstanceID); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

// ExecutionBreakpointOrders returns the execution-order-sorted breakpoint id
// list, built from the scope table the same way db.cc's
// setup_execution_order walks scope children, grounded on db.hh's
// execution_bp_orders() accessor over a cached vector.
func (s *Store) ExecutionBreakpointOrders() []uint32 {
	rows, err := s.db.Query(`SELECT id, breakpoints FROM scope ORDER BY id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []uint32
	for rows.Next() {
		var id uint32
		var bps string
		if err := rows.Scan(&id, &bps); err != nil {
			continue
		}
		for _, tok := range splitSpace(bps) {
			var n uint32
			if _, err := fmt.Sscanf(tok, "%d", &n); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}

func splitSpace(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

var _ symtab.Provider = (*Store)(nil)
