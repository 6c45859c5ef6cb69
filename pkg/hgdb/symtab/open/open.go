// Package open provides the single entry point that picks a concrete
// symtab.Provider by URI scheme, mirroring original_source/src/symbol.cc's
// create_symbol_table. It is split out from package symtab itself only
// because Go forbids the import cycle a single-file factory would need
// (symtab defines Provider; the concrete providers import symtab for its
// shared types); the original keeps both in one translation unit.
package open

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab/jsontree"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab/netprovider"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/symtab/sqlstore"
)

const (
	tcpScheme = "tcp://"
	wsScheme  = "ws://"
)

// Provider dispatches on uri's scheme: tcp:// and ws:// build a network
// pass-through provider; a path ending .json loads an in-memory tree;
// anything else is opened as a sqlite database file.
func Provider(uri string) (symtab.Provider, error) {
	switch {
	case strings.HasPrefix(uri, tcpScheme):
		parts := strings.Split(uri, ":")
		if len(parts) != 3 {
			return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "invalid tcp symbol table uri %q", uri)
		}
		host := strings.TrimPrefix(parts[1], "//")
		port, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "invalid tcp port in %q: %v", uri, err)
		}
		return netprovider.DialTCP(fmt.Sprintf("%s:%d", host, port))
	case strings.HasPrefix(uri, wsScheme):
		return netprovider.DialWS(uri)
	case strings.HasSuffix(uri, ".json"):
		f, err := os.Open(uri)
		if err != nil {
			return nil, hgdberr.MakeError(hgdberr.ErrDBNotLoaded, "open json symbol table %q: %v", uri, err)
		}
		defer f.Close()
		return jsontree.Load(f)
	default:
		return sqlstore.Open(uri)
	}
}
