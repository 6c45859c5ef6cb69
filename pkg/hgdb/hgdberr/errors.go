// Package hgdberr defines the error kinds from spec.md 7 as wrapped sentinel
// values, in the teacher's style of a tiny makeError helper rather than a
// custom error-type hierarchy.
package hgdberr

import "fmt"

type Error error

var (
	ErrDBNotLoaded       Error = fmt.Errorf("symbol table not loaded")
	ErrUnknownLocation   Error = fmt.Errorf("unknown source location")
	ErrUnknownID         Error = fmt.Errorf("unknown id")
	ErrUnparsableExpr    Error = fmt.Errorf("unparsable expression")
	ErrUnresolvedSymbol  Error = fmt.Errorf("unresolved symbol")
	ErrVPIReadFailed     Error = fmt.Errorf("vpi value read failed")
	ErrRewindUnsupported Error = fmt.Errorf("rewind unsupported by simulator")
	ErrTransportIO       Error = fmt.Errorf("transport i/o failure")
	ErrInvariant         Error = fmt.Errorf("invariant violated")
)

// MakeError wraps err with a formatted message, matching the teacher's
// pkg/hw/cpu/errors.go and pkg/utils/errors.go helper.
func MakeError(err Error, message string, args ...interface{}) Error {
	return fmt.Errorf("%w: "+message, append([]any{err}, args...)...)
}
