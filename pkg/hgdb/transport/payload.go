package transport

import (
	json "github.com/goccy/go-json"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdberr"
)

// DecodePayload unmarshals a request frame's payload into the typed shape a
// handler expects, wrapping decode errors with ErrTransportIO the same way
// DecodeFrame does.
func DecodePayload[T any](f Frame) (T, error) {
	var out T
	if len(f.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(f.Payload, &out); err != nil {
		return out, hgdberr.MakeError(hgdberr.ErrTransportIO, "decode %s payload: %v", f.Type, err)
	}
	return out, nil
}
