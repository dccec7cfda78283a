package codec

import "encoding/json"

// JSON is the standard-library codec. Slower than GoJSON but with zero
// dependencies; both produce interchangeable bytes, so snapshots
// written with one decode with the other.
//
// Record values round-trip cleanly: maps, slices, strings, bools,
// numbers and null are exactly the JSON data model.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly written snapshots. Existing
// files are self-describing: they record the codec name in their
// header and are opened by selecting the codec by name, so changing
// Default never breaks old files.
var Default Codec = GoJSON{}
