package signal

import "encoding/json"

// Result is what gets attached at input.signals.<name> after a signal
// runs (spec.md §4.4 output contract). Exactly one of Value or Error
// is meaningful at a time: a signal that exits 0 sets Value (its
// parsed JSON output, or the raw output string when that is not
// JSON); a non-zero exit, a timeout, an unknown name, or a trust
// rejection sets Error (which itself marshals to the
// {exit_code, output, error} structured shape).
type Result struct {
	Value any    `json:"-"`
	Error *Error `json:"-"`
}

// Error is the structured failure record (spec.md §4.4) for a
// non-zero exit, a timeout, an unknown signal name, or a trust
// rejection. Output that is not JSON is not an error.
type Error struct {
	ExitCode *int   `json:"exit_code"`
	Output   string `json:"output"`
	ErrorMsg string `json:"error"`
}

// MarshalJSON emits either the raw parsed value or the structured
// error record, whichever is set, matching the shape policies expect
// at input.signals.<name>.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(r.Error)
	}
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	return []byte("null"), nil
}
