package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// PassedKey is the report entry holding the overall outcome.
const PassedKey = "validation_passed"

// Check is one named count in a Report.
type Check struct {
	Name  string
	Count int
}

// Report is the outcome of one Validate call. Checks keep their computation
// order; Passed is true iff every count is zero.
type Report struct {
	Checks []Check
	Passed bool
}

// Count returns the count recorded for name and whether the check ran.
func (r Report) Count(name string) (int, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Count, true
		}
	}
	return 0, false
}

// Counts returns the check counts keyed by name.
func (r Report) Counts() map[string]int {
	out := make(map[string]int, len(r.Checks))
	for _, c := range r.Checks {
		out[c.Name] = c.Count
	}
	return out
}

// Failed returns the checks with a non-zero count.
func (r Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Count != 0 {
			out = append(out, c)
		}
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (r Report) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.Checks)+1)
	for _, c := range r.Checks {
		attrs = append(attrs, slog.Int(c.Name, c.Count))
	}
	attrs = append(attrs, slog.Bool(PassedKey, r.Passed))
	return slog.GroupValue(attrs...)
}

// MarshalJSON renders the report as a flat object in check order, ending
// with validation_passed.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, c := range r.Checks {
		name, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		fmt.Fprintf(&buf, ":%d,", c.Count)
	}
	fmt.Fprintf(&buf, "%q:%t}", PassedKey, r.Passed)
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a report written by MarshalJSON, keeping check order.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("validation report: expected object")
	}

	var out Report
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("validation report: expected key, got %v", tok)
		}
		if name == PassedKey {
			if err := dec.Decode(&out.Passed); err != nil {
				return fmt.Errorf("validation report: %s: %w", name, err)
			}
			continue
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("validation report: %s: %w", name, err)
		}
		out.Checks = append(out.Checks, Check{Name: name, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}
