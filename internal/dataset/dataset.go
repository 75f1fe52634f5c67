// Package dataset holds the in-memory tabular model shared by every stage of
// the pipeline, together with its CSV codec.
//
// A Dataset keeps cells as the strings they were read as. Numeric access
// parses on demand, so a dataset survives a read/write round trip byte for
// byte unless a stage derives new values.
package dataset

import (
	"strconv"
	"strings"
)

// missingMarkers are the cell values treated as null in addition to the empty
// string. They are the default NA strings of pandas read_csv, matched exactly.
var missingMarkers = map[string]struct{}{
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// Dataset is an ordered sequence of records sharing one column schema.
// Rows[i][j] is the value of Columns[j] in record i.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// New creates a Dataset from columns and rows. The slices are used as given.
func New(columns []string, rows [][]string) *Dataset {
	return &Dataset{Columns: columns, Rows: rows}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Rows) }

// Index returns the position of the named column, or -1 if it is absent.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column is present.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// Cell returns the raw value at (row, col). Out-of-range positions yield "".
func (d *Dataset) Cell(row, col int) string {
	if row < 0 || row >= len(d.Rows) || col < 0 || col >= len(d.Rows[row]) {
		return ""
	}
	return d.Rows[row][col]
}

// Float parses the cell at (row, col) as a number. missing is true when the
// cell holds a null marker, in which case v is zero and err is nil.
func (d *Dataset) Float(row, col int) (v float64, missing bool, err error) {
	cell := d.Cell(row, col)
	if IsMissing(cell) {
		return 0, true, nil
	}
	v, err = strconv.ParseFloat(strings.TrimSpace(cell), 64)
	return v, false, err
}

// Column returns a copy of every value in the named column, or nil if the
// column is absent.
func (d *Dataset) Column(name string) []string {
	idx := d.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(d.Rows))
	for i := range d.Rows {
		out[i] = d.Cell(i, idx)
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	columns := append([]string(nil), d.Columns...)
	rows := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// IsMissing reports whether a cell value counts as null. Matching is exact:
// a whitespace-only cell is a value, not a null.
func IsMissing(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := missingMarkers[cell]
	return ok
}

// IsInteger reports whether a non-missing cell parses as a whole number.
func IsInteger(cell string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	return err == nil
}

// FormatFloat renders v the way tabular tools write float columns: the
// shortest exact representation, always carrying a fractional part.
//
//	FormatFloat(75)      == "75.0"
//	FormatFloat(230.0/3) == "76.66666666666667"
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// FormatInt renders a whole-valued float without a fractional part.
func FormatInt(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// NormalizeColumn replaces spaces in a column name with underscores.
func NormalizeColumn(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// IndexNormalized returns the position of the first column whose normalized
// name equals NormalizeColumn(name), or -1.
func (d *Dataset) IndexNormalized(name string) int {
	want := NormalizeColumn(name)
	for i, c := range d.Columns {
		if NormalizeColumn(c) == want {
			return i
		}
	}
	return -1
}
