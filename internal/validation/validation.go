// Package validation implements the data quality gate that runs between
// extraction and transformation.
//
// Validate counts, in one pass over the dataset:
//   - missing_values: null cells across every column and row
//   - duplicates: rows equal to an earlier row in every cell
//   - invalid_<score column>: score cells outside the inclusive range [0,100]
//
// A score column that is absent from the dataset is skipped. The report
// passes only when every count is zero; callers must treat a failed report
// as fatal.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bjaus/studentetl/internal/dataset"
)

// Check names.
const (
	CheckMissingValues = "missing_values"
	CheckDuplicates    = "duplicates"
)

// Score bounds, inclusive.
const (
	MinScore = 0
	MaxScore = 100
)

// ScoreColumns are the range-checked columns, in report order.
var ScoreColumns = []string{"math score", "reading score", "writing score"}

// InvalidCheckName returns the report key for an out-of-range score column.
func InvalidCheckName(column string) string {
	return "invalid_" + dataset.NormalizeColumn(column)
}

// Validate computes the quality report for ds. It never modifies ds.
func Validate(ds *dataset.Dataset) Report {
	type scoreColumn struct {
		name    string
		idx     int
		invalid int
	}
	var scores []*scoreColumn
	for _, name := range ScoreColumns {
		if idx := ds.IndexNormalized(name); idx >= 0 {
			scores = append(scores, &scoreColumn{name: name, idx: idx})
		}
	}

	missing := 0
	duplicates := 0
	seen := make(map[string]struct{}, ds.Len())

	for i, row := range ds.Rows {
		for _, cell := range row {
			if dataset.IsMissing(cell) {
				missing++
			}
		}

		key := rowKey(row)
		if _, dup := seen[key]; dup {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}

		for _, sc := range scores {
			if !validScore(ds.Cell(i, sc.idx)) {
				sc.invalid++
			}
		}
	}

	report := Report{
		Checks: []Check{
			{Name: CheckMissingValues, Count: missing},
			{Name: CheckDuplicates, Count: duplicates},
		},
	}
	for _, sc := range scores {
		report.Checks = append(report.Checks, Check{Name: InvalidCheckName(sc.name), Count: sc.invalid})
	}
	report.Passed = true
	for _, c := range report.Checks {
		if c.Count != 0 {
			report.Passed = false
		}
	}

	return report
}

// rowKey encodes a row so that two keys are equal only when every cell is.
// All null markers encode alike, so "" and "NA" in the same column match.
func rowKey(row []string) string {
	var b strings.Builder
	for _, cell := range row {
		if dataset.IsMissing(cell) {
			// Quoted cells always start with '"', so this cannot collide.
			b.WriteByte(0)
			continue
		}
		b.WriteString(strconv.Quote(cell))
	}
	return b.String()
}

// validScore reports whether cell is acceptable in a score column. Missing
// cells are accepted here because they are already counted as missing.
func validScore(cell string) bool {
	if dataset.IsMissing(cell) {
		return true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return false
	}
	return v >= MinScore && v <= MaxScore
}

// FailedError is returned when a dataset does not pass the quality gate. It
// carries the full report so operators can see which checks failed.
type FailedError struct {
	Report Report
}

func (e *FailedError) Error() string {
	failed := e.Report.Failed()
	parts := make([]string, len(failed))
	for i, c := range failed {
		parts[i] = fmt.Sprintf("%s=%d", c.Name, c.Count)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
