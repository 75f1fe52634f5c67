// Package transform derives summary columns from validated score data.
//
// Transform normalizes column names (spaces become underscores) and appends,
// in order:
//
//	total_score           math_score + reading_score + writing_score
//	average_score         total_score / 3, unrounded
//	performance_category  band of average_score, see Categorize
//
// A row with a missing score has empty total and average cells and the
// Unknown category.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/bjaus/studentetl/internal/dataset"
)

// Derived column names.
const (
	ColumnTotal    = "total_score"
	ColumnAverage  = "average_score"
	ColumnCategory = "performance_category"
)

// ScoreColumns are the normalized names of the summed columns.
var ScoreColumns = []string{"math_score", "reading_score", "writing_score"}

// ErrMissingColumn is returned when a score column is absent.
var ErrMissingColumn = errors.New("missing score column")

// Category is a performance band label.
type Category string

const (
	Excellent        Category = "Excellent"
	Good             Category = "Good"
	Satisfactory     Category = "Satisfactory"
	NeedsImprovement Category = "Needs Improvement"
	Failing          Category = "Failing"
	Unknown          Category = "Unknown"
)

// Categories lists every band label from best to worst, followed by Unknown.
var Categories = []Category{Excellent, Good, Satisfactory, NeedsImprovement, Failing, Unknown}

// band is one row of the threshold table; the first match wins.
type band struct {
	match    func(a float64) bool
	category Category
}

var bands = []band{
	{func(a float64) bool { return a >= 90 }, Excellent},
	{func(a float64) bool { return a >= 75 && a < 90 }, Good},
	{func(a float64) bool { return a >= 65 && a < 75 }, Satisfactory},
	{func(a float64) bool { return a >= 50 && a < 65 }, NeedsImprovement},
	{func(a float64) bool { return a < 50 }, Failing},
}

// Categorize maps an average score to its band. NaN matches no band and
// yields Unknown.
func Categorize(avg float64) Category {
	for _, b := range bands {
		if b.match(avg) {
			return b.category
		}
	}
	return Unknown
}

// Transform returns a new dataset with normalized column names and the derived
// columns appended. ds is not modified.
func Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	columns := make([]string, 0, len(ds.Columns)+3)
	for _, c := range ds.Columns {
		columns = append(columns, dataset.NormalizeColumn(c))
	}
	for _, derived := range []string{ColumnTotal, ColumnAverage, ColumnCategory} {
		for _, c := range columns {
			if c == derived {
				return nil, fmt.Errorf("transform: column %q already present", derived)
			}
		}
	}
	columns = append(columns, ColumnTotal, ColumnAverage, ColumnCategory)

	idx := make([]int, len(ScoreColumns))
	for i, name := range ScoreColumns {
		idx[i] = ds.IndexNormalized(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("transform: %w: %s", ErrMissingColumn, name)
		}
	}
	integral := integralScores(ds, idx)

	rows := make([][]string, len(ds.Rows))
	for r, src := range ds.Rows {
		total, missing, err := sumScores(ds, r, idx)
		if err != nil {
			return nil, err
		}

		out := make([]string, len(src), len(src)+3)
		copy(out, src)

		if missing {
			out = append(out, "", "", string(Categorize(math.NaN())))
		} else {
			avg := total / 3
			totalCell := dataset.FormatFloat(total)
			if integral {
				totalCell = dataset.FormatInt(total)
			}
			out = append(out, totalCell, dataset.FormatFloat(avg), string(Categorize(avg)))
		}
		rows[r] = out
	}

	return dataset.New(columns, rows), nil
}

func sumScores(ds *dataset.Dataset, row int, idx []int) (total float64, missing bool, err error) {
	for i, col := range idx {
		v, isMissing, err := ds.Float(row, col)
		if err != nil {
			return 0, false, fmt.Errorf("transform: row %d: %s: %w", row+1, ScoreColumns[i], err)
		}
		if isMissing {
			missing = true
			continue
		}
		total += v
	}
	return total, missing, nil
}

// integralScores reports whether every score cell is a whole number, in which
// case the total is written without a fractional part.
func integralScores(ds *dataset.Dataset, idx []int) bool {
	for r := range ds.Rows {
		for _, col := range idx {
			cell := ds.Cell(r, col)
			if dataset.IsMissing(cell) || !dataset.IsInteger(cell) {
				return false
			}
		}
	}
	return true
}
