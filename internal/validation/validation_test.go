package validation_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/validation"
)

var columns = []string{
	"gender", "race/ethnicity", "parental level of education", "lunch",
	"test preparation course", "math score", "reading score", "writing score",
}

func row(m, r, w string) []string {
	return []string{"female", "group B", "some college", "standard", "none", m, r, w}
}

func count(t *testing.T, r validation.Report, name string) int {
	t.Helper()
	n, ok := r.Count(name)
	require.True(t, ok, "check %q missing from report", name)
	return n
}

func TestValidate_CleanDatasetPasses(t *testing.T) {
	ds := dataset.New(columns, [][]string{
		row("70", "80", "75"),
		row("95", "92", "98"),
		row("40", "35", "30"),
	})

	r := validation.Validate(ds)

	require.True(t, r.Passed)
	require.Empty(t, r.Failed())
	require.Equal(t, 0, count(t, r, "missing_values"))
	require.Equal(t, 0, count(t, r, "duplicates"))
	require.Equal(t, 0, count(t, r, "invalid_math_score"))
	require.Equal(t, 0, count(t, r, "invalid_reading_score"))
	require.Equal(t, 0, count(t, r, "invalid_writing_score"))
}

func TestValidate_OutOfRangeMath(t *testing.T) {
	ds := dataset.New(columns, [][]string{
		row("150", "80", "75"),
		row("95", "92", "98"),
	})

	r := validation.Validate(ds)

	require.False(t, r.Passed)
	require.Equal(t, 1, count(t, r, "invalid_math_score"))
	require.Equal(t, 0, count(t, r, "invalid_reading_score"))
	require.Equal(t, []validation.Check{{Name: "invalid_math_score", Count: 1}}, r.Failed())
}

func TestValidate_BoundsAreInclusive(t *testing.T) {
	ds := dataset.New(columns, [][]string{
		row("0", "100", "50"),
		row("-1", "100.5", "0.0"),
	})

	r := validation.Validate(ds)

	require.False(t, r.Passed)
	require.Equal(t, 1, count(t, r, "invalid_math_score"))
	require.Equal(t, 1, count(t, r, "invalid_reading_score"))
	require.Equal(t, 0, count(t, r, "invalid_writing_score"))
}

func TestValidate_MissingValues(t *testing.T) {
	ds := dataset.New(columns, [][]string{
		{"", "group B", "some college", "standard", "none", "70", "NA", "75"},
		row("95", "92", "98"),
	})

	r := validation.Validate(ds)

	require.False(t, r.Passed)
	require.Equal(t, 2, count(t, r, "missing_values"))
	// A missing score is reported once, as missing.
	require.Equal(t, 0, count(t, r, "invalid_reading_score"))
}

func TestValidate_Duplicates(t *testing.T) {
	ds := dataset.New(columns, [][]string{
		row("70", "80", "75"),
		row("70", "80", "75"),
		row("95", "92", "98"),
		row("70", "80", "75"),
	})

	r := validation.Validate(ds)

	require.False(t, r.Passed)
	require.Equal(t, 2, count(t, r, "duplicates"))
}

func TestValidate_DuplicatesTreatNullMarkersAlike(t *testing.T) {
	ds := dataset.New([]string{"gender", "math score"}, [][]string{
		{"", "50"},
		{"NA", "50"},
		{"NaN", "50"},
		{"female", "50"},
	})

	r := validation.Validate(ds)

	require.Equal(t, 2, count(t, r, "duplicates"))
	require.Equal(t, 3, count(t, r, "missing_values"))
}

func TestValidate_NonNumericScoreIsInvalid(t *testing.T) {
	ds := dataset.New(columns, [][]string{row("seventy", "80", "75")})

	r := validation.Validate(ds)

	require.False(t, r.Passed)
	require.Equal(t, 1, count(t, r, "invalid_math_score"))
}

func TestValidate_AbsentScoreColumnSkipped(t *testing.T) {
	ds := dataset.New([]string{"gender", "math score"}, [][]string{{"male", "88"}})

	r := validation.Validate(ds)

	require.True(t, r.Passed)
	_, ok := r.Count("invalid_reading_score")
	require.False(t, ok)
	require.Len(t, r.Checks, 3)
}

func TestValidate_NormalizedColumnNames(t *testing.T) {
	ds := dataset.New([]string{"math_score", "reading_score", "writing_score"}, [][]string{{"101", "50", "50"}})

	r := validation.Validate(ds)

	require.Equal(t, 1, count(t, r, "invalid_math_score"))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	ds := dataset.New(columns, [][]string{row("150", "", "75"), row("150", "", "75")})
	before := ds.Clone()

	_ = validation.Validate(ds)

	require.Equal(t, before, ds)
}

func TestReport_JSON(t *testing.T) {
	r := validation.Report{
		Checks: []validation.Check{
			{Name: "missing_values", Count: 0},
			{Name: "duplicates", Count: 2},
		},
		Passed: false,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.Equal(t, `{"missing_values":0,"duplicates":2,"validation_passed":false}`, string(data))

	var back validation.Report
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, r, back)
}

func TestReport_UnmarshalJSON_Error(t *testing.T) {
	var r validation.Report
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
	require.Error(t, json.Unmarshal([]byte(`{"duplicates":"two"}`), &r))
}

func TestFailedError(t *testing.T) {
	ds := dataset.New(columns, [][]string{row("150", "80", "75")})
	var err error = &validation.FailedError{Report: validation.Validate(ds)}

	var fe *validation.FailedError
	require.True(t, errors.As(err, &fe))
	require.False(t, fe.Report.Passed)
	require.Equal(t, "validation failed: invalid_math_score=1", err.Error())
}
