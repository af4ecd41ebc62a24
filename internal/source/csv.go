package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nvandessel/riskloop/internal/calibrate"
	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/sanitize"
)

// Table is a parsed CSV category file. Header and Rows keep the input
// cells so a table can be written back out with extra columns appended.
type Table struct {
	Header []string
	Rows   [][]string
	cols   map[field]int
}

// ReadTable parses CSV from r. Rows shorter than the header are padded with
// empty cells; blank lines are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, readErr(errors.New("empty file: missing header row"))
	}
	if err != nil {
		return nil, readErr(err)
	}

	t := &Table{Header: header, cols: columnIndex(header)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readErr(err)
		}
		if isBlank(row) {
			continue
		}
		if len(row) < len(header) {
			row = append(row, make([]string, len(header)-len(row))...)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// HasInterval reports whether the table carries calibrated 90% bound columns.
func (t *Table) HasInterval() bool {
	return t.has(fieldLower90) && t.has(fieldUpper90)
}

// HasExtremes reports whether the table carries extreme bound columns.
func (t *Table) HasExtremes() bool {
	return t.has(fieldExtremeLower) && t.has(fieldExtremeUpper)
}

func (t *Table) has(f field) bool {
	_, ok := t.cols[f]
	return ok
}

func (t *Table) cell(row []string, f field) string {
	i, ok := t.cols[f]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Records converts every row into a Record. Calibrated 90% columns are
// preferred; when only extreme columns exist the records are marked for
// calibration.
func (t *Table) Records() ([]Record, error) {
	for _, f := range []field{fieldName, fieldProbability} {
		if !t.has(f) {
			return nil, &models.ValidationError{Field: f.String(), Value: strings.Join(t.Header, ","), Reason: "required column not found in header"}
		}
	}

	lower, upper, extremes := fieldLower90, fieldUpper90, false
	switch {
	case t.HasInterval():
	case t.HasExtremes():
		lower, upper, extremes = fieldExtremeLower, fieldExtremeUpper, true
	default:
		return nil, &models.ValidationError{
			Field:  "bounds",
			Value:  strings.Join(t.Header, ","),
			Reason: "need 90% CI columns (90%_CI_Lower, 90%_CI_Upper) or extreme columns (Lower_Bound, Upper_Bound)",
		}
	}

	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		rowNum := i + 1
		c, err := t.category(row, lower, upper)
		if err != nil {
			return nil, withRow(err, rowNum)
		}
		if err := c.Validate(); err != nil {
			return nil, withRow(err, rowNum)
		}
		records = append(records, Record{Row: rowNum, Category: c, Extremes: extremes})
	}
	return records, nil
}

func (t *Table) category(row []string, lower, upper field) (models.Category, error) {
	name := sanitize.CategoryName(t.cell(row, fieldName))
	p, err := ParseProbability(t.cell(row, fieldProbability))
	if err != nil {
		return models.Category{}, err
	}
	lo, err := ParseAmount(lower.String(), t.cell(row, lower))
	if err != nil {
		return models.Category{}, err
	}
	hi, err := ParseAmount(upper.String(), t.cell(row, upper))
	if err != nil {
		return models.Category{}, err
	}

	c := models.Category{Name: name, Probability: p, LossLower: lo, LossUpper: hi}
	if s := strings.TrimSpace(t.cell(row, fieldCount)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return models.Category{}, &models.ValidationError{Field: "count", Value: s, Reason: "is not an integer"}
		}
		c.Count = n
	}
	return c, nil
}

// Calibrate computes the 90% interval of every row from its extreme bound
// columns and returns a copy of the table with the 90%_CI_Lower and
// 90%_CI_Upper columns set (appended if absent).
func (t *Table) Calibrate() (*Table, []calibrate.Interval, error) {
	if !t.HasExtremes() {
		return nil, nil, &models.ValidationError{
			Field:  "bounds",
			Value:  strings.Join(t.Header, ","),
			Reason: "CSV must contain 'Lower_Bound' and 'Upper_Bound' columns",
		}
	}

	out := &Table{Header: slices.Clone(t.Header)}
	lowerIdx, upperIdx := t.cols[fieldLower90], t.cols[fieldUpper90]
	if !t.HasInterval() {
		lowerIdx, upperIdx = len(out.Header), len(out.Header)+1
		out.Header = append(out.Header, HeaderLower90, HeaderUpper90)
	}

	intervals := make([]calibrate.Interval, 0, len(t.Rows))
	for i, row := range t.Rows {
		lo, err := ParseAmount(fieldExtremeLower.String(), t.cell(row, fieldExtremeLower))
		if err != nil {
			return nil, nil, withRow(err, i+1)
		}
		hi, err := ParseAmount(fieldExtremeUpper.String(), t.cell(row, fieldExtremeUpper))
		if err != nil {
			return nil, nil, withRow(err, i+1)
		}
		iv, err := calibrate.Calibrate(lo, hi)
		if err != nil {
			return nil, nil, withRow(err, i+1)
		}
		intervals = append(intervals, iv)

		newRow := make([]string, len(out.Header))
		copy(newRow, row)
		newRow[lowerIdx] = formatAmount(iv.Lower90)
		newRow[upperIdx] = formatAmount(iv.Upper90)
		out.Rows = append(out.Rows, newRow)
	}
	out.cols = columnIndex(out.Header)
	return out, intervals, nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = sanitize.CSVCell(c)
		}
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
