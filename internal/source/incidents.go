package source

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/sanitize"
)

// CategoryCount is the number of incidents tagged with one category.
type CategoryCount struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CountCategoriesResult is the aggregate over an incident log.
type CountCategoriesResult struct {
	Total      int             `json:"total"`
	Categories []CategoryCount `json:"categories"`
}

// CountCategories reads an incident CSV and counts the categories named in
// column. A cell may tag several categories separated by "::"; each tag
// counts once. Percentage is count over the total number of tags, rounded to
// four decimals. Results are ordered by count descending, then by name.
func CountCategories(r io.Reader, column string) (*CountCategoriesResult, error) {
	if column == "" {
		column = HeaderCategory
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, readErr(errors.New("empty file: missing header row"))
	}
	if err != nil {
		return nil, readErr(err)
	}

	col := -1
	for i, h := range header {
		if normalizeHeader(h) == normalizeHeader(column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &models.ValidationError{Field: "column", Value: column, Reason: "not found in header"}
	}

	counts := make(map[string]int)
	total := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readErr(err)
		}
		if col >= len(row) {
			continue
		}
		for _, tag := range strings.Split(row[col], constants.CategorySeparator) {
			name := sanitize.CategoryName(tag)
			if name == "" {
				continue
			}
			counts[name]++
			total++
		}
	}

	res := &CountCategoriesResult{Total: total, Categories: make([]CategoryCount, 0, len(counts))}
	for name, n := range counts {
		pct := decimal.NewFromInt(int64(n)).
			DivRound(decimal.NewFromInt(int64(total)), constants.PercentageDecimals).
			InexactFloat64()
		res.Categories = append(res.Categories, CategoryCount{Name: name, Count: n, Percentage: pct})
	}
	slices.SortFunc(res.Categories, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return res, nil
}

// WriteCategoryCounts writes the counts as a Category,Count,Percentage CSV.
func WriteCategoryCounts(w io.Writer, counts []CategoryCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderCategory, HeaderCount, HeaderPercentage}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, c := range counts {
		row := []string{
			sanitize.CSVCell(c.Name),
			strconv.Itoa(c.Count),
			strconv.FormatFloat(c.Percentage, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
