// Package source loads risk category definitions from CSV and YAML files and
// maps them onto the schema-stable models.Category type.
//
// Column naming varies between the spreadsheets in circulation, so the CSV
// adapter resolves headers through an explicit alias table (see columns.go)
// before any row reaches the core.
package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/riskloop/internal/lossmodel"
	"github.com/nvandessel/riskloop/internal/models"
)

// Record is one category as read from a source, plus how its bounds should
// be interpreted.
type Record struct {
	// Row is the 1-based data row (CSV) or list position (YAML).
	Row int

	Category models.Category

	// Extremes is true when the bounds are extreme (99.8%) estimates that
	// still need calibrating, false when they are already 90% bounds.
	Extremes bool
}

// Model builds the loss model for the record, tagging validation errors with
// the record's row.
func (r Record) Model() (lossmodel.Model, error) {
	var (
		m   lossmodel.Model
		err error
	)
	if r.Extremes {
		m, err = lossmodel.FromExtremes(r.Category)
	} else {
		m, err = lossmodel.FromInterval(r.Category)
	}
	if err != nil {
		return lossmodel.Model{}, withRow(err, r.Row)
	}
	return m, nil
}

// Models builds the loss models for every record, in order. It fails on the
// first invalid record.
func Models(records []Record) ([]lossmodel.Model, error) {
	ms := make([]lossmodel.Model, 0, len(records))
	for _, r := range records {
		m, err := r.Model()
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}

// Load reads category records from path. The format is chosen by extension:
// .yaml/.yml are read as YAML, everything else as CSV.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.SourceReadError{Path: path, Err: err}
	}
	defer f.Close()

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = ReadYAML(f)
	default:
		var t *Table
		t, err = ReadTable(f)
		if err == nil {
			records, err = t.Records()
		}
	}
	if err != nil {
		return nil, attachPath(err, path)
	}
	return records, nil
}

// withRow sets Row on a *models.ValidationError that does not carry one yet.
func withRow(err error, row int) error {
	var ve *models.ValidationError
	if errors.As(err, &ve) && ve.Row == 0 {
		ve.Row = row
	}
	return err
}

// attachPath fills in the path of a SourceReadError produced by a reader
// that only saw an io.Reader.
func attachPath(err error, path string) error {
	var se *models.SourceReadError
	if errors.As(err, &se) && se.Path == "" {
		se.Path = path
	}
	return err
}

// readErr wraps a read failure that happened before the path was known.
func readErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = errors.New("unexpected end of input")
	}
	return &models.SourceReadError{Err: err}
}
