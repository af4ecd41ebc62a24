package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// ExportJSONL writes every run, oldest first, as one JSON object per line.
func ExportJSONL(ctx context.Context, s RunStore, w io.Writer) (int, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return 0, err
	}
	slices.Reverse(runs)

	enc := json.NewEncoder(w)
	for i := range runs {
		if err := enc.Encode(&runs[i]); err != nil {
			return i, fmt.Errorf("failed to encode run %s: %w", runs[i].ID, err)
		}
	}
	return len(runs), nil
}

// ImportResult reports the outcome of ImportJSONL.
type ImportResult struct {
	Imported int `json:"imported"`
	// Skipped counts lines that failed to parse or whose ID already exists.
	Skipped int `json:"skipped"`
}

// ImportJSONL reads runs written by ExportJSONL. Malformed lines and runs
// that already exist are skipped; any other store error aborts the import.
func ImportJSONL(ctx context.Context, s RunStore, r io.Reader) (ImportResult, error) {
	var res ImportResult

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec RunRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
			res.Skipped++
			continue
		}
		if got, err := s.GetRun(ctx, rec.ID); err == nil && got.ID == rec.ID {
			res.Skipped++
			continue
		}
		if _, err := s.SaveRun(ctx, &rec); err != nil {
			return res, fmt.Errorf("failed to import run %s: %w", rec.ID, err)
		}
		res.Imported++
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scanner error: %w", err)
	}
	return res, nil
}
