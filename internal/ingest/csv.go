//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func readCSVDir(ctx context.Context, dir string, sheets []string) (*Result, error) {
	paths := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		paths = append(paths, filepath.Join(dir, sheet+".csv"))
	}
	return readCSVFiles(ctx, paths)
}

func readCSVFiles(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		sheet := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		rows, err := ReadCSV(f, sheet)
		f.Close()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, rows...)
		res.Sheets = append(res.Sheets, SheetStat{Name: sheet, Rows: len(rows)})
	}
	return res, nil
}

// ReadCSV parses one sheet exported as CSV. The first record is the header.
func ReadCSV(r io.Reader, sheet string) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sheet %q: failed to read csv: %w", sheet, err)
	}
	return parseSheet(sheet, records)
}
