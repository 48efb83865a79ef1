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
	"fmt"

	"github.com/xuri/excelize/v2"
)

func readWorkbook(ctx context.Context, path string, sheets []string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	res := &Result{}
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Raw values keep dates as serial numbers instead of the
		// locale-dependent display format.
		records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		rows, err := parseSheet(sheet, records)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, rows...)
		res.Sheets = append(res.Sheets, SheetStat{Name: sheet, Rows: len(rows)})
	}
	return res, nil
}
