//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
)

// progressReporter logs copy progress each time another interval of rows
// has been written.
type progressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

func newProgressReporter(tableName string, totalRows int64, interval int64) *progressReporter {
	if interval <= 0 {
		interval = 1
	}
	return &progressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// update records rowsCopied more rows and reports whether a progress line
// was logged.
func (p *progressReporter) update(rowsCopied int64) bool {
	oldRow := p.currentRow
	p.currentRow += rowsCopied

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval <= oldRow/p.progressInterval {
		return false
	}
	pct := 100.0
	if p.totalRows > 0 {
		pct = float64(p.currentRow) / float64(p.totalRows) * 100
	}
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Int64("total", p.totalRows).
		Float64("percent", pct).
		Msg("Copying rows")
	return true
}

func (p *progressReporter) done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}
