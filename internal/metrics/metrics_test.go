//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
)

func TestObserveStep(t *testing.T) {
	r := New()
	r.ObserveStep(cleaning.StepResult{Name: "missing_customer", Before: 10, After: 7, Removed: 3})
	r.ObserveStep(cleaning.StepResult{Name: "aggregate_line_items", Before: 7, After: 6, Changed: 1})

	assert.Equal(t, 3.0, promtest.ToFloat64(r.removed.WithLabelValues("missing_customer")))
	assert.Equal(t, 7.0, promtest.ToFloat64(r.stepRows.WithLabelValues("missing_customer", "after")))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.changed.WithLabelValues("aggregate_line_items")))
}

func TestObserveConflict(t *testing.T) {
	r := New()
	r.ObserveConflict(cleaning.ConflictStat{Kind: cleaning.ConflictCustomerCountry, KeysInConflict: 2, RowsChanged: 5})

	kind := string(cleaning.ConflictCustomerCountry)
	assert.Equal(t, 2.0, promtest.ToFloat64(r.conflicts.WithLabelValues(kind, "found")))
	assert.Equal(t, 0.0, promtest.ToFloat64(r.conflicts.WithLabelValues(kind, "remaining")))
	assert.Equal(t, 5.0, promtest.ToFloat64(r.resolved.WithLabelValues(kind)))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveTable("customers", 3)
	r.MarkSuccess(time.Unix(1323432000, 0))

	path := filepath.Join(t.TempDir(), "retailprep.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `retailprep_table_rows{table="customers"} 3`), text)
	assert.Contains(t, text, "retailprep_last_success_timestamp_seconds 1.323432e+09")
}
