//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
	"github.com/pgEdge/pgedge-retailprep/internal/ingest"
)

func smallOptions(seed uint64) Options {
	opts := DefaultOptions()
	opts.Seed = seed
	opts.Invoices = 200
	opts.Customers = 40
	opts.Products = 60
	return opts
}

func TestGenerateIsReproducible(t *testing.T) {
	a, err := Generate(context.Background(), smallOptions(42))
	require.NoError(t, err)
	b, err := Generate(context.Background(), smallOptions(42))
	require.NoError(t, err)

	assert.Equal(t, a.Stats, b.Stats)
	assert.Equal(t, a.Rows(), b.Rows())
}

func TestGenerateLayout(t *testing.T) {
	opts := smallOptions(7)
	opts.Anomalies.SplitTimestamp = 0
	wb, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, wb.Sheets, len(opts.Sheets))
	assert.Equal(t, opts.Invoices, wb.Stats.Invoices)

	rows := wb.Rows()
	assert.Len(t, rows, wb.Stats.Rows)

	// Sheets hold consecutive date windows, so the concatenation is in
	// timestamp order.
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].InvoiceDate.Before(rows[i-1].InvoiceDate), "row %d out of order", i)
	}
	for _, r := range rows {
		assert.False(t, r.InvoiceDate.Before(opts.Start), "date %v before start", r.InvoiceDate)
		assert.False(t, r.InvoiceDate.After(opts.End), "date %v after end", r.InvoiceDate)
	}

	cancelled, missing := 0, 0
	for _, r := range rows {
		if strings.HasPrefix(r.InvoiceNo, cleaning.DefaultCancellationPrefix) {
			cancelled++
			assert.Negative(t, r.Quantity)
		}
		if r.CustomerID == nil {
			missing++
		}
	}
	assert.Equal(t, wb.Stats.CancelledRows, cancelled)
	assert.Equal(t, wb.Stats.MissingCustomerRows, missing)
}

func TestGenerateForcedAnomalies(t *testing.T) {
	opts := smallOptions(3)
	opts.Anomalies = Anomalies{Cancellation: 1, DuplicateLine: 1}

	wb, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, wb.Stats.Rows, wb.Stats.CancelledRows)
	assert.Equal(t, wb.Stats.Rows, 2*wb.Stats.DuplicateRows)
	for _, r := range wb.Rows() {
		assert.True(t, strings.HasPrefix(r.InvoiceNo, "C"))
	}
}

func TestGenerateValidatesOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no invoices", func(o *Options) { o.Invoices = 0 }},
		{"no customers", func(o *Options) { o.Customers = 0 }},
		{"no products", func(o *Options) { o.Products = 0 }},
		{"no lines", func(o *Options) { o.MaxLines = 0 }},
		{"inverted range", func(o *Options) { o.End = o.Start }},
		{"no sheets", func(o *Options) { o.Sheets = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			_, err := Generate(context.Background(), opts)
			assert.Error(t, err)
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, smallOptions(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkbookRoundTrip(t *testing.T) {
	opts := smallOptions(11)
	opts.Anomalies = Anomalies{MissingCustomer: 0.3, MissingDescription: 0.3, Cancellation: 0.1}

	wb, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "synthetic.xlsx")
	require.NoError(t, wb.Save(path))

	res, err := ingest.Read(context.Background(), path, ingest.Options{Sheets: opts.Sheets})
	require.NoError(t, err)

	want := wb.Rows()
	require.Len(t, res.Rows, len(want))
	for i, got := range res.Rows {
		w := want[i]
		assert.Equal(t, w.InvoiceNo, got.InvoiceNo, "row %d", i)
		assert.Equal(t, w.StockCode, got.StockCode, "row %d", i)
		assert.Equal(t, w.Description, got.Description, "row %d", i)
		assert.Equal(t, w.Quantity, got.Quantity, "row %d", i)
		assert.True(t, w.InvoiceDate.Equal(got.InvoiceDate), "row %d: %v != %v", i, w.InvoiceDate, got.InvoiceDate)
		assert.Equal(t, w.UnitPrice, got.UnitPrice, "row %d", i)
		assert.Equal(t, w.CustomerID, got.CustomerID, "row %d", i)
		assert.Equal(t, w.Country, got.Country, "row %d", i)
	}
}

func TestWorkbookWrite(t *testing.T) {
	wb, err := Generate(context.Background(), smallOptions(5))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	// xlsx files are zip archives.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestCleanGeneratedData(t *testing.T) {
	t.Run("without anomalies nothing is removed", func(t *testing.T) {
		opts := smallOptions(21)
		opts.Anomalies = Anomalies{}

		wb, err := Generate(context.Background(), opts)
		require.NoError(t, err)

		res, err := cleaning.New(cleaning.DefaultOptions()).Run(context.Background(), wb.Rows())
		require.NoError(t, err)

		assert.Zero(t, res.FilterRemoved())
		assert.Len(t, res.Dataset.Items, wb.Stats.Rows)
		assert.Len(t, res.Dataset.Invoices, opts.Invoices)
		assert.LessOrEqual(t, len(res.Dataset.Customers), opts.Customers)
	})

	t.Run("defects are removed", func(t *testing.T) {
		opts := smallOptions(22)
		opts.Anomalies = DefaultAnomalies()
		opts.Anomalies.Cancellation = 0.2
		opts.Anomalies.NonProductLine = 0.2
		opts.Anomalies.ZeroPrice = 0.05

		wb, err := Generate(context.Background(), opts)
		require.NoError(t, err)

		res, err := cleaning.New(cleaning.DefaultOptions()).Run(context.Background(), wb.Rows())
		require.NoError(t, err)

		excluded := make(map[string]bool)
		for _, c := range cleaning.DefaultExcludedStockCodes {
			excluded[c] = true
		}
		for _, it := range res.Dataset.Items {
			assert.False(t, strings.HasPrefix(it.InvoiceNo, "C"), "cancelled invoice %s kept", it.InvoiceNo)
			assert.False(t, excluded[it.StockCode], "non-product code %s kept", it.StockCode)
			assert.Positive(t, it.Quantity)
			assert.Positive(t, it.UnitPrice)
		}
		assert.Equal(t, res.Initial, res.FilterRemoved()+res.FilteredRows())
	})
}
