//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cleaning

import (
	"sort"

	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// AggregateLineItems merges rows sharing (invoice_no, stock_code,
// description, unit_price). Quantity and line revenue are summed; timestamp,
// customer and country come from the first row of each group. Rows that
// share (invoice_no, stock_code) but differ in price stay separate.
//
// The result is ordered by invoice_date, invoice_no, stock_code.
type AggregateLineItems struct{}

// Name returns the step name.
func (AggregateLineItems) Name() string {
	return StepAggregateLineItems
}

// Apply groups the rows in first-seen order and sorts the result.
func (AggregateLineItems) Apply(t retail.Table) (retail.Table, StepResult, error) {
	type lineKey struct {
		invoiceNo   string
		stockCode   string
		description string
		unitPrice   float64
	}

	index := make(map[lineKey]int, len(t.Rows))
	out := make([]retail.Transaction, 0, len(t.Rows))
	merged := 0
	for _, r := range t.Rows {
		k := lineKey{r.InvoiceNo, r.StockCode, r.Description, r.UnitPrice}
		if i, ok := index[k]; ok {
			out[i].Quantity += r.Quantity
			out[i].LineRevenue += r.LineRevenue
			merged++
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		if a.InvoiceNo != b.InvoiceNo {
			return a.InvoiceNo < b.InvoiceNo
		}
		return a.StockCode < b.StockCode
	})

	next := retail.Table{Rows: out, RevenueDerived: t.RevenueDerived}
	return next, newResult(StepAggregateLineItems, KindAggregate, t.Len(), len(out), merged), nil
}
