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
	"strings"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/ingest"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// Step names.
const (
	StepPositiveQuantityPrice  = "positive_quantity_price"
	StepCancelledInvoices      = "cancelled_invoices"
	StepMissingCustomer        = "missing_customer"
	StepMissingDescription     = "missing_description"
	StepCastCustomerID         = "cast_customer_id"
	StepStandardizeCategorical = "standardize_categoricals"
	StepNormalizeIdentifiers   = "normalize_identifiers"
	StepExactDuplicates        = "exact_duplicates"
	StepDeriveRevenue          = "derive_revenue"
	StepValidateRecords        = "validate_records"
	StepNonProductCodes        = "non_product_codes"
	StepResolveDescriptions    = "resolve_descriptions"
	StepResolveCountries       = "resolve_countries"
	StepCanonicalizeInvoices   = "canonicalize_invoices"
	StepAggregateLineItems     = "aggregate_line_items"
)

// DefaultCancellationPrefix marks cancelled invoices.
const DefaultCancellationPrefix = "C"

// DefaultExcludedStockCodes are service and adjustment codes that do not
// denote physical products.
var DefaultExcludedStockCodes = []string{
	"POST", "D", "DOT", "M", "BANK CHARGES", "ADJUST",
	"CARRIAGE", "AMAZONFEE", "S", "CRUK", "C2",
}

// RawFilter removes raw rows that fail a predicate. Raw filters run before
// the customer identifier is cast to its non-null form.
type RawFilter struct {
	name string
	keep func(ingest.RawRow) bool
}

// Name returns the step name.
func (f RawFilter) Name() string {
	return f.name
}

// Apply returns the rows for which the predicate holds.
func (f RawFilter) Apply(rows []ingest.RawRow) ([]ingest.RawRow, StepResult) {
	out := make([]ingest.RawRow, 0, len(rows))
	for _, r := range rows {
		if f.keep(r) {
			out = append(out, r)
		}
	}
	return out, newResult(f.name, KindFilter, len(rows), len(out), 0)
}

// PositiveQuantityPrice keeps rows with quantity > 0 and unit price > 0.
func PositiveQuantityPrice() RawFilter {
	return RawFilter{
		name: StepPositiveQuantityPrice,
		keep: func(r ingest.RawRow) bool {
			return r.Quantity > 0 && r.UnitPrice > 0
		},
	}
}

// CancelledInvoices drops rows whose invoice number starts with prefix.
func CancelledInvoices(prefix string) RawFilter {
	if prefix == "" {
		prefix = DefaultCancellationPrefix
	}
	return RawFilter{
		name: StepCancelledInvoices,
		keep: func(r ingest.RawRow) bool {
			return !strings.HasPrefix(strings.TrimSpace(r.InvoiceNo), prefix)
		},
	}
}

// MissingCustomer drops rows without a customer identifier.
func MissingCustomer() RawFilter {
	return RawFilter{
		name: StepMissingCustomer,
		keep: func(r ingest.RawRow) bool {
			return r.CustomerID != nil
		},
	}
}

// MissingDescription drops rows without a product description.
func MissingDescription() RawFilter {
	return RawFilter{
		name: StepMissingDescription,
		keep: func(r ingest.RawRow) bool {
			return r.Description != nil
		},
	}
}

// CastRows converts raw rows into the typed working table. Every row must
// already carry a customer identifier and a description.
func CastRows(rows []ingest.RawRow) (retail.Table, StepResult) {
	out := make([]retail.Transaction, 0, len(rows))
	for _, r := range rows {
		if r.CustomerID == nil || r.Description == nil {
			continue
		}
		out = append(out, retail.Transaction{
			InvoiceNo:   r.InvoiceNo,
			StockCode:   r.StockCode,
			Description: *r.Description,
			Quantity:    r.Quantity,
			InvoiceDate: r.InvoiceDate,
			UnitPrice:   r.UnitPrice,
			CustomerID:  *r.CustomerID,
			Country:     r.Country,
		})
	}
	return retail.Table{Rows: out}, newResult(StepCastCustomerID, KindFilter, len(rows), len(out), 0)
}

// Filter removes working-table rows that fail a predicate.
type Filter struct {
	name string
	keep func(retail.Transaction) bool
}

// Name returns the step name.
func (f Filter) Name() string {
	return f.name
}

// Apply returns a table holding the rows for which the predicate holds.
func (f Filter) Apply(t retail.Table) (retail.Table, StepResult, error) {
	out := make([]retail.Transaction, 0, len(t.Rows))
	for _, r := range t.Rows {
		if f.keep(r) {
			out = append(out, r)
		}
	}
	next := retail.Table{Rows: out, RevenueDerived: t.RevenueDerived}
	return next, newResult(f.name, KindFilter, t.Len(), len(out), 0), nil
}

// NonProductCodes drops rows whose stock code is in codes. Matching is
// exact and case sensitive on the trimmed code.
func NonProductCodes(codes []string) Filter {
	if codes == nil {
		codes = DefaultExcludedStockCodes
	}
	excluded := make(map[string]bool, len(codes))
	for _, c := range codes {
		excluded[c] = true
	}
	return Filter{
		name: StepNonProductCodes,
		keep: func(r retail.Transaction) bool {
			return !excluded[r.StockCode]
		},
	}
}

// ExactDuplicates drops rows identical in every field to an earlier row.
type ExactDuplicates struct{}

// Name returns the step name.
func (ExactDuplicates) Name() string {
	return StepExactDuplicates
}

// Apply keeps the first occurrence of every distinct row.
func (ExactDuplicates) Apply(t retail.Table) (retail.Table, StepResult, error) {
	type rowKey struct {
		invoiceNo, stockCode, description, country string
		quantity, customerID                       int64
		unitPrice, lineRevenue                     float64
		invoiceDate                                time.Time
	}

	seen := make(map[rowKey]bool, len(t.Rows))
	out := make([]retail.Transaction, 0, len(t.Rows))
	for _, r := range t.Rows {
		k := rowKey{
			invoiceNo:   r.InvoiceNo,
			stockCode:   r.StockCode,
			description: r.Description,
			country:     r.Country,
			quantity:    r.Quantity,
			customerID:  r.CustomerID,
			unitPrice:   r.UnitPrice,
			lineRevenue: r.LineRevenue,
			invoiceDate: r.InvoiceDate.UTC(),
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	next := retail.Table{Rows: out, RevenueDerived: t.RevenueDerived}
	return next, newResult(StepExactDuplicates, KindFilter, t.Len(), len(out), 0), nil
}
