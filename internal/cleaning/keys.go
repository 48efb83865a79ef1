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

// KeyReport lists key and reference violations in a projected dataset.
type KeyReport struct {
	DuplicateCustomers []int64
	DuplicateProducts  []string
	DuplicateInvoices  []string

	// DuplicateItems are (invoice_no, stock_code) pairs appearing more than
	// once with the same unit price.
	DuplicateItems []retail.ItemKey

	// PriceVariantItems are (invoice_no, stock_code) pairs appearing more
	// than once because the rows disagree on unit price. Line aggregation
	// keeps them apart on purpose.
	PriceVariantItems []retail.ItemKey

	OrphanItemInvoices     []retail.ItemKey
	OrphanItemProducts     []retail.ItemKey
	OrphanInvoiceCustomers []string
}

// OK reports whether the dataset has no violations other than price
// variants.
func (r KeyReport) OK() bool {
	return len(r.DuplicateCustomers) == 0 &&
		len(r.DuplicateProducts) == 0 &&
		len(r.DuplicateInvoices) == 0 &&
		len(r.DuplicateItems) == 0 &&
		len(r.OrphanItemInvoices) == 0 &&
		len(r.OrphanItemProducts) == 0 &&
		len(r.OrphanInvoiceCustomers) == 0
}

// CheckKeys verifies key uniqueness and referential closure of ds.
func CheckKeys(ds retail.Dataset) KeyReport {
	var rep KeyReport

	customers := make(map[int64]int)
	for _, c := range ds.Customers {
		customers[c.CustomerID]++
		if customers[c.CustomerID] == 2 {
			rep.DuplicateCustomers = append(rep.DuplicateCustomers, c.CustomerID)
		}
	}

	products := make(map[string]int)
	for _, p := range ds.Products {
		products[p.StockCode]++
		if products[p.StockCode] == 2 {
			rep.DuplicateProducts = append(rep.DuplicateProducts, p.StockCode)
		}
	}

	invoices := make(map[string]int)
	for _, inv := range ds.Invoices {
		invoices[inv.InvoiceNo]++
		if invoices[inv.InvoiceNo] == 2 {
			rep.DuplicateInvoices = append(rep.DuplicateInvoices, inv.InvoiceNo)
		}
		if _, ok := customers[inv.CustomerID]; !ok {
			rep.OrphanInvoiceCustomers = append(rep.OrphanInvoiceCustomers, inv.InvoiceNo)
		}
	}

	prices := make(map[retail.ItemKey][]float64)
	var order []retail.ItemKey
	for _, it := range ds.Items {
		k := it.Key()
		if _, ok := prices[k]; !ok {
			order = append(order, k)
		}
		prices[k] = append(prices[k], it.UnitPrice)
		if _, ok := invoices[it.InvoiceNo]; !ok {
			rep.OrphanItemInvoices = append(rep.OrphanItemInvoices, k)
		}
		if _, ok := products[it.StockCode]; !ok {
			rep.OrphanItemProducts = append(rep.OrphanItemProducts, k)
		}
	}
	for _, k := range order {
		ps := prices[k]
		if len(ps) < 2 {
			continue
		}
		if distinctPrices(ps) == len(ps) {
			rep.PriceVariantItems = append(rep.PriceVariantItems, k)
		} else {
			rep.DuplicateItems = append(rep.DuplicateItems, k)
		}
	}

	sort.Slice(rep.DuplicateCustomers, func(i, j int) bool {
		return rep.DuplicateCustomers[i] < rep.DuplicateCustomers[j]
	})
	sort.Strings(rep.DuplicateProducts)
	sort.Strings(rep.DuplicateInvoices)
	return rep
}

func distinctPrices(ps []float64) int {
	seen := make(map[float64]bool, len(ps))
	for _, p := range ps {
		seen[p] = true
	}
	return len(seen)
}
