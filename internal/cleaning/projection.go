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

// Project splits the cleaned working table into the four normalized tables.
// It performs no conflict resolution: a violated upstream invariant shows up
// as duplicate keys, which CheckKeys reports.
func Project(t retail.Table) retail.Dataset {
	flat := make([]retail.Transaction, len(t.Rows))
	copy(flat, t.Rows)

	return retail.Dataset{
		Flat:      flat,
		Customers: projectCustomers(flat),
		Products:  projectProducts(flat),
		Invoices:  projectInvoices(flat),
		Items:     projectItems(flat),
	}
}

func projectCustomers(rows []retail.Transaction) []retail.Customer {
	seen := make(map[retail.Customer]bool)
	var out []retail.Customer
	for _, r := range rows {
		c := retail.Customer{CustomerID: r.CustomerID, Country: r.Country}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// projectProducts keeps, per stock code, the first row after sorting by
// stock code and description.
func projectProducts(rows []retail.Transaction) []retail.Product {
	sorted := make([]retail.Transaction, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StockCode != sorted[j].StockCode {
			return sorted[i].StockCode < sorted[j].StockCode
		}
		return sorted[i].Description < sorted[j].Description
	})

	var out []retail.Product
	for i, r := range sorted {
		if i > 0 && sorted[i-1].StockCode == r.StockCode {
			continue
		}
		out = append(out, retail.Product{
			StockCode:   r.StockCode,
			Description: r.Description,
			UnitPrice:   r.UnitPrice,
		})
	}
	return out
}

func projectInvoices(rows []retail.Transaction) []retail.Invoice {
	type invoiceKey struct {
		invoiceNo  string
		unixNano   int64
		customerID int64
	}
	seen := make(map[invoiceKey]bool)
	var out []retail.Invoice
	for _, r := range rows {
		k := invoiceKey{r.InvoiceNo, r.InvoiceDate.UnixNano(), r.CustomerID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, retail.Invoice{
			InvoiceNo:   r.InvoiceNo,
			InvoiceDate: r.InvoiceDate,
			CustomerID:  r.CustomerID,
		})
	}
	return out
}

func projectItems(rows []retail.Transaction) []retail.InvoiceItem {
	out := make([]retail.InvoiceItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, retail.InvoiceItem{
			InvoiceNo:   r.InvoiceNo,
			StockCode:   r.StockCode,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			LineRevenue: r.LineRevenue,
		})
	}
	return out
}
