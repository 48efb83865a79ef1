//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package testutil

import (
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2011, month, day, hour, 0, 0, 0, time.UTC)
}

// SampleTransactions returns a small cleaned table: three customers in
// two countries, three products and four invoices spanning November and
// the first nine days of December 2011.
//
//	invoice  customer  date              lines
//	A        1 (uk)    2011-11-05 10:00  P1 2x5.00, P2 1x3.00
//	B        1 (uk)    2011-12-09 12:00  P1 1x5.00
//	C        2 (fr)    2011-12-01 09:00  P2 10x3.00
//	D        3 (uk)    2011-11-20 08:00  P3 4x0.50
func SampleTransactions() []retail.Transaction {
	tx := func(inv, stock, desc string, qty int64, price float64, date time.Time, cust int64, country string) retail.Transaction {
		return retail.Transaction{
			InvoiceNo:   inv,
			StockCode:   stock,
			Description: desc,
			Quantity:    qty,
			InvoiceDate: date,
			UnitPrice:   price,
			CustomerID:  cust,
			Country:     country,
			LineRevenue: float64(qty) * price,
		}
	}
	return []retail.Transaction{
		tx("A", "P1", "red mug", 2, 5, at(time.November, 5, 10), 1, "united kingdom"),
		tx("A", "P2", "tea towel", 1, 3, at(time.November, 5, 10), 1, "united kingdom"),
		tx("D", "P3", "paper straw", 4, 0.5, at(time.November, 20, 8), 3, "united kingdom"),
		tx("C", "P2", "tea towel", 10, 3, at(time.December, 1, 9), 2, "france"),
		tx("B", "P1", "red mug", 1, 5, at(time.December, 9, 12), 1, "united kingdom"),
	}
}

// SampleDataset projects SampleTransactions onto the normalized tables.
func SampleDataset() retail.Dataset {
	return cleaning.Project(retail.Table{Rows: SampleTransactions(), RevenueDerived: true})
}
