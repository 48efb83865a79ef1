//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"context"

	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// DirectEngine aggregates the flat cleaned table in memory.
type DirectEngine struct{}

func init() {
	Register(DirectEngine{})
}

// Name returns the engine name.
func (DirectEngine) Name() string {
	return "direct"
}

// Description returns a human-readable description.
func (DirectEngine) Description() string {
	return "In-memory aggregation over the flat cleaned table"
}

// Open returns a source over ds. It never fails.
func (DirectEngine) Open(_ context.Context, ds retail.Dataset) (Source, error) {
	descriptions := make(map[string]string, len(ds.Products))
	for _, p := range ds.Products {
		descriptions[p.StockCode] = p.Description
	}
	return &directSource{rows: ds.Flat, descriptions: descriptions}, nil
}

type directSource struct {
	rows         []retail.Transaction
	descriptions map[string]string
}

func (s *directSource) Close() error {
	return nil
}

func (s *directSource) MonthlyRevenue(ctx context.Context) ([]MonthRevenue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	invoices := make(map[string]map[string]bool)
	var out []MonthRevenue
	for _, r := range s.rows {
		month := r.InvoiceDate.Format("2006-01")
		i, ok := idx[month]
		if !ok {
			i = len(out)
			idx[month] = i
			out = append(out, MonthRevenue{Month: month})
			invoices[month] = make(map[string]bool)
		}
		out[i].Revenue += r.LineRevenue
		invoices[month][r.InvoiceNo] = true
	}
	for i := range out {
		out[i].Invoices = int64(len(invoices[out[i].Month]))
	}
	return out, nil
}

func (s *directSource) ProductRevenue(ctx context.Context) ([]ProductRevenue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	var out []ProductRevenue
	var priceSums []float64
	var counts []int64
	for _, r := range s.rows {
		i, ok := idx[r.StockCode]
		if !ok {
			i = len(out)
			idx[r.StockCode] = i
			desc, known := s.descriptions[r.StockCode]
			if !known {
				desc = r.Description
			}
			out = append(out, ProductRevenue{StockCode: r.StockCode, Description: desc})
			priceSums = append(priceSums, 0)
			counts = append(counts, 0)
		}
		out[i].Revenue += r.LineRevenue
		out[i].Quantity += r.Quantity
		priceSums[i] += r.UnitPrice
		counts[i]++
	}
	for i := range out {
		out[i].AvgUnitPrice = priceSums[i] / float64(counts[i])
	}
	return out, nil
}

func (s *directSource) InvoiceTotals(ctx context.Context) ([]InvoiceTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	var out []InvoiceTotal
	for _, r := range s.rows {
		i, ok := idx[r.InvoiceNo]
		if !ok {
			i = len(out)
			idx[r.InvoiceNo] = i
			out = append(out, InvoiceTotal{
				InvoiceNo:   r.InvoiceNo,
				CustomerID:  r.CustomerID,
				InvoiceDate: r.InvoiceDate,
			})
		}
		out[i].Revenue += r.LineRevenue
		out[i].Items++
	}
	return out, nil
}

func (s *directSource) CountryRevenue(ctx context.Context) ([]CountryRevenue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	invoices := make(map[string]map[string]bool)
	var out []CountryRevenue
	for _, r := range s.rows {
		i, ok := idx[r.Country]
		if !ok {
			i = len(out)
			idx[r.Country] = i
			out = append(out, CountryRevenue{Country: r.Country})
			invoices[r.Country] = make(map[string]bool)
		}
		out[i].Revenue += r.LineRevenue
		invoices[r.Country][r.InvoiceNo] = true
	}
	for i := range out {
		out[i].Invoices = int64(len(invoices[out[i].Country]))
	}
	return out, nil
}

func (s *directSource) CountryBehavior(ctx context.Context) ([]CountryBehavior, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[string]int)
	invoices := make(map[string]map[string]bool)
	customers := make(map[string]map[int64]bool)
	var out []CountryBehavior
	for _, r := range s.rows {
		i, ok := idx[r.Country]
		if !ok {
			i = len(out)
			idx[r.Country] = i
			out = append(out, CountryBehavior{Country: r.Country})
			invoices[r.Country] = make(map[string]bool)
			customers[r.Country] = make(map[int64]bool)
		}
		out[i].Revenue += r.LineRevenue
		invoices[r.Country][r.InvoiceNo] = true
		customers[r.Country][r.CustomerID] = true
	}
	for i := range out {
		out[i].Invoices = int64(len(invoices[out[i].Country]))
		out[i].Customers = int64(len(customers[out[i].Country]))
	}
	return out, nil
}

func (s *directSource) CustomerActivity(ctx context.Context) ([]CustomerActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := make(map[int64]int)
	invoices := make(map[int64]map[string]bool)
	var out []CustomerActivity
	for _, r := range s.rows {
		i, ok := idx[r.CustomerID]
		if !ok {
			i = len(out)
			idx[r.CustomerID] = i
			out = append(out, CustomerActivity{CustomerID: r.CustomerID})
			invoices[r.CustomerID] = make(map[string]bool)
		}
		out[i].Spent += r.LineRevenue
		if r.InvoiceDate.After(out[i].LastPurchase) {
			out[i].LastPurchase = r.InvoiceDate
		}
		invoices[r.CustomerID][r.InvoiceNo] = true
	}
	for i := range out {
		out[i].Orders = int64(len(invoices[out[i].CustomerID]))
	}
	return out, nil
}
