//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report computes the business metric tables over a cleaned
// dataset. Aggregation is delegated to an engine; ordering, top-N
// selection, rounding and RFM scoring are shared so every engine yields
// the same bundle for the same input.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// ErrUnknownEngine is returned by Get for an unregistered engine name.
var ErrUnknownEngine = errors.New("unknown report engine")

// MonthRevenue is one calendar month of revenue.
type MonthRevenue struct {
	// Month is formatted as YYYY-MM.
	Month    string
	Revenue  float64
	Invoices int64
}

// ProductRevenue aggregates the invoice items of one product.
type ProductRevenue struct {
	StockCode    string
	Description  string
	Revenue      float64
	Quantity     int64
	AvgUnitPrice float64
}

// InvoiceTotal aggregates the items of one invoice.
type InvoiceTotal struct {
	InvoiceNo   string
	Revenue     float64
	Items       int64
	CustomerID  int64
	InvoiceDate time.Time
}

// CountryRevenue aggregates revenue by customer country.
type CountryRevenue struct {
	Country  string
	Revenue  float64
	Invoices int64
}

// CountryBehavior aggregates customer behavior by country.
type CountryBehavior struct {
	Country   string
	Customers int64
	Invoices  int64
	Revenue   float64
}

// CustomerActivity aggregates the purchases of one customer.
type CustomerActivity struct {
	CustomerID   int64
	Orders       int64
	Spent        float64
	LastPurchase time.Time
}

// Source answers the base aggregations of the report layer. Sums are
// returned unrounded and in no particular order.
type Source interface {
	MonthlyRevenue(ctx context.Context) ([]MonthRevenue, error)
	ProductRevenue(ctx context.Context) ([]ProductRevenue, error)
	InvoiceTotals(ctx context.Context) ([]InvoiceTotal, error)
	CountryRevenue(ctx context.Context) ([]CountryRevenue, error)
	CountryBehavior(ctx context.Context) ([]CountryBehavior, error)
	CustomerActivity(ctx context.Context) ([]CustomerActivity, error)

	// Close releases any resources held by the source.
	Close() error
}

// Engine opens a Source over a cleaned dataset.
type Engine interface {
	// Name returns the engine name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Open prepares a source over ds.
	Open(ctx context.Context, ds retail.Dataset) (Source, error)
}

var (
	registry = make(map[string]Engine)
	mu       sync.RWMutex
)

// Register adds an engine to the registry.
func Register(e Engine) {
	mu.Lock()
	defer mu.Unlock()
	registry[e.Name()] = e
}

// Get retrieves an engine by name.
func Get(name string) (Engine, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return e, nil
}

// List returns all registered engine names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered engines ordered by name.
func All() []Engine {
	names := List()

	mu.RLock()
	defer mu.RUnlock()

	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		engines = append(engines, registry[name])
	}
	return engines
}
