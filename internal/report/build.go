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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/logging"
)

// Defaults for Options.
const (
	DefaultTopN        = 10
	DefaultHomeCountry = "united kingdom"
)

// Customer types of the single-vs-repeat classification.
const (
	TypeSinglePurchase = "Single Purchase"
	TypeRepeatCustomer = "Repeat Customer"
)

// Options configures Build.
type Options struct {
	// TopN bounds the top products, invoices and customers tables.
	TopN int

	// HomeCountry is excluded from the revenue-by-country variant.
	HomeCountry string
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if strings.TrimSpace(o.HomeCountry) == "" {
		o.HomeCountry = DefaultHomeCountry
	}
	return o
}

// MonthlySummary is a row of the monthly revenue summary.
type MonthlySummary struct {
	MonthRevenue
	AvgRevenuePerInvoice float64

	// Partial is set for the month of the reference date when the data
	// stops before the month ends.
	Partial bool
}

// CountrySummary is a row of the revenue-by-country tables.
type CountrySummary struct {
	CountryRevenue
	AvgInvoiceValue float64
}

// CountryBehaviorSummary is a row of the customer behavior by country table.
type CountryBehaviorSummary struct {
	CountryBehavior
	AvgInvoicesPerCustomer float64
	AvgRevenuePerCustomer  float64
}

// CustomerType classifies a customer as single purchase or repeat.
type CustomerType struct {
	CustomerID int64
	Invoices   int64
	Revenue    float64
	Type       string
}

// TypeCount summarizes one customer type.
type TypeCount struct {
	Type    string
	Count   int64
	Percent float64
}

// CustomerValue is a row of the per-customer order value tables.
type CustomerValue struct {
	CustomerID    int64
	Spent         float64
	Orders        int64
	AvgOrderValue float64
}

// CustomerRecency is the time since a customer's last purchase.
type CustomerRecency struct {
	CustomerID   int64
	LastPurchase time.Time
	Days         int64
}

// RFMScore is a customer's recency, frequency and monetary scoring.
type RFMScore struct {
	CustomerID int64
	Frequency  int64
	Monetary   float64
	Recency    int64
	R, F, M    int
	Score      int
	Segment    string
}

// SegmentCount is the number of customers in a segment.
type SegmentCount struct {
	Segment   string
	Customers int64
}

// Bundle holds every report table.
type Bundle struct {
	Engine string

	// ReferenceDate is the latest purchase in the data. Recency is
	// measured from it.
	ReferenceDate time.Time

	Monthly             []MonthlySummary
	TopProducts         []ProductRevenue
	TopInvoices         []InvoiceTotal
	Countries           []CountrySummary
	CountriesExclHome   []CountrySummary
	Behavior            []CountryBehaviorSummary
	CustomerTypes       []CustomerType
	CustomerTypeSummary []TypeCount
	AvgOrderValue       []CustomerValue
	TopCustomers        []CustomerValue
	Recency             []CustomerRecency
	Frequency           []CustomerValue
	Monetary            []CustomerValue
	RFM                 []RFMScore
	Segments            []SegmentCount
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func round2(x float64) float64 {
	return round(x, 2)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Build computes the report bundle from src.
func Build(ctx context.Context, engine string, src Source, opts Options) (*Bundle, error) {
	opts = opts.withDefaults()
	b := &Bundle{Engine: engine}

	months, err := src.MonthlyRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	products, err := src.ProductRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("product revenue: %w", err)
	}
	invoices, err := src.InvoiceTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("invoice totals: %w", err)
	}
	countries, err := src.CountryRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("country revenue: %w", err)
	}
	behavior, err := src.CountryBehavior(ctx)
	if err != nil {
		return nil, fmt.Errorf("country behavior: %w", err)
	}
	customers, err := src.CustomerActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("customer activity: %w", err)
	}

	settle(months, products, invoices, countries, behavior, customers)

	for _, c := range customers {
		if c.LastPurchase.After(b.ReferenceDate) {
			b.ReferenceDate = c.LastPurchase
		}
	}

	b.Monthly = buildMonthly(months, b.ReferenceDate)
	b.TopProducts = buildTopProducts(products, opts.TopN)
	b.TopInvoices = buildTopInvoices(invoices, opts.TopN)
	b.Countries, b.CountriesExclHome = buildCountries(countries, opts.HomeCountry)
	b.Behavior = buildBehavior(behavior)
	b.CustomerTypes, b.CustomerTypeSummary = buildCustomerTypes(customers)
	b.buildCustomerValues(customers, opts.TopN)
	recency := buildRecency(customers, b.ReferenceDate)
	b.RFM, b.Segments = buildRFM(recency, customers)
	b.Recency = byRecency(recency)

	logging.Info().
		Str("engine", engine).
		Int("months", len(b.Monthly)).
		Int("customers", len(b.RFM)).
		Time("reference_date", b.ReferenceDate).
		Msg("Report bundle built")

	return b, nil
}

// settle rounds engine sums to six decimals. Engines add in different
// orders, so raw sums may differ in the last bits; settled sums are equal
// and everything derived from them is too.
func settle(months []MonthRevenue, products []ProductRevenue, invoices []InvoiceTotal,
	countries []CountryRevenue, behavior []CountryBehavior, customers []CustomerActivity) {
	const places = 6
	for i := range months {
		months[i].Revenue = round(months[i].Revenue, places)
	}
	for i := range products {
		products[i].Revenue = round(products[i].Revenue, places)
		products[i].AvgUnitPrice = round(products[i].AvgUnitPrice, places)
	}
	for i := range invoices {
		invoices[i].Revenue = round(invoices[i].Revenue, places)
	}
	for i := range countries {
		countries[i].Revenue = round(countries[i].Revenue, places)
	}
	for i := range behavior {
		behavior[i].Revenue = round(behavior[i].Revenue, places)
	}
	for i := range customers {
		customers[i].Spent = round(customers[i].Spent, places)
	}
}

func buildMonthly(months []MonthRevenue, ref time.Time) []MonthlySummary {
	partialMonth := ""
	if !ref.IsZero() && ref.AddDate(0, 0, 1).Month() == ref.Month() {
		partialMonth = ref.Format("2006-01")
	}

	out := make([]MonthlySummary, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlySummary{
			MonthRevenue: MonthRevenue{
				Month:    m.Month,
				Revenue:  round2(m.Revenue),
				Invoices: m.Invoices,
			},
			AvgRevenuePerInvoice: round2(ratio(m.Revenue, float64(m.Invoices))),
			Partial:              m.Month == partialMonth,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month < out[j].Month
	})
	return out
}

func buildTopProducts(products []ProductRevenue, n int) []ProductRevenue {
	out := make([]ProductRevenue, 0, len(products))
	for _, p := range products {
		p.Revenue = round2(p.Revenue)
		p.AvgUnitPrice = round2(p.AvgUnitPrice)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].StockCode < out[j].StockCode
	})
	return head(out, n)
}

func buildTopInvoices(invoices []InvoiceTotal, n int) []InvoiceTotal {
	out := make([]InvoiceTotal, 0, len(invoices))
	for _, inv := range invoices {
		inv.Revenue = round2(inv.Revenue)
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].InvoiceNo < out[j].InvoiceNo
	})
	return head(out, n)
}

func buildCountries(countries []CountryRevenue, home string) (all, excl []CountrySummary) {
	home = strings.ToLower(strings.TrimSpace(home))
	for _, c := range countries {
		s := CountrySummary{
			CountryRevenue: CountryRevenue{
				Country:  c.Country,
				Revenue:  round2(c.Revenue),
				Invoices: c.Invoices,
			},
			AvgInvoiceValue: round2(ratio(c.Revenue, float64(c.Invoices))),
		}
		all = append(all, s)
		if strings.ToLower(strings.TrimSpace(c.Country)) != home {
			excl = append(excl, s)
		}
	}
	byRevenue := func(s []CountrySummary) {
		sort.Slice(s, func(i, j int) bool {
			if s[i].Revenue != s[j].Revenue {
				return s[i].Revenue > s[j].Revenue
			}
			return s[i].Country < s[j].Country
		})
	}
	byRevenue(all)
	byRevenue(excl)
	return all, excl
}

func buildBehavior(behavior []CountryBehavior) []CountryBehaviorSummary {
	out := make([]CountryBehaviorSummary, 0, len(behavior))
	for _, c := range behavior {
		out = append(out, CountryBehaviorSummary{
			CountryBehavior: CountryBehavior{
				Country:   c.Country,
				Customers: c.Customers,
				Invoices:  c.Invoices,
				Revenue:   round2(c.Revenue),
			},
			AvgInvoicesPerCustomer: round2(ratio(float64(c.Invoices), float64(c.Customers))),
			AvgRevenuePerCustomer:  round2(ratio(c.Revenue, float64(c.Customers))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Country < out[j].Country
	})
	return out
}

func byCustomerID(customers []CustomerActivity) []CustomerActivity {
	sorted := make([]CustomerActivity, len(customers))
	copy(sorted, customers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CustomerID < sorted[j].CustomerID
	})
	return sorted
}

func buildCustomerTypes(customers []CustomerActivity) ([]CustomerType, []TypeCount) {
	sorted := byCustomerID(customers)
	types := make([]CustomerType, 0, len(sorted))
	counts := make(map[string]int64)
	for _, c := range sorted {
		t := TypeRepeatCustomer
		if c.Orders == 1 {
			t = TypeSinglePurchase
		}
		counts[t]++
		types = append(types, CustomerType{
			CustomerID: c.CustomerID,
			Invoices:   c.Orders,
			Revenue:    round2(c.Spent),
			Type:       t,
		})
	}

	var summary []TypeCount
	for _, t := range []string{TypeSinglePurchase, TypeRepeatCustomer} {
		if counts[t] == 0 {
			continue
		}
		summary = append(summary, TypeCount{
			Type:    t,
			Count:   counts[t],
			Percent: round2(float64(counts[t]) * 100 / float64(len(sorted))),
		})
	}
	return types, summary
}

func (b *Bundle) buildCustomerValues(customers []CustomerActivity, n int) {
	values := make([]CustomerValue, 0, len(customers))
	for _, c := range customers {
		values = append(values, CustomerValue{
			CustomerID:    c.CustomerID,
			Spent:         round2(c.Spent),
			Orders:        c.Orders,
			AvgOrderValue: round2(ratio(c.Spent, float64(c.Orders))),
		})
	}

	sorted := func(less func(a, b CustomerValue) int) []CustomerValue {
		out := make([]CustomerValue, len(values))
		copy(out, values)
		sort.Slice(out, func(i, j int) bool {
			if c := less(out[i], out[j]); c != 0 {
				return c < 0
			}
			return out[i].CustomerID < out[j].CustomerID
		})
		return out
	}
	bySpent := func(a, b CustomerValue) int { return desc(a.Spent, b.Spent) }
	byOrders := func(a, b CustomerValue) int { return desc(float64(a.Orders), float64(b.Orders)) }

	// The average order value table keeps six decimals.
	avg := make([]CustomerValue, len(values))
	for i, c := range customers {
		avg[i] = values[i]
		avg[i].AvgOrderValue = round(ratio(c.Spent, float64(c.Orders)), 6)
	}
	sort.Slice(avg, func(i, j int) bool {
		if avg[i].AvgOrderValue != avg[j].AvgOrderValue {
			return avg[i].AvgOrderValue > avg[j].AvgOrderValue
		}
		return avg[i].CustomerID < avg[j].CustomerID
	})

	b.AvgOrderValue = head(avg, n)
	b.TopCustomers = head(sorted(bySpent), n)
	b.Frequency = sorted(byOrders)
	b.Monetary = sorted(bySpent)
}

func desc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// buildRecency returns customers in customer id order.
func buildRecency(customers []CustomerActivity, ref time.Time) []CustomerRecency {
	out := make([]CustomerRecency, 0, len(customers))
	for _, c := range byCustomerID(customers) {
		out = append(out, CustomerRecency{
			CustomerID:   c.CustomerID,
			LastPurchase: c.LastPurchase,
			Days:         int64(ref.Sub(c.LastPurchase) / (24 * time.Hour)),
		})
	}
	return out
}

// byRecency orders customers from the most recent purchase.
func byRecency(recency []CustomerRecency) []CustomerRecency {
	out := make([]CustomerRecency, len(recency))
	copy(out, recency)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Days < out[j].Days
	})
	return out
}

// buildRFM scores customers in customer id order. recency must be in the
// same order, as returned by buildRecency.
func buildRFM(recency []CustomerRecency, customers []CustomerActivity) ([]RFMScore, []SegmentCount) {
	sorted := byCustomerID(customers)

	rec := make([]int64, len(sorted))
	freq := make([]int64, len(sorted))
	mon := make([]float64, len(sorted))
	for i, c := range sorted {
		rec[i] = recency[i].Days
		freq[i] = c.Orders
		mon[i] = round2(c.Spent)
	}
	r, f, m := scoreRFM(rec, freq, mon)

	counts := make(map[string]int64)
	scores := make([]RFMScore, 0, len(sorted))
	for i, c := range sorted {
		seg := Segment(r[i], f[i], m[i])
		counts[seg]++
		scores = append(scores, RFMScore{
			CustomerID: c.CustomerID,
			Frequency:  freq[i],
			Monetary:   mon[i],
			Recency:    rec[i],
			R:          r[i],
			F:          f[i],
			M:          m[i],
			Score:      r[i] + f[i] + m[i],
			Segment:    seg,
		})
	}

	segments := make([]SegmentCount, 0, len(Segments))
	for _, s := range Segments {
		segments = append(segments, SegmentCount{Segment: s, Customers: counts[s]})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Customers > segments[j].Customers
	})
	return scores, segments
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
