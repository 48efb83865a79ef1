//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/testutil"
)

func buildDirect(t *testing.T, opts report.Options) *report.Bundle {
	t.Helper()

	engine, err := report.Get("direct")
	require.NoError(t, err)
	src, err := engine.Open(context.Background(), testutil.SampleDataset())
	require.NoError(t, err)
	defer src.Close()

	b, err := report.Build(context.Background(), engine.Name(), src, opts)
	require.NoError(t, err)
	return b
}

func TestRegistry(t *testing.T) {
	engine, err := report.Get("direct")
	require.NoError(t, err)
	assert.Equal(t, "direct", engine.Name())
	assert.NotEmpty(t, engine.Description())
	assert.Contains(t, report.List(), "direct")

	_, err = report.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, report.ErrUnknownEngine))
}

func TestMonthlySummary(t *testing.T) {
	b := buildDirect(t, report.Options{})

	require.Len(t, b.Monthly, 2)
	nov, dec := b.Monthly[0], b.Monthly[1]

	assert.Equal(t, "2011-11", nov.Month)
	assert.Equal(t, 15.0, nov.Revenue)
	assert.Equal(t, int64(2), nov.Invoices)
	assert.Equal(t, 7.5, nov.AvgRevenuePerInvoice)
	assert.False(t, nov.Partial)

	assert.Equal(t, "2011-12", dec.Month)
	assert.Equal(t, 35.0, dec.Revenue)
	assert.Equal(t, 17.5, dec.AvgRevenuePerInvoice)
	assert.True(t, dec.Partial, "data stops on 2011-12-09")
}

func TestTopTables(t *testing.T) {
	b := buildDirect(t, report.Options{TopN: 2})

	require.Len(t, b.TopProducts, 2)
	assert.Equal(t, "P2", b.TopProducts[0].StockCode)
	assert.Equal(t, "tea towel", b.TopProducts[0].Description)
	assert.Equal(t, 33.0, b.TopProducts[0].Revenue)
	assert.Equal(t, int64(11), b.TopProducts[0].Quantity)
	assert.Equal(t, 3.0, b.TopProducts[0].AvgUnitPrice)
	assert.Equal(t, "P1", b.TopProducts[1].StockCode)

	require.Len(t, b.TopInvoices, 2)
	assert.Equal(t, "C", b.TopInvoices[0].InvoiceNo)
	assert.Equal(t, "A", b.TopInvoices[1].InvoiceNo)
	assert.Equal(t, int64(2), b.TopInvoices[1].Items)
	assert.Equal(t, int64(1), b.TopInvoices[1].CustomerID)

	require.Len(t, b.TopCustomers, 2)
	assert.Equal(t, int64(2), b.TopCustomers[0].CustomerID)
	assert.Equal(t, 30.0, b.TopCustomers[0].Spent)
	assert.Equal(t, int64(1), b.TopCustomers[1].CustomerID)
	assert.Equal(t, 9.0, b.TopCustomers[1].AvgOrderValue)

	// Frequency and monetary tables are not truncated.
	assert.Len(t, b.Frequency, 3)
	assert.Equal(t, int64(1), b.Frequency[0].CustomerID)
	assert.Len(t, b.Monetary, 3)
}

func TestCountries(t *testing.T) {
	b := buildDirect(t, report.Options{})

	require.Len(t, b.Countries, 2)
	assert.Equal(t, "france", b.Countries[0].Country)
	assert.Equal(t, "united kingdom", b.Countries[1].Country)
	assert.Equal(t, 20.0, b.Countries[1].Revenue)
	assert.Equal(t, int64(3), b.Countries[1].Invoices)
	assert.Equal(t, 6.67, b.Countries[1].AvgInvoiceValue)

	require.Len(t, b.CountriesExclHome, 1)
	assert.Equal(t, "france", b.CountriesExclHome[0].Country)

	b = buildDirect(t, report.Options{HomeCountry: "France"})
	require.Len(t, b.CountriesExclHome, 1)
	assert.Equal(t, "united kingdom", b.CountriesExclHome[0].Country)

	uk := b.Behavior[1]
	assert.Equal(t, "united kingdom", uk.Country)
	assert.Equal(t, int64(2), uk.Customers)
	assert.Equal(t, 1.5, uk.AvgInvoicesPerCustomer)
	assert.Equal(t, 10.0, uk.AvgRevenuePerCustomer)
}

func TestCustomerTypes(t *testing.T) {
	b := buildDirect(t, report.Options{})

	require.Len(t, b.CustomerTypes, 3)
	assert.Equal(t, report.TypeRepeatCustomer, b.CustomerTypes[0].Type)
	assert.Equal(t, report.TypeSinglePurchase, b.CustomerTypes[1].Type)

	assert.Equal(t, []report.TypeCount{
		{Type: report.TypeSinglePurchase, Count: 2, Percent: 66.67},
		{Type: report.TypeRepeatCustomer, Count: 1, Percent: 33.33},
	}, b.CustomerTypeSummary)
}

func TestRecencyAndRFM(t *testing.T) {
	b := buildDirect(t, report.Options{})

	assert.Equal(t, time.Date(2011, time.December, 9, 12, 0, 0, 0, time.UTC), b.ReferenceDate)

	days := make([]int64, 0, len(b.Recency))
	for _, r := range b.Recency {
		days = append(days, r.Days)
	}
	assert.Equal(t, []int64{0, 8, 19}, days)

	require.Len(t, b.RFM, 3)
	c1, c2, c3 := b.RFM[0], b.RFM[1], b.RFM[2]

	assert.Equal(t, []int{4, 4, 2, 10}, []int{c1.R, c1.F, c1.M, c1.Score})
	assert.Equal(t, report.SegmentHighValue, c1.Segment)

	assert.Equal(t, []int{3, 1, 4}, []int{c2.R, c2.F, c2.M})
	assert.Equal(t, report.SegmentOther, c2.Segment)

	assert.Equal(t, []int{1, 2, 1}, []int{c3.R, c3.F, c3.M})
	assert.Equal(t, report.SegmentAtRisk, c3.Segment)
	assert.Equal(t, int64(19), c3.Recency)
	assert.Equal(t, 2.0, c3.Monetary)

	assert.Equal(t, []report.SegmentCount{
		{Segment: report.SegmentHighValue, Customers: 1},
		{Segment: report.SegmentAtRisk, Customers: 1},
		{Segment: report.SegmentOther, Customers: 1},
		{Segment: report.SegmentLoyal, Customers: 0},
		{Segment: report.SegmentOneTime, Customers: 0},
	}, b.Segments)
}

func TestFrames(t *testing.T) {
	b := buildDirect(t, report.Options{})
	frames := b.Frames()

	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Name)
		for _, row := range f.Rows {
			assert.Len(t, row, len(f.Columns), f.Name)
		}
	}
	assert.Equal(t, []string{
		"01_monthly_revenue_summary",
		"02_top_products_by_revenue",
		"03_top_invoices_by_value",
		"04_revenue_by_country",
		"04_revenue_by_country_excl_uk",
		"05_customer_behavior_by_country",
		"06_one_time_vs_repeat_customers",
		"06_customer_type_summary",
		"07_avg_order_value_per_customer",
		"08_top_customers_by_total_spend",
		"09_customer_recency",
		"10_customer_frequency",
		"11_customer_monetary_value",
		"12_rfm_segmented_customers",
		"12_rfm_segment_summary",
	}, names)

	assert.Equal(t, []string{"customer_id", "frequency", "monetary", "recency",
		"R", "F", "M", "RFM_Score", "Segment"}, frames[13].Columns)
}

func TestCompare(t *testing.T) {
	a := buildDirect(t, report.Options{})
	b := buildDirect(t, report.Options{})
	assert.Empty(t, report.Compare(a, b))

	b.Monthly[0].Revenue += 1e-12
	assert.Empty(t, report.Compare(a, b), "difference within tolerance")

	b.Monthly[0].Revenue += 0.01
	b.RFM[1].Segment = report.SegmentLoyal
	mismatches := report.Compare(a, b)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "01_monthly_revenue_summary", mismatches[0].Frame)
	assert.Equal(t, "monthly_revenue", mismatches[0].Column)
	assert.Equal(t, "12_rfm_segmented_customers", mismatches[1].Frame)
	assert.Equal(t, 1, mismatches[1].Row)

	b.TopInvoices = b.TopInvoices[:1]
	mismatches = report.Compare(a, b)
	require.Len(t, mismatches, 3)
	assert.Equal(t, -1, mismatches[1].Row)
}

type failingSource struct {
	report.Source
}

func (failingSource) MonthlyRevenue(context.Context) ([]report.MonthRevenue, error) {
	return nil, errors.New("boom")
}

func TestBuildPropagatesErrors(t *testing.T) {
	_, err := report.Build(context.Background(), "failing", failingSource{}, report.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly revenue")
}

func TestDirectCancelled(t *testing.T) {
	engine, err := report.Get("direct")
	require.NoError(t, err)
	src, err := engine.Open(context.Background(), testutil.SampleDataset())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = report.Build(ctx, "direct", src, report.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
