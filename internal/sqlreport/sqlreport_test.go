//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sqlreport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
	"github.com/pgEdge/pgedge-retailprep/internal/report"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
	"github.com/pgEdge/pgedge-retailprep/internal/testutil"
)

func bundle(t *testing.T, engineName string, ds retail.Dataset) *report.Bundle {
	t.Helper()

	engine, err := report.Get(engineName)
	require.NoError(t, err)
	src, err := engine.Open(context.Background(), ds)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	b, err := report.Build(context.Background(), engineName, src, report.Options{})
	require.NoError(t, err)
	return b
}

func TestRegistered(t *testing.T) {
	assert.Equal(t, []string{"direct", "sql"}, report.List())
}

func TestCustomerActivity(t *testing.T) {
	src, err := Engine{}.Open(context.Background(), testutil.SampleDataset())
	require.NoError(t, err)
	defer src.Close()

	activity, err := src.CustomerActivity(context.Background())
	require.NoError(t, err)
	sort.Slice(activity, func(i, j int) bool { return activity[i].CustomerID < activity[j].CustomerID })

	require.Len(t, activity, 3)
	assert.Equal(t, int64(2), activity[0].Orders)
	assert.Equal(t, 18.0, activity[0].Spent)
	assert.True(t, activity[0].LastPurchase.Equal(time.Date(2011, time.December, 9, 12, 0, 0, 0, time.UTC)))
}

func TestEnginesAgreeOnSample(t *testing.T) {
	ds := testutil.SampleDataset()
	direct := bundle(t, "direct", ds)
	viaSQL := bundle(t, "sql", ds)

	assert.Empty(t, report.Compare(direct, viaSQL))
	assert.Equal(t, direct.Segments, viaSQL.Segments)
}

// randomDataset builds a cleaned table with cent prices and many ties in
// frequency so quartile scoring falls back to ranks.
func randomDataset(seed int64) retail.Dataset {
	rng := rand.New(rand.NewSource(seed))
	countries := []string{"united kingdom", "france", "germany", "eire"}
	start := time.Date(2010, time.December, 1, 8, 0, 0, 0, time.UTC)

	var rows []retail.Transaction
	for inv := 0; inv < 300; inv++ {
		customer := int64(12000 + rng.Intn(60))
		date := start.Add(time.Duration(rng.Intn(370*24)) * time.Hour)
		lines := 1 + rng.Intn(5)
		for l := 0; l < lines; l++ {
			code := fmt.Sprintf("P%03d", rng.Intn(40))
			qty := int64(1 + rng.Intn(24))
			price := float64(1+rng.Intn(2000)) / 100
			rows = append(rows, retail.Transaction{
				InvoiceNo:   fmt.Sprintf("%d", 536000+inv),
				StockCode:   code,
				Description: "item " + code,
				Quantity:    qty,
				InvoiceDate: date,
				UnitPrice:   price,
				CustomerID:  customer,
				Country:     countries[customer%int64(len(countries))],
				LineRevenue: float64(qty) * price,
			})
		}
	}
	return cleaning.Project(retail.Table{Rows: rows, RevenueDerived: true})
}

func TestEnginesAgreeOnRandomData(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			ds := randomDataset(seed)
			direct := bundle(t, "direct", ds)
			viaSQL := bundle(t, "sql", ds)

			mismatches := report.Compare(direct, viaSQL)
			for _, m := range mismatches {
				t.Error(m.String())
			}
			assert.Len(t, direct.TopProducts, report.DefaultTopN)
			assert.Equal(t, direct.Segments, viaSQL.Segments)
		})
	}
}

func TestQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("disk I/O error"))

	src := NewSource(db)
	_, err = report.Build(context.Background(), "sql", src, report.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly revenue")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())

	// A source over a borrowed database leaves it open.
	require.NoError(t, src.Close())
	mock.ExpectClose()
}

func TestScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"invoice_month", "monthly_revenue", "monthly_invoices"}).
		AddRow("2011-11", "not a number", 2)
	mock.ExpectQuery("strftime").WillReturnRows(rows)

	_, err = NewSource(db).MonthlyRevenue(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan monthly revenue")
}

func TestRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"customer_id", "num_orders", "total_spent", "last_purchase"}).
		AddRow(int64(1), int64(2), 18.0, "2011-12-09 12:00:00").
		RowError(0, errors.New("connection reset"))
	mock.ExpectQuery("FROM customers").WillReturnRows(rows)

	_, err = NewSource(db).CustomerActivity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2011, time.December, 9, 12, 50, 0, 0, time.UTC)

	for _, src := range []any{"2011-12-09 12:50:00", []byte("2011-12-09 12:50:00"), want} {
		var ts timestamp
		require.NoError(t, ts.Scan(src))
		assert.True(t, ts.Equal(want), "%T", src)
	}

	var ts timestamp
	assert.Error(t, ts.Scan(int64(7)))
	assert.Error(t, ts.Scan("09/12/2011"))
}
