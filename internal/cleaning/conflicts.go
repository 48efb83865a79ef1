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
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// ErrMultiCustomerInvoice is returned when an invoice references more than
// one customer.
var ErrMultiCustomerInvoice = errors.New("invoice references more than one customer")

// ConflictKind names a relational invariant enforced by the resolver.
type ConflictKind string

const (
	ConflictCustomerCountry  ConflictKind = "customer_country"
	ConflictStockDescription ConflictKind = "stock_description"
	ConflictInvoiceMetadata  ConflictKind = "invoice_metadata"
)

// ConflictStat reports one resolution pass.
type ConflictStat struct {
	Kind ConflictKind

	// KeysInConflict is the number of keys mapping to more than one value
	// before resolution.
	KeysInConflict int

	// RowsChanged is the number of rows whose value was overwritten.
	RowsChanged int

	// Remaining is the number of keys still in conflict afterwards. It is
	// zero after every successful pass.
	Remaining int
}

// majority picks the most frequent value per key. Ties go to the
// lexicographically smallest value so the winner never depends on row order.
func majority[K comparable](rows []retail.Transaction, key func(retail.Transaction) K,
	value func(retail.Transaction) string) map[K]string {
	counts := make(map[K]map[string]int)
	for _, r := range rows {
		k := key(r)
		m, ok := counts[k]
		if !ok {
			m = make(map[string]int)
			counts[k] = m
		}
		m[value(r)]++
	}

	winners := make(map[K]string, len(counts))
	for k, m := range counts {
		best, bestCount := "", -1
		for v, c := range m {
			if c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}
		winners[k] = best
	}
	return winners
}

// countConflicts returns the number of keys that map to more than one value.
func countConflicts[K comparable, V comparable](rows []retail.Transaction,
	key func(retail.Transaction) K, value func(retail.Transaction) V) int {
	first := make(map[K]V)
	conflicted := make(map[K]bool)
	for _, r := range rows {
		k, v := key(r), value(r)
		prev, ok := first[k]
		if !ok {
			first[k] = v
			continue
		}
		if prev != v {
			conflicted[k] = true
		}
	}
	return len(conflicted)
}

func customerKey(r retail.Transaction) int64 { return r.CustomerID }
func countryValue(r retail.Transaction) string { return r.Country }
func stockKey(r retail.Transaction) string { return r.StockCode }
func descriptionValue(r retail.Transaction) string { return r.Description }
func invoiceKey(r retail.Transaction) string { return r.InvoiceNo }

// CountCountryConflicts returns the number of customers linked to more than
// one country.
func CountCountryConflicts(rows []retail.Transaction) int {
	return countConflicts(rows, customerKey, countryValue)
}

// CountDescriptionConflicts returns the number of stock codes linked to more
// than one description.
func CountDescriptionConflicts(rows []retail.Transaction) int {
	return countConflicts(rows, stockKey, descriptionValue)
}

// CountInvoiceConflicts returns the number of invoices whose rows disagree
// on timestamp or customer.
func CountInvoiceConflicts(rows []retail.Transaction) int {
	type meta struct {
		date     time.Time
		customer int64
	}
	return countConflicts(rows, invoiceKey, func(r retail.Transaction) meta {
		return meta{date: r.InvoiceDate.UTC(), customer: r.CustomerID}
	})
}

// resolver overwrites one column by joining every row against a lookup table
// of canonical values.
type resolver[K comparable] struct {
	name  string
	kind  ConflictKind
	key   func(retail.Transaction) K
	value func(retail.Transaction) string
	set   func(*retail.Transaction, string)
	count func([]retail.Transaction) int
}

func (r resolver[K]) Name() string {
	return r.name
}

func (r resolver[K]) Apply(t retail.Table) (retail.Table, StepResult, error) {
	before := r.count(t.Rows)
	lookup := majority(t.Rows, r.key, r.value)

	next := t.Clone()
	changed := 0
	for i := range next.Rows {
		row := &next.Rows[i]
		canonical := lookup[r.key(*row)]
		if r.value(*row) != canonical {
			r.set(row, canonical)
			changed++
		}
	}

	remaining := r.count(next.Rows)
	res := newResult(r.name, KindResolve, t.Len(), next.Len(), changed)
	res.Conflict = &ConflictStat{Kind: r.kind, KeysInConflict: before, RowsChanged: changed, Remaining: remaining}
	if remaining != 0 {
		return next, res, fmt.Errorf("%s: %d key(s) still in conflict after resolution", r.kind, remaining)
	}
	return next, res, nil
}

// ResolveCountries assigns every customer its most frequent country.
func ResolveCountries() Step {
	return resolver[int64]{
		name:  StepResolveCountries,
		kind:  ConflictCustomerCountry,
		key:   customerKey,
		value: countryValue,
		set:   func(r *retail.Transaction, v string) { r.Country = v },
		count: CountCountryConflicts,
	}
}

// ResolveDescriptions assigns every stock code its most frequent
// description.
func ResolveDescriptions() Step {
	return resolver[string]{
		name:  StepResolveDescriptions,
		kind:  ConflictStockDescription,
		key:   stockKey,
		value: descriptionValue,
		set:   func(r *retail.Transaction, v string) { r.Description = v },
		count: CountDescriptionConflicts,
	}
}

// CanonicalizeInvoices gives every row of an invoice the invoice's earliest
// timestamp and the customer of its earliest row. Rows moved to another
// customer also take that customer's country, which country resolution has
// already made unique.
type CanonicalizeInvoices struct {
	// AllowMultiCustomer keeps the first customer instead of failing when
	// an invoice references several customers.
	AllowMultiCustomer bool
}

// Name returns the step name.
func (CanonicalizeInvoices) Name() string {
	return StepCanonicalizeInvoices
}

// Apply joins every row against the canonical per-invoice record.
func (c CanonicalizeInvoices) Apply(t retail.Table) (retail.Table, StepResult, error) {
	type canonical struct {
		date     time.Time
		customer int64
		country  string
	}

	before := CountInvoiceConflicts(t.Rows)

	order := make([]int, len(t.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.Rows[order[a]].InvoiceDate.Before(t.Rows[order[b]].InvoiceDate)
	})

	lookup := make(map[string]canonical)
	customers := make(map[string]map[int64]bool)
	for _, i := range order {
		r := t.Rows[i]
		if _, ok := lookup[r.InvoiceNo]; !ok {
			lookup[r.InvoiceNo] = canonical{date: r.InvoiceDate, customer: r.CustomerID, country: r.Country}
		}
		m, ok := customers[r.InvoiceNo]
		if !ok {
			m = make(map[int64]bool)
			customers[r.InvoiceNo] = m
		}
		m[r.CustomerID] = true
	}

	var multi []string
	for inv, m := range customers {
		if len(m) > 1 {
			multi = append(multi, inv)
		}
	}
	sort.Strings(multi)
	res := newResult(StepCanonicalizeInvoices, KindResolve, t.Len(), t.Len(), 0)
	if len(multi) > 0 {
		if !c.AllowMultiCustomer {
			return t, res, fmt.Errorf("%w: %s", ErrMultiCustomerInvoice, summarize(multi))
		}
		logging.Warn().
			Int("invoices", len(multi)).
			Str("examples", summarize(multi)).
			Msg("Invoices reference more than one customer; keeping earliest customer")
	}

	next := t.Clone()
	changed := 0
	for i := range next.Rows {
		r := &next.Rows[i]
		canon := lookup[r.InvoiceNo]
		if !r.InvoiceDate.Equal(canon.date) || r.CustomerID != canon.customer || r.Country != canon.country {
			r.InvoiceDate = canon.date
			r.CustomerID = canon.customer
			r.Country = canon.country
			changed++
		}
	}

	remaining := CountInvoiceConflicts(next.Rows)
	res.Changed = changed
	res.Conflict = &ConflictStat{Kind: ConflictInvoiceMetadata, KeysInConflict: before, RowsChanged: changed, Remaining: remaining}
	if remaining != 0 {
		return next, res, fmt.Errorf("%s: %d key(s) still in conflict after resolution", ConflictInvoiceMetadata, remaining)
	}
	return next, res, nil
}

func summarize(keys []string) string {
	const shown = 5
	if len(keys) <= shown {
		return strings.Join(keys, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(keys[:shown], ", "), len(keys)-shown)
}
