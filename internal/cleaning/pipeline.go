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
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-retailprep/internal/ingest"
	"github.com/pgEdge/pgedge-retailprep/internal/logging"
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// Options configures the pipeline.
type Options struct {
	// CancellationPrefix marks cancelled invoice numbers.
	CancellationPrefix string

	// ExcludedStockCodes are dropped as non-product lines. Nil selects
	// DefaultExcludedStockCodes.
	ExcludedStockCodes []string

	// DropExactDuplicates removes rows identical in every field.
	DropExactDuplicates bool

	// AllowMultiCustomerInvoices downgrades ErrMultiCustomerInvoice to a
	// warning.
	AllowMultiCustomerInvoices bool
}

// DefaultOptions returns the standard cleaning options.
func DefaultOptions() Options {
	return Options{
		CancellationPrefix:  DefaultCancellationPrefix,
		ExcludedStockCodes:  DefaultExcludedStockCodes,
		DropExactDuplicates: true,
	}
}

// Result is the outcome of a pipeline run.
type Result struct {
	// Initial is the number of raw rows.
	Initial int

	Steps     []StepResult
	Conflicts []ConflictStat

	// Table is the cleaned, aggregated working table.
	Table retail.Table

	Dataset retail.Dataset
	Keys    KeyReport
}

// FilterRemoved is the number of rows removed by filter steps.
func (r *Result) FilterRemoved() int {
	total := 0
	for _, s := range r.Steps {
		if s.Kind == KindFilter {
			total += s.Removed
		}
	}
	return total
}

// FilteredRows is the row count after the last filter step, before line
// aggregation.
func (r *Result) FilteredRows() int {
	rows := r.Initial
	for _, s := range r.Steps {
		if s.Kind == KindFilter {
			rows = s.After
		}
	}
	return rows
}

// Step returns the result of the named step.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Pipeline runs the cleaning steps in order.
type Pipeline struct {
	opts     Options
	observer Observer
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// WithObserver registers an observer for step and conflict outcomes.
func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	p.observer = o
	return p
}

func (p *Pipeline) rawFilters() []RawFilter {
	return []RawFilter{
		PositiveQuantityPrice(),
		CancelledInvoices(p.opts.CancellationPrefix),
		MissingCustomer(),
		MissingDescription(),
	}
}

// Steps returns the working-table steps in execution order. Country and
// description resolution are independent; invoice canonicalization must
// follow both and line aggregation must come last.
func (p *Pipeline) Steps() []Step {
	steps := []Step{
		StandardizeCategoricals(),
		NormalizeIdentifiers(),
	}
	if p.opts.DropExactDuplicates {
		steps = append(steps, ExactDuplicates{})
	}
	return append(steps,
		DeriveRevenue{},
		ValidateRecords{},
		NonProductCodes(p.opts.ExcludedStockCodes),
		ResolveDescriptions(),
		ResolveCountries(),
		CanonicalizeInvoices{AllowMultiCustomer: p.opts.AllowMultiCustomerInvoices},
		AggregateLineItems{},
	)
}

// Run cleans raw and projects the result onto the normalized tables.
func (p *Pipeline) Run(ctx context.Context, raw []ingest.RawRow) (*Result, error) {
	res := &Result{Initial: len(raw)}

	rows := raw
	for _, f := range p.rawFilters() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var sr StepResult
		rows, sr = f.Apply(rows)
		p.record(res, sr)
	}

	table, sr := CastRows(rows)
	p.record(res, sr)

	for _, step := range p.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, sr, err := step.Apply(table)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name(), err)
		}
		p.record(res, sr)
		table = next
	}

	res.Table = table
	res.Dataset = Project(table)
	res.Keys = CheckKeys(res.Dataset)

	logging.Info().
		Int("initial", res.Initial).
		Int("removed", res.FilterRemoved()).
		Int("rows", table.Len()).
		Int("customers", len(res.Dataset.Customers)).
		Int("products", len(res.Dataset.Products)).
		Int("invoices", len(res.Dataset.Invoices)).
		Int("invoice_items", len(res.Dataset.Items)).
		Msg("Cleaning complete")

	return res, nil
}

func (p *Pipeline) record(res *Result, sr StepResult) {
	res.Steps = append(res.Steps, sr)

	ev := logging.Info().
		Str("step", sr.Name).
		Str("kind", string(sr.Kind)).
		Int("before", sr.Before).
		Int("after", sr.After)
	if sr.Removed > 0 {
		ev = ev.Int("removed", sr.Removed)
	}
	if sr.Changed > 0 {
		ev = ev.Int("changed", sr.Changed)
	}
	ev.Msg("Step complete")

	if p.observer != nil {
		p.observer.ObserveStep(sr)
	}

	if sr.Conflict != nil {
		res.Conflicts = append(res.Conflicts, *sr.Conflict)
		logging.Info().
			Str("conflict", string(sr.Conflict.Kind)).
			Int("keys", sr.Conflict.KeysInConflict).
			Int("rows_changed", sr.Conflict.RowsChanged).
			Int("remaining", sr.Conflict.Remaining).
			Msg("Conflicts resolved")
		if p.observer != nil {
			p.observer.ObserveConflict(*sr.Conflict)
		}
	}
}
