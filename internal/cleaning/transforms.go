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
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// mapStep rewrites every row with fn and counts the rows that changed.
type mapStep struct {
	name string
	fn   func(retail.Transaction) retail.Transaction
}

func (m mapStep) Name() string {
	return m.name
}

func (m mapStep) Apply(t retail.Table) (retail.Table, StepResult, error) {
	out := make([]retail.Transaction, len(t.Rows))
	changed := 0
	for i, r := range t.Rows {
		out[i] = m.fn(r)
		if out[i] != r {
			changed++
		}
	}
	next := retail.Table{Rows: out, RevenueDerived: t.RevenueDerived}
	return next, newResult(m.name, KindTransform, t.Len(), len(out), changed), nil
}

// StandardizeCategoricals lowercases and trims description and country.
func StandardizeCategoricals() Step {
	return mapStep{
		name: StepStandardizeCategorical,
		fn: func(r retail.Transaction) retail.Transaction {
			r.Description = strings.ToLower(strings.TrimSpace(r.Description))
			r.Country = strings.ToLower(strings.TrimSpace(r.Country))
			return r
		},
	}
}

// NormalizeIdentifiers trims invoice numbers and stock codes.
func NormalizeIdentifiers() Step {
	return mapStep{
		name: StepNormalizeIdentifiers,
		fn: func(r retail.Transaction) retail.Transaction {
			r.InvoiceNo = strings.TrimSpace(r.InvoiceNo)
			r.StockCode = strings.TrimSpace(r.StockCode)
			return r
		},
	}
}

// DeriveRevenue computes line_revenue = quantity * unit_price. A table that
// already carries revenue is returned unchanged.
type DeriveRevenue struct{}

// Name returns the step name.
func (DeriveRevenue) Name() string {
	return StepDeriveRevenue
}

// Apply populates LineRevenue unless the table already has it.
func (DeriveRevenue) Apply(t retail.Table) (retail.Table, StepResult, error) {
	if t.RevenueDerived {
		return t, newResult(StepDeriveRevenue, KindTransform, t.Len(), t.Len(), 0), nil
	}
	next := t.Clone()
	for i := range next.Rows {
		r := &next.Rows[i]
		r.LineRevenue = float64(r.Quantity) * r.UnitPrice
	}
	next.RevenueDerived = true
	return next, newResult(StepDeriveRevenue, KindTransform, t.Len(), next.Len(), next.Len()), nil
}

// ValidateRecords fails when any row violates the record constraints. The
// returned error lists every failing field.
type ValidateRecords struct{}

// Name returns the step name.
func (ValidateRecords) Name() string {
	return StepValidateRecords
}

// Apply returns the table unchanged or a *retail.ValidationError.
func (ValidateRecords) Apply(t retail.Table) (retail.Table, StepResult, error) {
	res := newResult(StepValidateRecords, KindTransform, t.Len(), t.Len(), 0)
	if !t.RevenueDerived {
		return t, res, fmt.Errorf("%w: line_revenue has not been derived", retail.ErrInvalidRecord)
	}
	if err := retail.ValidateTable(t.Rows); err != nil {
		return t, res, err
	}
	return t, res, nil
}
