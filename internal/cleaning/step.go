//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cleaning turns the raw transaction log into a conflict-free
// working table and projects it onto the four normalized tables.
//
// Every step takes the previous table and returns a new one together with
// a StepResult; no step mutates its input.
package cleaning

import (
	"github.com/pgEdge/pgedge-retailprep/internal/retail"
)

// StepKind classifies a step by its effect on the row count.
type StepKind string

const (
	// KindFilter steps only remove rows.
	KindFilter StepKind = "filter"
	// KindTransform steps rewrite values and keep the row count.
	KindTransform StepKind = "transform"
	// KindResolve steps rewrite values to enforce a key invariant.
	KindResolve StepKind = "resolve"
	// KindAggregate steps merge rows.
	KindAggregate StepKind = "aggregate"
)

// StepResult is the observable outcome of one step.
type StepResult struct {
	Name    string
	Kind    StepKind
	Before  int
	After   int
	Removed int

	// Changed counts rows whose values were rewritten.
	Changed int

	// Conflict is set by resolve steps.
	Conflict *ConflictStat
}

func newResult(name string, kind StepKind, before, after, changed int) StepResult {
	return StepResult{
		Name:    name,
		Kind:    kind,
		Before:  before,
		After:   after,
		Removed: before - after,
		Changed: changed,
	}
}

// Step is one transformation of the working table.
type Step interface {
	Name() string
	Apply(t retail.Table) (retail.Table, StepResult, error)
}

// Observer receives step and conflict outcomes as the pipeline runs.
type Observer interface {
	ObserveStep(StepResult)
	ObserveConflict(ConflictStat)
}
