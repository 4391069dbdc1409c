// Package view derives display orderings for the dashboard rendering
// layer. Functions here are pure: the canonical row set is never mutated.
package view

import (
	"sort"
	"strings"

	"tradedesk/internal/models"
)

// SortField identifies the column the rows are ordered by.
type SortField string

const (
	SortNone   SortField = ""
	SortSymbol SortField = "symbol"
	SortAction SortField = "action"
)

// SortDirection is a two-state direction flag.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortSpec describes the requested ordering.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// Toggle returns the spec after the user selects a sort field: selecting
// the current field flips direction, selecting a new field resets to
// ascending.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if s.Field == field {
		if s.Direction == Ascending {
			return SortSpec{Field: field, Direction: Descending}
		}
		return SortSpec{Field: field, Direction: Ascending}
	}
	return SortSpec{Field: field, Direction: Ascending}
}

// actionRank orders actions for display: BUY before SELL before HOLD,
// with unrecommended rows after all recommended ones.
func actionRank(row models.DisplayRow) int {
	if !row.HasRecommendation {
		return 3
	}
	switch row.Action {
	case models.ActionBuy:
		return 0
	case models.ActionSell:
		return 1
	default:
		return 2
	}
}

// Order returns a sorted copy of rows per the sort spec. With no sort
// field selected the input order is preserved. Sorting is stable, so
// ties keep their input order in either direction.
func Order(rows []models.DisplayRow, spec SortSpec) []models.DisplayRow {
	out := make([]models.DisplayRow, len(rows))
	copy(out, rows)

	if spec.Field == SortNone {
		return out
	}

	var less func(a, b models.DisplayRow) bool
	switch spec.Field {
	case SortSymbol:
		less = func(a, b models.DisplayRow) bool {
			return strings.Compare(models.NormalizeSymbol(a.Entry.Symbol), models.NormalizeSymbol(b.Entry.Symbol)) < 0
		}
	case SortAction:
		less = func(a, b models.DisplayRow) bool {
			return actionRank(a) < actionRank(b)
		}
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if spec.Direction == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
