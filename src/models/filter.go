// src/models/filter.go
package models

import "time"

// Categorical columns a FilterSpec may reference.
const (
	ColumnCountry  = "country"
	ColumnSector   = "sector"
	ColumnLoanType = "loan_type"
)

// IsCategoryColumn reports whether column names one of the filterable
// categorical attributes.
func IsCategoryColumn(column string) bool {
	switch column {
	case ColumnCountry, ColumnSector, ColumnLoanType:
		return true
	}
	return false
}

// CategoryFilter restricts records to those whose value in Column is one of
// AllowedValues. An empty AllowedValues slice means no restriction, matching
// the UI behaviour where deselecting every value disables the filter.
type CategoryFilter struct {
	Column        string
	AllowedValues []string
}

// FilterSpec is the full set of UI selections driving one recomputation pass.
// Zero date bounds are unbounded.
type FilterSpec struct {
	Category         *CategoryFilter
	MinApprovalDate  time.Time
	MaxApprovalDate  time.Time
	GroupColumn      string
	ShowObservations bool
}
