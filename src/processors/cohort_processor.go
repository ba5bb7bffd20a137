// src/processors/cohort_processor.go
package processors

import (
	"sort"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

// CohortProcessor folds enriched records into one cohort point per
// (operation, year): the disbursed sum for the year, the first-seen approved
// amount, the latest elapsed-months value, and the running cumulative
// disbursed fraction across that operation's years.
type CohortProcessor struct{}

func NewCohortProcessor() *CohortProcessor { return &CohortProcessor{} }

type cohortAccumulator struct {
	sum      float64
	approved float64
	k        int
}

// Aggregate groups records by (operation, year) and computes the cumulative
// disbursement ratio d per group. The per-operation prefix sum runs over an
// explicit year-ascending sort; insertion order is never relied on. Rows with
// a zero or missing approved amount, a negative k, or d above 1.0 are dropped
// as data-entry artifacts. The output carries no ordering contract beyond
// being deterministic for a given input.
func (p *CohortProcessor) Aggregate(records []models.EnrichedRecord) []models.CohortPoint {
	byOperation := make(map[string]map[int]*cohortAccumulator)

	for _, rec := range records {
		if !rec.Valid {
			continue
		}
		years := byOperation[rec.OperationID]
		if years == nil {
			years = make(map[int]*cohortAccumulator)
			byOperation[rec.OperationID] = years
		}
		acc := years[rec.Year]
		if acc == nil {
			// First record of the group fixes the approved amount; the
			// dataset repeats it per row and consistency is not enforced.
			acc = &cohortAccumulator{approved: rec.ApprovedAmount, k: rec.ElapsedMonths}
			years[rec.Year] = acc
			acc.sum = rec.DisbursedAmount
			continue
		}
		acc.sum += rec.DisbursedAmount
		if rec.ElapsedMonths > acc.k {
			acc.k = rec.ElapsedMonths
		}
	}

	operations := make([]string, 0, len(byOperation))
	for op := range byOperation {
		operations = append(operations, op)
	}
	sort.Strings(operations)

	var points []models.CohortPoint
	for _, op := range operations {
		years := byOperation[op]
		orderedYears := make([]int, 0, len(years))
		for y := range years {
			orderedYears = append(orderedYears, y)
		}
		sort.Ints(orderedYears)

		var cumulative float64
		for _, year := range orderedYears {
			acc := years[year]
			cumulative += acc.sum
			if acc.approved <= 0 {
				// The cumulative total still advances; only this row's ratio
				// is undefined.
				continue
			}
			d := cumulative / acc.approved
			if acc.k < 0 || d > 1.0 {
				continue
			}
			points = append(points, models.CohortPoint{
				OperationID:                 op,
				Year:                        year,
				K:                           acc.k,
				CumulativeDisbursementYear:  acc.sum,
				CumulativeDisbursementTotal: cumulative,
				ApprovedAmount:              acc.approved,
				D:                           d,
			})
		}
	}
	return points
}
