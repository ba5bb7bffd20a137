// src/processors/enrich_processor.go
package processors

import (
	"time"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

// EnrichmentProcessor derives the calendar year and elapsed-months fields
// from parsed disbursement records. It is pure and deterministic; records
// with a missing date come out with Valid = false and are excluded by the
// cohort aggregator.
type EnrichmentProcessor struct{}

func NewEnrichmentProcessor() *EnrichmentProcessor { return &EnrichmentProcessor{} }

// Process enriches every record. Input order is preserved.
func (p *EnrichmentProcessor) Process(records []models.DisbursementRecord) []models.EnrichedRecord {
	enriched := make([]models.EnrichedRecord, 0, len(records))
	for _, rec := range records {
		e := models.EnrichedRecord{DisbursementRecord: rec}
		if !rec.DisbursementDate.IsZero() && !rec.ApprovalDate.IsZero() {
			e.Valid = true
			e.Year = rec.DisbursementDate.Year()
			e.ElapsedMonths = ElapsedMonths(rec.ApprovalDate, rec.DisbursementDate)
		}
		enriched = append(enriched, e)
	}
	return enriched
}

// ElapsedMonths buckets the span between approval and disbursement into
// 30-day months: floor(days / 30). This is a deliberate approximation, not a
// calendar computation; a 29-day span is month 0 and a 30-day span month 1.
// Disbursements recorded before approval yield negative buckets, which the
// validity filter drops later.
func ElapsedMonths(approval, disbursement time.Time) int {
	days := floorDiv(int64(disbursement.Sub(approval)), int64(24*time.Hour))
	return int(floorDiv(days, 30))
}

// floorDiv divides rounding toward negative infinity, unlike Go's
// truncating integer division.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
