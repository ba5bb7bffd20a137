// src/models/record.go
package models

import "time"

// DisbursementRecord is the unified representation of one disbursement
// transaction row from the portfolio dataset. Each parser is responsible for
// populating these fields directly from the source file. A zero time value
// means the source date was missing or unparseable; such records are carried
// through the load and excluded during aggregation.
type DisbursementRecord struct {
	OperationID      string    `json:"operation_id"`
	DisbursementDate time.Time `json:"disbursement_date"`
	ApprovalDate     time.Time `json:"approval_date"`
	DisbursedAmount  float64   `json:"disbursed_amount"`
	ApprovedAmount   float64   `json:"approved_amount"`
	Country          string    `json:"country"`
	Sector           string    `json:"sector"`
	LoanType         string    `json:"loan_type"`
}

// EnrichedRecord is a DisbursementRecord plus the derived calendar fields the
// aggregator works with. Valid is false when either source date is missing,
// in which case Year and ElapsedMonths are meaningless.
type EnrichedRecord struct {
	DisbursementRecord
	Year          int  `json:"year"`
	ElapsedMonths int  `json:"elapsed_months"`
	Valid         bool `json:"-"`
}

// CohortPoint is one (operation, year) aggregate disbursement observation.
// K is the latest elapsed-months value seen within the year, D the cumulative
// disbursed fraction of the approved amount up to and including that year.
type CohortPoint struct {
	OperationID                 string  `json:"operation_id"`
	Year                        int     `json:"year"`
	K                           int     `json:"k"`
	CumulativeDisbursementYear  float64 `json:"cumulative_disbursement_year"`
	CumulativeDisbursementTotal float64 `json:"cumulative_disbursement_total"`
	ApprovedAmount              float64 `json:"approved_amount"`
	D                           float64 `json:"d"`
}
