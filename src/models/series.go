// src/models/series.go
package models

// CurvePoint is one (k, hd_k) sample of a fitted curve.
type CurvePoint struct {
	K  int     `json:"k"`
	Hd float64 `json:"hd"`
}

// ObservationPoint is one raw (k, d) cohort observation for scatter overlay.
type ObservationPoint struct {
	K           int     `json:"k"`
	D           float64 `json:"d"`
	OperationID string  `json:"operation_id"`
}

// Series is one named curve handed to the rendering layer. Curve is ordered by
// k; Observations are only populated when the caller asked for them.
type Series struct {
	Name         string             `json:"name"`
	Curve        []CurvePoint       `json:"curve"`
	Observations []ObservationPoint `json:"observations,omitempty"`
}

// CurveResult is the response payload for one /api/curves interaction.
// Warnings carries per-group advisory messages (failed fits, empty result
// sets); none of them are fatal.
type CurveResult struct {
	Series   []Series `json:"series"`
	Warnings []string `json:"warnings"`
}

// FilterMetadata describes the loaded dataset for the UI sidebar: distinct
// category values and the approval-date span for the range slider.
type FilterMetadata struct {
	Countries       []string `json:"countries"`
	Sectors         []string `json:"sectors"`
	LoanTypes       []string `json:"loan_types"`
	MinApprovalDate string   `json:"min_approval_date"`
	MaxApprovalDate string   `json:"max_approval_date"`
}
