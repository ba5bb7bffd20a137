// src/parsers/fonplata/parser.go
package fonplata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

// Source column names of the FONPLATA portfolio dataset.
const (
	colOperationID      = "IDOperacion"
	colDisbursementDate = "fecha_desembolso"
	colApprovalDate     = "fecha_aprobacion"
	colDisbursedAmount  = "monto_desembolsado"
	colApprovedAmount   = "monto_aprobacion"
	colSector           = "sector_name"
	colCountry          = "pais"
	colLoanType         = "tipo_prestamo"
)

// dateLayouts are tried in order when parsing source dates. The workbook
// export and the CSV export disagree on formatting, so several layouts are
// accepted; anything unparseable becomes a null (zero) date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"1/2/06",
	"01-02-06",
}

// Parser converts FONPLATA dataset files into disbursement records.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// ParseCSV reads a comma-separated dataset export with a header row. Rows with too few fields are skipped with a logged warning;
// unparseable dates and amounts degrade to null values on the record rather
// than failing the load.
func (p *Parser) ParseCSV(file io.Reader) ([]models.DisbursementRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("fonplata parser: failed to read CSV header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("fonplata parser: failed to read CSV records: %w", err)
	}

	return p.fromRows(header, rows)
}

// fromRows maps raw string rows onto DisbursementRecords using the header to
// locate columns, so CSV and XLSX exports with reordered columns both work.
func (p *Parser) fromRows(header []string, rows [][]string) ([]models.DisbursementRecord, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	required := []string{
		colOperationID, colDisbursementDate, colApprovalDate,
		colDisbursedAmount, colApprovedAmount, colSector, colCountry, colLoanType,
	}
	for _, name := range required {
		if _, ok := index[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("fonplata parser: missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i := index[strings.ToLower(name)]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.DisbursementRecord
	for n, row := range rows {
		operationID := field(row, colOperationID)
		if operationID == "" {
			logger.L.Warn("fonplata parser: skipping row without operation id", "row", n+2)
			continue
		}

		records = append(records, models.DisbursementRecord{
			OperationID:      operationID,
			DisbursementDate: parseDate(field(row, colDisbursementDate)),
			ApprovalDate:     parseDate(field(row, colApprovalDate)),
			DisbursedAmount:  parseAmount(field(row, colDisbursedAmount)),
			ApprovedAmount:   parseAmount(field(row, colApprovedAmount)),
			Sector:           field(row, colSector),
			Country:          field(row, colCountry),
			LoanType:         field(row, colLoanType),
		})
	}
	return records, nil
}

// parseDate tries the accepted layouts and returns the zero time when none
// matches. A null date excludes the record at aggregation, not at load.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseAmount normalizes the mixed decimal conventions in the dataset
// ("1.234,56", "1,234.56", "1234,56") and returns 0 when nothing numeric
// remains. A zero approved amount drops the cohort row downstream.
func parseAmount(s string) float64 {
	cleaned := strings.Trim(strings.TrimSpace(s), "\"")
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// Comma is the decimal separator, dots are thousands.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}
