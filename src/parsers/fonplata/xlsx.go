// src/parsers/fonplata/xlsx.go
package fonplata

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

// ParseXLSX reads the first sheet of a FONPLATA workbook export
// (fonplata_bdd.xlsx). Cell values arrive from excelize as formatted strings
// and go through the same row mapping as the CSV path.
func (p *Parser) ParseXLSX(file io.Reader) ([]models.DisbursementRecord, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("fonplata parser: failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := workbook.Close(); cerr != nil {
			logger.L.Warn("fonplata parser: failed to close workbook", "error", cerr)
		}
	}()

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("fonplata parser: workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("fonplata parser: failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fonplata parser: sheet %q is empty", sheet)
	}

	return p.fromRows(rows[0], rows[1:])
}
