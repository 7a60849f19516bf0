package reports

import (
	"fmt"

	"github.com/username/reconhub/backend/src/models"
	"github.com/username/reconhub/backend/src/security/validation"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// enrichment columns appended after the original input columns, in order.
var enrichmentColumns = []string{"reconciliation_status", "price_used", "quantity_used", "final_amount"}

// WriteEnrichedWorkbook renders the enriched dataset of one batch into an
// XLSX file. The original input columns come first, verbatim and in file
// order, followed by the computed reconciliation fields. Passthrough cells
// are escaped against formula injection before they reach the workbook.
func WriteEnrichedWorkbook(rows []models.EnrichedRow, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	var headers []string
	if len(rows) > 0 {
		headers = rows[0].Columns
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for i, h := range enrichmentColumns {
		cell, err := excelize.CoordinatesToCellName(len(headers)+i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	for rowIdx, row := range rows {
		excelRow := rowIdx + 2
		for colIdx, h := range headers {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, excelRow)
			if err != nil {
				return err
			}
			value := validation.SanitizeForFormulaInjection(row.Values[h])
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}

		// Skipped rows carry only a status and a zero final amount, matching
		// the summary the caller renders.
		computed := []any{row.Status, "", "", row.FinalAmount.StringFixed(2)}
		if row.Status == models.StatusUpdated {
			computed = []any{row.Status, row.PriceUsed.StringFixed(2), row.QuantityUsed, row.FinalAmount.StringFixed(2)}
		}
		for colIdx, value := range computed {
			cell, err := excelize.CoordinatesToCellName(len(headers)+colIdx+1, excelRow)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("writing enriched workbook %s: %w", outPath, err)
	}
	return nil
}
