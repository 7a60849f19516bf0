package parsers

import (
	"fmt"
	"io"

	"github.com/username/reconhub/backend/src/models"
	"github.com/xuri/excelize/v2"
)

// XLSXParser reads spreadsheet uploads. The first sheet is taken as the
// dataset, with row 1 as the header row.
type XLSXParser struct{}

func (p *XLSXParser) Parse(file io.Reader) ([]models.InputRecord, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParsingFailed)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrParsingFailed, sheetName)
	}

	return buildRecords(rows[0], rows[1:])
}
