package parsers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/username/reconhub/backend/src/models"
)

// CSVParser reads comma-separated uploads with a header row.
type CSVParser struct{}

func (p *CSVParser) Parse(file io.Reader) ([]models.InputRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: file has no header row", ErrParsingFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	return buildRecords(headers, rows)
}
