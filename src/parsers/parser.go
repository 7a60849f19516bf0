package parsers

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/username/reconhub/backend/src/models"
)

// Sentinel errors for structural batch failures. All of them are raised
// before any catalog access.
var (
	ErrUnsupportedFormat       = errors.New("unsupported file format")
	ErrParsingFailed           = errors.New("failed to parse file")
	ErrMissingIdentifierColumn = errors.New("missing required column: product_code")
)

// Parser converts an uploaded file into ordered InputRecords.
type Parser interface {
	Parse(file io.Reader) ([]models.InputRecord, error)
}

// columnAliases rewrites normalized header names to their canonical form.
var columnAliases = map[string]string{
	"product_id": "product_code",
	"model":      "product_code",
	"unit_price": "price",
	"qty":        "quantity",
}

// GetParser selects a parser from the file extension. Anything that is not
// CSV or a spreadsheet rejects the whole batch with ErrUnsupportedFormat.
func GetParser(filename string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return &CSVParser{}, nil
	case ".xls", ".xlsx":
		return &XLSXParser{}, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// normalizeHeader trims and case-folds a header cell, then applies the alias
// table.
func normalizeHeader(h string) string {
	normalized := strings.ToLower(strings.TrimSpace(h))
	if canonical, ok := columnAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// buildRecords pairs each raw row with its normalized view. The original
// header names and cell values are preserved verbatim for lossless output
// reconstruction; only the normalized fields go through aliasing.
func buildRecords(headers []string, rows [][]string) ([]models.InputRecord, error) {
	// Locate canonical columns by position. First occurrence wins when a
	// file carries both an alias and the canonical name.
	codeIdx, priceIdx, qtyIdx := -1, -1, -1
	for i, h := range headers {
		switch normalizeHeader(h) {
		case "product_code":
			if codeIdx == -1 {
				codeIdx = i
			}
		case "price":
			if priceIdx == -1 {
				priceIdx = i
			}
		case "quantity":
			if qtyIdx == -1 {
				qtyIdx = i
			}
		}
	}
	if codeIdx == -1 {
		return nil, ErrMissingIdentifierColumn
	}

	cell := func(row []string, idx int) string {
		if idx >= 0 && idx < len(row) {
			return row[idx]
		}
		return ""
	}

	records := make([]models.InputRecord, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			values[h] = cell(row, i)
		}

		rec := models.InputRecord{
			Columns:        headers,
			Values:         values,
			RawProductCode: cell(row, codeIdx),
		}
		if priceIdx != -1 {
			raw := cell(row, priceIdx)
			if strings.TrimSpace(raw) != "" {
				rec.RawPrice = raw
				rec.HasPrice = true
			}
		}
		if qtyIdx != -1 {
			raw := cell(row, qtyIdx)
			if strings.TrimSpace(raw) != "" {
				rec.RawQuantity = raw
				rec.HasQuantity = true
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
