package models

import "github.com/shopspring/decimal"

// Reconciliation status values for a single input row. Each row ends in
// exactly one of these states.
const (
	StatusUpdated          = "UPDATED"
	StatusSkippedInvalidID = "SKIPPED_INVALID_ID"
	StatusSkippedNoMatch   = "SKIPPED_NO_MATCH"
)

// InputRecord is one raw row from an uploaded file. Columns holds the original
// header names in file order and Values the original cell text keyed by those
// headers, so the enriched output can reproduce the input verbatim. The
// normalized fields are derived from the aliased view of the same row.
type InputRecord struct {
	Columns []string          `json:"columns"`
	Values  map[string]string `json:"values"`

	// Normalized view, populated by the parser after header aliasing.
	RawProductCode string `json:"raw_product_code"`
	RawPrice       string `json:"raw_price"`
	HasPrice       bool   `json:"has_price"`
	RawQuantity    string `json:"raw_quantity"`
	HasQuantity    bool   `json:"has_quantity"`
}

// EnrichedRow is an InputRecord augmented with the reconciliation outcome.
// Columns/Values carry the original input untouched.
type EnrichedRow struct {
	Columns []string          `json:"columns"`
	Values  map[string]string `json:"values"`

	Status       string          `json:"reconciliation_status"`
	PriceUsed    decimal.Decimal `json:"price_used"`
	QuantityUsed int             `json:"quantity_used"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
}

// ReconciliationSummary is the aggregate report for one processed batch.
// Invariant: Matched + Skipped == TotalRows whenever Error and ErrorFatal are empty.
type ReconciliationSummary struct {
	BatchID         string   `json:"batch_id"`
	TotalRows       int      `json:"total_rows"`
	Matched         int      `json:"matched"`
	Skipped         int      `json:"skipped"`
	UpdatedPrice    int      `json:"updated_price"`
	UpdatedQuantity int      `json:"updated_quantity"`
	Errors          []string `json:"errors"`

	// Error is set for structural failures (bad format, unparseable file,
	// missing identifier column); the catalog was never touched.
	Error string `json:"error,omitempty"`
	// ErrorFatal is set when the batch transaction was rolled back.
	ErrorFatal string `json:"error_fatal,omitempty"`
}
