package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Catalog reads and writes take it so the reconciliation engine can run
// every statement on its batch transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// MasterRecord represents a row in the master_data table. Price and
// FinalAmount are exact decimals; NULL price/final_amount columns are
// surfaced as 0.00 / 0 so callers always see a usable baseline.
type MasterRecord struct {
	ProductCode   string          `json:"product_code"`
	Description   string          `json:"description"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// MasterUpdate is the field set written back for one matched row. Price and
// Quantity are only written when non-nil; FinalAmount and LastUpdatedAt are
// always written so the derived total never goes stale.
type MasterUpdate struct {
	Price         *decimal.Decimal
	Quantity      *int
	FinalAmount   decimal.Decimal
	LastUpdatedAt time.Time
}

func scanMasterRecord(row *sql.Row) (*MasterRecord, error) {
	var rec MasterRecord
	var desc, price, finalAmount sql.NullString
	var qty sql.NullInt64
	var updatedAt sql.NullTime

	if err := row.Scan(&rec.ProductCode, &desc, &qty, &price, &finalAmount, &updatedAt); err != nil {
		return nil, err
	}
	rec.Description = desc.String
	rec.Quantity = int(qty.Int64)
	rec.Price = parseStoredDecimal(price)
	rec.FinalAmount = parseStoredDecimal(finalAmount)
	rec.LastUpdatedAt = updatedAt.Time
	return &rec, nil
}

// parseStoredDecimal converts a stored decimal string into a Decimal,
// treating NULL or garbage as 0.00.
func parseStoredDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s.String))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GetMasterByCode fetches a single catalog record. Returns sql.ErrNoRows
// when the product code is not in the catalog.
func GetMasterByCode(q Querier, productCode string) (*MasterRecord, error) {
	row := q.QueryRow(
		`SELECT product_code, description, quantity, price, final_amount, last_updated_at
		 FROM master_data WHERE product_code = ?`, productCode)
	return scanMasterRecord(row)
}

// ApplyMasterUpdate writes the partial field set for one product. The SET
// clause is built from the populated fields so unchanged price/quantity
// columns are left untouched.
func ApplyMasterUpdate(q Querier, productCode string, update MasterUpdate) error {
	setClauses := []string{}
	args := []any{}

	if update.Price != nil {
		setClauses = append(setClauses, "price = ?")
		args = append(args, update.Price.String())
	}
	if update.Quantity != nil {
		setClauses = append(setClauses, "quantity = ?")
		args = append(args, *update.Quantity)
	}
	setClauses = append(setClauses, "final_amount = ?", "last_updated_at = ?")
	args = append(args, update.FinalAmount.String(), update.LastUpdatedAt)

	args = append(args, productCode)
	query := fmt.Sprintf("UPDATE master_data SET %s WHERE product_code = ?", strings.Join(setClauses, ", "))

	res, err := q.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating master_data for %s: %w", productCode, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("updating master_data for %s: %w", productCode, sql.ErrNoRows)
	}
	return nil
}

// UpsertMaster inserts or replaces one catalog record, recomputing the
// derived total from the supplied price and quantity. Used by the admin
// endpoints and the migration tool, never by the reconciliation engine.
func UpsertMaster(q Querier, rec *MasterRecord) error {
	finalAmount := rec.Price.Mul(decimal.NewFromInt(int64(rec.Quantity)))
	_, err := q.Exec(`
		INSERT INTO master_data (product_code, description, price, quantity, final_amount, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_code) DO UPDATE SET
			description = excluded.description,
			price = excluded.price,
			quantity = excluded.quantity,
			final_amount = excluded.final_amount,
			last_updated_at = excluded.last_updated_at`,
		rec.ProductCode, rec.Description, rec.Price.String(), rec.Quantity,
		finalAmount.String(), rec.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting master_data for %s: %w", rec.ProductCode, err)
	}
	return nil
}

// DeleteMaster removes one catalog record. Returns sql.ErrNoRows when the
// product code does not exist.
func DeleteMaster(q Querier, productCode string) error {
	res, err := q.Exec(`DELETE FROM master_data WHERE product_code = ?`, productCode)
	if err != nil {
		return fmt.Errorf("deleting master_data for %s: %w", productCode, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMaster returns the full catalog ordered by product code.
func ListMaster(q Querier) ([]MasterRecord, error) {
	rows, err := q.Query(
		`SELECT product_code, description, quantity, price, final_amount, last_updated_at
		 FROM master_data ORDER BY product_code ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing master_data: %w", err)
	}
	defer rows.Close()

	var records []MasterRecord
	for rows.Next() {
		var rec MasterRecord
		var desc, price, finalAmount sql.NullString
		var qty sql.NullInt64
		var updatedAt sql.NullTime
		if err := rows.Scan(&rec.ProductCode, &desc, &qty, &price, &finalAmount, &updatedAt); err != nil {
			return nil, err
		}
		rec.Description = desc.String
		rec.Quantity = int(qty.Int64)
		rec.Price = parseStoredDecimal(price)
		rec.FinalAmount = parseStoredDecimal(finalAmount)
		rec.LastUpdatedAt = updatedAt.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountMaster returns the number of catalog records.
func CountMaster(q Querier) (int, error) {
	var count int
	err := q.QueryRow(`SELECT COUNT(*) FROM master_data`).Scan(&count)
	return count, err
}
