package model

import (
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry represents a row in the append-only update_audit table.
type AuditEntry struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batch_id"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// InsertAuditEntry appends one audit record. Callers inside a batch pass
// their *sql.Tx so the entry commits or rolls back with the catalog writes.
func InsertAuditEntry(q Querier, batchID, details string) error {
	_, err := q.Exec(
		`INSERT INTO update_audit (batch_id, details) VALUES (?, ?)`,
		batchID, details,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry for batch %s: %w", batchID, err)
	}
	return nil
}

// ListAuditEntries returns audit records, newest first, optionally filtered
// by batch id. limit <= 0 means a default page of 100.
func ListAuditEntries(q Querier, batchID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if batchID != "" {
		rows, err = q.Query(
			`SELECT id, batch_id, details, timestamp FROM update_audit
			 WHERE batch_id = ? ORDER BY id DESC LIMIT ?`, batchID, limit)
	} else {
		rows, err = q.Query(
			`SELECT id, batch_id, details, timestamp FROM update_audit
			 ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts sql.NullTime
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Details, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = ts.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountAuditEntries returns the number of audit records for one batch.
func CountAuditEntries(q Querier, batchID string) (int, error) {
	var count int
	err := q.QueryRow(`SELECT COUNT(*) FROM update_audit WHERE batch_id = ?`, batchID).Scan(&count)
	return count, err
}
