package services

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/model"
	"github.com/username/reconhub/backend/src/models"
	"github.com/username/reconhub/backend/src/parsers"
	"github.com/username/reconhub/backend/src/processors"
)

const (
	ckLatestSummary        = "summary_latest"
	ckBatchSummary         = "summary_batch_%s"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type reconcileServiceImpl struct {
	db           *sql.DB
	summaryCache *cache.Cache
}

func NewReconcileService(db *sql.DB, summaryCache *cache.Cache) ReconcileService {
	return &reconcileServiceImpl{
		db:           db,
		summaryCache: summaryCache,
	}
}

// ProcessFile runs one batch. Structural failures (unknown extension,
// unparseable content, missing identifier column) reject the file before any
// catalog access. Row processing happens inside a single transaction; any
// unexpected failure rolls the whole batch back.
func (s *reconcileServiceImpl) ProcessFile(filePath string, batchID string) ([]models.EnrichedRow, *models.ReconciliationSummary) {
	if batchID == "" {
		batchID = uuid.New().String()
	}
	summary := &models.ReconciliationSummary{
		BatchID: batchID,
		Errors:  []string{},
	}
	startTime := time.Now()
	logger.L.Info("Reconciliation START", "batchID", batchID, "file", filePath)

	parser, err := parsers.GetParser(filePath)
	if err != nil {
		summary.Error = "Unsupported file format"
		s.storeSummary(summary)
		return nil, summary
	}

	file, err := os.Open(filePath)
	if err != nil {
		summary.Error = fmt.Sprintf("Failed to parse file: %v", err)
		s.storeSummary(summary)
		return nil, summary
	}
	defer file.Close()

	records, err := parser.Parse(file)
	if err != nil {
		if errors.Is(err, parsers.ErrMissingIdentifierColumn) {
			summary.Error = "Missing required column: product_code"
		} else {
			summary.Error = fmt.Sprintf("Failed to parse file: %v", err)
		}
		logger.L.Warn("Batch rejected before transaction", "batchID", batchID, "error", summary.Error)
		s.storeSummary(summary)
		return nil, summary
	}

	summary.TotalRows = len(records)

	tx, err := s.db.Begin()
	if err != nil {
		summary.ErrorFatal = fmt.Sprintf("error beginning database transaction: %v", err)
		s.storeSummary(summary)
		return nil, summary
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	enriched := make([]models.EnrichedRow, 0, len(records))
	for i, rec := range records {
		row, err := s.processRow(tx, batchID, i, rec, summary)
		if err != nil {
			logger.L.Error("Transaction failed, rolling back batch", "batchID", batchID, "row", i+1, "error", err)
			summary.ErrorFatal = err.Error()
			s.storeSummary(summary)
			return nil, summary
		}
		enriched = append(enriched, *row)
	}

	if err := tx.Commit(); err != nil {
		summary.ErrorFatal = fmt.Sprintf("error committing batch: %v", err)
		s.storeSummary(summary)
		return nil, summary
	}
	committed = true

	s.storeSummary(summary)
	logger.L.Info("Reconciliation END",
		"batchID", batchID,
		"totalRows", summary.TotalRows,
		"matched", summary.Matched,
		"skipped", summary.Skipped,
		"updatedPrice", summary.UpdatedPrice,
		"updatedQuantity", summary.UpdatedQuantity,
		"duration", time.Since(startTime),
	)
	return enriched, summary
}

// processRow takes one input row through its terminal state. A returned
// error is a fatal, unclassified failure that aborts the batch; soft
// outcomes (invalid id, no match) are absorbed into the summary.
func (s *reconcileServiceImpl) processRow(tx *sql.Tx, batchID string, index int, rec models.InputRecord, summary *models.ReconciliationSummary) (*models.EnrichedRow, error) {
	row := models.EnrichedRow{
		Columns: rec.Columns,
		Values:  rec.Values,
	}

	productCode, ok := processors.NormalizeProductCode(rec.RawProductCode)
	if !ok {
		// No catalog lookup for invalid identifiers.
		row.Status = models.StatusSkippedInvalidID
		summary.Skipped++
		return &row, nil
	}

	stored, err := model.GetMasterByCode(tx, productCode)
	if errors.Is(err, sql.ErrNoRows) {
		logger.L.Warn("Product not found, skipping row", "batchID", batchID, "row", index+1, "productCode", productCode)
		summary.Skipped++
		summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: product %s not found", index+1, productCode))
		row.Status = models.StatusSkippedNoMatch
		return &row, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up product %s: %w", productCode, err)
	}

	summary.Matched++

	updatedPrice := stored.Price
	updatedQuantity := stored.Quantity
	update := model.MasterUpdate{}

	if rec.HasPrice {
		if val, parsed := processors.ParsePrice(rec.RawPrice); parsed {
			if !val.Equal(stored.Price) {
				update.Price = &val
				updatedPrice = val
				summary.UpdatedPrice++
			}
		} else {
			// Best-effort policy: malformed optional values are dropped and
			// the stored price is retained.
			logger.L.Debug("Ignoring malformed price value", "batchID", batchID, "row", index+1, "value", rec.RawPrice)
		}
	}

	if rec.HasQuantity {
		if val, parsed := processors.ParseQuantity(rec.RawQuantity); parsed {
			if val != stored.Quantity {
				update.Quantity = &val
				updatedQuantity = val
				summary.UpdatedQuantity++
			}
		} else {
			logger.L.Debug("Ignoring malformed quantity value", "batchID", batchID, "row", index+1, "value", rec.RawQuantity)
		}
	}

	// The derived total and timestamp are always written back, even when
	// neither input field changed, so the stored total never drifts.
	finalAmount := mulQuantity(updatedPrice, updatedQuantity)
	update.FinalAmount = finalAmount
	update.LastUpdatedAt = time.Now()

	if err := model.ApplyMasterUpdate(tx, productCode, update); err != nil {
		return nil, err
	}
	if err := model.InsertAuditEntry(tx, batchID, auditDetails(productCode, stored, update)); err != nil {
		return nil, err
	}

	row.Status = models.StatusUpdated
	row.PriceUsed = updatedPrice
	row.QuantityUsed = updatedQuantity
	row.FinalAmount = finalAmount
	return &row, nil
}

// auditDetails describes the fields that actually changed for one catalog
// write. The entry is still recorded with an empty change list when only the
// total/timestamp were refreshed.
func auditDetails(productCode string, stored *model.MasterRecord, update model.MasterUpdate) string {
	var changes []string
	if update.Price != nil {
		changes = append(changes, fmt.Sprintf("Price: %s -> %s", stored.Price.String(), update.Price.String()))
	}
	if update.Quantity != nil {
		changes = append(changes, fmt.Sprintf("Qty: %d -> %d", stored.Quantity, *update.Quantity))
	}
	return fmt.Sprintf("Product: %s | %s", productCode, strings.Join(changes, ", "))
}

func (s *reconcileServiceImpl) storeSummary(summary *models.ReconciliationSummary) {
	s.summaryCache.Set(fmt.Sprintf(ckBatchSummary, summary.BatchID), summary, DefaultCacheExpiration)
	s.summaryCache.Set(ckLatestSummary, summary, DefaultCacheExpiration)
}

func (s *reconcileServiceImpl) GetSummary(batchID string) (*models.ReconciliationSummary, bool) {
	if cached, found := s.summaryCache.Get(fmt.Sprintf(ckBatchSummary, batchID)); found {
		return cached.(*models.ReconciliationSummary), true
	}
	return nil, false
}

func (s *reconcileServiceImpl) LatestSummary() (*models.ReconciliationSummary, bool) {
	if cached, found := s.summaryCache.Get(ckLatestSummary); found {
		return cached.(*models.ReconciliationSummary), true
	}
	return nil, false
}
