// catalog-migrate imports a legacy price CSV into the master_data table.
// It applies the schema migrations first, dedupes the CSV by product code
// (keep-last) and verifies the resulting row count.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/reconhub/backend/src/database"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/model"
)

func main() {
	csvPath := flag.String("csv", "price_database.csv", "path to the legacy price CSV")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "./reconhub.db"), "path to the sqlite database")
	flag.Parse()

	logger.InitLogger(envOr("LOG_LEVEL", "info"))

	database.InitDB(*dbPath)
	database.RunMigrations(*dbPath)

	records, err := readLegacyCSV(*csvPath)
	if err != nil {
		stdlog.Fatalf("reading %s: %v", *csvPath, err)
	}
	if len(records) == 0 {
		stdlog.Fatalf("no usable rows found in %s", *csvPath)
	}

	tx, err := database.DB.Begin()
	if err != nil {
		stdlog.Fatalf("beginning transaction: %v", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := model.UpsertMaster(tx, rec); err != nil {
			stdlog.Fatalf("migrating %s: %v", rec.ProductCode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		stdlog.Fatalf("committing migration: %v", err)
	}

	count, err := model.CountMaster(database.DB)
	if err != nil {
		stdlog.Fatalf("verifying migration: %v", err)
	}
	fmt.Printf("Successfully migrated %d records (catalog now holds %d rows).\n", len(records), count)
}

// readLegacyCSV maps the legacy export columns onto master records. The
// identifier column may be named model, product_code or product_id; a
// category column doubles as the description when present. Later duplicates
// of a product code win.
func readLegacyCSV(path string) ([]*model.MasterRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	codeIdx, priceIdx, qtyIdx, descIdx := -1, -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "model", "product_code", "product_id":
			if codeIdx == -1 {
				codeIdx = i
			}
		case "price", "unit_price":
			if priceIdx == -1 {
				priceIdx = i
			}
		case "quantity", "qty":
			if qtyIdx == -1 {
				qtyIdx = i
			}
		case "category", "description":
			if descIdx == -1 {
				descIdx = i
			}
		}
	}
	if codeIdx == -1 {
		return nil, fmt.Errorf("could not find a 'model' or 'product_code' column in %v", headers)
	}
	if priceIdx == -1 {
		return nil, fmt.Errorf("could not find a 'price' column in %v", headers)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	cell := func(row []string, idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	// Deduplicate by product code, keeping the last occurrence, while
	// preserving first-seen order for deterministic output.
	byCode := make(map[string]*model.MasterRecord)
	var order []string
	for _, row := range rows {
		code := cell(row, codeIdx)
		if code == "" {
			continue
		}

		price := decimal.Zero
		if raw := cell(row, priceIdx); raw != "" {
			if parsed, err := decimal.NewFromString(raw); err == nil {
				price = parsed
			}
		}

		quantity := 0
		if raw := cell(row, qtyIdx); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				quantity = parsed
			}
		}

		description := cell(row, descIdx)
		if description == "" {
			description = code
		}

		if _, seen := byCode[code]; !seen {
			order = append(order, code)
		}
		byCode[code] = &model.MasterRecord{
			ProductCode:   code,
			Description:   description,
			Quantity:      quantity,
			Price:         price,
			LastUpdatedAt: time.Now(),
		}
	}

	records := make([]*model.MasterRecord, 0, len(byCode))
	for _, code := range order {
		records = append(records, byCode[code])
	}
	return records, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
