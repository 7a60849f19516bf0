package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/model"
	"github.com/username/reconhub/backend/src/security/validation"
)

type productServiceImpl struct {
	db *sql.DB
}

func NewProductService(db *sql.DB) ProductService {
	return &productServiceImpl{db: db}
}

// Save validates and upserts one catalog record. The derived total is
// recomputed from the supplied price and quantity so admin writes keep the
// same invariant as the engine.
func (s *productServiceImpl) Save(input ProductInput) (*model.MasterRecord, error) {
	productCode := strings.TrimSpace(input.ProductCode)
	if productCode == "" {
		return nil, fmt.Errorf("%w: product_code is required", ErrInvalidInput)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil {
		return nil, fmt.Errorf("%w: price %q is not a valid decimal", ErrInvalidInput, input.Price)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(input.Quantity))
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q is not a valid integer", ErrInvalidInput, input.Quantity)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}

	// Descriptions are free text supplied by the console; strip markup and
	// unprintable characters before they reach the database.
	description := validation.SanitizeText(validation.StripUnprintable(strings.TrimSpace(input.Description)))

	rec := &model.MasterRecord{
		ProductCode:   productCode,
		Description:   description,
		Quantity:      quantity,
		Price:         price,
		FinalAmount:   mulQuantity(price, quantity),
		LastUpdatedAt: time.Now(),
	}
	if err := model.UpsertMaster(s.db, rec); err != nil {
		return nil, err
	}
	logger.L.Info("Catalog record saved", "productCode", productCode, "price", price.String(), "quantity", quantity)
	return rec, nil
}

func (s *productServiceImpl) Delete(productCode string) error {
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return fmt.Errorf("%w: product_code is required", ErrInvalidInput)
	}
	if err := model.DeleteMaster(s.db, productCode); err != nil {
		return err
	}
	logger.L.Info("Catalog record deleted", "productCode", productCode)
	return nil
}

func (s *productServiceImpl) List() ([]model.MasterRecord, error) {
	return model.ListMaster(s.db)
}
