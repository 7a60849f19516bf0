package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/username/reconhub/backend/src/model"
	"github.com/username/reconhub/backend/src/models"
)

// Define common service errors
var (
	ErrInvalidInput    = errors.New("invalid product input")
	ErrInvalidPassword = errors.New("invalid admin password")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// ReconcileService is the single processing entry point of the engine. A
// batch either applies all of its matched updates or none of them.
type ReconcileService interface {
	// ProcessFile reconciles one uploaded file against the master catalog.
	// An empty batchID means "generate one". The enriched rows are nil
	// exactly when the summary carries Error or ErrorFatal.
	ProcessFile(filePath string, batchID string) ([]models.EnrichedRow, *models.ReconciliationSummary)

	// GetSummary returns the cached summary for a batch processed recently.
	GetSummary(batchID string) (*models.ReconciliationSummary, bool)

	// LatestSummary returns the most recently produced summary.
	LatestSummary() (*models.ReconciliationSummary, bool)
}

// ProductInput carries the admin-supplied fields for a catalog upsert.
// Price and Quantity arrive as form strings and are converted exactly.
type ProductInput struct {
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
}

// ProductService is the admin create/update/delete path into the catalog.
// It never flows through the reconciliation engine.
type ProductService interface {
	Save(input ProductInput) (*model.MasterRecord, error)
	Delete(productCode string) error
	List() ([]model.MasterRecord, error)
}

// AuthService gates the admin console endpoints.
type AuthService interface {
	Login(password string) (string, error)
	ValidateToken(tokenString string) error
}

// mulQuantity multiplies an exact price by an integer quantity. All derived
// totals in the engine and the admin path go through this so price×quantity
// is computed the same way everywhere.
func mulQuantity(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
