package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/services"
	"github.com/username/reconhub/backend/src/utils"
)

// ProductHandler exposes the admin create/update/delete path into the master
// catalog. These endpoints bypass the reconciliation engine entirely.
type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(service services.ProductService) *ProductHandler {
	return &ProductHandler{productService: service}
}

// HandleSave upserts one catalog record.
func (h *ProductHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var input services.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.productService.Save(input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to save catalog record", "productCode", input.ProductCode, "error", err)
		utils.SendJSONError(w, "Failed to save product", http.StatusInternalServerError)
		return
	}

	utils.SendJSONResponse(w, rec, http.StatusOK)
}

// HandleDelete removes one catalog record.
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")

	err := h.productService.Delete(productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete catalog record", "productCode", productCode, "error", err)
		utils.SendJSONError(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList returns the full catalog.
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.productService.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list catalog", "error", err)
		utils.SendJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}
	utils.SendJSONResponse(w, records, http.StatusOK)
}
