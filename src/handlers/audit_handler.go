package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/model"
	"github.com/username/reconhub/backend/src/utils"
)

// AuditHandler exposes read-only access to the append-only audit trail.
type AuditHandler struct {
	db *sql.DB
}

func NewAuditHandler(db *sql.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// HandleList returns audit entries, newest first, optionally filtered by
// batch_id and limited by limit.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			utils.SendJSONError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := model.ListAuditEntries(h.db, batchID, limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list audit entries", "batchID", batchID, "error", err)
		utils.SendJSONError(w, "Failed to list audit entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	utils.SendJSONResponse(w, entries, http.StatusOK)
}
