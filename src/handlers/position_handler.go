package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/services"
	"github.com/username/carteraclaro/backend/src/utils"
)

type PositionHandler struct {
	syncService services.SyncService
}

func NewPositionHandler(syncService services.SyncService) *PositionHandler {
	return &PositionHandler{syncService: syncService}
}

// HandleGetPositions returns the position records of the most recent run in
// this process, with an ETag so polling clients can skip unchanged payloads.
func (h *PositionHandler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	summary, found := h.syncService.GetLatestSummary()
	records := []models.PositionRecord{}
	if found {
		records = summary.Records
	}

	stateFilter := r.URL.Query().Get("state")
	if stateFilter != "" {
		filtered := make([]models.PositionRecord, 0, len(records))
		for _, record := range records {
			if string(record.State) == stateFilter {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	etag, err := utils.GenerateETag(records)
	if err != nil {
		logger.L.Error("Failed to generate ETag for positions", "error", err)
	} else {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
