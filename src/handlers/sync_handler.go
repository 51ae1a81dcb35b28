package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/carteraclaro/backend/src/database"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/model"
	"github.com/username/carteraclaro/backend/src/services"
	"github.com/username/carteraclaro/backend/src/utils"
)

type SyncHandler struct {
	syncService services.SyncService
}

func NewSyncHandler(syncService services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type syncRequest struct {
	Since string `json:"since"`
	To    string `json:"to,omitempty"`
}

// HandleRunSync triggers a reconciliation run over the requested period and
// returns its summary. The run is synchronous; a full history over a slow
// broker connection can take a while, which is why the route carries a
// generous write timeout.
func (h *SyncHandler) HandleRunSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	since, err := utils.ParseFlexibleDate(req.Since)
	if err != nil {
		utils.SendJSONError(w, "Invalid 'since' date: "+err.Error(), http.StatusBadRequest)
		return
	}
	var to time.Time
	if req.To != "" {
		to, err = utils.ParseFlexibleDate(req.To)
		if err != nil {
			utils.SendJSONError(w, "Invalid 'to' date: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	summary, err := h.syncService.RunSync(r.Context(), since, to)
	if err != nil {
		logger.L.Error("Sync run failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrBrokerAuth) {
			status = http.StatusUnauthorized
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleRecordDailyTotal snapshots the account's current valuation onto the
// daily totals tab.
func (h *SyncHandler) HandleRecordDailyTotal(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.RecordDailyTotal(r.Context()); err != nil {
		logger.L.Error("Daily total recording failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
}

func (h *SyncHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.SendJSONError(w, "Invalid 'limit' parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := model.ListSyncRuns(database.DB, limit)
	if err != nil {
		logger.L.Error("Failed to list sync runs", "error", err)
		utils.SendJSONError(w, "Could not list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.SyncRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

func (h *SyncHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := model.GetSyncRunByID(database.DB, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to fetch sync run", "runID", runID, "error", err)
		utils.SendJSONError(w, "Could not fetch run", http.StatusInternalServerError)
		return
	}

	records, err := model.GetPositionRecordsByRunID(database.DB, runID)
	if err != nil {
		logger.L.Error("Failed to fetch run records", "runID", runID, "error", err)
		utils.SendJSONError(w, "Could not fetch run records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run":     run,
		"records": records,
	})
}
