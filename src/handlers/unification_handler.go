// backend/src/handlers/unification_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/username/cobranzas/backend/src/database"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/model"
	"github.com/username/cobranzas/backend/src/services"
	"github.com/username/cobranzas/backend/src/utils"
)

type UnificationHandler struct {
	ingestionService services.IngestionService
}

func NewUnificationHandler(service services.IngestionService) *UnificationHandler {
	return &UnificationHandler{
		ingestionService: service,
	}
}

// HandleGetSuggestions returns the client-name clusters detected in the
// latest dataset.
func (h *UnificationHandler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.ingestionService.SuggestUnifications()
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			utils.SendJSONError(w, "No hay datos cargados todavía. Subí los archivos primero.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error computing unification suggestions", "error", err)
		utils.SendJSONError(w, "Error computing unification suggestions.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(suggestions); err != nil {
		logger.L.Error("Error encoding unification suggestions", "error", err)
	}
}

// HandleGetRules lists the saved rename rules.
func (h *UnificationHandler) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := model.ListRules(database.DB)
	if err != nil {
		logger.L.Error("Error listing unification rules", "error", err)
		utils.SendJSONError(w, "Error listing unification rules.", http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []model.UnificationRule{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rules); err != nil {
		logger.L.Error("Error encoding unification rules", "error", err)
	}
}

// HandleSaveRules stores a batch of variant -> canonical mappings and
// immediately reapplies them over the cached dataset.
func (h *UnificationHandler) HandleSaveRules(w http.ResponseWriter, r *http.Request) {
	var rules map[string]string
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		utils.SendJSONError(w, "Invalid request body: expected a {variant: canonical} object.", http.StatusBadRequest)
		return
	}
	if len(rules) == 0 {
		utils.SendJSONError(w, "No rules provided.", http.StatusBadRequest)
		return
	}

	if err := model.SaveRules(database.DB, rules); err != nil {
		logger.L.Error("Error saving unification rules", "error", err)
		utils.SendJSONError(w, "Error saving unification rules.", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Unification rules saved", "count", len(rules))

	ds, err := h.ingestionService.ReapplyRules()
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			// Rules are persisted even with nothing loaded; they apply on the
			// next upload.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		logger.L.Error("Error reapplying unification rules", "error", err)
		utils.SendJSONError(w, "Rules saved but could not be applied to the current dataset.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ds); err != nil {
		logger.L.Error("Error encoding dataset after rule application", "error", err)
	}
}

// HandleDeleteRule removes one rule by id.
func (h *UnificationHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid rule id.", http.StatusBadRequest)
		return
	}

	if err := model.DeleteRule(database.DB, id); err != nil {
		logger.L.Error("Error deleting unification rule", "id", id, "error", err)
		utils.SendJSONError(w, "Error deleting unification rule.", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Unification rule deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
