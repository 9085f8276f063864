// backend/src/handlers/notification_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/username/cobranzas/backend/src/database"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/model"
	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/services"
	"github.com/username/cobranzas/backend/src/utils"
)

type NotificationHandler struct {
	ingestionService services.IngestionService
	emailService     services.EmailService
}

func NewNotificationHandler(ingestion services.IngestionService, email services.EmailService) *NotificationHandler {
	return &NotificationHandler{
		ingestionService: ingestion,
		emailService:     email,
	}
}

type notifyRequest struct {
	Client string `json:"client"`
}

// HandleSendReminder emails the stored contact of a client a summary of their
// open invoices from the latest dataset.
func (h *NotificationHandler) HandleSendReminder(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Client) == "" {
		utils.SendJSONError(w, "Invalid request body: 'client' is required.", http.StatusBadRequest)
		return
	}
	client := strings.TrimSpace(req.Client)

	ds, err := h.ingestionService.LatestDataset()
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			utils.SendJSONError(w, "No hay datos cargados todavía. Subí los archivos primero.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error loading dataset for reminder", "client", client, "error", err)
		utils.SendJSONError(w, "Error loading dataset.", http.StatusInternalServerError)
		return
	}

	var entries []models.LedgerEntry
	for _, e := range ds.Clients {
		if e.Client == client {
			entries = append(entries, e)
		}
	}
	hasOpen := false
	for _, e := range entries {
		if e.Amount.Sign() > 0 {
			hasOpen = true
			break
		}
	}
	if !hasOpen {
		utils.SendJSONError(w, "El cliente no tiene facturas pendientes.", http.StatusBadRequest)
		return
	}

	contact, err := model.GetContactByClient(database.DB, client)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "No hay un contacto con email guardado para este cliente.", http.StatusBadRequest)
			return
		}
		logger.L.Error("Error loading contact for reminder", "client", client, "error", err)
		utils.SendJSONError(w, "Error loading contact.", http.StatusInternalServerError)
		return
	}
	if !contact.Email.Valid || contact.Email.String == "" {
		utils.SendJSONError(w, "El contacto del cliente no tiene email.", http.StatusBadRequest)
		return
	}

	if err := h.emailService.SendCollectionReminder(contact.Email.String, contact.ContactName.String, client, entries); err != nil {
		logger.L.Error("Error sending collection reminder", "client", client, "error", err)
		utils.SendJSONError(w, "Error sending the reminder email.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "sent", "client": client}); err != nil {
		logger.L.Error("Error encoding reminder response", "error", err)
	}
}
