// backend/src/handlers/contact_handler.go
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
	"github.com/username/cobranzas/backend/src/security/validation"
	"github.com/username/cobranzas/backend/src/utils"
)

type ContactHandler struct{}

func NewContactHandler() *ContactHandler {
	return &ContactHandler{}
}

// contactPayload is the write shape for contact data.
type contactPayload struct {
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Notes       string `json:"notes"`
}

// HandleGetContacts returns every stored contact keyed by client name.
func (h *ContactHandler) HandleGetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := model.GetAllContacts(database.DB)
	if err != nil {
		logger.L.Error("Error listing contacts", "error", err)
		utils.SendJSONError(w, "Error listing contacts.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(contacts); err != nil {
		logger.L.Error("Error encoding contacts", "error", err)
	}
}

// HandleGetContact returns the contact for one client.
func (h *ContactHandler) HandleGetContact(w http.ResponseWriter, r *http.Request) {
	clientName := strings.TrimSpace(r.PathValue("client"))
	if clientName == "" {
		utils.SendJSONError(w, "Client name required.", http.StatusBadRequest)
		return
	}

	contact, err := model.GetContactByClient(database.DB, clientName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "No contact stored for this client.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error loading contact", "client", clientName, "error", err)
		utils.SendJSONError(w, "Error loading contact.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(contact); err != nil {
		logger.L.Error("Error encoding contact", "error", err)
	}
}

// HandleUpsertContact creates or updates the contact data for a client. Free
// text fields are sanitized before they can reach a future export.
func (h *ContactHandler) HandleUpsertContact(w http.ResponseWriter, r *http.Request) {
	clientName := strings.TrimSpace(r.PathValue("client"))
	if clientName == "" {
		utils.SendJSONError(w, "Client name required.", http.StatusBadRequest)
		return
	}

	var payload contactPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}

	clean := func(s string) sql.NullString {
		s = strings.TrimSpace(validation.StripUnprintable(s))
		s = validation.SanitizeForFormulaInjection(s)
		return sql.NullString{String: s, Valid: s != ""}
	}

	contact := model.ClientContact{
		ClientName:  clientName,
		ContactName: clean(payload.ContactName),
		Email:       clean(payload.Email),
		Phone:       clean(payload.Phone),
		Notes:       clean(payload.Notes),
	}

	if err := model.UpsertContact(database.DB, contact); err != nil {
		logger.L.Error("Error saving contact", "client", clientName, "error", err)
		utils.SendJSONError(w, "Error saving contact.", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Contact saved", "client", clientName)
	w.WriteHeader(http.StatusNoContent)
}
