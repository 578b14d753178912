package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/models"
)

// SettingsHandler serves the runtime integration settings. Admin only: the
// payload carries API keys.
type SettingsHandler struct {
	manager *config.SettingsManager
}

func NewSettingsHandler(manager *config.SettingsManager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

// Get returns the current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Get())
}

// Update replaces the settings and persists them. Running discovery sessions
// keep the batch size they started with; new runs pick up the new values.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.Update(func(s *config.Settings) {
		*s = incoming
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to save settings", err)
		return
	}

	writeJSON(w, http.StatusOK, h.manager.Get())
}

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.AcceptedResponse{Status: "ok"})
}
