package alertapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/linnemanlabs/pulsewatch/internal/directory"
)

func (a *API) handleListContacts(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	contacts, err := a.directory.Contacts(r.Context(), subjectID)
	if err != nil {
		a.logger.Error(r.Context(), err, "contact listing failed", "subject_id", subjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if contacts == nil {
		contacts = []directory.EmergencyContact{}
	}

	a.writeJSON(w, r, http.StatusOK, map[string]any{"contacts": contacts})
}

type addContactRequest struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Priority     int    `json:"priority"`
}

func (a *API) handleAddContact(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var req addContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" && req.Phone == "" {
		http.Error(w, `{"error":"at least one of email or phone is required"}`, http.StatusBadRequest)
		return
	}

	contact := directory.EmergencyContact{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		Name:         req.Name,
		Relationship: req.Relationship,
		Email:        req.Email,
		Phone:        req.Phone,
		Priority:     req.Priority,
		AddedAt:      time.Now(),
	}
	if err := a.directory.AddContact(r.Context(), contact); err != nil {
		a.logger.Error(r.Context(), err, "contact add failed", "subject_id", subjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, r, http.StatusCreated, contact)
}

func (a *API) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	contactID := chi.URLParam(r, "contactID")

	removed, err := a.directory.RemoveContact(r.Context(), subjectID, contactID)
	if err != nil {
		a.logger.Error(r.Context(), err, "contact removal failed",
			"subject_id", subjectID, "contact_id", contactID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	settings, err := a.directory.Settings(r.Context(), subjectID)
	if err != nil {
		a.logger.Error(r.Context(), err, "settings lookup failed", "subject_id", subjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, r, http.StatusOK, settings)
}

func (a *API) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var settings directory.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	settings.SubjectID = subjectID
	settings.UpdatedAt = time.Now()

	if err := settings.Validate(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	if err := a.directory.PutSettings(r.Context(), settings); err != nil {
		a.logger.Error(r.Context(), err, "settings update failed", "subject_id", subjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, r, http.StatusOK, settings)
}
