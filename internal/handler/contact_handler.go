// internal/handler/contact_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
)

// ContactHandler holds the dependencies for contact-related HTTP handlers
type ContactHandler struct {
	Repo repository.ContactRepositoryInterface
}

func NewContactHandler(repo repository.ContactRepositoryInterface) *ContactHandler {
	return &ContactHandler{Repo: repo}
}

func (h *ContactHandler) ListContactsHandler(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.Repo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch contacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"contacts": contacts})
}

// CreateContactHandler adds a single contact. Phone is required.
func (h *ContactHandler) CreateContactHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone     string `json:"phone"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		City      string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}

	contact := &model.Contact{
		Phone:     payload.Phone,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		City:      payload.City,
	}
	if err := h.Repo.Create(contact); err != nil {
		http.Error(w, "failed to create contact: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contact)
}

// ImportContactsHandler bulk-imports contacts in one transaction. Rows
// without a phone are skipped, not rejected.
func (h *ContactHandler) ImportContactsHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Contacts []model.Contact `json:"contacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.Contacts) == 0 {
		http.Error(w, "contacts array required", http.StatusBadRequest)
		return
	}

	added, err := h.Repo.Import(payload.Contacts)
	if err != nil {
		http.Error(w, "failed to import contacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"added": added})
}

func (h *ContactHandler) DeleteContactHandler(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id); err != nil {
		http.Error(w, "failed to delete contact: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *ContactHandler) DeleteAllContactsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteAll(); err != nil {
		http.Error(w, "failed to clear contacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
