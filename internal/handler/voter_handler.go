// internal/handler/voter_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
)

// VoterHandler holds the dependencies for voter-file HTTP handlers
type VoterHandler struct {
	Repo *repository.VoterRepository
}

func NewVoterHandler(repo *repository.VoterRepository) *VoterHandler {
	return &VoterHandler{Repo: repo}
}

// SearchVotersHandler filters the voter file by free-text query, party, and
// support level.
func (h *VoterHandler) SearchVotersHandler(w http.ResponseWriter, r *http.Request) {
	filter := repository.VoterFilter{
		Query:   r.URL.Query().Get("q"),
		Party:   r.URL.Query().Get("party"),
		Support: r.URL.Query().Get("support"),
	}

	voters, err := h.Repo.Search(filter)
	if err != nil {
		http.Error(w, "failed to search voters: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"voters": voters, "count": len(voters)})
}

func (h *VoterHandler) CreateVoterHandler(w http.ResponseWriter, r *http.Request) {
	var voter model.Voter
	if err := json.NewDecoder(r.Body).Decode(&voter); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if voter.FirstName == "" || voter.LastName == "" {
		http.Error(w, "first_name and last_name are required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Create(&voter); err != nil {
		http.Error(w, "failed to create voter: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(voter)
}

func (h *VoterHandler) ImportVotersHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Voters []model.Voter `json:"voters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.Voters) == 0 {
		http.Error(w, "voters array required", http.StatusBadRequest)
		return
	}

	added, err := h.Repo.Import(payload.Voters)
	if err != nil {
		http.Error(w, "failed to import voters: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"added": added})
}

// GetVoterHandler returns a voter with their contact history.
func (h *VoterHandler) GetVoterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid voter id", http.StatusBadRequest)
		return
	}

	voter, err := h.Repo.GetByID(id)
	if err != nil {
		http.Error(w, "failed to fetch voter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if voter == nil {
		http.Error(w, "voter not found", http.StatusNotFound)
		return
	}

	history, err := h.Repo.ContactHistory(id)
	if err != nil {
		http.Error(w, "failed to fetch contact history: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"voter":           voter,
		"contact_history": history,
	})
}

func (h *VoterHandler) UpdateVoterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid voter id", http.StatusBadRequest)
		return
	}

	var update repository.VoterUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(id, update); err != nil {
		http.Error(w, "failed to update voter: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *VoterHandler) DeleteVoterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid voter id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id); err != nil {
		http.Error(w, "failed to delete voter: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// LogContactHandler records a contact attempt against a voter.
func (h *VoterHandler) LogContactHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid voter id", http.StatusBadRequest)
		return
	}

	var payload struct {
		ContactType string `json:"contact_type"`
		Result      string `json:"result"`
		Notes       string `json:"notes"`
		ContactedBy string `json:"contacted_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.ContactType == "" {
		http.Error(w, "contact_type is required", http.StatusBadRequest)
		return
	}

	contact := &model.VoterContact{
		VoterID:     id,
		ContactType: payload.ContactType,
		Result:      payload.Result,
		Notes:       payload.Notes,
		ContactedBy: payload.ContactedBy,
	}
	if err := h.Repo.LogContact(contact); err != nil {
		http.Error(w, "failed to log contact: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contact)
}

// CheckInHandler records a QR-scanned voter check-in at an event. Repeat
// scans return the original check-in row.
func (h *VoterHandler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var payload struct {
		EventID int `json:"event_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.EventID == 0 {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	voter, err := h.Repo.GetByQRToken(token)
	if err != nil {
		http.Error(w, "failed to look up voter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if voter == nil {
		http.Error(w, "unknown check-in token", http.StatusNotFound)
		return
	}

	checkin, err := h.Repo.CheckIn(voter.ID, payload.EventID)
	if err != nil {
		http.Error(w, "failed to check in voter: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"voter":    voter,
		"check_in": checkin,
	})
}
