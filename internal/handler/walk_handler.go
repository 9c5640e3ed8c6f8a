// internal/handler/walk_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
	"github.com/fieldops/campaigntext-backend/internal/service"
)

type WalkHandler struct {
	Repo    *repository.WalkRepository
	Service *service.WalkService
}

func NewWalkHandler(repo *repository.WalkRepository, svc *service.WalkService) *WalkHandler {
	return &WalkHandler{Repo: repo, Service: svc}
}

func (h *WalkHandler) ListWalksHandler(w http.ResponseWriter, r *http.Request) {
	walks, err := h.Repo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch walks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type walkWithProgress struct {
		model.BlockWalk
		Total     int `json:"total"`
		Knocked   int `json:"knocked"`
		Remaining int `json:"remaining"`
	}
	out := []walkWithProgress{}
	for _, walk := range walks {
		total, knocked, err := h.Repo.KnockStats(walk.ID)
		if err != nil {
			http.Error(w, "failed to fetch knock stats: "+err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, walkWithProgress{BlockWalk: walk, Total: total, Knocked: knocked, Remaining: total - knocked})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"walks": out})
}

func (h *WalkHandler) CreateWalkHandler(w http.ResponseWriter, r *http.Request) {
	var walk model.BlockWalk
	if err := json.NewDecoder(r.Body).Decode(&walk); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if walk.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Create(&walk); err != nil {
		http.Error(w, "failed to create walk: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(walk)
}

// GetWalkHandler returns a walk with its address list and progress, the view
// a walker works from.
func (h *WalkHandler) GetWalkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}

	walk, err := h.Repo.GetByID(id)
	if err != nil {
		http.Error(w, "failed to fetch walk: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if walk == nil {
		http.Error(w, "walk not found", http.StatusNotFound)
		return
	}

	addresses, err := h.Repo.ListAddresses(id)
	if err != nil {
		http.Error(w, "failed to fetch addresses: "+err.Error(), http.StatusInternalServerError)
		return
	}
	total, knocked, err := h.Repo.KnockStats(id)
	if err != nil {
		http.Error(w, "failed to fetch knock stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"walk":      walk,
		"addresses": addresses,
		"progress": map[string]int{
			"total":     total,
			"knocked":   knocked,
			"remaining": total - knocked,
		},
	})
}

func (h *WalkHandler) UpdateWalkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}

	var update repository.WalkUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(id, update); err != nil {
		http.Error(w, "failed to update walk: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *WalkHandler) DeleteWalkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id); err != nil {
		http.Error(w, "failed to delete walk: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// AddAddressesHandler bulk-adds addresses to a walk, preserving list order.
func (h *WalkHandler) AddAddressesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Addresses []model.WalkAddress `json:"addresses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.Addresses) == 0 {
		http.Error(w, "addresses array required", http.StatusBadRequest)
		return
	}

	added, err := h.Repo.AddAddresses(id, payload.Addresses)
	if err != nil {
		http.Error(w, "failed to add addresses: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"added": added})
}

func (h *WalkHandler) UpdateAddressHandler(w http.ResponseWriter, r *http.Request) {
	walkID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}
	addrID, err := strconv.Atoi(chi.URLParam(r, "addrId"))
	if err != nil {
		http.Error(w, "invalid address id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Result *string `json:"result"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Repo.UpdateAddressResult(walkID, addrID, payload.Result, payload.Notes); err != nil {
		http.Error(w, "failed to update address: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// LogKnockHandler records a door-knock disposition with GPS evidence.
func (h *WalkHandler) LogKnockHandler(w http.ResponseWriter, r *http.Request) {
	walkID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}
	addrID, err := strconv.Atoi(chi.URLParam(r, "addrId"))
	if err != nil {
		http.Error(w, "invalid address id", http.StatusBadRequest)
		return
	}

	var knock service.KnockLog
	if err := json.NewDecoder(r.Body).Decode(&knock); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	verified, err := h.Service.LogKnock(walkID, addrID, knock)
	if err != nil {
		var validation *appErrors.ErrValidation
		if errors.As(err, &validation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to log knock: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "gps_verified": verified})
}

func (h *WalkHandler) DeleteAddressHandler(w http.ResponseWriter, r *http.Request) {
	walkID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid walk id", http.StatusBadRequest)
		return
	}
	addrID, err := strconv.Atoi(chi.URLParam(r, "addrId"))
	if err != nil {
		http.Error(w, "invalid address id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.DeleteAddress(walkID, addrID); err != nil {
		http.Error(w, "failed to delete address: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
