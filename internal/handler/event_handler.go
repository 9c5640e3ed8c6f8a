// internal/handler/event_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
)

type EventHandler struct {
	Repo *repository.EventRepository
}

func NewEventHandler(repo *repository.EventRepository) *EventHandler {
	return &EventHandler{Repo: repo}
}

// ListEventsHandler returns all events, each with RSVP stats.
func (h *EventHandler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.Repo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type eventWithStats struct {
		model.Event
		Stats *model.RSVPStats `json:"stats"`
	}
	out := []eventWithStats{}
	for _, e := range events {
		stats, err := h.Repo.RSVPStats(e.ID)
		if err != nil {
			http.Error(w, "failed to fetch RSVP stats: "+err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, eventWithStats{Event: e, Stats: stats})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"events": out})
}

func (h *EventHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if event.Title == "" || event.EventDate == "" {
		http.Error(w, "title and event_date are required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Create(&event); err != nil {
		http.Error(w, "failed to create event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// GetEventHandler returns one event with its full RSVP list.
func (h *EventHandler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	event, err := h.Repo.GetByID(id)
	if err != nil {
		http.Error(w, "failed to fetch event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	rsvps, err := h.Repo.ListRSVPs(id)
	if err != nil {
		http.Error(w, "failed to fetch RSVPs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := h.Repo.RSVPStats(id)
	if err != nil {
		http.Error(w, "failed to fetch RSVP stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"event": event,
		"rsvps": rsvps,
		"stats": stats,
	})
}

func (h *EventHandler) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var update repository.EventUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(id, update); err != nil {
		http.Error(w, "failed to update event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *EventHandler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(id); err != nil {
		http.Error(w, "failed to delete event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// AddRSVPsHandler bulk-invites contacts to an event in one transaction.
func (h *EventHandler) AddRSVPsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var payload struct {
		RSVPs []model.EventRSVP `json:"rsvps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.RSVPs) == 0 {
		http.Error(w, "rsvps array required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.AddRSVPs(id, payload.RSVPs); err != nil {
		http.Error(w, "failed to add RSVPs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "added": len(payload.RSVPs)})
}

func (h *EventHandler) UpdateRSVPHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	rsvpID, err := strconv.Atoi(chi.URLParam(r, "rsvpId"))
	if err != nil {
		http.Error(w, "invalid rsvp id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.UpdateRSVPStatus(eventID, rsvpID, payload.Status); err != nil {
		http.Error(w, "failed to update RSVP: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
