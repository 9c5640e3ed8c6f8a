// internal/controller/p2p_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/service"
	"github.com/fieldops/campaigntext-backend/internal/sms"

	"github.com/go-chi/chi/v5"
)

type P2PController struct {
	P2PService       *service.P2PService
	MessagingService *service.MessagingService
}

// writeError maps the service error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validation *appErrors.ErrValidation
	var codeInvalid *appErrors.ErrJoinCodeInvalid
	var codeExpired *appErrors.ErrJoinCodeExpired
	var sessionNotFound *appErrors.ErrSessionNotFound
	var volunteerNotFound *appErrors.ErrVolunteerNotFound
	var assignmentNotFound *appErrors.ErrAssignmentNotFound
	var invalidTransition *appErrors.ErrInvalidTransition

	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &codeInvalid):
		status = http.StatusNotFound
	case errors.As(err, &codeExpired):
		status = http.StatusGone
	case errors.As(err, &sessionNotFound), errors.As(err, &volunteerNotFound), errors.As(err, &assignmentNotFound):
		status = http.StatusNotFound
	case errors.As(err, &invalidTransition):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (c *P2PController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		MessageTemplate string `json:"message_template"`
		AssignmentMode  string `json:"assignment_mode"`
		ContactIDs      []int  `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	session, err := c.P2PService.CreateSession(body.Name, body.MessageTemplate, body.AssignmentMode, body.ContactIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":  true,
		"id":       session.ID,
		"joinCode": session.JoinCode,
	})
}

func (c *P2PController) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := c.P2PService.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"sessions": sessions})
}

func (c *P2PController) GetSession(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	detail, err := c.P2PService.SessionDetail(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, detail)
}

func (c *P2PController) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		Status         *string `json:"status"`
		AssignmentMode *string `json:"assignment_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.P2PService.UpdateSession(id, body.Status, body.AssignmentMode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (c *P2PController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.P2PService.DeleteSession(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (c *P2PController) Join(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.P2PService.Join(body.Name, body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (c *P2PController) SetVolunteerStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		IsOnline *bool `json:"is_online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsOnline == nil {
		http.Error(w, "invalid body: is_online flag required", http.StatusBadRequest)
		return
	}

	if err := c.P2PService.SetVolunteerOnline(id, *body.IsOnline); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true, "is_online": *body.IsOnline})
}

func (c *P2PController) VolunteerQueue(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	view, err := c.P2PService.Queue(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

func (c *P2PController) Send(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VolunteerID  int    `json:"volunteerId"`
		AssignmentID int    `json:"assignmentId"`
		Message      string `json:"message"`
		AccountSID   string `json:"accountSid"`
		AuthToken    string `json:"authToken"`
		FromNumber   string `json:"fromNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	creds := sms.Credentials{AccountSID: body.AccountSID, AuthToken: body.AuthToken, From: body.FromNumber}
	if err := c.MessagingService.Send(body.VolunteerID, body.AssignmentID, body.Message, creds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (c *P2PController) Conversation(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "assignmentId"))

	assignment, messages, err := c.MessagingService.Conversation(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"assignment": assignment,
		"messages":   messages,
	})
}

func (c *P2PController) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.P2PService.Complete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (c *P2PController) SkipAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.P2PService.Skip(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}
