// internal/handler/message_handler.go
package handler

import (
	"encoding/json"
	"encoding/xml"
	"log"
	"net/http"

	"github.com/fieldops/campaigntext-backend/internal/repository"
	"github.com/fieldops/campaigntext-backend/internal/service"
	"github.com/fieldops/campaigntext-backend/internal/sms"
)

// MessageHandler serves the provider webhook and the shared inbox.
type MessageHandler struct {
	MessagingService *service.MessagingService
	MessageRepo      repository.MessageRepositoryInterface
	ContactRepo      repository.ContactRepositoryInterface
}

// twiml is the response document the provider expects from the webhook.
type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// IncomingHandler receives inbound SMS from the provider (form-encoded
// From/To/Body) and answers with TwiML. STOP keywords opt the number out;
// unmatched messages may earn a keyword auto-reply.
func (h *MessageHandler) IncomingHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" {
		http.Error(w, "From is required", http.StatusBadRequest)
		return
	}

	result, err := h.MessagingService.HandleInbound(from, body)
	if err != nil {
		log.Println("❌ failed to process inbound message:", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(twiml{Message: result.Reply})
}

// ListMessagesHandler returns the inbound inbox plus opted-out numbers.
func (h *MessageHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.MessageRepo.ListInbound(200)
	if err != nil {
		http.Error(w, "failed to fetch messages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	optOuts, err := h.ContactRepo.ListOptOuts()
	if err != nil {
		http.Error(w, "failed to fetch opt-outs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"messages": messages,
		"opt_outs": optOuts,
	})
}

// ReplyHandler sends a manual reply from the inbox.
func (h *MessageHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		To         string `json:"to"`
		Body       string `json:"body"`
		AccountSID string `json:"accountSid"`
		AuthToken  string `json:"authToken"`
		FromNumber string `json:"fromNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.To == "" || payload.Body == "" {
		http.Error(w, "to and body are required", http.StatusBadRequest)
		return
	}

	creds := sms.Credentials{AccountSID: payload.AccountSID, AuthToken: payload.AuthToken, From: payload.FromNumber}
	if err := h.MessagingService.Reply(payload.To, payload.Body, creds); err != nil {
		http.Error(w, "failed to send reply: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
