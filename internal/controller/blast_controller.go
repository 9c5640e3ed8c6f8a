// internal/controller/blast_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/fieldops/campaigntext-backend/internal/service"
)

type BlastController struct {
	BlastService *service.BlastService
}

// SendBlast queues a bulk text to the selected contacts. Delivery happens in
// the worker; the response reports what was queued and what was rejected.
func (c *BlastController) SendBlast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContactIDs   []int  `json:"contact_ids"`
		Message      string `json:"message"`
		OptOutFooter string `json:"opt_out_footer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.BlastService.SendBlast(body.ContactIDs, body.Message, body.OptOutFooter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}
