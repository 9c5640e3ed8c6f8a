// internal/service/blast_delivery.go
package service

import (
	"log"

	"github.com/fieldops/campaigntext-backend/internal/queue"
	"github.com/fieldops/campaigntext-backend/internal/repository"
	"github.com/fieldops/campaigntext-backend/internal/sms"
)

// DeliverBlastMessage sends one queued blast message and records the outcome.
// Shared by cmd/worker (AMQP consumer) and the in-process subscriber.
func DeliverBlastMessage(id int, blastRepo repository.BlastRepositoryInterface, contactRepo repository.ContactRepositoryInterface, sender sms.Sender, from string) error {
	msg, err := blastRepo.GetByID(id)
	if err != nil {
		return err
	}
	if msg == nil {
		log.Println("Blast message not found, dropping:", id)
		return nil
	}
	if msg.Status == "sent" {
		return nil
	}

	// Opt-outs received after queueing still win.
	optedOut, err := contactRepo.IsOptedOut(msg.Phone)
	if err != nil {
		return err
	}
	if optedOut {
		return blastRepo.UpdateStatus(msg.ID, "failed", "opted out after queueing")
	}

	if err := sender.Send(from, msg.Phone, msg.RenderedBody); err != nil {
		if updErr := blastRepo.UpdateStatus(msg.ID, "failed", err.Error()); updErr != nil {
			log.Println("Failed to record send failure:", updErr)
		}
		return err
	}

	return blastRepo.UpdateStatus(msg.ID, "sent", "")
}

// StartBlastSendSubscriber consumes blast jobs in-process. Used when no
// broker is available and the server falls back to the in-memory queue.
func StartBlastSendSubscriber(q queue.Queue, blastRepo repository.BlastRepositoryInterface, contactRepo repository.ContactRepositoryInterface, sender sms.Sender, from string) {
	err := q.Subscribe(queue.BlastQueueName, func(payload any) error {
		job, ok := payload.(BlastJob)
		if !ok {
			log.Println("⚠️ Invalid payload type, expected BlastJob")
			return nil
		}

		log.Println("📩 Processing queued blast message ID:", job.BlastMessageID)
		if err := DeliverBlastMessage(job.BlastMessageID, blastRepo, contactRepo, sender, from); err != nil {
			log.Println("⚠️ Failed to send blast message:", err)
			return err // triggers retry in queue
		}

		log.Println("✅ Blast message processed:", job.BlastMessageID)
		return nil
	})

	if err != nil {
		log.Println("⚠️ Failed to start subscriber for", queue.BlastQueueName, ":", err)
	}
}
