// internal/service/blast_service.go
package service

import (
    "log"
    "time"

    appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
    "github.com/fieldops/campaigntext-backend/internal/middleware"
    "github.com/fieldops/campaigntext-backend/internal/model"
    "github.com/fieldops/campaigntext-backend/internal/queue"
    "github.com/fieldops/campaigntext-backend/internal/repository"
)

const defaultOptOutFooter = "Reply STOP to opt out."

// maxReportedErrors caps the per-contact error list in a blast response.
const maxReportedErrors = 20

// Quiet hours per TCPA: no sends before 8am or after 9pm.
const (
    quietHourStart = 21
    quietHourEnd   = 8
)

type BlastService struct {
    ContactRepo repository.ContactRepositoryInterface
    BlastRepo   repository.BlastRepositoryInterface
    Queue       queue.Queue

    // Now is swappable for quiet-hours tests.
    Now func() time.Time
}

type BlastError struct {
    Phone  string `json:"phone"`
    Reason string `json:"reason"`
}

type BlastResult struct {
    TotalContacts int          `json:"totalContacts"`
    Queued        int          `json:"sent"`
    Failed        int          `json:"failed"`
    Errors        []BlastError `json:"errors"`
}

// BlastJob is the queue payload consumed by cmd/worker.
type BlastJob struct {
    BlastMessageID int `json:"blast_message_id"`
}

// SendBlast renders one message per contact and queues the deliverable ones.
// Per-contact failures are accumulated, never abort the batch.
func (s *BlastService) SendBlast(contactIDs []int, messageTemplate, optOutFooter string) (*BlastResult, error) {
    if len(contactIDs) == 0 {
        return nil, appErrors.NewValidation("no contacts provided")
    }
    if messageTemplate == "" {
        return nil, appErrors.NewValidation("no message body provided")
    }
    if optOutFooter == "" {
        optOutFooter = defaultOptOutFooter
    }

    contacts, err := s.ContactRepo.GetByIDs(contactIDs)
    if err != nil {
        return nil, err
    }

    result := &BlastResult{TotalContacts: len(contacts), Errors: []BlastError{}}
    addError := func(phone, reason string) {
        result.Failed++
        if len(result.Errors) < maxReportedErrors {
            result.Errors = append(result.Errors, BlastError{Phone: phone, Reason: reason})
        }
    }

    for _, contact := range contacts {
        optedOut, err := s.ContactRepo.IsOptedOut(contact.Phone)
        if err != nil {
            addError(contact.Phone, err.Error())
            continue
        }
        if optedOut {
            addError(contact.Phone, "Opted out")
            continue
        }

        if hour := s.now().Hour(); hour < quietHourEnd || hour >= quietHourStart {
            addError(contact.Phone, "Outside allowed hours (8am-9pm)")
            continue
        }

        body := RenderTemplate(messageTemplate, map[string]string{
            "firstName": contact.FirstName,
            "lastName":  contact.LastName,
            "city":      contact.City,
        })
        body += "\n" + optOutFooter

        msg := &model.BlastMessage{Phone: contact.Phone, RenderedBody: body}
        if err := s.BlastRepo.Create(msg); err != nil {
            addError(contact.Phone, err.Error())
            continue
        }

        if err := s.Queue.Publish(queue.BlastQueueName, BlastJob{BlastMessageID: msg.ID}); err != nil {
            log.Println("⚠️ failed to enqueue blast message ID", msg.ID, ":", err)
            addError(contact.Phone, "queue unavailable")
            continue
        }
        result.Queued++
    }

    middleware.RecordBlastQueued(result.Queued)
    return result, nil
}

func (s *BlastService) now() time.Time {
    if s.Now != nil {
        return s.Now()
    }
    return time.Now()
}
