// internal/service/messaging_service.go
package service

import (
    "log"
    "strings"

    appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
    "github.com/fieldops/campaigntext-backend/internal/middleware"
    "github.com/fieldops/campaigntext-backend/internal/model"
    "github.com/fieldops/campaigntext-backend/internal/repository"
    "github.com/fieldops/campaigntext-backend/internal/sms"
)

// MessagingService is the boundary to the SMS provider. The delivery call
// always happens before any assignment mutation, so a provider failure leaves
// the assignment exactly as it was.
type MessagingService struct {
    Store       repository.P2PStoreInterface
    MessageRepo repository.MessageRepositoryInterface
    ContactRepo repository.ContactRepositoryInterface

    // NewSender builds a provider client from per-request credentials.
    NewSender func(creds sms.Credentials) sms.Sender
}

// StopKeywords trigger automatic opt-out (TCPA).
var StopKeywords = map[string]bool{
    "stop": true, "unsubscribe": true, "cancel": true, "quit": true, "end": true,
}

const optOutConfirmation = "You've been removed from our list and won't receive further messages. — Campaign HQ"

// Send delivers one message for an assignment and, only on success, records
// it and transitions the assignment to sent.
func (s *MessagingService) Send(volunteerID, assignmentID int, message string, creds sms.Credentials) error {
    if volunteerID == 0 || assignmentID == 0 || message == "" {
        return appErrors.NewValidation("volunteerId, assignmentId, and message required")
    }
    if !creds.Valid() {
        return appErrors.NewValidation("provider credentials required")
    }

    vol, err := s.Store.GetVolunteer(volunteerID)
    if err != nil {
        return err
    }
    assignment, err := s.Store.GetAssignmentWithContact(assignmentID)
    if err != nil {
        return err
    }

    sender := s.NewSender(creds)
    if err := sender.Send(creds.From, assignment.Phone, message); err != nil {
        middleware.RecordSMSSend(false)
        return err
    }
    middleware.RecordSMSSend(true)

    outbound := &model.Message{
        Phone:         assignment.Phone,
        Body:          message,
        Direction:     "outbound",
        SessionID:     &vol.SessionID,
        VolunteerName: &vol.Name,
    }
    if err := s.MessageRepo.Record(outbound); err != nil {
        return err
    }
    return s.Store.MarkSent(assignmentID)
}

// InboundResult carries the optional auto-reply for the webhook response.
type InboundResult struct {
    Reply     string
    SessionID *int
    OptedOut  bool
}

// HandleInbound processes a reply from the provider webhook. An active-session
// match moves the assignment into conversation; otherwise the message lands in
// the generic inbox and may earn a keyword auto-reply.
func (s *MessagingService) HandleInbound(from, body string) (*InboundResult, error) {
    text := strings.ToLower(strings.TrimSpace(body))

    if StopKeywords[text] {
        if err := s.ContactRepo.OptOut(from); err != nil {
            return nil, err
        }
        log.Printf("🛑 %s opted out", from)
        return &InboundResult{Reply: optOutConfirmation, OptedOut: true}, nil
    }

    assignment, err := s.Store.MatchInbound(from)
    if err != nil {
        return nil, err
    }

    msg := &model.Message{Phone: from, Body: body, Direction: "inbound"}
    if assignment != nil {
        if err := s.Store.MarkInConversation(assignment.ID); err != nil {
            return nil, err
        }
        msg.SessionID = &assignment.SessionID
    }
    if err := s.MessageRepo.Record(msg); err != nil {
        return nil, err
    }

    result := &InboundResult{SessionID: msg.SessionID}
    if assignment == nil {
        result.Reply = autoReply(text)
    }
    return result, nil
}

// Conversation returns the thread and assignment a volunteer has open.
func (s *MessagingService) Conversation(assignmentID int) (*model.AssignmentWithContact, []model.Message, error) {
    assignment, err := s.Store.GetAssignmentWithContact(assignmentID)
    if err != nil {
        return nil, nil, err
    }
    messages, err := s.MessageRepo.ListConversation(assignment.Phone, assignment.SessionID)
    if err != nil {
        return nil, nil, err
    }
    return assignment, messages, nil
}

// Reply sends a manual reply from the inbox and records it.
func (s *MessagingService) Reply(to, body string, creds sms.Credentials) error {
    if !creds.Valid() {
        return appErrors.NewValidation("provider credentials required")
    }
    sender := s.NewSender(creds)
    if err := sender.Send(creds.From, to, body); err != nil {
        middleware.RecordSMSSend(false)
        return err
    }
    middleware.RecordSMSSend(true)
    return s.MessageRepo.Record(&model.Message{Phone: to, Body: body, Direction: "outbound"})
}

func autoReply(msg string) string {
    contains := func(keys ...string) bool {
        for _, k := range keys {
            if strings.Contains(msg, k) {
                return true
            }
        }
        return false
    }

    switch {
    case contains("poll", "vote", "where", "location"):
        return "Find your polling location at vote.gov or call your county clerk. Polls are open 7am–7pm on Election Day! 🗳️ — Campaign HQ"
    case contains("time", "open", "close", "hours", "when"):
        return "Polls are open 7:00 AM – 7:00 PM on Election Day. Early voting may have different hours — check vote.gov! — Campaign HQ"
    case contains("register", "registration", "sign up", "signup"):
        return "Check your registration or register at vote.org. Don't miss the deadline! — Campaign HQ"
    case contains("who", "what", "platform", "policy", "stance"):
        return "Learn more about our campaign at our website. We'd love your support! — Campaign HQ"
    }
    return ""
}
