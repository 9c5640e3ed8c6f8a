package model

import "time"

// AssignmentStatus is the closed set of lifecycle states for an assignment.
type AssignmentStatus string

const (
    StatusPending        AssignmentStatus = "pending"
    StatusSent           AssignmentStatus = "sent"
    StatusInConversation AssignmentStatus = "in_conversation"
    StatusCompleted      AssignmentStatus = "completed"
    StatusSkipped        AssignmentStatus = "skipped"
)

// Terminal reports whether no further status transition is permitted.
func (s AssignmentStatus) Terminal() bool {
    return s == StatusCompleted || s == StatusSkipped
}

// CanTransition encodes the state machine:
// pending -> sent -> in_conversation -> completed, skipped from pending or sent.
func (s AssignmentStatus) CanTransition(to AssignmentStatus) bool {
    switch s {
    case StatusPending:
        return to == StatusSent || to == StatusSkipped || to == StatusCompleted
    case StatusSent:
        return to == StatusInConversation || to == StatusSkipped || to == StatusCompleted
    case StatusInConversation:
        return to == StatusCompleted
    }
    return false
}

const (
    ModeAutoSplit = "auto_split"
    ModeClaim     = "claim"
)

type Session struct {
    ID              int       `db:"id" json:"id"`
    Name            string    `db:"name" json:"name"`
    MessageTemplate string    `db:"message_template" json:"message_template"`
    AssignmentMode  string    `db:"assignment_mode" json:"assignment_mode"` // auto_split, claim
    JoinCode        string    `db:"join_code" json:"join_code"`
    Status          string    `db:"status" json:"status"` // active, closed
    CodeExpiresAt   time.Time `db:"code_expires_at" json:"code_expires_at"`
    CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Volunteer struct {
    ID        int       `db:"id" json:"id"`
    SessionID int       `db:"session_id" json:"session_id"`
    Name      string    `db:"name" json:"name"`
    IsOnline  bool      `db:"is_online" json:"is_online"`
    JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

type Assignment struct {
    ID          int              `db:"id" json:"id"`
    SessionID   int              `db:"session_id" json:"session_id"`
    VolunteerID *int             `db:"volunteer_id" json:"volunteer_id,omitempty"`
    ContactID   int              `db:"contact_id" json:"contact_id"`
    Status      AssignmentStatus `db:"status" json:"status"`

    // OriginalVolunteerID remembers the first owner a conversation was moved
    // away from, so it can snap back when they return. Single hop only.
    OriginalVolunteerID *int `db:"original_volunteer_id" json:"original_volunteer_id,omitempty"`

    AssignedAt  time.Time  `db:"assigned_at" json:"assigned_at"`
    SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
    CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// AssignmentWithContact joins the contact fields a volunteer needs to text.
type AssignmentWithContact struct {
    Assignment
    Phone     string `db:"phone" json:"phone"`
    FirstName string `db:"first_name" json:"first_name"`
    LastName  string `db:"last_name" json:"last_name"`
    City      string `db:"city" json:"city"`
}
