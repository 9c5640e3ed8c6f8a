package model

import "time"

type Event struct {
    ID          int       `db:"id" json:"id"`
    Title       string    `db:"title" json:"title"`
    Description string    `db:"description" json:"description"`
    Location    string    `db:"location" json:"location"`
    EventDate   string    `db:"event_date" json:"event_date"`
    EventTime   string    `db:"event_time" json:"event_time"`
    Status      string    `db:"status" json:"status"` // upcoming, done, cancelled
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type EventRSVP struct {
    ID           int        `db:"id" json:"id"`
    EventID      int        `db:"event_id" json:"event_id"`
    ContactPhone string     `db:"contact_phone" json:"contact_phone"`
    ContactName  string     `db:"contact_name" json:"contact_name"`
    RSVPStatus   string     `db:"rsvp_status" json:"rsvp_status"` // invited, confirmed, declined, attended
    InvitedAt    time.Time  `db:"invited_at" json:"invited_at"`
    RespondedAt  *time.Time `db:"responded_at" json:"responded_at,omitempty"`
    CheckedInAt  *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
}

// RSVPStats aggregates RSVP responses per event.
type RSVPStats struct {
    Total     int `json:"total"`
    Confirmed int `json:"confirmed"`
    Declined  int `json:"declined"`
    Attended  int `json:"attended"`
}
