package model

import "time"

type Message struct {
    ID            int       `db:"id" json:"id"`
    Phone         string    `db:"phone" json:"phone"`
    Body          string    `db:"body" json:"body"`
    Direction     string    `db:"direction" json:"direction"` // inbound, outbound
    SessionID     *int      `db:"session_id" json:"session_id,omitempty"`
    VolunteerName *string   `db:"volunteer_name" json:"volunteer_name,omitempty"`
    Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}

type OptOut struct {
    ID         int       `db:"id" json:"id"`
    Phone      string    `db:"phone" json:"phone"`
    OptedOutAt time.Time `db:"opted_out_at" json:"opted_out_at"`
}
