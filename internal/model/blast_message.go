package model

import "time"

type BlastMessage struct {
    ID           int       `db:"id" json:"id"`
    Phone        string    `db:"phone" json:"phone"`
    RenderedBody string    `db:"rendered_body" json:"rendered_body"`
    Status       string    `db:"status" json:"status"` // pending, sent, failed
    LastError    string    `db:"last_error" json:"last_error,omitempty"`
    RetryCount   int       `db:"retry_count" json:"retry_count"`
    CreatedAt    time.Time `db:"created_at" json:"created_at"`
    UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
