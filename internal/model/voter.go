package model

import "time"

type Voter struct {
    ID                 int       `db:"id" json:"id"`
    FirstName          string    `db:"first_name" json:"first_name"`
    LastName           string    `db:"last_name" json:"last_name"`
    Phone              string    `db:"phone" json:"phone"`
    Email              string    `db:"email" json:"email"`
    Address            string    `db:"address" json:"address"`
    City               string    `db:"city" json:"city"`
    Zip                string    `db:"zip" json:"zip"`
    Party              string    `db:"party" json:"party"`
    SupportLevel       string    `db:"support_level" json:"support_level"`
    VoterScore         int       `db:"voter_score" json:"voter_score"`
    Tags               string    `db:"tags" json:"tags"`
    Notes              string    `db:"notes" json:"notes"`
    RegistrationNumber string    `db:"registration_number" json:"registration_number"`
    QRToken            string    `db:"qr_token" json:"qr_token"`
    CreatedAt          time.Time `db:"created_at" json:"created_at"`
    UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type VoterContact struct {
    ID          int       `db:"id" json:"id"`
    VoterID     int       `db:"voter_id" json:"voter_id"`
    ContactType string    `db:"contact_type" json:"contact_type"`
    Result      string    `db:"result" json:"result"`
    Notes       string    `db:"notes" json:"notes"`
    ContactedBy string    `db:"contacted_by" json:"contacted_by"`
    ContactedAt time.Time `db:"contacted_at" json:"contacted_at"`
}

type VoterCheckin struct {
    ID          int       `db:"id" json:"id"`
    VoterID     int       `db:"voter_id" json:"voter_id"`
    EventID     int       `db:"event_id" json:"event_id"`
    CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
}
