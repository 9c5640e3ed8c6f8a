package model

import "time"

type BlockWalk struct {
    ID          int       `db:"id" json:"id"`
    Name        string    `db:"name" json:"name"`
    Description string    `db:"description" json:"description"`
    AssignedTo  string    `db:"assigned_to" json:"assigned_to"`
    Status      string    `db:"status" json:"status"` // pending, in_progress, done
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type WalkAddress struct {
    ID          int        `db:"id" json:"id"`
    WalkID      int        `db:"walk_id" json:"walk_id"`
    Address     string     `db:"address" json:"address"`
    Unit        string     `db:"unit" json:"unit"`
    City        string     `db:"city" json:"city"`
    Zip         string     `db:"zip" json:"zip"`
    VoterName   string     `db:"voter_name" json:"voter_name"`
    VoterID     *int       `db:"voter_id" json:"voter_id,omitempty"`
    Result      string     `db:"result" json:"result"` // not_visited or a knock disposition
    Notes       string     `db:"notes" json:"notes"`
    KnockedAt   *time.Time `db:"knocked_at" json:"knocked_at,omitempty"`
    SortOrder   int        `db:"sort_order" json:"sort_order"`
    Lat         *float64   `db:"lat" json:"lat,omitempty"`
    Lng         *float64   `db:"lng" json:"lng,omitempty"`
    GPSLat      *float64   `db:"gps_lat" json:"gps_lat,omitempty"`
    GPSLng      *float64   `db:"gps_lng" json:"gps_lng,omitempty"`
    GPSAccuracy *float64   `db:"gps_accuracy" json:"gps_accuracy,omitempty"`
    GPSVerified bool       `db:"gps_verified" json:"gps_verified"`
}
