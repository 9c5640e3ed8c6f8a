package repository

import (
	"database/sql"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

type EventRepository struct {
	DB *sql.DB
}

const eventColumns = `id, title, description, location, event_date, event_time, status, created_at`

func (r *EventRepository) Create(e *model.Event) error {
	if e.Status == "" {
		e.Status = "upcoming"
	}
	query := `
        INSERT INTO events (title, description, location, event_date, event_time, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query, e.Title, e.Description, e.Location, e.EventDate, e.EventTime, e.Status).Scan(&e.ID, &e.CreatedAt)
}

func (r *EventRepository) GetByID(id int) (*model.Event, error) {
	var e model.Event
	err := r.DB.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id=$1`, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.EventDate, &e.EventTime, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) ListAll() ([]model.Event, error) {
	rows, err := r.DB.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY event_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.EventDate, &e.EventTime, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type EventUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	EventDate   *string `json:"event_date"`
	EventTime   *string `json:"event_time"`
	Status      *string `json:"status"`
}

func (r *EventRepository) Update(id int, u EventUpdate) error {
	query := `UPDATE events SET
        title = COALESCE($1, title), description = COALESCE($2, description),
        location = COALESCE($3, location), event_date = COALESCE($4, event_date),
        event_time = COALESCE($5, event_time), status = COALESCE($6, status)
        WHERE id = $7`
	_, err := r.DB.Exec(query, u.Title, u.Description, u.Location, u.EventDate, u.EventTime, u.Status, id)
	return err
}

func (r *EventRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM events WHERE id=$1`, id)
	return err
}

func (r *EventRepository) RSVPStats(eventID int) (*model.RSVPStats, error) {
	stats := &model.RSVPStats{}
	err := r.DB.QueryRow(`
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE rsvp_status = 'confirmed'),
            COUNT(*) FILTER (WHERE rsvp_status = 'declined'),
            COUNT(*) FILTER (WHERE rsvp_status = 'attended')
        FROM event_rsvps WHERE event_id=$1
    `, eventID).Scan(&stats.Total, &stats.Confirmed, &stats.Declined, &stats.Attended)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *EventRepository) ListRSVPs(eventID int) ([]model.EventRSVP, error) {
	rows, err := r.DB.Query(
		`SELECT id, event_id, contact_phone, contact_name, rsvp_status, invited_at, responded_at, checked_in_at
         FROM event_rsvps WHERE event_id=$1 ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rsvps := []model.EventRSVP{}
	for rows.Next() {
		var rv model.EventRSVP
		if err := rows.Scan(&rv.ID, &rv.EventID, &rv.ContactPhone, &rv.ContactName, &rv.RSVPStatus, &rv.InvitedAt, &rv.RespondedAt, &rv.CheckedInAt); err != nil {
			return nil, err
		}
		rsvps = append(rsvps, rv)
	}
	return rsvps, rows.Err()
}

// AddRSVPs invites contacts in one transaction.
func (r *EventRepository) AddRSVPs(eventID int, rsvps []model.EventRSVP) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}

	for _, rv := range rsvps {
		status := rv.RSVPStatus
		if status == "" {
			status = "invited"
		}
		if _, err := tx.Exec(
			`INSERT INTO event_rsvps (event_id, contact_phone, contact_name, rsvp_status) VALUES ($1, $2, $3, $4)`,
			eventID, rv.ContactPhone, rv.ContactName, status,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *EventRepository) UpdateRSVPStatus(eventID, rsvpID int, status string) error {
	_, err := r.DB.Exec(
		`UPDATE event_rsvps SET rsvp_status=$1, responded_at=NOW() WHERE id=$2 AND event_id=$3`,
		status, rsvpID, eventID,
	)
	return err
}
